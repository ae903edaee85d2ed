package domain

// BaasFundingRoute maps an inbound provider credit to a (card, user) pair.
// Unique on (ProviderName, ProviderAccountID, Reference); an empty Reference
// denotes the wallet's default route for that provider account.
type BaasFundingRoute struct {
	ProviderName    string `json:"providerName"`
	ProviderAccountID string `json:"providerAccountId"`
	Reference       string `json:"reference"`
	WalletID        string `json:"walletId"`
	CardID          string `json:"cardId"`
	UserID          string `json:"userId"`
}
