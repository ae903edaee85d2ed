// Package domain holds the persistence-agnostic entities of the shared-wallet
// ledger: wallets, cards, ledger accounts/entries, holds, withdrawals and
// funding routes.
package domain

import "time"

// Role is a wallet member's role.
type Role string

const (
	RoleAdmin  Role = "ADMIN"
	RoleMember Role = "MEMBER"
)

// Wallet is a named group owned by one admin user, used purely as a grouping
// container for cards and members.
type Wallet struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	AdminID   string    `json:"adminId"`
	CreatedAt time.Time `json:"createdAt"`
}

// WalletMember links a user to a wallet with a role. Unique on (WalletID, UserID).
type WalletMember struct {
	WalletID string    `json:"walletId"`
	UserID   string    `json:"userId"`
	Role     Role      `json:"role"`
	JoinedAt time.Time `json:"joinedAt"`
}

// IsAdmin reports whether the member holds the ADMIN role.
func (m WalletMember) IsAdmin() bool {
	return m.Role == RoleAdmin
}
