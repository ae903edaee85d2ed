package httpapi

import (
	"github.com/gofiber/fiber/v2"

	"github.com/poolcard/ledger-core/pkg/httpjson"
)

// Handlers bundles the per-resource handlers registered on the fiber app.
type Handlers struct {
	Auth     AuthResolver
	Ledger   *LedgerHandler
	Withdraw *WithdrawalHandler
	Webhook  *WebhookHandler
	Funding  *FundingHandler
}

// NewApp builds the fiber app for the ledger core's HTTP surface
// (spec.md §6), registering every route behind bearer auth except the
// provider webhook endpoints, which verify via their own signature check.
func NewApp(h Handlers) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return httpjson.WithError(c, err)
		},
	})

	app.Post("/webhooks/baas/:provider", h.Webhook.Baas)
	app.Post("/webhooks/synctera", h.Webhook.Synctera)

	authed := app.Group("", authenticate(h.Auth))

	ledger := authed.Group("/ledger/cards/:cardId")
	ledger.Post("/deposit", h.Ledger.Deposit)
	ledger.Post("/withdraw", h.Ledger.Withdraw)
	ledger.Post("/capture", h.Ledger.Capture)
	ledger.Get("/reconciliation", h.Ledger.Reconciliation)

	wallet := authed.Group("/wallet/:walletId")
	wallet.Post("/withdrawals", h.Withdraw.Create)
	wallet.Get("/withdrawals", h.Withdraw.List)
	wallet.Get("/withdrawals/:withdrawalId", h.Withdraw.Get)
	wallet.Delete("/withdrawals/:withdrawalId", h.Withdraw.Cancel)
	wallet.Post("/funding-routes", h.Funding.Create)
	wallet.Get("/funding-routes", h.Funding.List)

	return app
}
