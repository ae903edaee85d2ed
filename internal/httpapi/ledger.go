package httpapi

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/poolcard/ledger-core/internal/domain"
	"github.com/poolcard/ledger-core/internal/ledger/service"
	"github.com/poolcard/ledger-core/internal/reconciliation"
	"github.com/poolcard/ledger-core/pkg/apperr"
	"github.com/poolcard/ledger-core/pkg/httpjson"
	"github.com/poolcard/ledger-core/pkg/idgen"
)

// CardLookup resolves a card by its internal id, letting this card-centric
// handler recover the walletId the underlying service recipes need.
type CardLookup interface {
	FindByID(ctx context.Context, cardID string) (*domain.Card, error)
}

// LedgerHandler implements the card-centric endpoints of spec.md §6
// ("Deposits & reconciliation (card-centric)").
type LedgerHandler struct {
	Cards         CardLookup
	Service       *service.Service
	Reconciliation *reconciliation.Service
}

func (h *LedgerHandler) card(c *fiber.Ctx) (*domain.Card, error) {
	cardID := c.Params("cardId")
	return h.Cards.FindByID(c.Context(), cardID)
}

// idempotencyKey returns the client-supplied Idempotency-Key header, or a
// freshly generated one when absent. The posting engine treats this as the
// transactionId, so a client that wants exactly-once semantics across
// retries must send the same key on every retry of the same logical request.
func idempotencyKey(c *fiber.Ctx) string {
	if key := c.Get("Idempotency-Key"); key != "" {
		return key
	}

	return idgen.New()
}

type depositRequest struct {
	Amount   int64          `json:"amount"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

type postingResponse struct {
	TransactionID string `json:"transactionId"`
	Ledger        any    `json:"ledger"`
}

// Deposit handles POST /ledger/cards/{cardId}/deposit.
func (h *LedgerHandler) Deposit(c *fiber.Ctx) error {
	var body depositRequest
	if err := c.BodyParser(&body); err != nil {
		return httpjson.WithError(c, apperr.ValidationError{EntityType: "LedgerEntry", Code: "LED-0003", Message: "malformed request body"})
	}

	if body.Amount <= 0 {
		return httpjson.WithError(c, apperr.ValidateBusinessError(apperr.ErrInvalidAmount, "LedgerEntry"))
	}

	card, err := h.card(c)
	if err != nil {
		return httpjson.WithError(c, err)
	}

	txID := idempotencyKey(c)

	result, err := h.Service.PostCardDeposit(c.Context(), card.WalletID, card.ID, userIDFromContext(c), body.Amount, txID, body.Metadata)
	if err != nil {
		return httpjson.WithError(c, err)
	}

	return httpjson.Created(c, postingResponse{TransactionID: txID, Ledger: result})
}

// Withdraw handles POST /ledger/cards/{cardId}/withdraw, the immediate
// variant described in spec.md §6: a direct member-equity-to-pool debit,
// not the two-phase withdrawal coordinator under internal/withdrawal.
func (h *LedgerHandler) Withdraw(c *fiber.Ctx) error {
	var body depositRequest
	if err := c.BodyParser(&body); err != nil {
		return httpjson.WithError(c, apperr.ValidationError{EntityType: "LedgerEntry", Code: "LED-0003", Message: "malformed request body"})
	}

	if body.Amount <= 0 {
		return httpjson.WithError(c, apperr.ValidateBusinessError(apperr.ErrInvalidAmount, "LedgerEntry"))
	}

	card, err := h.card(c)
	if err != nil {
		return httpjson.WithError(c, err)
	}

	txID := idempotencyKey(c)

	splits := []service.Split{{UserID: userIDFromContext(c), Amount: body.Amount}}

	result, err := h.Service.PostCardCapture(c.Context(), card.WalletID, card.ID, splits, txID, body.Metadata)
	if err != nil {
		return httpjson.WithError(c, err)
	}

	return httpjson.Created(c, postingResponse{TransactionID: txID, Ledger: result})
}

type captureSplit struct {
	UserID string `json:"userId"`
	Amount int64  `json:"amount"`
}

type captureRequest struct {
	Splits   []captureSplit `json:"splits"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Capture handles POST /ledger/cards/{cardId}/capture.
func (h *LedgerHandler) Capture(c *fiber.Ctx) error {
	var body captureRequest
	if err := c.BodyParser(&body); err != nil {
		return httpjson.WithError(c, apperr.ValidationError{EntityType: "LedgerEntry", Code: "LED-0003", Message: "malformed request body"})
	}

	if len(body.Splits) == 0 {
		return httpjson.WithError(c, apperr.ValidateBusinessError(apperr.ErrNoPostings, "LedgerEntry"))
	}

	card, err := h.card(c)
	if err != nil {
		return httpjson.WithError(c, err)
	}

	splits := make([]service.Split, 0, len(body.Splits))
	for _, s := range body.Splits {
		splits = append(splits, service.Split{UserID: s.UserID, Amount: s.Amount})
	}

	txID := idempotencyKey(c)

	result, err := h.Service.PostCardCapture(c.Context(), card.WalletID, card.ID, splits, txID, body.Metadata)
	if err != nil {
		return httpjson.WithError(c, err)
	}

	return httpjson.Created(c, postingResponse{TransactionID: txID, Ledger: result})
}

// Reconciliation handles GET /ledger/cards/{cardId}/reconciliation.
func (h *LedgerHandler) Reconciliation(c *fiber.Ctx) error {
	cardID := c.Params("cardId")

	report, err := h.Reconciliation.Card(c.Context(), cardID)
	if err != nil {
		return httpjson.WithError(c, err)
	}

	return httpjson.OK(c, report)
}
