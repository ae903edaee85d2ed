package httpapi

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/poolcard/ledger-core/internal/domain"
	"github.com/poolcard/ledger-core/internal/withdrawal"
	"github.com/poolcard/ledger-core/pkg/apperr"
	"github.com/poolcard/ledger-core/pkg/httpjson"
)

// WithdrawalHandler implements the wallet-scoped withdrawal endpoints of
// spec.md §6 ("Withdrawals (wallet-scoped)").
type WithdrawalHandler struct {
	Coordinator *withdrawal.Coordinator
}

type createWithdrawalRequest struct {
	AmountMinor           int64          `json:"amountMinor"`
	Currency              string         `json:"currency"`
	CardID                string         `json:"cardId"`
	DestinationCardToken  string         `json:"destinationCardToken"`
	Metadata              map[string]any `json:"metadata,omitempty"`
}

type withdrawalResponse struct {
	Request  *domain.WithdrawalRequest  `json:"request"`
	Transfer *domain.WithdrawalTransfer `json:"transfer"`
}

// Create handles POST /wallet/{walletId}/withdrawals.
func (h *WithdrawalHandler) Create(c *fiber.Ctx) error {
	var body createWithdrawalRequest
	if err := c.BodyParser(&body); err != nil {
		return httpjson.WithError(c, apperr.ValidationError{EntityType: "WithdrawalRequest", Code: "LED-0003", Message: "malformed request body"})
	}

	walletID := c.Params("walletId")

	req, transfer, err := h.Coordinator.CreateRequest(c.Context(), walletID, body.CardID, userIDFromContext(c),
		body.AmountMinor, body.Currency, body.DestinationCardToken, body.Metadata)
	if err != nil {
		return httpjson.WithError(c, err)
	}

	return httpjson.Created(c, withdrawalResponse{Request: req, Transfer: transfer})
}

// List handles GET /wallet/{walletId}/withdrawals?limit&offset&status.
func (h *WithdrawalHandler) List(c *fiber.Ctx) error {
	walletID := c.Params("walletId")

	limit, err := strconv.Atoi(c.Query("limit", "20"))
	if err != nil || limit <= 0 {
		limit = 20
	}

	offset, err := strconv.Atoi(c.Query("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}

	var status *domain.WithdrawalStatus
	if raw := c.Query("status"); raw != "" {
		s := domain.WithdrawalStatus(raw)
		status = &s
	}

	requests, err := h.Coordinator.List(c.Context(), walletID, status, limit, offset)
	if err != nil {
		return httpjson.WithError(c, err)
	}

	return httpjson.OK(c, requests)
}

// Get handles GET /wallet/{walletId}/withdrawals/{withdrawalId}.
func (h *WithdrawalHandler) Get(c *fiber.Ctx) error {
	req, err := h.Coordinator.Get(c.Context(), c.Params("withdrawalId"))
	if err != nil {
		return httpjson.WithError(c, err)
	}

	return httpjson.OK(c, req)
}

// Cancel handles a client-initiated cancellation. Not named as its own
// bullet in spec.md §6 but required by §4.4's documented lifecycle (Cancel
// is only legal while PENDING); exposed as DELETE to stay within the
// wallet-scoped withdrawal resource.
func (h *WithdrawalHandler) Cancel(c *fiber.Ctx) error {
	if err := h.Coordinator.Cancel(c.Context(), c.Params("withdrawalId")); err != nil {
		return httpjson.WithError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}
