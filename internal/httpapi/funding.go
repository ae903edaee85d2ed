package httpapi

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/poolcard/ledger-core/internal/domain"
	"github.com/poolcard/ledger-core/pkg/apperr"
	"github.com/poolcard/ledger-core/pkg/httpjson"
)

// FundingRouteAdminRepository is the narrow storage port the funding-route
// admin endpoints depend on, satisfied by
// internal/storage/postgres.FundingRouteRepository.
type FundingRouteAdminRepository interface {
	Upsert(ctx context.Context, route domain.BaasFundingRoute) error
	ListByWallet(ctx context.Context, walletID string) ([]domain.BaasFundingRoute, error)
}

// WalletAdminChecker verifies the requesting user holds the wallet's ADMIN
// role, satisfied by internal/storage/postgres.WalletRepository.
type WalletAdminChecker interface {
	IsAdmin(ctx context.Context, walletID, userID string) (bool, error)
}

// FundingHandler implements the admin-only funding-route CRUD of spec.md §6.
type FundingHandler struct {
	Routes FundingRouteAdminRepository
	Admins WalletAdminChecker
}

func (h *FundingHandler) requireAdmin(c *fiber.Ctx, walletID string) error {
	isAdmin, err := h.Admins.IsAdmin(c.Context(), walletID, userIDFromContext(c))
	if err != nil {
		return err
	}

	if !isAdmin {
		return apperr.ForbiddenError{EntityType: "Wallet", Code: "LED-0021", Title: "Admin Required", Message: "Only a wallet admin may manage funding routes."}
	}

	return nil
}

type createFundingRouteRequest struct {
	ProviderName      string `json:"providerName"`
	ProviderAccountID string `json:"providerAccountId"`
	Reference         string `json:"reference,omitempty"`
	UserID            string `json:"userId"`
	CardID            string `json:"cardId"`
}

type fundingRouteResponse struct {
	Route domain.BaasFundingRoute `json:"route"`
}

// Create handles POST /wallet/{walletId}/funding-routes (upsert semantics).
func (h *FundingHandler) Create(c *fiber.Ctx) error {
	walletID := c.Params("walletId")

	if err := h.requireAdmin(c, walletID); err != nil {
		return httpjson.WithError(c, err)
	}

	var body createFundingRouteRequest
	if err := c.BodyParser(&body); err != nil {
		return httpjson.WithError(c, apperr.ValidationError{EntityType: "BaasFundingRoute", Code: "LED-0003", Message: "malformed request body"})
	}

	route := domain.BaasFundingRoute{
		ProviderName:      body.ProviderName,
		ProviderAccountID: body.ProviderAccountID,
		Reference:         body.Reference,
		WalletID:          walletID,
		CardID:            body.CardID,
		UserID:            body.UserID,
	}

	if err := h.Routes.Upsert(c.Context(), route); err != nil {
		return httpjson.WithError(c, err)
	}

	return httpjson.Created(c, fundingRouteResponse{Route: route})
}

// List handles GET /wallet/{walletId}/funding-routes.
func (h *FundingHandler) List(c *fiber.Ctx) error {
	walletID := c.Params("walletId")

	if err := h.requireAdmin(c, walletID); err != nil {
		return httpjson.WithError(c, err)
	}

	routes, err := h.Routes.ListByWallet(c.Context(), walletID)
	if err != nil {
		return httpjson.WithError(c, err)
	}

	return httpjson.OK(c, routes)
}
