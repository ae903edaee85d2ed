// Package withdrawal is the two-phase commit coordinator between the
// internal ledger and the external payout provider (SPEC_FULL.md §4.4).
// Grounded on the UseCase-with-injected-repository pattern plus the
// teacher's provider-adapter error taxonomy for transient/permanent
// failures.
package withdrawal

import (
	"context"
	"time"

	"github.com/poolcard/ledger-core/internal/domain"
	"github.com/poolcard/ledger-core/internal/ledger/service"
	"github.com/poolcard/ledger-core/internal/provider"
	"github.com/poolcard/ledger-core/pkg/apperr"
	"github.com/poolcard/ledger-core/pkg/idgen"
	"github.com/poolcard/ledger-core/pkg/mlog"
	"github.com/poolcard/ledger-core/pkg/mopentelemetry"
)

// Repository is the storage port for withdrawal requests and transfers.
type Repository interface {
	CreateRequest(ctx context.Context, req domain.WithdrawalRequest) (*domain.WithdrawalRequest, error)
	FindRequest(ctx context.Context, requestID string) (*domain.WithdrawalRequest, error)
	UpdateRequestStatus(ctx context.Context, requestID string, status domain.WithdrawalStatus, failureReason string, at time.Time) error
	CreateTransfer(ctx context.Context, transfer domain.WithdrawalTransfer) (*domain.WithdrawalTransfer, error)
	FindTransferByProviderID(ctx context.Context, providerName, providerTransferID string) (*domain.WithdrawalTransfer, error)
	UpdateTransferStatus(ctx context.Context, transferID string, status domain.TransferStatus) error
	// ListByWallet paginates a wallet's withdrawal requests, newest first,
	// optionally filtered by status.
	ListByWallet(ctx context.Context, walletID string, status *domain.WithdrawalStatus, limit, offset int) ([]domain.WithdrawalRequest, error)
}

// MembershipChecker verifies wallet/card membership for create-request.
type MembershipChecker interface {
	IsMember(ctx context.Context, walletID, userID string) (bool, error)
}

const entityType = "WithdrawalRequest"

// Coordinator implements the create/finalize/reverse/cancel lifecycle.
type Coordinator struct {
	Repo       Repository
	Membership MembershipChecker
	Ledger     *service.Service
	Provider   provider.Provider
	Logger     mlog.Logger
	Telemetry  *mopentelemetry.Telemetry
	sourceAcct string // external account id funding payouts, set at bootstrap
}

// Configure sets provider-side routing details the coordinator needs for
// InitiatePayout (source account and destination token resolution is a
// funding-routing concern out of scope for the core ledger, kept as fields
// here so the coordinator stays provider-agnostic).
func (c *Coordinator) Configure(sourceAccountID string) { c.sourceAcct = sourceAccountID }

// CreateRequest implements steps 1-6 of §4.4's create-request flow.
func (c *Coordinator) CreateRequest(ctx context.Context, walletID, cardID, userID string, amountMinor int64, currency, destinationCardToken string, metadata map[string]any) (*domain.WithdrawalRequest, *domain.WithdrawalTransfer, error) {
	ctx, span := c.Telemetry.Start(ctx, "withdrawal.create_request")
	defer span.End()

	if amountMinor <= 0 {
		return nil, nil, mopentelemetry.HandleSpanError(span,
			apperr.ValidateBusinessError(apperr.ErrInvalidAmount, entityType))
	}

	isMember, err := c.Membership.IsMember(ctx, walletID, userID)
	if err != nil {
		return nil, nil, mopentelemetry.HandleSpanError(span, err)
	}

	if !isMember {
		return nil, nil, mopentelemetry.HandleSpanError(span,
			apperr.ValidateBusinessError(apperr.ErrUserNotMember, entityType))
	}

	requestID := idgen.New()

	req, err := c.Repo.CreateRequest(ctx, domain.WithdrawalRequest{
		ID: requestID, WalletID: walletID, CardID: cardID, UserID: userID,
		AmountMinor: amountMinor, Currency: currency, Status: domain.WithdrawalPending,
	})
	if err != nil {
		return nil, nil, mopentelemetry.HandleSpanError(span, err)
	}

	if _, err := c.Ledger.PostPendingCardWithdrawal(ctx, walletID, cardID, userID, amountMinor,
		service.WithdrawalPendingTxID(requestID)); err != nil {
		return nil, nil, mopentelemetry.HandleSpanError(span, err)
	}

	payout, err := c.Provider.InitiatePayout(ctx, provider.PayoutRequest{
		SourceAccountID:      c.sourceAcct,
		DestinationCardToken: destinationCardToken,
		AmountMinor:          amountMinor,
		Currency:             currency,
		Reference:            requestID,
	})
	if err != nil {
		c.Logger.Errorf("withdrawal %s: provider initiatePayout failed: %v", requestID, err)

		if failErr := c.failAndReverse(ctx, req, err.Error()); failErr != nil {
			return nil, nil, mopentelemetry.HandleSpanError(span, failErr)
		}

		return nil, nil, mopentelemetry.HandleSpanError(span, err)
	}

	transfer, err := c.Repo.CreateTransfer(ctx, domain.WithdrawalTransfer{
		WithdrawalRequestID: requestID,
		ProviderName:        c.Provider.Name(),
		ProviderTransferID:  payout.ExternalTransferID,
		AmountMinor:         amountMinor,
		Status:              domain.TransferPending,
	})
	if err != nil {
		return nil, nil, mopentelemetry.HandleSpanError(span, err)
	}

	if err := c.Repo.UpdateRequestStatus(ctx, requestID, domain.WithdrawalProcessing, "", time.Time{}); err != nil {
		return nil, nil, mopentelemetry.HandleSpanError(span, err)
	}

	req.Status = domain.WithdrawalProcessing

	return req, transfer, nil
}

func (c *Coordinator) failAndReverse(ctx context.Context, req *domain.WithdrawalRequest, reason string) error {
	if _, err := c.Ledger.ReversePendingCardWithdrawal(ctx, req.WalletID, req.CardID, req.UserID, req.AmountMinor,
		service.WithdrawalReverseTxID(req.ID)); err != nil {
		return err
	}

	return c.Repo.UpdateRequestStatus(ctx, req.ID, domain.WithdrawalFailed, reason, time.Now())
}

// Finalize handles a PAYOUT_STATUS=COMPLETED callback (§4.4 finalise).
func (c *Coordinator) Finalize(ctx context.Context, providerName, providerTransferID string) error {
	ctx, span := c.Telemetry.Start(ctx, "withdrawal.finalize")
	defer span.End()

	transfer, err := c.Repo.FindTransferByProviderID(ctx, providerName, providerTransferID)
	if err != nil {
		return mopentelemetry.HandleSpanError(span, err)
	}

	if transfer == nil {
		c.Logger.Infof("finalize: no transfer for %s/%s, ignoring", providerName, providerTransferID)
		return nil
	}

	if transfer.IsTerminal() {
		c.Logger.Infof("finalize: transfer %s already terminal, ignoring", transfer.ID)
		return nil
	}

	req, err := c.Repo.FindRequest(ctx, transfer.WithdrawalRequestID)
	if err != nil {
		return mopentelemetry.HandleSpanError(span, err)
	}

	if req == nil {
		return mopentelemetry.HandleSpanError(span,
			apperr.ValidateBusinessError(apperr.ErrWithdrawalNotFound, entityType))
	}

	if err := c.Repo.UpdateTransferStatus(ctx, transfer.ID, domain.TransferCompleted); err != nil {
		return mopentelemetry.HandleSpanError(span, err)
	}

	if err := c.Repo.UpdateRequestStatus(ctx, req.ID, domain.WithdrawalCompleted, "", time.Now()); err != nil {
		return mopentelemetry.HandleSpanError(span, err)
	}

	_, err = c.Ledger.FinalizeCardWithdrawal(ctx, req.WalletID, req.CardID, req.AmountMinor,
		service.WithdrawalFinalizeTxID(req.ID))

	return mopentelemetry.HandleSpanError(span, err)
}

// Reverse handles a PAYOUT_STATUS=FAILED or REVERSED callback (§4.4 reverse).
func (c *Coordinator) Reverse(ctx context.Context, providerName, providerTransferID, reason string) error {
	ctx, span := c.Telemetry.Start(ctx, "withdrawal.reverse")
	defer span.End()

	transfer, err := c.Repo.FindTransferByProviderID(ctx, providerName, providerTransferID)
	if err != nil {
		return mopentelemetry.HandleSpanError(span, err)
	}

	if transfer == nil {
		c.Logger.Infof("reverse: no transfer for %s/%s, ignoring", providerName, providerTransferID)
		return nil
	}

	if transfer.IsTerminal() {
		c.Logger.Infof("reverse: transfer %s already terminal, ignoring", transfer.ID)
		return nil
	}

	req, err := c.Repo.FindRequest(ctx, transfer.WithdrawalRequestID)
	if err != nil {
		return mopentelemetry.HandleSpanError(span, err)
	}

	if req == nil {
		return mopentelemetry.HandleSpanError(span,
			apperr.ValidateBusinessError(apperr.ErrWithdrawalNotFound, entityType))
	}

	if err := c.Repo.UpdateTransferStatus(ctx, transfer.ID, domain.TransferFailed); err != nil {
		return mopentelemetry.HandleSpanError(span, err)
	}

	if err := c.Repo.UpdateRequestStatus(ctx, req.ID, domain.WithdrawalFailed, reason, time.Now()); err != nil {
		return mopentelemetry.HandleSpanError(span, err)
	}

	_, err = c.Ledger.ReversePendingCardWithdrawal(ctx, req.WalletID, req.CardID, req.UserID, req.AmountMinor,
		service.WithdrawalReverseTxID(req.ID))

	return mopentelemetry.HandleSpanError(span, err)
}

// Get returns a single withdrawal request by id, translating a missing row
// into WithdrawalNotFound.
func (c *Coordinator) Get(ctx context.Context, requestID string) (*domain.WithdrawalRequest, error) {
	req, err := c.Repo.FindRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}

	if req == nil {
		return nil, apperr.ValidateBusinessError(apperr.ErrWithdrawalNotFound, entityType)
	}

	return req, nil
}

// List paginates a wallet's withdrawal requests, optionally filtered by status.
func (c *Coordinator) List(ctx context.Context, walletID string, status *domain.WithdrawalStatus, limit, offset int) ([]domain.WithdrawalRequest, error) {
	return c.Repo.ListByWallet(ctx, walletID, status, limit, offset)
}

// Cancel handles a client-initiated cancellation. Only legal while the
// request is still PENDING (the narrow window before the provider call
// resolves); otherwise CannotCancelProcessingWithdrawal.
func (c *Coordinator) Cancel(ctx context.Context, requestID string) error {
	ctx, span := c.Telemetry.Start(ctx, "withdrawal.cancel")
	defer span.End()

	req, err := c.Repo.FindRequest(ctx, requestID)
	if err != nil {
		return mopentelemetry.HandleSpanError(span, err)
	}

	if req == nil {
		return mopentelemetry.HandleSpanError(span,
			apperr.ValidateBusinessError(apperr.ErrWithdrawalNotFound, entityType))
	}

	if req.Status != domain.WithdrawalPending {
		return mopentelemetry.HandleSpanError(span,
			apperr.ValidateBusinessError(apperr.ErrCannotCancelProcessing, entityType))
	}

	if _, err := c.Ledger.ReversePendingCardWithdrawal(ctx, req.WalletID, req.CardID, req.UserID, req.AmountMinor,
		service.WithdrawalReverseTxID(req.ID)); err != nil {
		return mopentelemetry.HandleSpanError(span, err)
	}

	return mopentelemetry.HandleSpanError(span,
		c.Repo.UpdateRequestStatus(ctx, req.ID, domain.WithdrawalCancelled, "", time.Now()))
}
