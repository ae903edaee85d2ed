// Package apperr is the typed error taxonomy for the ledger core (SPEC_FULL.md §7).
// Business/validation errors are raised as plain structs implementing error.
// Invariant violations (ErrUnbalancedPosting, ErrReconciliationMismatch) are
// logged at fatal severity by the code that detects them; ValidateBusinessError
// maps ErrUnbalancedPosting to an InternalServerError, and IsInvariantViolation
// recognises both sentinels.
package apperr

import (
	"errors"
	"fmt"
)

// EntityNotFoundError indicates the requested wallet/card/account/withdrawal
// does not exist.
type EntityNotFoundError struct {
	EntityType string
	Code       string
	Title      string
	Message    string
	Err        error
}

func (e EntityNotFoundError) Error() string {
	if e.Message != "" {
		return e.Message
	}

	if e.EntityType != "" {
		return fmt.Sprintf("%s not found", e.EntityType)
	}

	return "entity not found"
}

func (e EntityNotFoundError) Unwrap() error { return e.Err }

// EntityConflictError indicates a uniqueness constraint would be violated
// (duplicate external card id, duplicate funding route, etc).
type EntityConflictError struct {
	EntityType string
	Code       string
	Title      string
	Message    string
	Err        error
}

func (e EntityConflictError) Error() string { return e.Message }
func (e EntityConflictError) Unwrap() error { return e.Err }

// ValidationError indicates malformed or out-of-range input.
type ValidationError struct {
	EntityType string
	Code       string
	Title      string
	Message    string
}

func (e ValidationError) Error() string { return e.Message }

// UnprocessableOperationError indicates a business-rule refusal:
// InsufficientEquity, InsufficientPendingBalance, CannotCancelProcessingWithdrawal, etc.
type UnprocessableOperationError struct {
	EntityType string
	Code       string
	Title      string
	Message    string
}

func (e UnprocessableOperationError) Error() string { return e.Message }

// ForbiddenError indicates the caller is not a member/admin of the
// wallet/card they are acting on.
type ForbiddenError struct {
	EntityType string
	Code       string
	Title      string
	Message    string
}

func (e ForbiddenError) Error() string { return e.Message }

// UnauthorizedError indicates a missing or invalid bearer token.
type UnauthorizedError struct {
	Code    string
	Title   string
	Message string
}

func (e UnauthorizedError) Error() string { return e.Message }

// ProviderUnavailableError surfaces a transient provider failure after
// retries are exhausted (§7 Provider transient).
type ProviderUnavailableError struct {
	ProviderName string
	Message      string
	Err          error
}

func (e ProviderUnavailableError) Error() string { return e.Message }
func (e ProviderUnavailableError) Unwrap() error { return e.Err }

// ProviderError surfaces a permanent (4xx) provider failure verbatim
// (§7 Provider permanent).
type ProviderError struct {
	ProviderName string
	Code         string
	Message      string
}

func (e ProviderError) Error() string { return e.Message }

// InternalServerError wraps an invariant violation or unexpected failure
// that must be surfaced to the caller as a 500 without leaking internals.
type InternalServerError struct {
	EntityType string
	Code       string
	Title      string
	Message    string
	Err        error
}

func (e InternalServerError) Error() string { return e.Message }
func (e InternalServerError) Unwrap() error { return e.Err }

// Business-rule sentinel errors. Posting-engine and ledger-service code
// raises these via errors.New-style comparison (errors.Is), and the HTTP
// layer / ValidateBusinessError below translate them into the structs above.
var (
	ErrMissingTransactionID    = errors.New("missing_transaction_id")
	ErrNoPostings              = errors.New("no_postings")
	ErrInvalidAmount           = errors.New("invalid_amount")
	ErrUnbalancedPosting       = errors.New("unbalanced_posting")
	ErrLedgerAccountNotFound   = errors.New("ledger_account_not_found")
	ErrCrossCardPosting        = errors.New("cross_card_posting")
	ErrInsufficientEquity      = errors.New("insufficient_equity")
	ErrInsufficientPending     = errors.New("insufficient_pending_balance")
	ErrUserNotMember           = errors.New("user_not_member")
	ErrCardNotFound            = errors.New("card_not_found")
	ErrWalletNotFound          = errors.New("wallet_not_found")
	ErrWithdrawalNotFound      = errors.New("withdrawal_not_found")
	ErrCannotCancelProcessing  = errors.New("cannot_cancel_processing_withdrawal")
	ErrAccountAlreadyLinked    = errors.New("account_already_linked_to_card")
	ErrReconciliationMismatch  = errors.New("reconciliation_mismatch")
	ErrInvalidSignature        = errors.New("invalid_signature")
	ErrReplayWindowExceeded    = errors.New("replay_window_exceeded")
	ErrUnsupportedEventType    = errors.New("unsupported_event_type")
	ErrProviderDoesNotSupport  = errors.New("provider_does_not_support_payouts")
	ErrFundingRouteNotFound    = errors.New("funding_route_not_found")
)

// ValidateBusinessError maps a sentinel business error to the client-facing
// typed error, mirroring the teacher's ValidateBusinessError dispatcher.
func ValidateBusinessError(err error, entityType string, args ...any) error {
	switch {
	case errors.Is(err, ErrMissingTransactionID):
		return ValidationError{EntityType: entityType, Code: "LED-0001", Title: "Missing Transaction ID",
			Message: "A non-empty transactionId is required for every posting."}
	case errors.Is(err, ErrNoPostings):
		return ValidationError{EntityType: entityType, Code: "LED-0002", Title: "No Postings",
			Message: "At least one entry is required to post a transaction."}
	case errors.Is(err, ErrInvalidAmount):
		return ValidationError{EntityType: entityType, Code: "LED-0003", Title: "Invalid Amount",
			Message: "Every entry amount must be a strictly positive integer in minor units."}
	case errors.Is(err, ErrUnbalancedPosting):
		return InternalServerError{EntityType: entityType, Code: "LED-0004", Title: "Unbalanced Posting",
			Message: "The posting engine detected an unbalanced transaction. This is a bug."}
	case errors.Is(err, ErrLedgerAccountNotFound):
		return EntityNotFoundError{EntityType: entityType, Code: "LED-0005", Title: "Ledger Account Not Found",
			Message: "One of the referenced ledger accounts does not exist."}
	case errors.Is(err, ErrCrossCardPosting):
		return ValidationError{EntityType: entityType, Code: "LED-0006", Title: "Cross-Card Posting",
			Message: "A balanced entry may only move value between accounts scoped to the same card."}
	case errors.Is(err, ErrInsufficientEquity):
		return UnprocessableOperationError{EntityType: entityType, Code: "LED-0007", Title: "Insufficient Equity",
			Message: "The member's equity balance does not cover the requested amount."}
	case errors.Is(err, ErrInsufficientPending):
		return UnprocessableOperationError{EntityType: entityType, Code: "LED-0008", Title: "Insufficient Pending Balance",
			Message: "The pending withdrawal account does not cover the requested amount."}
	case errors.Is(err, ErrUserNotMember):
		return ForbiddenError{EntityType: entityType, Code: "LED-0009", Title: "User Not Member",
			Message: "The requesting user is not a member of this wallet/card."}
	case errors.Is(err, ErrCardNotFound):
		return EntityNotFoundError{EntityType: entityType, Code: "LED-0010", Title: "Card Not Found",
			Message: "No card was found for the given id."}
	case errors.Is(err, ErrWalletNotFound):
		return EntityNotFoundError{EntityType: entityType, Code: "LED-0011", Title: "Wallet Not Found",
			Message: "No wallet was found for the given id."}
	case errors.Is(err, ErrWithdrawalNotFound):
		return EntityNotFoundError{EntityType: entityType, Code: "LED-0012", Title: "Withdrawal Not Found",
			Message: "No withdrawal request was found for the given id."}
	case errors.Is(err, ErrCannotCancelProcessing):
		return UnprocessableOperationError{EntityType: entityType, Code: "LED-0013", Title: "Cannot Cancel Processing Withdrawal",
			Message: "The withdrawal has already moved past the PENDING state and can no longer be cancelled."}
	case errors.Is(err, ErrAccountAlreadyLinked):
		return EntityConflictError{EntityType: entityType, Code: "LED-0014", Title: "Account Already Linked",
			Message: "This external card id is already linked to another card."}
	case errors.Is(err, ErrInvalidSignature):
		return UnauthorizedError{Code: "LED-0015", Title: "Invalid Signature",
			Message: "The webhook signature did not match any configured secret."}
	case errors.Is(err, ErrReplayWindowExceeded):
		return UnauthorizedError{Code: "LED-0016", Title: "Replay Window Exceeded",
			Message: "The webhook timestamp is outside the accepted replay window."}
	case errors.Is(err, ErrUnsupportedEventType):
		return ValidationError{EntityType: entityType, Code: "LED-0017", Title: "Unsupported Event Type",
			Message: "The event type in the webhook payload is not recognised."}
	case errors.Is(err, ErrProviderDoesNotSupport):
		return ProviderError{ProviderName: entityType, Code: "LED-0018",
			Message: "The configured provider does not support payouts."}
	default:
		return err
	}
}

// IsInvariantViolation reports whether err represents a bug that must be
// logged at fatal severity rather than surfaced as an ordinary client error.
func IsInvariantViolation(err error) bool {
	return errors.Is(err, ErrUnbalancedPosting) || errors.Is(err, ErrReconciliationMismatch)
}
