package apperr

import (
	"github.com/jackc/pgx/v5/pgconn"
)

// ValidatePGError maps a Postgres constraint violation to a business error,
// mirroring the teacher's services/errors.go ValidatePGError.
func ValidatePGError(pgErr *pgconn.PgError, entityType string) error {
	switch pgErr.ConstraintName {
	case "card_external_card_id_key":
		return EntityConflictError{
			EntityType: entityType,
			Code:       "LED-0100",
			Title:      "Duplicate External Card ID",
			Message:    "A card with this externalCardId already exists.",
		}
	case "ledger_account_card_pool_unique", "ledger_account_pending_withdrawal_unique":
		return EntityConflictError{
			EntityType: entityType,
			Code:       "LED-0101",
			Title:      "Duplicate Ledger Account",
			Message:    "At most one account of this scope may exist per card.",
		}
	case "ledger_account_member_equity_unique":
		return EntityConflictError{
			EntityType: entityType,
			Code:       "LED-0102",
			Title:      "Duplicate Member Equity Account",
			Message:    "At most one CARD_MEMBER_EQUITY account may exist per (card, user).",
		}
	case "card_auth_hold_provider_auth_id_key":
		return EntityConflictError{
			EntityType: entityType,
			Code:       "LED-0103",
			Title:      "Duplicate Authorisation Hold",
			Message:    "A hold for this providerAuthId already exists.",
		}
	case "baas_event_provider_event_id_key", "processed_event_pkey":
		return EntityConflictError{
			EntityType: entityType,
			Code:       "LED-0104",
			Title:      "Duplicate Event",
			Message:    "This provider event has already been recorded.",
		}
	case "wallet_member_wallet_id_user_id_key":
		return EntityConflictError{
			EntityType: entityType,
			Code:       "LED-0105",
			Title:      "Duplicate Wallet Member",
			Message:    "This user is already a member of the wallet.",
		}
	case "baas_funding_route_unique":
		return EntityConflictError{
			EntityType: entityType,
			Code:       "LED-0106",
			Title:      "Duplicate Funding Route",
			Message:    "A route for this (provider, account, reference) already exists.",
		}
	case "withdrawal_transfer_provider_transfer_id_key":
		return EntityConflictError{
			EntityType: entityType,
			Code:       "LED-0107",
			Title:      "Duplicate Transfer",
			Message:    "A transfer with this providerTransferId already exists.",
		}
	default:
		return pgErr
	}
}
