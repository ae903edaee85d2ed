package postgres

import (
	"context"
	"database/sql"
	"errors"

	sqrl "github.com/Masterminds/squirrel"

	"github.com/poolcard/ledger-core/internal/domain"
	"github.com/poolcard/ledger-core/internal/splitting"
	"github.com/poolcard/ledger-core/pkg/dbtx"
	"github.com/poolcard/ledger-core/pkg/mpostgres"
)

// WalletRepository backs cardprogram.MemberRepository, splitting.MembershipRepository
// and withdrawal.MembershipChecker: all three read the same wallet_member and
// wallet tables.
type WalletRepository struct {
	Connection *mpostgres.Connection
}

func (r *WalletRepository) executor(ctx context.Context) (dbtx.Executor, error) {
	db, err := r.Connection.Primary(ctx)
	if err != nil {
		return nil, err
	}

	return dbtx.GetExecutor(ctx, db), nil
}

// MembersByWallet implements cardprogram.MemberRepository.
func (r *WalletRepository) MembersByWallet(ctx context.Context, walletID string) ([]domain.WalletMember, error) {
	return r.MembersByJoinOrder(ctx, walletID)
}

// MembersByJoinOrder implements splitting.MembershipRepository: members
// ordered by JoinedAt so EQUAL_SPLIT's remainder distribution is deterministic.
func (r *WalletRepository) MembersByJoinOrder(ctx context.Context, walletID string) ([]domain.WalletMember, error) {
	exec, err := r.executor(ctx)
	if err != nil {
		return nil, err
	}

	query, args, err := sqrl.Select("wallet_id", "user_id", "role", "joined_at").
		From("wallet_member").
		Where(sqrl.Eq{"wallet_id": walletID}).
		OrderBy("joined_at ASC").
		PlaceholderFormat(sqrl.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := exec.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []domain.WalletMember

	for rows.Next() {
		var m domain.WalletMember
		if err := rows.Scan(&m.WalletID, &m.UserID, &m.Role, &m.JoinedAt); err != nil {
			return nil, err
		}

		members = append(members, m)
	}

	return members, rows.Err()
}

// PolicyForWallet implements splitting.MembershipRepository.
func (r *WalletRepository) PolicyForWallet(ctx context.Context, walletID string) (splitting.Policy, error) {
	exec, err := r.executor(ctx)
	if err != nil {
		return "", err
	}

	query, args, err := sqrl.Select("split_policy").
		From("wallet").
		Where(sqrl.Eq{"id": walletID}).
		PlaceholderFormat(sqrl.Dollar).
		ToSql()
	if err != nil {
		return "", err
	}

	var policy string

	if err := exec.QueryRowContext(ctx, query, args...).Scan(&policy); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return splitting.PolicyPayerOnly, nil
		}

		return "", err
	}

	return splitting.Policy(policy), nil
}

// IsMember implements withdrawal.MembershipChecker.
func (r *WalletRepository) IsMember(ctx context.Context, walletID, userID string) (bool, error) {
	exec, err := r.executor(ctx)
	if err != nil {
		return false, err
	}

	query, args, err := sqrl.Select("1").
		From("wallet_member").
		Where(sqrl.Eq{"wallet_id": walletID, "user_id": userID}).
		PlaceholderFormat(sqrl.Dollar).
		ToSql()
	if err != nil {
		return false, err
	}

	var found int

	err = exec.QueryRowContext(ctx, query, args...).Scan(&found)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}

	return err == nil, err
}

// IsAdmin reports whether userID holds the ADMIN role on walletID, used to
// gate the funding-route admin endpoints (spec.md §6).
func (r *WalletRepository) IsAdmin(ctx context.Context, walletID, userID string) (bool, error) {
	exec, err := r.executor(ctx)
	if err != nil {
		return false, err
	}

	query, args, err := sqrl.Select("role").
		From("wallet_member").
		Where(sqrl.Eq{"wallet_id": walletID, "user_id": userID}).
		PlaceholderFormat(sqrl.Dollar).
		ToSql()
	if err != nil {
		return false, err
	}

	var role string

	err = exec.QueryRowContext(ctx, query, args...).Scan(&role)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}

	if err != nil {
		return false, err
	}

	return domain.Role(role) == domain.RoleAdmin, nil
}
