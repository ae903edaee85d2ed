package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	sqrl "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/poolcard/ledger-core/internal/domain"
	"github.com/poolcard/ledger-core/pkg/dbtx"
	"github.com/poolcard/ledger-core/pkg/mpostgres"
)

// WebhookEventRepository backs webhook.EventRepository: the raw-audit
// baas_event journal and the dedicated processed_event dedup table kept
// apart per SPEC_FULL.md §9's re-architecture note.
type WebhookEventRepository struct {
	Connection *mpostgres.Connection
}

func (r *WebhookEventRepository) executor(ctx context.Context) (dbtx.Executor, error) {
	db, err := r.Connection.Primary(ctx)
	if err != nil {
		return nil, err
	}

	return dbtx.GetExecutor(ctx, db), nil
}

// InsertRawEvent implements webhook.EventRepository. Every delivery is
// appended here regardless of dedup outcome, so it is never conditioned on
// the processed_event check.
func (r *WebhookEventRepository) InsertRawEvent(ctx context.Context, event domain.BaasEvent) error {
	exec, err := r.executor(ctx)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(event.Payload)
	if err != nil {
		return err
	}

	query, args, err := sqrl.Insert("baas_event").
		Columns("provider_name", "provider_event_id", "type", "payload", "received_at").
		Values(event.ProviderName, event.ProviderEventID, string(event.Type), payload, sqrl.Expr("now()")).
		PlaceholderFormat(sqrl.Dollar).
		ToSql()
	if err != nil {
		return err
	}

	if _, err := exec.ExecContext(ctx, query, args...); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			// Same (providerName, providerEventId) delivered again by the
			// provider's at-least-once retry policy; the journal already
			// has a row for it.
			return nil
		}

		return err
	}

	return nil
}

// MarkProcessed implements webhook.EventRepository: it inserts into
// processed_event and reports whether a row already existed, which is the
// dedup signal dispatch relies on.
func (r *WebhookEventRepository) MarkProcessed(ctx context.Context, providerName, providerEventID string) (bool, error) {
	exec, err := r.executor(ctx)
	if err != nil {
		return false, err
	}

	query, args, err := sqrl.Insert("processed_event").
		Columns("provider_name", "provider_event_id", "processed_at").
		Values(providerName, providerEventID, sqrl.Expr("now()")).
		PlaceholderFormat(sqrl.Dollar).
		ToSql()
	if err != nil {
		return false, err
	}

	if _, err := exec.ExecContext(ctx, query, args...); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return true, nil
		}

		return false, err
	}

	return false, nil
}

// MarkAuditProcessedAt implements webhook.EventRepository, stamping the
// journal row once its handler has committed.
func (r *WebhookEventRepository) MarkAuditProcessedAt(ctx context.Context, providerName, providerEventID string, at time.Time) error {
	exec, err := r.executor(ctx)
	if err != nil {
		return err
	}

	query, args, err := sqrl.Update("baas_event").
		Set("processed_at", at).
		Where(sqrl.Eq{"provider_name": providerName, "provider_event_id": providerEventID}).
		PlaceholderFormat(sqrl.Dollar).
		ToSql()
	if err != nil {
		return err
	}

	_, err = exec.ExecContext(ctx, query, args...)

	return err
}
