package webhook_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poolcard/ledger-core/internal/domain"
	"github.com/poolcard/ledger-core/internal/webhook"
	"github.com/poolcard/ledger-core/pkg/apperr"
	"github.com/poolcard/ledger-core/pkg/mlog"
	"github.com/poolcard/ledger-core/pkg/mopentelemetry"
)

type fakeVerifier struct{ valid bool }

func (f fakeVerifier) VerifyWebhookSignature(_ []byte, _ map[string]string) bool { return f.valid }

type fakeEventRepo struct {
	raw       []domain.BaasEvent
	processed map[string]bool
}

func newFakeEventRepo() *fakeEventRepo {
	return &fakeEventRepo{processed: map[string]bool{}}
}

func (r *fakeEventRepo) InsertRawEvent(_ context.Context, event domain.BaasEvent) error {
	r.raw = append(r.raw, event)
	return nil
}

func (r *fakeEventRepo) MarkProcessed(_ context.Context, providerName, providerEventID string) (bool, error) {
	key := providerName + "/" + providerEventID
	if r.processed[key] {
		return true, nil
	}

	r.processed[key] = true

	return false, nil
}

func (r *fakeEventRepo) MarkAuditProcessedAt(_ context.Context, _, _ string, _ time.Time) error { return nil }

func newEvent() webhook.NormalizedEvent {
	return webhook.NormalizedEvent{
		ProviderName: "mock", ProviderEventID: "evt-1", Type: domain.EventKYCVerification,
	}
}

func TestHandle_RejectsInvalidSignature(t *testing.T) {
	p := &webhook.Pipeline{
		Verifier: fakeVerifier{valid: false}, Events: newFakeEventRepo(),
		Logger: mlog.NopLogger{}, Telemetry: &mopentelemetry.Telemetry{ServiceName: "test"},
	}

	err := p.Handle(context.Background(), []byte("{}"), nil, func(b []byte) (webhook.NormalizedEvent, error) {
		return newEvent(), nil
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrInvalidSignature)
}

func TestHandle_DeduplicatesByProcessedEvent(t *testing.T) {
	events := newFakeEventRepo()
	p := &webhook.Pipeline{
		Verifier: fakeVerifier{valid: true}, Events: events,
		Logger: mlog.NopLogger{}, Telemetry: &mopentelemetry.Telemetry{ServiceName: "test"},
	}

	parse := func(b []byte) (webhook.NormalizedEvent, error) { return newEvent(), nil }

	require.NoError(t, p.Handle(context.Background(), []byte("{}"), nil, parse))
	require.NoError(t, p.Handle(context.Background(), []byte("{}"), nil, parse))

	assert.Len(t, events.raw, 2, "raw audit journal retains every delivery")
	assert.Len(t, events.processed, 1, "dedup table collapses to one entry")
}

func TestHandle_RejectsUnsupportedType(t *testing.T) {
	p := &webhook.Pipeline{
		Verifier: fakeVerifier{valid: true}, Events: newFakeEventRepo(),
		Logger: mlog.NopLogger{}, Telemetry: &mopentelemetry.Telemetry{ServiceName: "test"},
	}

	err := p.Handle(context.Background(), []byte("{}"), nil, func(b []byte) (webhook.NormalizedEvent, error) {
		e := newEvent()
		e.Type = domain.EventType("UNKNOWN")
		return e, nil
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrUnsupportedEventType)
}
