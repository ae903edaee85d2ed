// Package webhook is the inbound provider event ingestion pipeline
// (SPEC_FULL.md §4.6): raw-body capture, signature verification, dedicated
// ProcessedEvent dedup, dispatch to per-type handlers, and a RabbitMQ fanout
// of the normalised event on success. Grounded on the raw-payload mirror in
// components/audit/internal/adapters/mongodb/audit and the teacher's
// dedicated-dedup-table re-architecture note (spec §9).
package webhook

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/poolcard/ledger-core/internal/cardprogram"
	"github.com/poolcard/ledger-core/internal/domain"
	"github.com/poolcard/ledger-core/internal/funding"
	"github.com/poolcard/ledger-core/internal/withdrawal"
	"github.com/poolcard/ledger-core/pkg/apperr"
	"github.com/poolcard/ledger-core/pkg/mlog"
	"github.com/poolcard/ledger-core/pkg/mopentelemetry"
)

// NormalizedEvent is the provider-agnostic shape every adapter's raw payload
// is parsed into before dispatch.
type NormalizedEvent struct {
	ProviderName          string
	ProviderEventID       string
	Type                  domain.EventType
	ProviderCardID        string
	ProviderAuthID        string
	ProviderTransactionID string
	ProviderTransferID    string
	ProviderAccountID     string
	Reference             string
	CardholderUserID      string
	AmountMinor           int64
	PayoutStatus          string
	FailureReason         string
	CardStatus            string
	Payload               map[string]any
}

// SignatureVerifier is implemented by internal/provider.Provider (and the
// mock adapter, which always accepts a fixed test header).
type SignatureVerifier interface {
	VerifyWebhookSignature(rawBody []byte, headers map[string]string) bool
}

// EventRepository is the storage port for the raw audit journal and the
// dedicated dedup table.
type EventRepository interface {
	InsertRawEvent(ctx context.Context, event domain.BaasEvent) error
	MarkProcessed(ctx context.Context, providerName, providerEventID string) (alreadyProcessed bool, err error)
	MarkAuditProcessedAt(ctx context.Context, providerName, providerEventID string, at time.Time) error
}

// AuditMirror is the raw-payload Mongo mirror, kept for offline replay
// independent of the Postgres audit row.
type AuditMirror interface {
	Insert(ctx context.Context, event domain.BaasEvent) error
}

// Publisher fans the normalised event out to downstream consumers once its
// handler has committed.
type Publisher interface {
	Publish(ctx context.Context, event NormalizedEvent) error
}

// Pipeline is the per-provider webhook entrypoint.
type Pipeline struct {
	Verifier    SignatureVerifier
	Events      EventRepository
	Audit       AuditMirror
	Publisher   Publisher
	CardProgram *cardprogram.Program
	Withdrawals *withdrawal.Coordinator
	Funding     *funding.Router
	Logger      mlog.Logger
	Telemetry   *mopentelemetry.Telemetry
}

// Handle runs steps 1-6 of §4.6 for one inbound HTTP delivery. parse turns
// the raw body into a NormalizedEvent; callers pass a provider-specific
// closure so Pipeline stays provider-agnostic.
func (p *Pipeline) Handle(ctx context.Context, rawBody []byte, headers map[string]string, parse func([]byte) (NormalizedEvent, error)) error {
	ctx, span := p.Telemetry.Start(ctx, "webhook.handle")
	defer span.End()

	if !p.Verifier.VerifyWebhookSignature(rawBody, headers) {
		return mopentelemetry.HandleSpanError(span,
			apperr.ValidateBusinessError(apperr.ErrInvalidSignature, "BaasEvent"))
	}

	event, err := parse(rawBody)
	if err != nil {
		return mopentelemetry.HandleSpanError(span,
			apperr.ValidateBusinessError(apperr.ErrUnsupportedEventType, "BaasEvent"))
	}

	if !isSupportedType(event.Type) {
		return mopentelemetry.HandleSpanError(span,
			apperr.ValidateBusinessError(apperr.ErrUnsupportedEventType, "BaasEvent"))
	}

	if err := p.Events.InsertRawEvent(ctx, domain.BaasEvent{
		ProviderName: event.ProviderName, ProviderEventID: event.ProviderEventID,
		Type: event.Type, Payload: event.Payload, ReceivedAt: time.Now(),
	}); err != nil {
		return mopentelemetry.HandleSpanError(span, err)
	}

	if p.Audit != nil {
		if err := p.Audit.Insert(ctx, domain.BaasEvent{
			ProviderName: event.ProviderName, ProviderEventID: event.ProviderEventID,
			Type: event.Type, Payload: event.Payload, ReceivedAt: time.Now(),
		}); err != nil {
			p.Logger.Warnf("webhook audit mirror insert failed: %v", err)
		}
	}

	alreadyProcessed, err := p.Events.MarkProcessed(ctx, event.ProviderName, event.ProviderEventID)
	if err != nil {
		return mopentelemetry.HandleSpanError(span, err)
	}

	if alreadyProcessed {
		p.Logger.Infof("webhook: duplicate ignored for %s/%s", event.ProviderName, event.ProviderEventID)
		return nil
	}

	if err := p.dispatch(ctx, event); err != nil {
		return mopentelemetry.HandleSpanError(span, err)
	}

	if err := p.Events.MarkAuditProcessedAt(ctx, event.ProviderName, event.ProviderEventID, time.Now()); err != nil {
		p.Logger.Warnf("webhook: failed to stamp processedAt for %s/%s: %v", event.ProviderName, event.ProviderEventID, err)
	}

	if p.Publisher != nil {
		if err := p.Publisher.Publish(ctx, event); err != nil {
			p.Logger.Warnf("webhook: fanout publish failed for %s/%s: %v", event.ProviderName, event.ProviderEventID, err)
		}
	}

	return nil
}

func isSupportedType(t domain.EventType) bool {
	switch t {
	case domain.EventCardAuth, domain.EventCardAuthReversal, domain.EventCardClearing,
		domain.EventWalletFunding, domain.EventPayoutStatus, domain.EventKYCVerification,
		domain.EventAccountStatus, domain.EventCardStatus:
		return true
	default:
		return false
	}
}

func (p *Pipeline) dispatch(ctx context.Context, event NormalizedEvent) error {
	switch event.Type {
	case domain.EventCardAuth:
		_, err := p.CardProgram.Authorize(ctx, event.ProviderName, event.ProviderCardID, event.AmountMinor, event.ProviderAuthID, event.ProviderEventID)
		return err
	case domain.EventCardClearing:
		var authID *string
		if event.ProviderAuthID != "" {
			authID = &event.ProviderAuthID
		}

		return p.CardProgram.Clear(ctx, event.ProviderName, event.ProviderCardID, authID, event.AmountMinor, event.ProviderTransactionID, event.CardholderUserID)
	case domain.EventCardAuthReversal:
		return p.CardProgram.ReverseAuthorization(ctx, event.ProviderName, event.ProviderAuthID)
	case domain.EventWalletFunding:
		return p.Funding.Route(ctx, event.ProviderName, event.ProviderAccountID, event.Reference, event.AmountMinor, event.ProviderTransactionID)
	case domain.EventPayoutStatus:
		switch event.PayoutStatus {
		case "COMPLETED":
			return p.Withdrawals.Finalize(ctx, event.ProviderName, event.ProviderTransferID)
		case "FAILED", "REVERSED":
			return p.Withdrawals.Reverse(ctx, event.ProviderName, event.ProviderTransferID, event.FailureReason)
		default:
			p.Logger.Infof("webhook: ignoring payout status %q", event.PayoutStatus)
			return nil
		}
	case domain.EventCardStatus:
		return p.CardProgram.ActivateOnStatus(ctx, event.ProviderName, event.ProviderCardID, event.CardStatus)
	case domain.EventKYCVerification, domain.EventAccountStatus:
		p.Logger.Infof("webhook: no ledger action for event type %s, recorded for audit only", event.Type)
		return nil
	default:
		return apperr.ValidateBusinessError(apperr.ErrUnsupportedEventType, "BaasEvent")
	}
}

// AMQPPublisher fans a processed event out to a fiber-independent RabbitMQ
// exchange so other services can react without polling the ledger.
type AMQPPublisher struct {
	Channel  *amqp.Channel
	Exchange string
}

// Publish implements Publisher.
func (p *AMQPPublisher) Publish(ctx context.Context, event NormalizedEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return p.Channel.PublishWithContext(ctx, p.Exchange, string(event.Type), false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        body,
	})
}
