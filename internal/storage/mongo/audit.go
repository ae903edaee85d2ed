// Package mongo mirrors the raw webhook payload journal into MongoDB,
// independent of the Postgres audit row, for offline replay. Grounded on the
// teacher's document-mirror pattern in components/audit/internal/adapters/mongodb.
package mongo

import (
	"context"

	"github.com/poolcard/ledger-core/internal/domain"
	"github.com/poolcard/ledger-core/pkg/mmongo"
)

// AuditMirror backs webhook.AuditMirror.
type AuditMirror struct {
	Connection *mmongo.Connection
	Collection string
}

type auditDocument struct {
	ProviderName    string         `bson:"providerName"`
	ProviderEventID string         `bson:"providerEventId"`
	Type            string         `bson:"type"`
	Payload         map[string]any `bson:"payload"`
	ReceivedAt      int64          `bson:"receivedAt"`
}

func (m *AuditMirror) collectionName() string {
	if m.Collection != "" {
		return m.Collection
	}

	return "baas_event_mirror"
}

// Insert implements webhook.AuditMirror.
func (m *AuditMirror) Insert(ctx context.Context, event domain.BaasEvent) error {
	collection, err := m.Connection.Collection(ctx, m.collectionName())
	if err != nil {
		return err
	}

	_, err = collection.InsertOne(ctx, auditDocument{
		ProviderName:    event.ProviderName,
		ProviderEventID: event.ProviderEventID,
		Type:            string(event.Type),
		Payload:         event.Payload,
		ReceivedAt:      event.ReceivedAt.Unix(),
	})

	return err
}
