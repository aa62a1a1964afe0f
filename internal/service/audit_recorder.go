package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"account-service/internal/bucketing"
	"account-service/internal/client"
	"account-service/internal/models"
	"account-service/internal/util"
)

// EventRecorder receives the audit trail of auth activity.
type EventRecorder interface {
	Record(ctx context.Context, userID, eventType, detail string)
}

// AuditRecorder fans auth events out to Kafka and Elasticsearch. Recording
// is best-effort: a broken pipeline logs a warning and the auth flow that
// produced the event carries on.
type AuditRecorder struct {
	producer  *client.KafkaProducer
	es        *client.ESClient
	bucketing *bucketing.Manager
}

func NewAuditRecorder(producer *client.KafkaProducer, es *client.ESClient, bucketingMgr *bucketing.Manager) *AuditRecorder {
	return &AuditRecorder{
		producer:  producer,
		es:        es,
		bucketing: bucketingMgr,
	}
}

func (r *AuditRecorder) Record(ctx context.Context, userID, eventType, detail string) {
	event := &models.AuthEvent{
		EventID:     uuid.New().String(),
		EventBucket: r.bucketing.EventBucket(userID),
		UserID:      userID,
		EventType:   eventType,
		Detail:      detail,
		CreatedAt:   time.Now().UTC(),
	}

	if r.producer != nil {
		if err := r.producer.PublishAuthEvent(ctx, event); err != nil {
			util.Warn("Failed to publish auth event",
				zap.String("event_type", eventType),
				zap.Error(err))
		}
	}

	if r.es != nil {
		if err := r.es.IndexAuthEvent(ctx, event); err != nil {
			util.Warn("Failed to index auth event",
				zap.String("event_type", eventType),
				zap.Error(err))
		}
	}
}

// NopRecorder drops every event. Used in tests and when the audit pipeline
// is not configured.
type NopRecorder struct{}

func (NopRecorder) Record(context.Context, string, string, string) {}
