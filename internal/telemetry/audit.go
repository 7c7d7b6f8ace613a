package telemetry

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
)

type Publisher interface {
	Publish(ctx context.Context, routingKey string, event any, headers map[string]string) error
	Close() error
}

// AuditEmitter publishes domain audit events for the portal's analytics and
// admin collaborators. Emission is best-effort: failures are logged, never
// surfaced to the caller.
type AuditEmitter struct {
	publisher   Publisher
	service     string
	environment string
}

type AuditEnvelope struct {
	SchemaVersion int     `json:"schema_version"`
	EventType     string  `json:"event_type"`
	OccurredAt    string  `json:"occurred_at"`
	Service       string  `json:"service"`
	Environment   string  `json:"environment"`
	RequestID     string  `json:"request_id"`
	UserID        *string `json:"user_id,omitempty"`
	Payload       any     `json:"payload,omitempty"`
}

func NewAuditEmitter(publisher Publisher, service, environment string) *AuditEmitter {
	return &AuditEmitter{
		publisher:   publisher,
		service:     service,
		environment: environment,
	}
}

// Emit publishes one audit event under the given routing key. The event type
// doubles as the routing key suffix, e.g. "messaging.friend_request.accepted".
func (e *AuditEmitter) Emit(ctx context.Context, eventType, requestID string, userID *uuid.UUID, payload any) {
	if e == nil || e.publisher == nil {
		return
	}

	var userIDText *string
	if userID != nil {
		text := userID.String()
		userIDText = &text
	}

	envelope := AuditEnvelope{
		SchemaVersion: 1,
		EventType:     eventType,
		OccurredAt:    time.Now().UTC().Format(time.RFC3339Nano),
		Service:       e.service,
		Environment:   e.environment,
		RequestID:     requestID,
		UserID:        userIDText,
		Payload:       payload,
	}

	headers := map[string]string{}
	if requestID != "" {
		headers["x-request-id"] = requestID
	}
	if span := trace.SpanFromContext(ctx); span.SpanContext().HasTraceID() {
		headers["trace_id"] = span.SpanContext().TraceID().String()
	}

	if err := e.publisher.Publish(ctx, "messaging."+eventType, envelope, headers); err != nil {
		log.Printf("audit publish failed: %v", err)
	}
}
