package client

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/meridian-hr/be-pf-requests/internal/repository"
)

// NotificationPublisher publishes request lifecycle events to NATS JetStream
// for consumption by the notifications service.
//
// Subject convention: notifications.pf.<event_type>
// Event types: request_submitted, request_ready_for_review,
//              request_incomplete, request_in_review, request_approved,
//              request_rejected, request_released, request_cancelled,
//              request_resubmitted
//
// All publish operations are non-fatal: errors are logged but never
// propagated to the caller, so notification failures never interrupt an
// already-committed transition.
type NotificationPublisher struct {
	js  nats.JetStreamContext
	log zerolog.Logger
}

// NotificationEvent is the JSON schema published to NATS.
type NotificationEvent struct {
	EventType    string         `json:"event_type"`
	ActorID      string         `json:"actor_id"`
	Recipients   []string       `json:"recipients"`
	ResourceType string         `json:"resource_type,omitempty"`
	ResourceID   string         `json:"resource_id,omitempty"`
	Severity     string         `json:"severity,omitempty"`
	Category     string         `json:"category,omitempty"`
	Payload      map[string]any `json:"payload,omitempty"`
}

// NewNotificationPublisher creates a publisher on top of an open NATS
// connection.
func NewNotificationPublisher(nc *nats.Conn, log zerolog.Logger) (*NotificationPublisher, error) {
	js, err := nc.JetStream()
	if err != nil {
		return nil, fmt.Errorf("create jetstream context: %w", err)
	}
	return &NotificationPublisher{js: js, log: log}, nil
}

// PublishRequestEvent publishes a lifecycle event for a request.
// Subject: notifications.pf.<eventType>
func (p *NotificationPublisher) PublishRequestEvent(ctx context.Context, eventType string, req *repository.Request, actorID string) {
	if p.js == nil {
		return
	}

	recipients := recipientsFor(req, actorID)
	if len(recipients) == 0 {
		return
	}

	event := &NotificationEvent{
		EventType:    eventType,
		ActorID:      actorID,
		Recipients:   recipients,
		ResourceType: "pf_request",
		ResourceID:   req.ID,
		Severity:     "info",
		Category:     "pf_lifecycle",
		Payload: map[string]any{
			"status": req.Status,
			"type":   req.Type,
			"amount": req.Amount,
		},
	}

	data, err := json.Marshal(event)
	if err != nil {
		p.log.Warn().Err(err).Str("event_type", eventType).Msg("notification: failed to marshal event")
		return
	}

	subject := fmt.Sprintf("notifications.pf.%s", eventType)
	if _, err := p.js.Publish(subject, data, nats.Context(ctx)); err != nil {
		p.log.Warn().Err(err).
			Str("subject", subject).
			Str("request_id", req.ID).
			Msg("notification: failed to publish NATS event (non-fatal)")
		return
	}

	p.log.Debug().
		Str("subject", subject).
		Str("request_id", req.ID).
		Int("recipients", len(recipients)).
		Msg("notification: event published")
}

// recipientsFor collects everyone with a stake in the request, minus the
// actor who triggered the event.
func recipientsFor(req *repository.Request, actorID string) []string {
	seen := map[string]bool{actorID: true}
	recipients := make([]string, 0, 4)

	add := func(id string) {
		if id != "" && !seen[id] {
			seen[id] = true
			recipients = append(recipients, id)
		}
	}

	add(req.EmployeeID)
	if req.AssistantID != nil {
		add(*req.AssistantID)
	}
	if req.OfficerID != nil {
		add(*req.OfficerID)
	}
	if req.ApproverID != nil {
		add(*req.ApproverID)
	}

	return recipients
}
