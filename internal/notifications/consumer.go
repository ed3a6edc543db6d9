package notifications

import (
	"context"
	"encoding/json"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/qanlink/qanlink-backend/pkg/enums"
	"github.com/qanlink/qanlink-backend/pkg/logger"
	"github.com/qanlink/qanlink-backend/pkg/outbox"
	"github.com/qanlink/qanlink-backend/pkg/outbox/idempotency"
	"github.com/qanlink/qanlink-backend/pkg/outbox/payloads"
)

const requestNotificationConsumer = "request-notifications"

// Consumer watches request lifecycle events and runs notification fan-out.
type Consumer struct {
	fanout       *Fanout
	subscription *pubsub.Subscriber
	idempotency  *idempotency.Manager
	logg         *logger.Logger
}

// NewConsumer builds the notification consumer.
func NewConsumer(fanout *Fanout, subscription *pubsub.Subscriber, manager *idempotency.Manager, logg *logger.Logger) (*Consumer, error) {
	if fanout == nil {
		return nil, fmt.Errorf("fan-out required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("domain subscription required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		fanout:       fanout,
		subscription: subscription,
		idempotency:  manager,
		logg:         logg,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.handle(ctx, msg)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type handleResult struct {
	ack  bool
	nack bool
}

func (c *Consumer) handle(ctx context.Context, msg *pubsub.Message) handleResult {
	rawType := msg.Attributes["event_type"]
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"event_type": rawType,
	})

	eventType, err := enums.ParseOutboxEventType(rawType)
	if err != nil {
		c.logg.Info(logCtx, "skipping unknown event")
		return handleResult{ack: true}
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return handleResult{ack: true}
	}

	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "invalid event id", err)
		return handleResult{ack: true}
	}

	already, err := c.idempotency.CheckAndMarkProcessed(ctx, requestNotificationConsumer, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return handleResult{nack: true}
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return handleResult{ack: true}
	}

	if err := c.Process(logCtx, eventType, envelope); err != nil {
		c.logg.Error(logCtx, "notification handling failed", err)
		_ = c.idempotency.Delete(ctx, requestNotificationConsumer, eventID)
		return handleResult{nack: true}
	}
	return handleResult{ack: true}
}

// Process dispatches one decoded event to the fan-out. Malformed
// payloads are dropped with an error so the caller can decide on retry.
func (c *Consumer) Process(ctx context.Context, eventType enums.OutboxEventType, envelope outbox.PayloadEnvelope) error {
	switch eventType {
	case enums.EventRequestCreated:
		var payload payloads.RequestCreatedEvent
		if err := json.Unmarshal(envelope.Data, &payload); err != nil {
			return fmt.Errorf("decoding request created payload: %w", err)
		}
		notified, err := c.fanout.NotifyDonors(ctx, RequestAlert{
			RequestID: payload.RequestID,
			SeekerID:  payload.SeekerID,
			BloodType: payload.BloodType,
			Urgency:   payload.Urgency,
			Hospital:  payload.Hospital,
		})
		if err != nil {
			return err
		}
		c.logg.Info(c.logg.WithField(ctx, "notified", notified), "request fan-out completed")
		return nil

	case enums.EventEmergencyBroadcast:
		var payload payloads.EmergencyBroadcastEvent
		if err := json.Unmarshal(envelope.Data, &payload); err != nil {
			return fmt.Errorf("decoding emergency broadcast payload: %w", err)
		}
		notified, err := c.fanout.NotifyDonors(ctx, RequestAlert{
			RequestID: payload.RequestID,
			SeekerID:  payload.SeekerID,
			BloodType: payload.BloodType,
			Urgency:   payload.Urgency,
			Hospital:  payload.Hospital,
			Emergency: true,
		})
		if err != nil {
			return err
		}
		c.logg.Info(c.logg.WithField(ctx, "notified", notified), "broadcast fan-out completed")
		return nil

	case enums.EventRequestAccepted:
		var payload payloads.RequestAcceptedEvent
		if err := json.Unmarshal(envelope.Data, &payload); err != nil {
			return fmt.Errorf("decoding request accepted payload: %w", err)
		}
		return c.fanout.NotifySeekerAccepted(ctx, payload)

	default:
		c.logg.Info(ctx, "event not handled")
		return nil
	}
}
