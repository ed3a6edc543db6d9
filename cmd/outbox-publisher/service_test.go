package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/qanlink/qanlink-backend/pkg/config"
	"github.com/qanlink/qanlink-backend/pkg/db/models"
	"github.com/qanlink/qanlink-backend/pkg/enums"
	"github.com/qanlink/qanlink-backend/pkg/logger"
	"github.com/qanlink/qanlink-backend/pkg/outbox"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

type fakeDB struct {
	pingErr error
}

func (f *fakeDB) Ping(context.Context) error { return f.pingErr }

func (f *fakeDB) WithTx(_ context.Context, fn func(tx *gorm.DB) error) error {
	return fn(&gorm.DB{})
}

type fakePubSub struct {
	pingErr error
}

func (f *fakePubSub) Ping(context.Context) error { return f.pingErr }

func (f *fakePubSub) NotificationPublisher() *gcppubsub.Publisher { return nil }

type fakeRepo struct {
	events    []models.OutboxEvent
	fetchErr  error
	published []uuid.UUID
	failed    []uuid.UUID
	terminal  []uuid.UUID
}

func (f *fakeRepo) FetchUnpublishedForPublish(_ *gorm.DB, _, _ int) ([]models.OutboxEvent, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	events := f.events
	f.events = nil
	return events, nil
}

func (f *fakeRepo) MarkPublishedTx(_ *gorm.DB, id uuid.UUID) error {
	f.published = append(f.published, id)
	return nil
}

func (f *fakeRepo) MarkFailedTx(_ *gorm.DB, id uuid.UUID, _ error) error {
	f.failed = append(f.failed, id)
	return nil
}

func (f *fakeRepo) MarkTerminalTx(_ *gorm.DB, id uuid.UUID, _ error, _ int) error {
	f.terminal = append(f.terminal, id)
	return nil
}

type fakeDLQ struct {
	entries []models.OutboxDLQ
}

func (f *fakeDLQ) InsertTx(_ *gorm.DB, entry models.OutboxDLQ) error {
	f.entries = append(f.entries, entry)
	return nil
}

type fakeResult struct {
	err error
}

func (r fakeResult) Get(context.Context) (string, error) {
	if r.err != nil {
		return "", r.err
	}
	return "msg-1", nil
}

type fakePublisher struct {
	err      error
	messages []*gcppubsub.Message
}

func (f *fakePublisher) Publish(_ context.Context, msg *gcppubsub.Message) publishResult {
	f.messages = append(f.messages, msg)
	return fakeResult{err: f.err}
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Outbox.BatchSize = 10
	cfg.Outbox.PollIntervalMS = 10
	cfg.Outbox.MaxAttempts = 3
	return cfg
}

func newTestService(t *testing.T, repo *fakeRepo, dlq *fakeDLQ, pub *fakePublisher) *Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Config:        testConfig(),
		Logger:        testLogger(),
		DB:            &fakeDB{},
		PubSub:        &fakePubSub{},
		Repository:    repo,
		DLQRepository: dlq,
		Publisher:     pub,
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func makeEvent(t *testing.T, eventType enums.OutboxEventType, attempts int) models.OutboxEvent {
	t.Helper()
	payload, err := json.Marshal(outbox.PayloadEnvelope{
		Version:    1,
		EventID:    uuid.NewString(),
		OccurredAt: time.Now().UTC(),
		Data:       json.RawMessage(`{}`),
	})
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     eventType,
		AggregateType: enums.AggregateRequest,
		AggregateID:   uuid.New(),
		Payload:       payload,
		CreatedAt:     time.Now().UTC(),
		AttemptCount:  attempts,
	}
}

func TestProcessBatchPublishesEvents(t *testing.T) {
	event := makeEvent(t, enums.EventRequestCreated, 0)
	repo := &fakeRepo{events: []models.OutboxEvent{event}}
	dlq := &fakeDLQ{}
	pub := &fakePublisher{}
	svc := newTestService(t, repo, dlq, pub)

	processed, err := svc.processBatch(context.Background())
	if err != nil {
		t.Fatalf("processBatch: %v", err)
	}
	if !processed {
		t.Fatal("expected batch to be processed")
	}
	if len(repo.published) != 1 || repo.published[0] != event.ID {
		t.Fatalf("expected event marked published, got %v", repo.published)
	}
	if len(pub.messages) != 1 {
		t.Fatalf("expected one message published, got %d", len(pub.messages))
	}
	attrs := pub.messages[0].Attributes
	if attrs["event_type"] != string(enums.EventRequestCreated) {
		t.Fatalf("unexpected event_type attribute %q", attrs["event_type"])
	}
	if attrs["aggregate_id"] != event.AggregateID.String() {
		t.Fatalf("unexpected aggregate_id attribute %q", attrs["aggregate_id"])
	}
	if attrs["event_id"] == "" {
		t.Fatal("expected event_id attribute")
	}
	if len(dlq.entries) != 0 {
		t.Fatalf("expected no dlq entries, got %d", len(dlq.entries))
	}
}

func TestProcessBatchUnknownEventTypeGoesToDLQ(t *testing.T) {
	event := makeEvent(t, enums.OutboxEventType("bogus"), 0)
	repo := &fakeRepo{events: []models.OutboxEvent{event}}
	dlq := &fakeDLQ{}
	pub := &fakePublisher{}
	svc := newTestService(t, repo, dlq, pub)

	if _, err := svc.processBatch(context.Background()); err != nil {
		t.Fatalf("processBatch: %v", err)
	}
	if len(pub.messages) != 0 {
		t.Fatalf("expected no publish attempts, got %d", len(pub.messages))
	}
	if len(dlq.entries) != 1 {
		t.Fatalf("expected one dlq entry, got %d", len(dlq.entries))
	}
	if dlq.entries[0].ErrorReason != enums.OutboxDLQReasonNonRetryable {
		t.Fatalf("unexpected dlq reason %q", dlq.entries[0].ErrorReason)
	}
	if len(repo.terminal) != 1 || repo.terminal[0] != event.ID {
		t.Fatalf("expected event marked terminal, got %v", repo.terminal)
	}
}

func TestProcessBatchMalformedPayloadGoesToDLQ(t *testing.T) {
	event := makeEvent(t, enums.EventRequestAccepted, 0)
	event.Payload = json.RawMessage(`{"version":1}`)
	repo := &fakeRepo{events: []models.OutboxEvent{event}}
	dlq := &fakeDLQ{}
	pub := &fakePublisher{}
	svc := newTestService(t, repo, dlq, pub)

	if _, err := svc.processBatch(context.Background()); err != nil {
		t.Fatalf("processBatch: %v", err)
	}
	if len(dlq.entries) != 1 || dlq.entries[0].ErrorReason != enums.OutboxDLQReasonNonRetryable {
		t.Fatalf("expected non-retryable dlq entry, got %+v", dlq.entries)
	}
}

func TestProcessBatchRetryableFailureMarksFailed(t *testing.T) {
	event := makeEvent(t, enums.EventRequestCreated, 0)
	repo := &fakeRepo{events: []models.OutboxEvent{event}}
	dlq := &fakeDLQ{}
	pub := &fakePublisher{err: errors.New("broker unavailable")}
	svc := newTestService(t, repo, dlq, pub)

	if _, err := svc.processBatch(context.Background()); err != nil {
		t.Fatalf("processBatch: %v", err)
	}
	if len(repo.failed) != 1 || repo.failed[0] != event.ID {
		t.Fatalf("expected event marked failed, got %v", repo.failed)
	}
	if len(dlq.entries) != 0 {
		t.Fatalf("expected no dlq entries, got %d", len(dlq.entries))
	}
	if len(repo.terminal) != 0 {
		t.Fatalf("expected no terminal marks, got %v", repo.terminal)
	}
}

func TestProcessBatchMaxAttemptsDeadLetters(t *testing.T) {
	event := makeEvent(t, enums.EventEmergencyBroadcast, 2)
	repo := &fakeRepo{events: []models.OutboxEvent{event}}
	dlq := &fakeDLQ{}
	pub := &fakePublisher{err: errors.New("broker unavailable")}
	svc := newTestService(t, repo, dlq, pub)

	if _, err := svc.processBatch(context.Background()); err != nil {
		t.Fatalf("processBatch: %v", err)
	}
	if len(dlq.entries) != 1 {
		t.Fatalf("expected one dlq entry, got %d", len(dlq.entries))
	}
	if dlq.entries[0].ErrorReason != enums.OutboxDLQReasonMaxAttempts {
		t.Fatalf("unexpected dlq reason %q", dlq.entries[0].ErrorReason)
	}
	if len(repo.terminal) != 1 || repo.terminal[0] != event.ID {
		t.Fatalf("expected event marked terminal, got %v", repo.terminal)
	}
	if len(repo.failed) != 0 {
		t.Fatalf("expected no retryable marks, got %v", repo.failed)
	}
}

func TestProcessBatchEmptyDoesNothing(t *testing.T) {
	repo := &fakeRepo{}
	svc := newTestService(t, repo, &fakeDLQ{}, &fakePublisher{})

	processed, err := svc.processBatch(context.Background())
	if err != nil {
		t.Fatalf("processBatch: %v", err)
	}
	if processed {
		t.Fatal("expected empty batch to report no work")
	}
}

func TestRunFailsReadinessCheck(t *testing.T) {
	svc := newTestService(t, &fakeRepo{}, &fakeDLQ{}, &fakePublisher{})
	svc.db = &fakeDB{pingErr: errors.New("connection refused")}

	if err := svc.Run(context.Background()); err == nil {
		t.Fatal("expected readiness failure")
	}
}

func TestNextBackoffDoublesAndCaps(t *testing.T) {
	base := 500 * time.Millisecond
	current := nextBackoff(base, base, maxBackoff)
	if current != time.Second {
		t.Fatalf("expected 1s, got %v", current)
	}
	for i := 0; i < 10; i++ {
		current = nextBackoff(current, base, maxBackoff)
	}
	if current != maxBackoff {
		t.Fatalf("expected cap at %v, got %v", maxBackoff, current)
	}
}
