package notifications

import (
	"context"
	"encoding/json"
	"io"
	"testing"

	"github.com/google/uuid"

	"github.com/qanlink/qanlink-backend/pkg/config"
	"github.com/qanlink/qanlink-backend/pkg/db/models"
	"github.com/qanlink/qanlink-backend/pkg/enums"
	"github.com/qanlink/qanlink-backend/pkg/logger"
	"github.com/qanlink/qanlink-backend/pkg/outbox"
)

func buildEnvelope(t *testing.T, data any) outbox.PayloadEnvelope {
	t.Helper()

	raw, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return outbox.PayloadEnvelope{
		Version: 1,
		EventID: uuid.NewString(),
		Data:    raw,
	}
}

func testConsumer(t *testing.T, source *fakeCandidates, repo *recordingRepo) *Consumer {
	t.Helper()

	fanout := newFanout(t, source, repo, &recordingPush{}, config.FanOutConfig{})
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	return &Consumer{fanout: fanout, logg: logg}
}

func TestConsumerProcessRequestCreated(t *testing.T) {
	source := &fakeCandidates{candidates: []models.User{donorCandidate(enums.BloodTypeOPositive)}}
	repo := &recordingRepo{}
	consumer := testConsumer(t, source, repo)

	envelope := buildEnvelope(t, map[string]any{
		"requestId": uuid.NewString(),
		"seekerId":  uuid.NewString(),
		"bloodType": "A+",
		"urgency":   "urgent",
		"hospital":  "Central Hospital",
	})
	if err := consumer.Process(context.Background(), enums.EventRequestCreated, envelope); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if len(repo.created) != 1 || repo.created[0].Type != enums.NotificationTypeRequestMatch {
		t.Fatalf("expected one request_match notification, got %+v", repo.created)
	}
}

func TestConsumerProcessEmergencyBroadcast(t *testing.T) {
	source := &fakeCandidates{candidates: []models.User{donorCandidate(enums.BloodTypeONegative)}}
	repo := &recordingRepo{}
	consumer := testConsumer(t, source, repo)

	envelope := buildEnvelope(t, map[string]any{
		"requestId": uuid.NewString(),
		"seekerId":  uuid.NewString(),
		"bloodType": "O-",
		"urgency":   "critical",
		"hospital":  "City Clinic",
	})
	if err := consumer.Process(context.Background(), enums.EventEmergencyBroadcast, envelope); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if len(repo.created) != 1 || repo.created[0].Type != enums.NotificationTypeRequestMatch {
		t.Fatalf("expected one request_match notification, got %+v", repo.created)
	}
}

func TestConsumerProcessRequestAccepted(t *testing.T) {
	seeker := &models.User{ID: uuid.New(), Name: "Seeker"}
	source := &fakeCandidates{users: map[uuid.UUID]*models.User{seeker.ID: seeker}}
	repo := &recordingRepo{}
	consumer := testConsumer(t, source, repo)

	envelope := buildEnvelope(t, map[string]any{
		"requestId": uuid.NewString(),
		"seekerId":  seeker.ID.String(),
		"donorId":   uuid.NewString(),
		"donorName": "Aysel",
	})
	if err := consumer.Process(context.Background(), enums.EventRequestAccepted, envelope); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if len(repo.created) != 1 || repo.created[0].Type != enums.NotificationTypeRequestAccepted {
		t.Fatalf("expected one acceptance notification, got %+v", repo.created)
	}
	if repo.created[0].RecipientID != seeker.ID {
		t.Fatal("acceptance notification must go to the seeker")
	}
}

func TestConsumerProcessBadPayload(t *testing.T) {
	consumer := testConsumer(t, &fakeCandidates{}, &recordingRepo{})

	envelope := outbox.PayloadEnvelope{
		Version: 1,
		EventID: uuid.NewString(),
		Data:    json.RawMessage(`{`),
	}
	if err := consumer.Process(context.Background(), enums.EventRequestCreated, envelope); err == nil {
		t.Fatal("malformed payload must surface an error")
	}
}
