package notifications

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/qanlink/qanlink-backend/internal/users"
	"github.com/qanlink/qanlink-backend/pkg/config"
	"github.com/qanlink/qanlink-backend/pkg/db/models"
	"github.com/qanlink/qanlink-backend/pkg/enums"
	pkgerrors "github.com/qanlink/qanlink-backend/pkg/errors"
	"github.com/qanlink/qanlink-backend/pkg/logger"
	"github.com/qanlink/qanlink-backend/pkg/metrics"
	"github.com/qanlink/qanlink-backend/pkg/outbox/payloads"
	"github.com/qanlink/qanlink-backend/pkg/push"
)

const defaultMaxRecipients = 100

// candidateSource is the slice of the users layer fan-out reads.
type candidateSource interface {
	FanOutCandidates(ctx context.Context, params users.FanOutParams) ([]models.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// pushSender delivers push messages best-effort.
type pushSender interface {
	Send(ctx context.Context, messages []push.Message) ([]push.Ticket, error)
}

// RequestAlert is the request summary fan-out works from, shared by
// fresh requests and emergency broadcasts.
type RequestAlert struct {
	RequestID uuid.UUID
	SeekerID  uuid.UUID
	BloodType enums.BloodType
	Urgency   enums.RequestUrgency
	Hospital  string
	Emergency bool
}

// FanoutParams wires fan-out dependencies.
type FanoutParams struct {
	Users   candidateSource
	Repo    Repository
	Push    pushSender
	Metrics *metrics.FanOutMetrics
	Config  config.FanOutConfig
	Logger  *logger.Logger
}

// Fanout selects matching donors for a request and writes their
// notifications. Push delivery is best-effort: a gateway failure is
// counted and logged, never retried.
type Fanout struct {
	users   candidateSource
	repo    Repository
	push    pushSender
	metrics *metrics.FanOutMetrics
	cfg     config.FanOutConfig
	logg    *logger.Logger
}

// NewFanout builds the fan-out worker.
func NewFanout(params FanoutParams) (*Fanout, error) {
	if params.Users == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "candidate source required")
	}
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notifications repository required")
	}
	return &Fanout{
		users:   params.Users,
		repo:    params.Repo,
		push:    params.Push,
		metrics: params.Metrics,
		cfg:     params.Config,
		logg:    params.Logger,
	}, nil
}

// NotifyDonors writes a notification for every compatible, reachable
// donor and schedules push delivery. Returns how many donors were
// notified.
func (f *Fanout) NotifyDonors(ctx context.Context, alert RequestAlert) (int, error) {
	if !alert.BloodType.IsValid() {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "invalid blood type")
	}
	// Both plain and emergency fan-outs write request_match rows; the
	// event label keeps the two apart in metrics.
	event := string(enums.EventRequestCreated)
	if alert.Emergency {
		event = string(enums.EventEmergencyBroadcast)
	}
	notificationType := enums.NotificationTypeRequestMatch

	audience := f.cfg.MaxRecipients
	if audience <= 0 {
		audience = defaultMaxRecipients
	}

	// One extra row tells us whether the audience bound truncated the
	// candidate set.
	candidates, err := f.users.FanOutCandidates(ctx, users.FanOutParams{
		BloodTypes: alert.BloodType.CompatibleDonors(),
		Exclude:    alert.SeekerID,
		Limit:      audience + 1,
	})
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "select fan-out candidates")
	}
	f.metrics.ObserveCandidates(event, len(candidates))
	if len(candidates) > audience {
		candidates = candidates[:audience]
		f.metrics.IncCapped(event)
	}
	if len(candidates) == 0 {
		return 0, nil
	}

	title := alertTitle(alert.Urgency)
	body := alertBody(alert)
	requestID := alert.RequestID

	notified := 0
	messages := make([]push.Message, 0, len(candidates))
	for i := range candidates {
		candidate := candidates[i]
		notification := &models.Notification{
			RecipientID: candidate.ID,
			Type:        notificationType,
			Title:       title,
			Message:     body,
			RequestID:   &requestID,
		}
		if err := f.repo.Create(ctx, notification); err != nil {
			f.logError(ctx, candidate.ID, "fan-out notification write failed", err)
			continue
		}
		notified++
		if candidate.PushToken != nil {
			messages = append(messages, push.Message{
				To:    *candidate.PushToken,
				Title: title,
				Body:  body,
				Sound: "default",
				Data:  map[string]any{"requestId": alert.RequestID.String()},
			})
		}
	}
	f.metrics.AddNotified(event, notified)

	f.deliver(ctx, event, messages)
	return notified, nil
}

// NotifySeekerAccepted tells the seeker a donor stepped up. Exactly one
// notification, gated by the seeker's requestAccepted preference.
func (f *Fanout) NotifySeekerAccepted(ctx context.Context, payload payloads.RequestAcceptedEvent) error {
	seeker, err := f.users.GetByID(ctx, payload.SeekerID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load seeker")
	}
	if seeker == nil {
		f.logError(ctx, payload.SeekerID, "accepted request names unknown seeker", nil)
		return nil
	}
	if !seeker.NotifyRequestAccepted.Effective(true) {
		return nil
	}

	donorName := strings.TrimSpace(payload.DonorName)
	if donorName == "" {
		donorName = "A donor"
	}
	requestID := payload.RequestID
	notification := &models.Notification{
		RecipientID: seeker.ID,
		Type:        enums.NotificationTypeRequestAccepted,
		Title:       "Request Accepted",
		Message:     fmt.Sprintf("%s accepted your blood request.", donorName),
		RequestID:   &requestID,
	}
	if err := f.repo.Create(ctx, notification); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "write acceptance notification")
	}
	f.metrics.AddNotified(string(enums.EventRequestAccepted), 1)

	if seeker.PushToken != nil {
		f.deliver(ctx, string(enums.EventRequestAccepted), []push.Message{{
			To:    *seeker.PushToken,
			Title: notification.Title,
			Body:  notification.Message,
			Sound: "default",
			Data:  map[string]any{"requestId": payload.RequestID.String()},
		}})
	}
	return nil
}

func (f *Fanout) deliver(ctx context.Context, event string, messages []push.Message) {
	if f.push == nil || len(messages) == 0 {
		return
	}
	tickets, err := f.push.Send(ctx, messages)
	if err != nil {
		f.metrics.IncPushFailure(event)
		if f.logg != nil {
			f.logg.Error(ctx, "push delivery failed", err)
		}
		return
	}
	for _, ticket := range tickets {
		if !ticket.Ok() {
			f.metrics.IncPushFailure(event)
		}
	}
}

func (f *Fanout) logError(ctx context.Context, userID uuid.UUID, msg string, err error) {
	if f.logg == nil {
		return
	}
	f.logg.Error(f.logg.WithUserID(ctx, userID.String()), msg, err)
}

func alertTitle(urgency enums.RequestUrgency) string {
	switch urgency {
	case enums.RequestUrgencyCritical:
		return "CRITICAL Blood Request!"
	case enums.RequestUrgencyUrgent:
		return "Urgent Blood Request!"
	default:
		return "New Blood Request"
	}
}

func alertBody(alert RequestAlert) string {
	hospital := strings.TrimSpace(alert.Hospital)
	if hospital == "" {
		return fmt.Sprintf("%s blood is needed near you.", alert.BloodType)
	}
	return fmt.Sprintf("%s blood is needed at %s.", alert.BloodType, hospital)
}
