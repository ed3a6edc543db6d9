package cron

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/qanlink/qanlink-backend/internal/eligibility"
	"github.com/qanlink/qanlink-backend/internal/notifications"
	"github.com/qanlink/qanlink-backend/internal/users"
	"github.com/qanlink/qanlink-backend/pkg/db/models"
	"github.com/qanlink/qanlink-backend/pkg/enums"
	"github.com/qanlink/qanlink-backend/pkg/logger"
	"github.com/qanlink/qanlink-backend/pkg/push"
)

const eligibilityReminderJobName = "eligibility-reminders"

// reminderSource is the slice of the users layer the job reads and stamps.
type reminderSource interface {
	WithTx(tx *gorm.DB) users.Repository
	ReminderCohort(ctx context.Context, window users.ReminderWindow) ([]users.ReminderCandidate, error)
}

type notificationWriter interface {
	WithTx(tx *gorm.DB) notifications.Repository
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type pushSender interface {
	Send(ctx context.Context, messages []push.Message) ([]push.Ticket, error)
}

// EligibilityReminderJob tells donors their 56-day wait is over. The
// cohort query pre-filters on mode, preference, and push token; the
// per-donor window check deduplicates within one cycle.
type EligibilityReminderJob struct {
	users         reminderSource
	notifications notificationWriter
	db            txRunner
	push          pushSender
	logg          *logger.Logger
	now           func() time.Time
}

// EligibilityReminderParams wires the job.
type EligibilityReminderParams struct {
	Users         reminderSource
	Notifications notificationWriter
	DB            txRunner
	Push          pushSender
	Logger        *logger.Logger
	Now           func() time.Time
}

// NewEligibilityReminderJob builds the reminder job.
func NewEligibilityReminderJob(params EligibilityReminderParams) (*EligibilityReminderJob, error) {
	if params.Users == nil {
		return nil, fmt.Errorf("users repository required")
	}
	if params.Notifications == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &EligibilityReminderJob{
		users:         params.Users,
		notifications: params.Notifications,
		db:            params.DB,
		push:          params.Push,
		logg:          params.Logger,
		now:           now,
	}, nil
}

// Name implements Job.
func (j *EligibilityReminderJob) Name() string { return eligibilityReminderJobName }

// Run implements Job.
func (j *EligibilityReminderJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	window := users.ReminderWindow{
		NotBefore: now.Add(-(eligibility.DonationCycle + eligibility.ReminderWindow)),
		NotAfter:  now.Add(-eligibility.DonationCycle),
	}

	cohort, err := j.users.ReminderCohort(ctx, window)
	if err != nil {
		return fmt.Errorf("loading reminder cohort: %w", err)
	}

	reminded := 0
	for _, candidate := range cohort {
		lastDonated := candidate.LastDonatedAt
		if !eligibility.DueForReminder(&lastDonated, candidate.User.LastEligibilityReminderAt, now) {
			continue
		}
		if err := j.remind(ctx, candidate, now); err != nil {
			j.logg.Error(j.logg.WithUserID(ctx, candidate.User.ID.String()), "eligibility reminder failed", err)
			continue
		}
		reminded++
	}

	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"cohort":   len(cohort),
		"reminded": reminded,
	}), "eligibility reminders dispatched")
	return nil
}

func (j *EligibilityReminderJob) remind(ctx context.Context, candidate users.ReminderCandidate, now time.Time) error {
	notification := &models.Notification{
		RecipientID: candidate.User.ID,
		Type:        enums.NotificationTypeEligibilityReminder,
		Title:       "You Can Donate Again!",
		Message:     "Your 56-day wait is over. Someone nearby may need your blood type today.",
	}

	// Notification row and reminder stamp commit together so a crash
	// cannot leave the donor re-remindable with a notification already
	// in their inbox.
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		if err := j.notifications.WithTx(tx).Create(ctx, notification); err != nil {
			return err
		}
		return j.users.WithTx(tx).MarkReminded(ctx, candidate.User.ID, now)
	})
	if err != nil {
		return err
	}

	if j.push != nil && candidate.User.PushToken != nil {
		_, pushErr := j.push.Send(ctx, []push.Message{{
			To:    *candidate.User.PushToken,
			Title: notification.Title,
			Body:  notification.Message,
			Sound: "default",
		}})
		if pushErr != nil {
			j.logg.Warn(j.logg.WithUserID(ctx, candidate.User.ID.String()), "reminder push failed")
		}
	}
	return nil
}
