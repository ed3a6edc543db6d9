package eligibility

import "time"

// DonationCycle is the minimum wait between whole-blood donations.
const DonationCycle = 56 * 24 * time.Hour

// ReminderWindow is how long a donor stays in the reminder cohort once
// the cycle elapses. Two days, so a late or skipped daily run still
// catches donors at day 57. Donors past the window are assumed to have
// seen the earlier reminder.
const ReminderWindow = 48 * time.Hour

// Status describes where a donor stands in their donation cycle.
type Status struct {
	Eligible       bool
	LastDonatedAt  *time.Time
	NextEligibleAt *time.Time
	DaysUntil      int
}

// Evaluate computes the donor's eligibility from their most recent
// donation. A donor with no recorded donations is always eligible.
func Evaluate(lastDonatedAt *time.Time, now time.Time) Status {
	if lastDonatedAt == nil {
		return Status{Eligible: true}
	}

	next := lastDonatedAt.Add(DonationCycle)
	if !now.Before(next) {
		return Status{
			Eligible:       true,
			LastDonatedAt:  lastDonatedAt,
			NextEligibleAt: &next,
		}
	}

	remaining := next.Sub(now)
	days := int(remaining / (24 * time.Hour))
	if remaining%(24*time.Hour) != 0 {
		days++
	}
	return Status{
		Eligible:       false,
		LastDonatedAt:  lastDonatedAt,
		NextEligibleAt: &next,
		DaysUntil:      days,
	}
}

// DueForReminder reports whether a donor has just crossed the donation
// cycle and should get the one-time eligibility reminder. The window
// check keeps the daily job from re-notifying donors whose cycle
// elapsed long ago.
func DueForReminder(lastDonatedAt *time.Time, lastRemindedAt *time.Time, now time.Time) bool {
	if lastDonatedAt == nil {
		return false
	}

	since := now.Sub(*lastDonatedAt)
	if since < DonationCycle || since >= DonationCycle+ReminderWindow {
		return false
	}

	// One reminder per cycle: anything sent after the last donation
	// already covered this cycle.
	if lastRemindedAt != nil && lastRemindedAt.After(*lastDonatedAt) {
		return false
	}
	return true
}
