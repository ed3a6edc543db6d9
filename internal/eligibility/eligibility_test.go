package eligibility

import (
	"testing"
	"time"
)

var now = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

func daysAgo(n int) *time.Time {
	t := now.Add(-time.Duration(n) * 24 * time.Hour)
	return &t
}

func TestEvaluateNoDonations(t *testing.T) {
	status := Evaluate(nil, now)
	if !status.Eligible {
		t.Fatal("donor with no history should be eligible")
	}
	if status.NextEligibleAt != nil {
		t.Fatal("no next-eligible date without a donation")
	}
}

func TestEvaluateExactly56Days(t *testing.T) {
	status := Evaluate(daysAgo(56), now)
	if !status.Eligible {
		t.Fatal("donor at exactly 56 days should be eligible")
	}
}

func TestEvaluate55DaysIneligible(t *testing.T) {
	status := Evaluate(daysAgo(55), now)
	if status.Eligible {
		t.Fatal("donor at 55 days should not be eligible")
	}
	if status.DaysUntil != 1 {
		t.Fatalf("expected 1 day remaining, got %d", status.DaysUntil)
	}
}

func TestEvaluateRemainingDaysRoundUp(t *testing.T) {
	last := now.Add(-10*24*time.Hour - 12*time.Hour)
	status := Evaluate(&last, now)
	if status.Eligible {
		t.Fatal("donor 10.5 days in should not be eligible")
	}
	if status.DaysUntil != 46 {
		t.Fatalf("expected 46 days remaining, got %d", status.DaysUntil)
	}
}

func TestDueForReminderWindow(t *testing.T) {
	cases := []struct {
		name string
		last *time.Time
		want bool
	}{
		{"no donations", nil, false},
		{"55 days, cycle not elapsed", daysAgo(55), false},
		{"56 days, just eligible", daysAgo(56), true},
		{"57 days, still in catch window", daysAgo(57), true},
		{"58 days, past window", daysAgo(58), false},
		{"120 days, long eligible", daysAgo(120), false},
	}
	for _, tc := range cases {
		if got := DueForReminder(tc.last, nil, now); got != tc.want {
			t.Errorf("%s: DueForReminder = %v, want %v", tc.name, got, tc.want)
		}
	}

	// A daily run that fires mid-day still reaches day-57 donors.
	last := now.Add(-57*24*time.Hour - 12*time.Hour)
	if !DueForReminder(&last, nil, now) {
		t.Error("donor 57.5 days out should still be in the catch window")
	}
}

func TestDueForReminderDedupe(t *testing.T) {
	last := daysAgo(56)
	reminded := now.Add(-2 * time.Hour)
	if DueForReminder(last, &reminded, now) {
		t.Fatal("donor reminded this cycle should not be re-notified")
	}

	staleReminder := last.Add(-10 * 24 * time.Hour)
	if !DueForReminder(last, &staleReminder, now) {
		t.Fatal("reminder from a previous cycle should not block")
	}
}
