package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/qanlink/qanlink-backend/pkg/migrate"
)

func readMigration(t *testing.T, pattern string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", pattern))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no migration file matching %q", pattern)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}

func TestRequestsMigrationContainsConstraints(t *testing.T) {
	content := readMigration(t, "*_create_requests.sql")

	checks := []string{
		"CREATE TABLE requests",
		"seeker_id uuid NOT NULL REFERENCES users (id)",
		"status text NOT NULL DEFAULT 'open'",
		"accepted_by uuid REFERENCES users (id)",
		"CREATE INDEX ix_requests_open_feed ON requests (status, blood_type, created_at DESC)",
		"DROP TABLE requests",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestOutboxMigrationContainsDLQ(t *testing.T) {
	content := readMigration(t, "*_create_outbox.sql")

	checks := []string{
		"CREATE TABLE outbox_events",
		"CREATE TABLE outbox_dlq",
		"-- +goose Down",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestMigrationDirIsValid(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("ValidateDir: %v", err)
	}
}
