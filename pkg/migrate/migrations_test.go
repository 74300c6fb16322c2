package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dshubenok/backender-challenge/pkg/migrate"
)

func TestMigrationsDirIsValid(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("validate migrations dir: %v", err)
	}
}

func TestOutboxMigrationMatchesDispatchContract(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_create_event_outbox.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no event_outbox migration file found")
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	content := string(data)

	checks := []string{
		"CREATE TABLE IF NOT EXISTS event_outbox",
		"id BIGSERIAL PRIMARY KEY",
		"event_type TEXT NOT NULL",
		"event_date_time TIMESTAMPTZ NOT NULL",
		"environment TEXT NOT NULL",
		"event_context JSONB NOT NULL",
		"metadata_version BIGINT NOT NULL DEFAULT 1",
		"DROP TABLE IF EXISTS event_outbox",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestUsersMigrationEnforcesUniqueEmail(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_create_users.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no users migration file found")
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	content := string(data)

	for _, sub := range []string{
		"CREATE TABLE IF NOT EXISTS users",
		"UNIQUE (email)",
		"DROP TABLE IF EXISTS users",
	} {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}
