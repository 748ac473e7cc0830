package schedule

import (
	"errors"
	"testing"
)

func TestAddJobRejectsDuplicates(t *testing.T) {
	s := New()
	if err := s.AddJob("scan", "0 */6 * * *", func() error { return nil }); err != nil {
		t.Fatalf("AddJob failed: %v", err)
	}
	if err := s.AddJob("scan", "@hourly", func() error { return nil }); err == nil {
		t.Error("expected error registering duplicate job name")
	}
}

func TestAddJobRejectsBadSpec(t *testing.T) {
	s := New()
	if err := s.AddJob("broken", "not a cron spec", func() error { return nil }); err == nil {
		t.Error("expected error for invalid cron spec")
	}
	// A failed registration must not leave a status entry behind.
	if len(s.Status()) != 0 {
		t.Errorf("expected no status entries, got %d", len(s.Status()))
	}
}

func TestRunRecordsOutcome(t *testing.T) {
	s := New()
	if err := s.AddJob("rollover", "0 0 * * *", func() error { return nil }); err != nil {
		t.Fatalf("AddJob failed: %v", err)
	}

	s.run("rollover", func() error { return errors.New("db locked") })
	st := s.Status()
	if len(st) != 1 {
		t.Fatalf("expected 1 status entry, got %d", len(st))
	}
	if st[0].Runs != 1 || st[0].LastError != "db locked" {
		t.Errorf("status = %+v, want 1 run with error", st[0])
	}

	// A successful run clears the previous error.
	s.run("rollover", func() error { return nil })
	st = s.Status()
	if st[0].Runs != 2 || st[0].LastError != "" {
		t.Errorf("status = %+v, want 2 runs with no error", st[0])
	}
}

func TestRunRecoversPanic(t *testing.T) {
	s := New()
	if err := s.AddJob("scan", "@hourly", func() error { return nil }); err != nil {
		t.Fatalf("AddJob failed: %v", err)
	}

	s.run("scan", func() error { panic("boom") })
	st := s.Status()
	if len(st) != 1 || st[0].LastError == "" {
		t.Errorf("expected recorded panic, got %+v", st)
	}
}
