package store

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/jay060412/stepcode/internal/content"
	"github.com/jay060412/stepcode/internal/gapfiller"
	"github.com/jay060412/stepcode/internal/llm"
	"github.com/jay060412/stepcode/internal/profile"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPragmasApplied(t *testing.T) {
	s := openTestStore(t)
	db := s.DB()

	tests := []struct {
		pragma string
		want   string
	}{
		{"journal_mode", "wal"},
		{"foreign_keys", "1"},
		{"synchronous", "1"}, // NORMAL = 1
	}

	for _, tt := range tests {
		var got string
		if err := db.QueryRow("PRAGMA " + tt.pragma).Scan(&got); err != nil {
			t.Errorf("PRAGMA %s: %v", tt.pragma, err)
			continue
		}
		if got != tt.want {
			t.Errorf("PRAGMA %s = %q, want %q", tt.pragma, got, tt.want)
		}
	}
}

func TestProfileInsertGetRoundTrip(t *testing.T) {
	s := openTestStore(t)
	repo := s.ProfileRepo()
	ctx := context.Background()

	missed := gapfiller.Merge(nil, []content.Problem{
		content.ConceptProblem{ID: "q1", Prompt: "Pick A.", Options: []string{"A", "B"}, Answer: "A"},
	})
	in := profile.Profile{
		ID:                 "u1",
		Name:               "Ada",
		Progress:           33,
		CompletedLessonIDs: []string{"l1"},
		MissedConcepts:     missed,
		LastTrackID:        "step",
		Role:               profile.RoleStudent,
		Theme:              "dark",
		Settings:           map[string]string{"sound": "off"},
	}
	if err := repo.Insert(ctx, in); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	got, err := repo.Get(ctx, "u1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Name != "Ada" || got.Progress != 33 || got.LastTrackID != "step" || got.Theme != "dark" {
		t.Errorf("scalar fields wrong: %+v", got)
	}
	if !reflect.DeepEqual(got.CompletedLessonIDs, []string{"l1"}) {
		t.Errorf("completed = %v", got.CompletedLessonIDs)
	}
	if !reflect.DeepEqual(got.MissedConcepts, missed) {
		t.Errorf("missed concepts did not round trip: %v", got.MissedConcepts)
	}
	if got.Settings["sound"] != "off" {
		t.Errorf("settings = %v", got.Settings)
	}
	if got.UpdatedAt.IsZero() {
		t.Error("UpdatedAt not stamped")
	}
}

func TestProfileGetUnknown(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.ProfileRepo().Get(context.Background(), "ghost"); !errors.Is(err, ErrProfileNotFound) {
		t.Fatalf("expected ErrProfileNotFound, got %v", err)
	}
}

func TestProfilePartialUpdate(t *testing.T) {
	s := openTestStore(t)
	repo := s.ProfileRepo()
	ctx := context.Background()

	if err := repo.Insert(ctx, profile.Profile{ID: "u1", Name: "Ada", Progress: 10, Theme: "dark"}); err != nil {
		t.Fatal(err)
	}

	progress := 40
	completed := []string{"l1", "l2"}
	err := repo.Update(ctx, "u1", profile.Update{
		Progress:           &progress,
		CompletedLessonIDs: &completed,
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	got, err := repo.Get(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Progress != 40 || !reflect.DeepEqual(got.CompletedLessonIDs, completed) {
		t.Errorf("update not applied: %+v", got)
	}
	// Untouched fields keep their stored values.
	if got.Name != "Ada" || got.Theme != "dark" {
		t.Errorf("partial update clobbered fields: %+v", got)
	}

	if err := repo.Update(ctx, "ghost", profile.Update{Progress: &progress}); !errors.Is(err, ErrProfileNotFound) {
		t.Errorf("update of unknown id: %v", err)
	}
}

func TestRequestLogAppendAndStats(t *testing.T) {
	s := openTestStore(t)
	log := s.RequestLog()
	ctx := context.Background()

	records := []llm.RequestRecord{
		{Provider: "anthropic", Model: "m1", Purpose: "tutor", InputTokens: 100, OutputTokens: 50, Success: true},
		{Provider: "anthropic", Model: "m1", Purpose: "simulate", InputTokens: 20, OutputTokens: 0, Success: false, ErrorMessage: "rate limited"},
	}
	for _, rec := range records {
		if err := log.AppendRequest(ctx, rec); err != nil {
			t.Fatalf("AppendRequest: %v", err)
		}
	}

	st, err := s.RequestStats(ctx)
	if err != nil {
		t.Fatalf("RequestStats: %v", err)
	}
	if st.Total != 2 || st.Failures != 1 {
		t.Errorf("stats counts = %+v", st)
	}
	if st.InputTokens != 120 || st.OutputTokens != 50 {
		t.Errorf("stats tokens = %+v", st)
	}
}

func TestDefaultDBPathEnvOverride(t *testing.T) {
	want := filepath.Join(t.TempDir(), "nested", "custom.db")
	t.Setenv("STEPCODE_DB", want)
	got, err := DefaultDBPath()
	if err != nil {
		t.Fatalf("DefaultDBPath: %v", err)
	}
	if got != want {
		t.Errorf("path = %q, want %q", got, want)
	}
}
