package profile

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"
)

func TestComputeProgress(t *testing.T) {
	cases := []struct {
		completed, total, want int
	}{
		{3, 10, 30},
		{10, 10, 100},
		{12, 10, 100}, // clamped even if duplicates leaked past dedupe
		{0, 10, 0},
		{1, 3, 33},
		{2, 3, 67}, // rounded, not truncated
		{5, 0, 0},
	}
	for _, tc := range cases {
		if got := ComputeProgress(tc.completed, tc.total); got != tc.want {
			t.Errorf("ComputeProgress(%d, %d) = %d, want %d", tc.completed, tc.total, got, tc.want)
		}
	}
}

func TestMarkCompletedDeduplicates(t *testing.T) {
	var p Profile
	p.MarkCompleted("l1")
	p.MarkCompleted("l2")
	p.MarkCompleted("l1")
	if !reflect.DeepEqual(p.CompletedLessonIDs, []string{"l1", "l2"}) {
		t.Errorf("completed = %v", p.CompletedLessonIDs)
	}
	if !p.CompletedSet()["l2"] || p.CompletedSet()["l3"] {
		t.Error("CompletedSet wrong")
	}
}

func TestUpdateApplyPartial(t *testing.T) {
	p := Profile{Name: "Ada", Progress: 10, Theme: "dark"}
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	progress := 30
	completed := []string{"l1", "l2", "l3"}
	Update{Progress: &progress, CompletedLessonIDs: &completed}.Apply(&p, now)

	if p.Progress != 30 || len(p.CompletedLessonIDs) != 3 {
		t.Errorf("update not applied: %+v", p)
	}
	if p.Name != "Ada" || p.Theme != "dark" {
		t.Errorf("untouched fields changed: %+v", p)
	}
	if !p.UpdatedAt.Equal(now) {
		t.Errorf("UpdatedAt = %v", p.UpdatedAt)
	}
}

func TestValidationRules(t *testing.T) {
	if err := ValidateSignUp("ada@example.com", "longenough", "longenough"); err != nil {
		t.Errorf("valid sign up rejected: %v", err)
	}
	if err := ValidateSignUp("not-an-email", "longenough", "longenough"); !errors.Is(err, ErrInvalidEmail) {
		t.Errorf("bad email: got %v", err)
	}
	if err := ValidateSignUp("ada@example.com", "short", "short"); !errors.Is(err, ErrShortPassword) {
		t.Errorf("short password: got %v", err)
	}
	if err := ValidateSignUp("ada@example.com", "longenough", "different"); !errors.Is(err, ErrPasswordMismatch) {
		t.Errorf("mismatch: got %v", err)
	}
	if err := ValidateCode("123456"); err != nil {
		t.Errorf("valid code rejected: %v", err)
	}
	for _, code := range []string{"12345", "1234567", "12a456", ""} {
		if err := ValidateCode(code); !errors.Is(err, ErrInvalidCode) {
			t.Errorf("code %q: got %v", code, err)
		}
	}
}

// countingAuth fails the test if it is reached at all.
type countingAuth struct {
	t     *testing.T
	calls int
}

func (c *countingAuth) CurrentSession(context.Context) (AuthSession, error) {
	c.calls++
	return AuthSession{}, nil
}

func (c *countingAuth) SignIn(context.Context, string, string) (AuthSession, error) {
	c.calls++
	return AuthSession{LearnerID: "u1"}, nil
}

func (c *countingAuth) SignUp(context.Context, string, string) error {
	c.calls++
	return nil
}

func (c *countingAuth) VerifyCode(context.Context, string, string) (AuthSession, error) {
	c.calls++
	return AuthSession{LearnerID: "u1"}, nil
}

func (c *countingAuth) SignOut(context.Context) error {
	c.calls++
	return nil
}

func TestAuthRejectsBeforeAdapterCall(t *testing.T) {
	adapter := &countingAuth{t: t}
	auth := NewAuth(adapter)
	ctx := context.Background()

	if _, err := auth.SignIn(ctx, "bad", "longenough"); err == nil {
		t.Error("invalid email accepted")
	}
	if err := auth.SignUp(ctx, "ada@example.com", "longenough", "other"); err == nil {
		t.Error("mismatched passwords accepted")
	}
	if _, err := auth.VerifyCode(ctx, "ada@example.com", "12345"); err == nil {
		t.Error("five-digit code accepted")
	}
	if adapter.calls != 0 {
		t.Fatalf("adapter reached %d times despite validation failure", adapter.calls)
	}

	if _, err := auth.SignIn(ctx, "ada@example.com", "longenough"); err != nil {
		t.Errorf("valid sign in failed: %v", err)
	}
	if adapter.calls != 1 {
		t.Errorf("adapter calls = %d, want 1", adapter.calls)
	}
}

func TestLocalAuthenticatorDeviceSession(t *testing.T) {
	auth := NewAuth(NewLocalAuthenticator("local"))
	ctx := context.Background()

	sess, err := auth.CurrentSession(ctx)
	if err != nil {
		t.Fatalf("CurrentSession: %v", err)
	}
	if sess.LearnerID != "local" || sess.Email != "" {
		t.Errorf("fresh session = %+v, want anonymous local learner", sess)
	}

	// Invalid credentials never reach the adapter, so the session stays
	// anonymous.
	if _, err := auth.SignIn(ctx, "bad", "longenough"); err == nil {
		t.Error("invalid email accepted")
	}
	sess, _ = auth.CurrentSession(ctx)
	if sess.Email != "" {
		t.Errorf("rejected sign in bound an email: %q", sess.Email)
	}

	if _, err := auth.SignIn(ctx, "ada@example.com", "longenough"); err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	sess, _ = auth.CurrentSession(ctx)
	if sess.LearnerID != "local" || sess.Email != "ada@example.com" {
		t.Errorf("session after sign in = %+v", sess)
	}

	// Signing out drops the email but keeps the device learner.
	if err := auth.SignOut(ctx); err != nil {
		t.Fatalf("SignOut: %v", err)
	}
	sess, _ = auth.CurrentSession(ctx)
	if sess.LearnerID != "local" || sess.Email != "" {
		t.Errorf("session after sign out = %+v", sess)
	}
}
