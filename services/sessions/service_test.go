package sessions

import (
	"errors"
	"testing"
	"time"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	svc, err := NewService(t.TempDir(), time.Hour)
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}
	return svc
}

func TestCreateAndValidate(t *testing.T) {
	svc := newTestService(t)

	session, err := svc.Create("acct-1", false, "test-agent", "192.168.1.5")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if session.Token == "" {
		t.Fatal("expected a non-empty token")
	}
	if session.IsGuest {
		t.Error("expected IsGuest to be false")
	}
	if session.UserAgent != "test-agent" || session.IPAddress != "192.168.1.5" {
		t.Errorf("client info not recorded: %+v", session)
	}

	got, err := svc.Validate(session.Token)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if got.AccountID != "acct-1" {
		t.Errorf("expected account acct-1, got %q", got.AccountID)
	}
}

func TestTokensAreUnique(t *testing.T) {
	svc := newTestService(t)

	seen := make(map[string]bool)
	for i := 0; i < 20; i++ {
		session, err := svc.Create("acct-1", false, "", "")
		if err != nil {
			t.Fatal(err)
		}
		if seen[session.Token] {
			t.Fatal("duplicate token issued")
		}
		seen[session.Token] = true
	}
}

func TestValidate_Errors(t *testing.T) {
	svc := newTestService(t)

	if _, err := svc.Validate(""); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
	if _, err := svc.Validate("nope"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestValidate_ExpiredSessionIsDropped(t *testing.T) {
	svc := newTestService(t)

	session, err := svc.CreateWithDuration("acct-1", false, "", "", time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	time.Sleep(5 * time.Millisecond)

	if _, err := svc.Validate(session.Token); !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("expected ErrSessionExpired, got %v", err)
	}
	// The expired session is gone, so a second probe reports not-found.
	if _, err := svc.Validate(session.Token); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound after drop, got %v", err)
	}
}

func TestCreatePersistent_GuestFlag(t *testing.T) {
	svc := newTestService(t)

	session, err := svc.CreatePersistent("guest-1", true, "", "")
	if err != nil {
		t.Fatal(err)
	}
	if !session.IsGuest {
		t.Error("expected IsGuest to be true")
	}
	if session.ExpiresAt.Before(time.Now().Add(50 * 365 * 24 * time.Hour)) {
		t.Errorf("expected far-future expiry, got %v", session.ExpiresAt)
	}
}

func TestRefresh_ExtendsExpiry(t *testing.T) {
	svc := newTestService(t)

	session, err := svc.CreateWithDuration("acct-1", false, "", "", time.Minute)
	if err != nil {
		t.Fatal(err)
	}

	refreshed, err := svc.Refresh(session.Token)
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if !refreshed.ExpiresAt.After(session.ExpiresAt) {
		t.Errorf("expiry not extended: %v -> %v", session.ExpiresAt, refreshed.ExpiresAt)
	}
}

func TestRevoke(t *testing.T) {
	svc := newTestService(t)

	session, err := svc.Create("acct-1", false, "", "")
	if err != nil {
		t.Fatal(err)
	}
	if err := svc.Revoke(session.Token); err != nil {
		t.Fatalf("Revoke failed: %v", err)
	}
	if _, err := svc.Validate(session.Token); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound after revoke, got %v", err)
	}
	if err := svc.Revoke(session.Token); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound on double revoke, got %v", err)
	}
}

func TestRevokeOthers_KeepsCurrentSession(t *testing.T) {
	svc := newTestService(t)

	current, _ := svc.Create("acct-1", false, "", "")
	other1, _ := svc.Create("acct-1", false, "", "")
	other2, _ := svc.Create("acct-1", false, "", "")
	unrelated, _ := svc.Create("acct-2", false, "", "")

	dropped := svc.RevokeOthers("acct-1", current.Token)
	if dropped != 2 {
		t.Fatalf("expected 2 dropped sessions, got %d", dropped)
	}

	if _, err := svc.Validate(current.Token); err != nil {
		t.Errorf("current session should survive: %v", err)
	}
	if _, err := svc.Validate(unrelated.Token); err != nil {
		t.Errorf("other account's session should survive: %v", err)
	}
	for _, token := range []string{other1.Token, other2.Token} {
		if _, err := svc.Validate(token); !errors.Is(err, ErrSessionNotFound) {
			t.Errorf("expected revoked session, got %v", err)
		}
	}
}

func TestSweep(t *testing.T) {
	svc := newTestService(t)

	if _, err := svc.Create("acct-1", false, "", ""); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.CreateWithDuration("acct-1", false, "", "", time.Millisecond); err != nil {
		t.Fatal(err)
	}
	time.Sleep(5 * time.Millisecond)

	if dropped := svc.Sweep(); dropped != 1 {
		t.Errorf("expected 1 swept session, got %d", dropped)
	}
	if svc.Count() != 1 {
		t.Errorf("expected 1 remaining session, got %d", svc.Count())
	}
}

func TestPersistence_SurvivesRestart(t *testing.T) {
	dir := t.TempDir()

	svc, err := NewService(dir, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	live, err := svc.Create("acct-1", false, "agent", "10.0.0.1")
	if err != nil {
		t.Fatal(err)
	}
	expired, err := svc.CreateWithDuration("acct-1", false, "", "", time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	time.Sleep(5 * time.Millisecond)

	reloaded, err := NewService(dir, time.Hour)
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}

	got, err := reloaded.Validate(live.Token)
	if err != nil {
		t.Fatalf("live session lost across restart: %v", err)
	}
	if got.AccountID != "acct-1" || got.UserAgent != "agent" {
		t.Errorf("session fields lost: %+v", got)
	}
	if _, err := reloaded.Validate(expired.Token); errors.Is(err, nil) {
		t.Error("expected expired session to be filtered on load")
	}
}

func TestMemoryOnlyService(t *testing.T) {
	svc, err := NewService("", time.Hour)
	if err != nil {
		t.Fatalf("memory-only service failed: %v", err)
	}
	session, err := svc.Create("acct-1", false, "", "")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Validate(session.Token); err != nil {
		t.Errorf("Validate failed: %v", err)
	}
}
