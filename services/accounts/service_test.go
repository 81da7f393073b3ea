package accounts

import (
	"testing"

	"golang.org/x/crypto/bcrypt"
)

// setupTestService creates a new accounts service for testing with a temp directory.
func setupTestService(t *testing.T) *Service {
	t.Helper()
	tmpDir := t.TempDir()
	svc, err := NewService(tmpDir)
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}
	return svc
}

func TestNewService_EmptyStorageDir(t *testing.T) {
	_, err := NewService("")
	if err != ErrStorageDirRequired {
		t.Errorf("expected ErrStorageDirRequired, got %v", err)
	}

	_, err = NewService("   ")
	if err != ErrStorageDirRequired {
		t.Errorf("expected ErrStorageDirRequired for whitespace, got %v", err)
	}
}

func TestNewService_LoadsExistingAccounts(t *testing.T) {
	tmpDir := t.TempDir()

	svc1, err := NewService(tmpDir)
	if err != nil {
		t.Fatalf("failed to create first service: %v", err)
	}
	_, err = svc1.Create("+15550001234", "password123")
	if err != nil {
		t.Fatalf("failed to create account: %v", err)
	}

	// Second service pointing to same directory should load from disk
	svc2, err := NewService(tmpDir)
	if err != nil {
		t.Fatalf("failed to create second service: %v", err)
	}

	if _, ok := svc2.GetByPhone("+15550001234"); !ok {
		t.Error("expected account to be loaded from disk")
	}
}

func TestNormalizePhone(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"+1 (555) 000-1234", "+15550001234"},
		{"  555.000.1234 ", "5550001234"},
		{"+15550001234", "+15550001234"},
		{"", ""},
	}
	for _, c := range cases {
		if got := NormalizePhone(c.in); got != c.want {
			t.Errorf("NormalizePhone(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestCreate_Success(t *testing.T) {
	svc := setupTestService(t)

	account, err := svc.Create("+1 (555) 000-1234", "password123")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if account.ID == "" {
		t.Error("expected non-empty ID")
	}
	if account.PhoneNumber != "+15550001234" {
		t.Errorf("expected normalized phone number, got %q", account.PhoneNumber)
	}
	if account.IsGuest {
		t.Error("expected IsGuest to be false for phone account")
	}
	if account.CreatedAt.IsZero() {
		t.Error("expected non-zero CreatedAt")
	}

	// Verify password was hashed
	err = bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte("password123"))
	if err != nil {
		t.Error("expected password to be correctly hashed")
	}
}

func TestCreate_Validation(t *testing.T) {
	svc := setupTestService(t)

	if _, err := svc.Create("", "password123"); err != ErrPhoneRequired {
		t.Errorf("expected ErrPhoneRequired, got %v", err)
	}
	if _, err := svc.Create("not-a-number", "password123"); err != ErrPhoneInvalid {
		t.Errorf("expected ErrPhoneInvalid, got %v", err)
	}
	if _, err := svc.Create("+15550001234", ""); err != ErrPasswordRequired {
		t.Errorf("expected ErrPasswordRequired, got %v", err)
	}
	if _, err := svc.Create("+15550001234", "short"); err != ErrPasswordTooShort {
		t.Errorf("expected ErrPasswordTooShort, got %v", err)
	}
}

func TestCreate_DuplicatePhone(t *testing.T) {
	svc := setupTestService(t)

	if _, err := svc.Create("+15550001234", "password123"); err != nil {
		t.Fatalf("first create failed: %v", err)
	}

	// Same number written with separators still collides
	_, err := svc.Create("+1 555-000-1234", "otherpass")
	if err != ErrPhoneExists {
		t.Errorf("expected ErrPhoneExists, got %v", err)
	}
}

func TestCreateGuest(t *testing.T) {
	svc := setupTestService(t)

	guest, err := svc.CreateGuest()
	if err != nil {
		t.Fatalf("CreateGuest failed: %v", err)
	}

	if !guest.IsGuest {
		t.Error("expected IsGuest to be true")
	}
	if guest.PhoneNumber != "" {
		t.Errorf("expected empty phone number, got %q", guest.PhoneNumber)
	}
	if guest.PasswordHash != "" {
		t.Error("expected empty password hash for guest")
	}

	if got, ok := svc.Get(guest.ID); !ok || got.ID != guest.ID {
		t.Error("expected guest account to be retrievable")
	}
}

func TestGuestName(t *testing.T) {
	for i := 0; i < 20; i++ {
		name := GuestName()
		if len(name) != len("Guest 0000") {
			t.Fatalf("unexpected guest name format: %q", name)
		}
		if name[:6] != "Guest " {
			t.Fatalf("expected 'Guest ' prefix, got %q", name)
		}
	}
}

func TestGuestAvatar(t *testing.T) {
	for i := 0; i < 50; i++ {
		if a := GuestAvatar(); a < 1 || a > 12 {
			t.Fatalf("avatar out of range: %d", a)
		}
	}
}

func TestAuthenticate_Success(t *testing.T) {
	svc := setupTestService(t)

	created, err := svc.Create("+15550001234", "password123")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	account, err := svc.Authenticate("+1 (555) 000-1234", "password123")
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	if account.ID != created.ID {
		t.Errorf("expected account %q, got %q", created.ID, account.ID)
	}
}

func TestAuthenticate_WrongPassword(t *testing.T) {
	svc := setupTestService(t)

	if _, err := svc.Create("+15550001234", "password123"); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	_, err := svc.Authenticate("+15550001234", "wrongpass")
	if err != ErrInvalidCredentials {
		t.Errorf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAuthenticate_UnknownPhone(t *testing.T) {
	svc := setupTestService(t)

	_, err := svc.Authenticate("+19998887777", "password123")
	if err != ErrInvalidCredentials {
		t.Errorf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAuthenticate_GuestCannotUsePhone(t *testing.T) {
	svc := setupTestService(t)

	if _, err := svc.CreateGuest(); err != nil {
		t.Fatalf("CreateGuest failed: %v", err)
	}

	// Guests have no phone; an empty phone must never authenticate
	_, err := svc.Authenticate("", "")
	if err != ErrInvalidCredentials {
		t.Errorf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestUpdatePassword(t *testing.T) {
	svc := setupTestService(t)

	account, err := svc.Create("+15550001234", "password123")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if err := svc.UpdatePassword(account.ID, "newpassword"); err != nil {
		t.Fatalf("UpdatePassword failed: %v", err)
	}

	if _, err := svc.Authenticate("+15550001234", "password123"); err != ErrInvalidCredentials {
		t.Error("expected old password to be rejected")
	}
	if _, err := svc.Authenticate("+15550001234", "newpassword"); err != nil {
		t.Errorf("expected new password to work, got %v", err)
	}
}

func TestUpdatePassword_Validation(t *testing.T) {
	svc := setupTestService(t)

	if err := svc.UpdatePassword("missing", "newpassword"); err != ErrAccountNotFound {
		t.Errorf("expected ErrAccountNotFound, got %v", err)
	}

	account, _ := svc.Create("+15550001234", "password123")
	if err := svc.UpdatePassword(account.ID, "tiny"); err != ErrPasswordTooShort {
		t.Errorf("expected ErrPasswordTooShort, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	svc := setupTestService(t)

	account, err := svc.Create("+15550001234", "password123")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if err := svc.Delete(account.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if svc.Exists(account.ID) {
		t.Error("expected account to be gone")
	}
	if err := svc.Delete(account.ID); err != ErrAccountNotFound {
		t.Errorf("expected ErrAccountNotFound on second delete, got %v", err)
	}
}

func TestList_SortedByCreation(t *testing.T) {
	svc := setupTestService(t)

	first, _ := svc.Create("+15550000001", "password1")
	second, _ := svc.Create("+15550000002", "password2")

	list := svc.List()
	if len(list) != 2 {
		t.Fatalf("expected 2 accounts, got %d", len(list))
	}
	if list[0].ID != first.ID || list[1].ID != second.ID {
		t.Error("expected accounts sorted by creation time")
	}
}
