package notes_test

import (
	"errors"
	"testing"
	"time"

	"notes-go/internal/model"
	"notes-go/internal/notes"
)

func TestService_RegisterUser(t *testing.T) {
	t.Run("creates user and sends welcome", func(t *testing.T) {
		f := newFixture(t)

		u, err := f.svc.RegisterUser("  Alice@Example.com ", "pw", "")
		if err != nil {
			t.Fatalf("RegisterUser() error = %v", err)
		}
		if u.Email != "alice@example.com" {
			t.Errorf("Email = %q, want alice@example.com", u.Email)
		}
		if u.Role != model.RoleUser {
			t.Errorf("Role = %q, want %q", u.Role, model.RoleUser)
		}
		if u.PasswordHash == "pw" {
			t.Error("password stored in plaintext")
		}

		if !f.notifier.WaitFor(1, time.Second) {
			t.Fatal("welcome notification not sent")
		}
		if got := f.notifier.Sent(); got[0] != "alice@example.com" {
			t.Errorf("welcome sent to %v, want alice@example.com", got)
		}
	})

	t.Run("duplicate email is a conflict", func(t *testing.T) {
		f := newFixture(t)
		f.user(t, "a@example.com")

		_, err := f.svc.RegisterUser("A@example.com", "pw", model.RoleUser)
		if !errors.Is(err, notes.ErrConflict) {
			t.Errorf("RegisterUser() error = %v, want ErrConflict", err)
		}
	})

	t.Run("invalid input", func(t *testing.T) {
		f := newFixture(t)

		tests := []struct {
			name, email, password string
		}{
			{"bad email", "not-an-address", "pw"},
			{"empty email", "", "pw"},
			{"empty password", "b@example.com", ""},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := f.svc.RegisterUser(tt.email, tt.password, model.RoleUser)
				if !errors.Is(err, notes.ErrInvalidInput) {
					t.Errorf("RegisterUser() error = %v, want ErrInvalidInput", err)
				}
			})
		}
	})

	t.Run("notification failure does not fail registration", func(t *testing.T) {
		f := newFixture(t)
		f.notifier.Err = errors.New("smtp down")

		if _, err := f.svc.RegisterUser("c@example.com", "pw", model.RoleUser); err != nil {
			t.Fatalf("RegisterUser() error = %v", err)
		}
		if !f.notifier.WaitFor(1, time.Second) {
			t.Fatal("welcome notification not attempted")
		}

		deadline := time.Now().Add(time.Second)
		for !f.logger.Contains("welcome notification failed") {
			if time.Now().After(deadline) {
				t.Fatal("notification failure was not logged")
			}
			time.Sleep(5 * time.Millisecond)
		}
	})
}

func TestService_Authenticate(t *testing.T) {
	f := newFixture(t)
	registered := f.user(t, "a@example.com")

	tests := []struct {
		name     string
		email    string
		password string
		wantErr  error
	}{
		{"valid credentials", "a@example.com", "password", nil},
		{"email is case-insensitive", "A@EXAMPLE.COM", "password", nil},
		{"wrong password", "a@example.com", "nope", notes.ErrUnauthenticated},
		{"unknown email", "z@example.com", "password", notes.ErrUnauthenticated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := f.svc.Authenticate(tt.email, tt.password)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Authenticate() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Authenticate() error = %v", err)
			}
			if u.ID != registered.ID {
				t.Errorf("Authenticate() user = %s, want %s", u.ID, registered.ID)
			}
		})
	}
}

func TestService_FindUser(t *testing.T) {
	f := newFixture(t)
	u := f.user(t, "a@example.com")

	got, err := f.svc.FindUser(u.ID)
	if err != nil {
		t.Fatalf("FindUser() error = %v", err)
	}
	if got.Email != u.Email {
		t.Errorf("FindUser() email = %s, want %s", got.Email, u.Email)
	}

	if _, err := f.svc.FindUser("missing"); !errors.Is(err, notes.ErrNotFound) {
		t.Errorf("FindUser(missing) error = %v, want ErrNotFound", err)
	}
	if _, err := f.svc.FindUserByEmail("missing@example.com"); !errors.Is(err, notes.ErrNotFound) {
		t.Errorf("FindUserByEmail(missing) error = %v, want ErrNotFound", err)
	}
}
