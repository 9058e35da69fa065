package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"certmailer/internal/domain"
)

type mockHasher struct{}

func (mockHasher) GenerateSalt() (string, error) { return "salt", nil }
func (mockHasher) Hash(salt, password string) (string, error) {
	return "hash:" + salt + ":" + password, nil
}
func (mockHasher) Compare(hash, salt, password string) error {
	if hash != "hash:"+salt+":"+password {
		return errors.New("mismatch")
	}
	return nil
}

type mockIssuer struct{}

func (mockIssuer) Issue(userID, email string, isAdmin bool, expiry time.Duration) (string, error) {
	return "jwt-" + userID, nil
}

func newTestAuthService(users *mockUserRepository) domain.AuthService {
	return NewAuthService(users, mockHasher{}, mockIssuer{}, mockCipher{})
}

func TestAuthService_SignUp(t *testing.T) {
	tests := []struct {
		name     string
		userName string
		email    string
		password string
		wantErr  bool
	}{
		{name: "success", userName: "Ada", email: "Ada@Example.com", password: "correcthorse"},
		{name: "empty name", userName: " ", email: "a@example.com", password: "correcthorse", wantErr: true},
		{name: "bad email", userName: "Ada", email: "nope", password: "correcthorse", wantErr: true},
		{name: "short password", userName: "Ada", email: "a@example.com", password: "short", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestAuthService(&mockUserRepository{})
			user, token, err := svc.SignUp(context.Background(), tt.userName, tt.email, tt.password)
			if (err != nil) != tt.wantErr {
				t.Fatalf("expected error=%v, got err=%v", tt.wantErr, err)
			}
			if err != nil {
				return
			}
			if user.Email != "ada@example.com" {
				t.Errorf("email not normalized: %q", user.Email)
			}
			if user.PasswordHash == tt.password || user.PasswordHash == "" {
				t.Errorf("password stored badly: %q", user.PasswordHash)
			}
			if token == "" {
				t.Error("expected a session token")
			}
		})
	}
}

func TestAuthService_SignUp_DuplicateEmail(t *testing.T) {
	users := &mockUserRepository{}
	svc := newTestAuthService(users)
	if _, _, err := svc.SignUp(context.Background(), "Ada", "ada@example.com", "correcthorse"); err != nil {
		t.Fatalf("first signup: %v", err)
	}
	_, _, err := svc.SignUp(context.Background(), "Other", "ada@example.com", "correcthorse")
	if !errors.Is(err, domain.ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}
}

func TestAuthService_Login(t *testing.T) {
	users := &mockUserRepository{}
	svc := newTestAuthService(users)
	if _, _, err := svc.SignUp(context.Background(), "Ada", "ada@example.com", "correcthorse"); err != nil {
		t.Fatalf("signup: %v", err)
	}

	t.Run("success", func(t *testing.T) {
		user, token, err := svc.Login(context.Background(), "ADA@example.com", "correcthorse")
		if err != nil {
			t.Fatalf("login: %v", err)
		}
		if user.Email != "ada@example.com" || token == "" {
			t.Fatalf("user=%+v token=%q", user, token)
		}
	})

	t.Run("wrong password", func(t *testing.T) {
		if _, _, err := svc.Login(context.Background(), "ada@example.com", "wrong"); !errors.Is(err, domain.ErrInvalidInput) {
			t.Fatalf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("unknown email does not leak existence", func(t *testing.T) {
		if _, _, err := svc.Login(context.Background(), "nobody@example.com", "correcthorse"); !errors.Is(err, domain.ErrInvalidInput) {
			t.Fatalf("expected ErrInvalidInput, got %v", err)
		}
	})
}

func TestAuthService_SaveEmailSettings(t *testing.T) {
	users := &mockUserRepository{}
	svc := newTestAuthService(users)
	user, _, err := svc.SignUp(context.Background(), "Ada", "ada@example.com", "correcthorse")
	if err != nil {
		t.Fatalf("signup: %v", err)
	}

	if err := svc.SaveEmailSettings(context.Background(), user.ID, "Sender@Gmail.com", "app-pass"); err != nil {
		t.Fatalf("SaveEmailSettings: %v", err)
	}
	stored := users.users[user.ID].EmailSettings
	if stored == nil || stored.Email != "sender@gmail.com" {
		t.Fatalf("settings = %+v", stored)
	}
	if stored.AppPasswordEncrypted == "app-pass" {
		t.Fatal("app password must not be stored in the clear")
	}

	if err := svc.SaveEmailSettings(context.Background(), user.ID, "bad", "app-pass"); err == nil {
		t.Fatal("expected validation error for bad email")
	}
	if err := svc.SaveEmailSettings(context.Background(), user.ID, "s@example.com", ""); err == nil {
		t.Fatal("expected validation error for empty app password")
	}
}
