package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"certmailer/internal/domain"
)

const tokenExpiry = 24 * time.Hour

type authService struct {
	users  domain.UserRepository
	hasher domain.PasswordHasher
	issuer domain.TokenIssuer
	cipher domain.CredentialCipher
	now    func() time.Time
}

// NewAuthService creates the organizer auth service.
func NewAuthService(users domain.UserRepository, hasher domain.PasswordHasher, issuer domain.TokenIssuer, cipher domain.CredentialCipher) domain.AuthService {
	return &authService{
		users:  users,
		hasher: hasher,
		issuer: issuer,
		cipher: cipher,
		now:    time.Now,
	}
}

func (s *authService) SignUp(ctx context.Context, name, email, password string) (*domain.User, string, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))
	if name == "" {
		return nil, "", &domain.ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if !strings.Contains(email, "@") {
		return nil, "", &domain.ValidationError{Field: "email", Reason: "must be a valid email address"}
	}
	if len(password) < 8 {
		return nil, "", &domain.ValidationError{Field: "password", Reason: "must be at least 8 characters"}
	}

	salt, err := s.hasher.GenerateSalt()
	if err != nil {
		return nil, "", fmt.Errorf("generate salt: %w", err)
	}
	hash, err := s.hasher.Hash(salt, password)
	if err != nil {
		return nil, "", fmt.Errorf("hash password: %w", err)
	}

	now := s.now()
	user := domain.NewUser(name, email, hash, salt, now, now)
	if err := s.users.Create(ctx, user); err != nil {
		return nil, "", err
	}

	token, err := s.issuer.Issue(user.ID, user.Email, user.IsAdmin, tokenExpiry)
	if err != nil {
		return nil, "", fmt.Errorf("issue token: %w", err)
	}
	return user, token, nil
}

func (s *authService) Login(ctx context.Context, email, password string) (*domain.User, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, "", domain.ErrInvalidInput
	}
	if err := s.hasher.Compare(user.PasswordHash, user.Salt, password); err != nil {
		return nil, "", domain.ErrInvalidInput
	}
	token, err := s.issuer.Issue(user.ID, user.Email, user.IsAdmin, tokenExpiry)
	if err != nil {
		return nil, "", fmt.Errorf("issue token: %w", err)
	}
	return user, token, nil
}

func (s *authService) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	return s.users.GetByID(ctx, userID)
}

func (s *authService) SaveEmailSettings(ctx context.Context, userID, senderEmail, appPassword string) error {
	senderEmail = strings.ToLower(strings.TrimSpace(senderEmail))
	if !strings.Contains(senderEmail, "@") {
		return &domain.ValidationError{Field: "email", Reason: "must be a valid email address"}
	}
	if appPassword == "" {
		return &domain.ValidationError{Field: "app_password", Reason: "must not be empty"}
	}
	encrypted, err := s.cipher.Encrypt(appPassword)
	if err != nil {
		return fmt.Errorf("encrypt app password: %w", err)
	}
	settings := &domain.EmailSettings{Email: senderEmail, AppPasswordEncrypted: encrypted}
	if err := s.users.UpdateEmailSettings(ctx, userID, settings); err != nil {
		return fmt.Errorf("save email settings: %w", err)
	}
	return nil
}
