package domain

import (
	"context"
	"time"
)

// EmailSettings holds an organizer's outbound sender identity. The app
// password is stored encrypted and only decrypted at send time.
type EmailSettings struct {
	Email                string `json:"email"`
	AppPasswordEncrypted string `json:"-"`
}

// User represents an organizer account
// swagger:model User
type User struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	Email         string         `json:"email"`
	PasswordHash  string         `json:"-"`
	Salt          string         `json:"-"`
	IsAdmin       bool           `json:"is_admin"`
	EmailSettings *EmailSettings `json:"email_settings,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// NewUser returns a new User with the given fields. ID is typically set by the repository on create.
func NewUser(name, email, passwordHash, salt string, createdAt, updatedAt time.Time) *User {
	return &User{
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
		Salt:         salt,
		CreatedAt:    createdAt,
		UpdatedAt:    updatedAt,
	}
}

// UserRepository defines storage operations for organizer accounts.
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	UpdateEmailSettings(ctx context.Context, userID string, settings *EmailSettings) error
}

// PasswordHasher handles salt generation, hashing, and verification.
// Implementations may use bcrypt, argon2, etc.
type PasswordHasher interface {
	GenerateSalt() (string, error)
	Hash(salt, password string) (hash string, err error)
	Compare(hash, salt, password string) error
}

// TokenIssuer issues tokens (e.g. JWT) for an authenticated user.
type TokenIssuer interface {
	Issue(userID, email string, isAdmin bool, expiry time.Duration) (string, error)
}

// TokenVerifier validates a token and returns the user ID it was issued for.
type TokenVerifier interface {
	Verify(token string) (userID string, err error)
}

// CredentialCipher encrypts and decrypts organizer app passwords at rest.
type CredentialCipher interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// AuthService defines organizer signup, login, and sender-credential management.
type AuthService interface {
	SignUp(ctx context.Context, name, email, password string) (*User, string, error)
	Login(ctx context.Context, email, password string) (*User, string, error)
	GetUser(ctx context.Context, userID string) (*User, error)
	// SaveEmailSettings encrypts appPassword before storing it.
	SaveEmailSettings(ctx context.Context, userID, senderEmail, appPassword string) error
}
