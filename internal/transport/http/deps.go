package http

import (
	"context"
	"io"

	"github.com/member-api/internal/domain"
)

// AccountRepository is the minimal interface the router requires from an account store.
type AccountRepository interface {
	Put(ctx context.Context, a *domain.Account) error
	Get(ctx context.Context, accountID string) (*domain.Account, error)
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)
	GetByUsername(ctx context.Context, username string) (*domain.Account, error)
	Deactivate(ctx context.Context, accountID string) error
}

// PendingRepository is the minimal interface the router requires from a pending-registration store.
type PendingRepository interface {
	Put(ctx context.Context, p *domain.PendingRegistration) error
	Get(ctx context.Context, email string) (*domain.PendingRegistration, error)
	Delete(ctx context.Context, email string) error
}

// ProfileRepository is the minimal interface the router requires from a profile store.
type ProfileRepository interface {
	// Create refuses a second profile for the same account.
	Create(ctx context.Context, p *domain.Profile) error
	Get(ctx context.Context, accountID string) (*domain.Profile, error)
	Update(ctx context.Context, accountID string, updates map[string]interface{}) error
}

// VerificationRepository is the minimal interface the router requires from a verification store.
type VerificationRepository interface {
	Put(ctx context.Context, v *domain.AccountVerification) error
	Get(ctx context.Context, accountID, verType string) (*domain.AccountVerification, error)
	Delete(ctx context.Context, accountID, verType string) error
}

// ObjectStore is the minimal interface the router requires from an object storage backend.
type ObjectStore interface {
	Upload(ctx context.Context, key string, r io.Reader, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
}
