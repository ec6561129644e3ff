package account

import (
	"context"
	"fmt"

	"github.com/member-api/internal/domain"
)

type Service interface {
	Get(ctx context.Context, accountID string) (*domain.Account, error)
	// Deactivate flips the account inactive. The row is kept so the email and
	// username stay reserved.
	Deactivate(ctx context.Context, accountID string) error
}

type accountStore interface {
	Get(ctx context.Context, accountID string) (*domain.Account, error)
	Deactivate(ctx context.Context, accountID string) error
}

type service struct {
	accounts accountStore
}

func NewService(accounts accountStore) Service {
	return &service{accounts: accounts}
}

func (s *service) Get(ctx context.Context, accountID string) (*domain.Account, error) {
	return s.accounts.Get(ctx, accountID)
}

func (s *service) Deactivate(ctx context.Context, accountID string) error {
	if _, err := s.accounts.Get(ctx, accountID); err != nil {
		return fmt.Errorf("account %s: %w", accountID, domain.ErrNotFound)
	}
	return s.accounts.Deactivate(ctx, accountID)
}
