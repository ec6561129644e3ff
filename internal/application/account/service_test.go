package account

import (
	"context"
	"errors"
	"testing"

	"github.com/member-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockAccountStore struct{ mock.Mock }

func (m *mockAccountStore) Get(ctx context.Context, accountID string) (*domain.Account, error) {
	args := m.Called(ctx, accountID)
	if a, _ := args.Get(0).(*domain.Account); a != nil {
		return a, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAccountStore) Deactivate(ctx context.Context, accountID string) error {
	return m.Called(ctx, accountID).Error(0)
}

func TestDeactivate_UnknownAccount(t *testing.T) {
	as := &mockAccountStore{}
	as.On("Get", mock.Anything, "acc1").Return(nil, domain.ErrNotFound)

	err := NewService(as).Deactivate(context.Background(), "acc1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
	as.AssertNotCalled(t, "Deactivate", mock.Anything, mock.Anything)
}

func TestDeactivate_HappyPath(t *testing.T) {
	as := &mockAccountStore{}
	as.On("Get", mock.Anything, "acc1").Return(&domain.Account{AccountID: "acc1", Active: true}, nil)
	as.On("Deactivate", mock.Anything, "acc1").Return(nil)

	require.NoError(t, NewService(as).Deactivate(context.Background(), "acc1"))
	as.AssertExpectations(t)
}
