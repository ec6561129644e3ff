package login

import (
	"context"
	"errors"
	"fmt"

	"github.com/member-api/internal/domain"
	"github.com/member-api/internal/pkg/password"
	"github.com/member-api/internal/pkg/validate"
)

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Result carries the authenticated identity. Profile is never nil: when the
// account has no profile yet the fields are simply zero values.
type Result struct {
	Account *domain.Account
	Profile *domain.Profile
	Bearer  string
}

type Service interface {
	Login(ctx context.Context, req LoginRequest) (*Result, error)
}

type accountStore interface {
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)
}

type pendingStore interface {
	Get(ctx context.Context, email string) (*domain.PendingRegistration, error)
}

type profileStore interface {
	Get(ctx context.Context, accountID string) (*domain.Profile, error)
}

type tokenSigner interface {
	Sign(accountID, email string) (string, error)
}

type service struct {
	accounts accountStore
	pendings pendingStore
	profiles profileStore
	signer   tokenSigner
	hasher   password.Hasher
}

type ServiceDeps struct {
	AccountRepo accountStore
	PendingRepo pendingStore
	ProfileRepo profileStore
	Signer      tokenSigner // optional; bearer is empty when absent
	Hasher      password.Hasher
}

func NewService(deps ServiceDeps) Service {
	s := &service{
		accounts: deps.AccountRepo,
		pendings: deps.PendingRepo,
		profiles: deps.ProfileRepo,
		signer:   deps.Signer,
		hasher:   deps.Hasher,
	}
	if s.hasher == nil {
		s.hasher = password.Bcrypt{}
	}
	return s
}

func (s *service) Login(ctx context.Context, req LoginRequest) (*Result, error) {
	if err := validate.Struct(&req); err != nil {
		return nil, fmt.Errorf("%s: %w", err, domain.ErrBadRequest)
	}

	acct, err := s.accounts.GetByEmail(ctx, req.Email)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		// A pending registration means the identity exists but was never
		// confirmed. Surface that distinctly from an unknown email.
		if _, perr := s.pendings.Get(ctx, req.Email); perr == nil {
			return nil, fmt.Errorf("registration for %s awaits verification: %w", req.Email, domain.ErrNotVerified)
		}
		return nil, fmt.Errorf("no account for %s: %w", req.Email, domain.ErrNotFound)
	}
	if !acct.Active {
		return nil, fmt.Errorf("account %s: %w", acct.AccountID, domain.ErrNotVerified)
	}
	if !s.hasher.Verify(req.Password, acct.PasswordHash) {
		return nil, fmt.Errorf("password mismatch: %w", domain.ErrInvalidCredentials)
	}

	prof, err := s.profiles.Get(ctx, acct.AccountID)
	if err != nil {
		// Absence of a profile is not a login failure.
		prof = &domain.Profile{AccountID: acct.AccountID}
	}

	res := &Result{Account: acct, Profile: prof}
	if s.signer != nil {
		bearer, err := s.signer.Sign(acct.AccountID, acct.Email)
		if err != nil {
			return nil, err
		}
		res.Bearer = bearer
	}
	return res, nil
}
