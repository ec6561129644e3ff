package registration

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/member-api/internal/domain"
	"github.com/member-api/internal/infrastructure/smtp"
	"github.com/member-api/internal/pkg/id"
	"github.com/member-api/internal/pkg/keylock"
	"github.com/member-api/internal/pkg/otp"
	"github.com/member-api/internal/pkg/password"
	"github.com/member-api/internal/pkg/validate"
)

// DefaultOTPWindow is how long an issued code stays valid.
const DefaultOTPWindow = 60 * time.Second

const otpSubject = "Your verification code"

type SignupRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Username string `json:"username" validate:"required,min=3,max=150"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// VerifyOTPRequest carries the submitted code as-is. Length and charset are
// not validated up front: anything that does not exactly match the stored
// code is an invalid code, not a malformed request.
type VerifyOTPRequest struct {
	Email string `json:"email" validate:"required,email"`
	OTP   string `json:"otp" validate:"required"`
}

type Service interface {
	// Signup starts a registration and emails a one-time code. It returns the
	// email the code was sent to.
	Signup(ctx context.Context, req SignupRequest) (string, error)
	// VerifyOTP promotes a pending registration into an active account.
	VerifyOTP(ctx context.Context, req VerifyOTPRequest) (*domain.Account, error)
}

type accountStore interface {
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)
	GetByUsername(ctx context.Context, username string) (*domain.Account, error)
	Put(ctx context.Context, a *domain.Account) error
}

type pendingStore interface {
	Put(ctx context.Context, p *domain.PendingRegistration) error
	Get(ctx context.Context, email string) (*domain.PendingRegistration, error)
	Delete(ctx context.Context, email string) error
}

type service struct {
	accounts  accountStore
	pendings  pendingStore
	mailer    smtp.Mailer
	hasher    password.Hasher
	locks     *keylock.KeyLock
	otpWindow time.Duration
	now       func() time.Time
	newOTP    func() (string, error)
}

type ServiceDeps struct {
	AccountRepo accountStore
	PendingRepo pendingStore
	Mailer      smtp.Mailer
	Hasher      password.Hasher
	OTPWindow   time.Duration
	Now         func() time.Time // defaults to time.Now
	NewOTP      func() (string, error)
}

func NewService(deps ServiceDeps) Service {
	s := &service{
		accounts:  deps.AccountRepo,
		pendings:  deps.PendingRepo,
		mailer:    deps.Mailer,
		hasher:    deps.Hasher,
		locks:     keylock.New(),
		otpWindow: deps.OTPWindow,
		now:       deps.Now,
		newOTP:    deps.NewOTP,
	}
	if s.hasher == nil {
		s.hasher = password.Bcrypt{}
	}
	if s.otpWindow == 0 {
		s.otpWindow = DefaultOTPWindow
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newOTP == nil {
		s.newOTP = otp.NewCode
	}
	return s
}

func (s *service) Signup(ctx context.Context, req SignupRequest) (string, error) {
	if err := validate.Struct(&req); err != nil {
		return "", fmt.Errorf("%s: %w", err, domain.ErrBadRequest)
	}

	// All ledger reads and writes for one email happen under its lock;
	// the mail send below does not.
	unlock := s.locks.Lock(req.Email)
	pend, err := s.signupLocked(ctx, req)
	unlock()
	if err != nil {
		return "", err
	}

	body := fmt.Sprintf("Your verification code is %s. It expires in %d seconds.",
		pend.OTP, int(s.otpWindow.Seconds()))
	if err := s.mailer.SendEmail(req.Email, otpSubject, body); err != nil {
		// The pending record stays: the code may still arrive late, and the
		// ledger reclaims it on expiry anyway.
		slog.Warn("otp delivery failed", "email", req.Email, "err", err)
		return "", fmt.Errorf("sending verification code: %w", domain.ErrNotificationFailure)
	}
	return req.Email, nil
}

func (s *service) signupLocked(ctx context.Context, req SignupRequest) (*domain.PendingRegistration, error) {
	if _, err := s.accounts.GetByEmail(ctx, req.Email); err == nil {
		return nil, fmt.Errorf("email taken: %w", domain.ErrDuplicateIdentity)
	}
	if _, err := s.accounts.GetByUsername(ctx, req.Username); err == nil {
		return nil, fmt.Errorf("username taken: %w", domain.ErrDuplicateIdentity)
	}

	if prev, err := s.pendings.Get(ctx, req.Email); err == nil {
		if !s.expired(prev) {
			return nil, fmt.Errorf("code already sent to %s: %w", req.Email, domain.ErrThrottled)
		}
		if err := s.pendings.Delete(ctx, req.Email); err != nil {
			return nil, err
		}
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, err
	}
	code, err := s.newOTP()
	if err != nil {
		return nil, err
	}
	now := s.now()
	pend := &domain.PendingRegistration{
		Email:        req.Email,
		Username:     req.Username,
		PasswordHash: hash,
		OTP:          code,
		IssuedAt:     now.Unix(),
		ExpiresAt:    now.Add(s.otpWindow).Unix(),
	}
	if err := s.pendings.Put(ctx, pend); err != nil {
		return nil, err
	}
	return pend, nil
}

func (s *service) VerifyOTP(ctx context.Context, req VerifyOTPRequest) (*domain.Account, error) {
	if err := validate.Struct(&req); err != nil {
		return nil, fmt.Errorf("%s: %w", err, domain.ErrBadRequest)
	}

	unlock := s.locks.Lock(req.Email)
	defer unlock()

	pend, err := s.pendings.Get(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("no registration pending for %s: %w", req.Email, domain.ErrNotFound)
	}
	if s.expired(pend) {
		if err := s.pendings.Delete(ctx, req.Email); err != nil {
			slog.Warn("failed to reclaim expired pending registration", "email", req.Email, "err", err)
		}
		return nil, fmt.Errorf("code for %s: %w", req.Email, domain.ErrExpired)
	}
	// Exact match, no normalization. A mismatch keeps the record so the
	// client can retry within the window.
	if req.OTP != pend.OTP {
		return nil, fmt.Errorf("code mismatch: %w", domain.ErrInvalidOTP)
	}

	now := s.now().UTC()
	acct := &domain.Account{
		AccountID:    id.New(),
		Email:        pend.Email,
		Username:     pend.Username,
		PasswordHash: pend.PasswordHash,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.accounts.Put(ctx, acct); err != nil {
		return nil, err
	}
	if err := s.pendings.Delete(ctx, req.Email); err != nil {
		slog.Warn("failed to delete promoted pending registration", "email", req.Email, "err", err)
	}
	return acct, nil
}

func (s *service) expired(p *domain.PendingRegistration) bool {
	age := s.now().Sub(time.Unix(p.IssuedAt, 0))
	return age >= s.otpWindow
}
