package registration

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/member-api/internal/application/login"
	"github.com/member-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockAccountStore struct{ mock.Mock }

func (m *mockAccountStore) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	args := m.Called(ctx, email)
	if a, _ := args.Get(0).(*domain.Account); a != nil {
		return a, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockAccountStore) GetByUsername(ctx context.Context, username string) (*domain.Account, error) {
	args := m.Called(ctx, username)
	if a, _ := args.Get(0).(*domain.Account); a != nil {
		return a, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockAccountStore) Put(ctx context.Context, a *domain.Account) error {
	return m.Called(ctx, a).Error(0)
}

type mockPendingStore struct{ mock.Mock }

func (m *mockPendingStore) Put(ctx context.Context, p *domain.PendingRegistration) error {
	return m.Called(ctx, p).Error(0)
}
func (m *mockPendingStore) Get(ctx context.Context, email string) (*domain.PendingRegistration, error) {
	args := m.Called(ctx, email)
	if p, _ := args.Get(0).(*domain.PendingRegistration); p != nil {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockPendingStore) Delete(ctx context.Context, email string) error {
	return m.Called(ctx, email).Error(0)
}

type mockMailer struct{ mock.Mock }

func (m *mockMailer) SendEmail(to, subject, body string) error {
	return m.Called(to, subject, body).Error(0)
}

type fakeHasher struct{}

func (fakeHasher) Hash(plaintext string) (string, error) { return "hash:" + plaintext, nil }
func (fakeHasher) Verify(plaintext, hash string) bool    { return "hash:"+plaintext == hash }

// --- builder ---

func fixedOTP(code string) func() (string, error) {
	return func() (string, error) { return code, nil }
}

func newTestService(as *mockAccountStore, ps *mockPendingStore, ml *mockMailer, now *time.Time, code string) Service {
	return NewService(ServiceDeps{
		AccountRepo: as,
		PendingRepo: ps,
		Mailer:      ml,
		Hasher:      fakeHasher{},
		Now:         func() time.Time { return *now },
		NewOTP:      fixedOTP(code),
	})
}

func baseSignup() SignupRequest {
	return SignupRequest{Email: "a@x.com", Username: "alice", Password: "password123"}
}

// --- Signup ---

func TestSignup_InvalidEmail(t *testing.T) {
	now := time.Now()
	svc := newTestService(&mockAccountStore{}, &mockPendingStore{}, &mockMailer{}, &now, "123456")
	req := baseSignup()
	req.Email = "not-an-email"
	_, err := svc.Signup(context.Background(), req)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrBadRequest))
}

func TestSignup_EmailTaken(t *testing.T) {
	as := &mockAccountStore{}
	as.On("GetByEmail", mock.Anything, "a@x.com").Return(&domain.Account{}, nil)

	now := time.Now()
	svc := newTestService(as, &mockPendingStore{}, &mockMailer{}, &now, "123456")
	_, err := svc.Signup(context.Background(), baseSignup())
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrDuplicateIdentity))
	as.AssertExpectations(t)
}

func TestSignup_UsernameTaken(t *testing.T) {
	as := &mockAccountStore{}
	as.On("GetByEmail", mock.Anything, "a@x.com").Return(nil, domain.ErrNotFound)
	as.On("GetByUsername", mock.Anything, "alice").Return(&domain.Account{}, nil)

	now := time.Now()
	svc := newTestService(as, &mockPendingStore{}, &mockMailer{}, &now, "123456")
	_, err := svc.Signup(context.Background(), baseSignup())
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrDuplicateIdentity))
}

func TestSignup_LivePending_Throttled(t *testing.T) {
	as := &mockAccountStore{}
	as.On("GetByEmail", mock.Anything, "a@x.com").Return(nil, domain.ErrNotFound)
	as.On("GetByUsername", mock.Anything, "alice").Return(nil, domain.ErrNotFound)

	now := time.Now()
	ps := &mockPendingStore{}
	ps.On("Get", mock.Anything, "a@x.com").Return(&domain.PendingRegistration{
		Email:    "a@x.com",
		IssuedAt: now.Add(-30 * time.Second).Unix(), // still inside the window
	}, nil)

	svc := newTestService(as, ps, &mockMailer{}, &now, "123456")
	_, err := svc.Signup(context.Background(), baseSignup())
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrThrottled))
	ps.AssertNotCalled(t, "Put", mock.Anything, mock.Anything)
	ps.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestSignup_ExpiredPending_ReclaimedAndReissued(t *testing.T) {
	as := &mockAccountStore{}
	as.On("GetByEmail", mock.Anything, "a@x.com").Return(nil, domain.ErrNotFound)
	as.On("GetByUsername", mock.Anything, "alice").Return(nil, domain.ErrNotFound)

	now := time.Now()
	ps := &mockPendingStore{}
	ps.On("Get", mock.Anything, "a@x.com").Return(&domain.PendingRegistration{
		Email:    "a@x.com",
		OTP:      "999999",
		IssuedAt: now.Add(-61 * time.Second).Unix(),
	}, nil)
	ps.On("Delete", mock.Anything, "a@x.com").Return(nil)
	ps.On("Put", mock.Anything, mock.MatchedBy(func(p *domain.PendingRegistration) bool {
		return p.OTP == "123456" && p.IssuedAt == now.Unix()
	})).Return(nil)

	ml := &mockMailer{}
	ml.On("SendEmail", "a@x.com", mock.Anything, mock.Anything).Return(nil)

	svc := newTestService(as, ps, ml, &now, "123456")
	email, err := svc.Signup(context.Background(), baseSignup())
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", email)
	ps.AssertExpectations(t)
	ml.AssertExpectations(t)
}

func TestSignup_HappyPath_SendsCode(t *testing.T) {
	as := &mockAccountStore{}
	as.On("GetByEmail", mock.Anything, "a@x.com").Return(nil, domain.ErrNotFound)
	as.On("GetByUsername", mock.Anything, "alice").Return(nil, domain.ErrNotFound)

	ps := &mockPendingStore{}
	ps.On("Get", mock.Anything, "a@x.com").Return(nil, domain.ErrNotFound)
	ps.On("Put", mock.Anything, mock.MatchedBy(func(p *domain.PendingRegistration) bool {
		return p.Email == "a@x.com" && p.Username == "alice" &&
			p.PasswordHash == "hash:password123" && p.OTP == "123456"
	})).Return(nil)

	ml := &mockMailer{}
	ml.On("SendEmail", "a@x.com", mock.Anything, mock.MatchedBy(func(body string) bool {
		return strings.Contains(body, "123456")
	})).Return(nil)

	now := time.Now()
	svc := newTestService(as, ps, ml, &now, "123456")
	email, err := svc.Signup(context.Background(), baseSignup())
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", email)
	as.AssertExpectations(t)
	ps.AssertExpectations(t)
	ml.AssertExpectations(t)
}

func TestSignup_MailFailure_PendingKept(t *testing.T) {
	as := &mockAccountStore{}
	as.On("GetByEmail", mock.Anything, "a@x.com").Return(nil, domain.ErrNotFound)
	as.On("GetByUsername", mock.Anything, "alice").Return(nil, domain.ErrNotFound)

	ps := &mockPendingStore{}
	ps.On("Get", mock.Anything, "a@x.com").Return(nil, domain.ErrNotFound)
	ps.On("Put", mock.Anything, mock.Anything).Return(nil)

	ml := &mockMailer{}
	ml.On("SendEmail", "a@x.com", mock.Anything, mock.Anything).Return(errors.New("smtp down"))

	now := time.Now()
	svc := newTestService(as, ps, ml, &now, "123456")
	_, err := svc.Signup(context.Background(), baseSignup())
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNotificationFailure))
	// The record was persisted before the send and is not rolled back.
	ps.AssertCalled(t, "Put", mock.Anything, mock.Anything)
	ps.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

// --- VerifyOTP ---

func TestVerifyOTP_NoPending(t *testing.T) {
	ps := &mockPendingStore{}
	ps.On("Get", mock.Anything, "a@x.com").Return(nil, domain.ErrNotFound)

	now := time.Now()
	svc := newTestService(&mockAccountStore{}, ps, &mockMailer{}, &now, "123456")
	_, err := svc.VerifyOTP(context.Background(), VerifyOTPRequest{Email: "a@x.com", OTP: "123456"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestVerifyOTP_Expired_RecordReclaimed(t *testing.T) {
	now := time.Now()
	ps := &mockPendingStore{}
	ps.On("Get", mock.Anything, "a@x.com").Return(&domain.PendingRegistration{
		Email:    "a@x.com",
		OTP:      "123456",
		IssuedAt: now.Add(-60 * time.Second).Unix(), // exactly at the boundary counts as expired
	}, nil)
	ps.On("Delete", mock.Anything, "a@x.com").Return(nil)

	svc := newTestService(&mockAccountStore{}, ps, &mockMailer{}, &now, "123456")
	_, err := svc.VerifyOTP(context.Background(), VerifyOTPRequest{Email: "a@x.com", OTP: "123456"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrExpired))
	ps.AssertExpectations(t)
}

func TestVerifyOTP_WrongCode_RecordKept(t *testing.T) {
	now := time.Now()
	ps := &mockPendingStore{}
	ps.On("Get", mock.Anything, "a@x.com").Return(&domain.PendingRegistration{
		Email:    "a@x.com",
		OTP:      "123456",
		IssuedAt: now.Unix(),
	}, nil)

	svc := newTestService(&mockAccountStore{}, ps, &mockMailer{}, &now, "123456")
	_, err := svc.VerifyOTP(context.Background(), VerifyOTPRequest{Email: "a@x.com", OTP: "000000"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidOTP))
	ps.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestVerifyOTP_ShortCode_IsInvalidNotMalformed(t *testing.T) {
	now := time.Now()
	ps := &mockPendingStore{}
	ps.On("Get", mock.Anything, "a@x.com").Return(&domain.PendingRegistration{
		Email:    "a@x.com",
		OTP:      "123456",
		IssuedAt: now.Unix(),
	}, nil)

	svc := newTestService(&mockAccountStore{}, ps, &mockMailer{}, &now, "123456")
	_, err := svc.VerifyOTP(context.Background(), VerifyOTPRequest{Email: "a@x.com", OTP: "12345"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidOTP))
	assert.False(t, errors.Is(err, domain.ErrBadRequest))
	ps.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestVerifyOTP_HappyPath_PromotesToAccount(t *testing.T) {
	now := time.Now()
	ps := &mockPendingStore{}
	ps.On("Get", mock.Anything, "a@x.com").Return(&domain.PendingRegistration{
		Email:        "a@x.com",
		Username:     "alice",
		PasswordHash: "hash:password123",
		OTP:          "123456",
		IssuedAt:     now.Add(-10 * time.Second).Unix(),
	}, nil)
	ps.On("Delete", mock.Anything, "a@x.com").Return(nil)

	as := &mockAccountStore{}
	as.On("Put", mock.Anything, mock.MatchedBy(func(a *domain.Account) bool {
		return a.Email == "a@x.com" && a.Username == "alice" &&
			a.PasswordHash == "hash:password123" && a.Active
	})).Return(nil)

	svc := newTestService(as, ps, &mockMailer{}, &now, "123456")
	acct, err := svc.VerifyOTP(context.Background(), VerifyOTPRequest{Email: "a@x.com", OTP: "123456"})
	require.NoError(t, err)
	assert.NotEmpty(t, acct.AccountID)
	assert.True(t, acct.Active)
	as.AssertExpectations(t)
	ps.AssertExpectations(t)
}

// --- concurrency, against in-memory fakes ---

type fakeAccounts struct {
	mu   sync.Mutex
	byID map[string]*domain.Account
}

func newFakeAccounts() *fakeAccounts {
	return &fakeAccounts{byID: make(map[string]*domain.Account)}
}

func (f *fakeAccounts) GetByEmail(_ context.Context, email string) (*domain.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.byID {
		if a.Email == email {
			return a, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeAccounts) GetByUsername(_ context.Context, username string) (*domain.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.byID {
		if a.Username == username {
			return a, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeAccounts) Put(_ context.Context, a *domain.Account) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byID[a.AccountID] = a
	return nil
}

func (f *fakeAccounts) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.byID)
}

type fakePendings struct {
	mu      sync.Mutex
	byEmail map[string]*domain.PendingRegistration
}

func newFakePendings() *fakePendings {
	return &fakePendings{byEmail: make(map[string]*domain.PendingRegistration)}
}

func (f *fakePendings) Put(_ context.Context, p *domain.PendingRegistration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byEmail[p.Email] = p
	return nil
}

func (f *fakePendings) Get(_ context.Context, email string) (*domain.PendingRegistration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.byEmail[email]; ok {
		return p, nil
	}
	return nil, domain.ErrNotFound
}

func (f *fakePendings) Delete(_ context.Context, email string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.byEmail, email)
	return nil
}

type nopMailer struct{}

func (nopMailer) SendEmail(to, subject, body string) error { return nil }

type emptyProfiles struct{}

func (emptyProfiles) Get(_ context.Context, _ string) (*domain.Profile, error) {
	return nil, domain.ErrNotFound
}

// Drives the whole lifecycle against shared in-memory state: signup, a failed
// verify, a successful verify, then login for an account that has no profile.
func TestLifecycle_SignupWrongOTPVerifyLogin(t *testing.T) {
	as := newFakeAccounts()
	ps := newFakePendings()
	regSvc := NewService(ServiceDeps{
		AccountRepo: as,
		PendingRepo: ps,
		Mailer:      nopMailer{},
		Hasher:      fakeHasher{},
		NewOTP:      fixedOTP("123456"),
	})
	loginSvc := login.NewService(login.ServiceDeps{
		AccountRepo: as,
		PendingRepo: ps,
		ProfileRepo: emptyProfiles{},
		Hasher:      fakeHasher{},
	})

	email, err := regSvc.Signup(context.Background(), SignupRequest{
		Email: "a@x.com", Username: "alice", Password: "pw1pw1pw1",
	})
	require.NoError(t, err)
	require.Equal(t, "a@x.com", email)

	// Before verification the email can only report NotVerified on login.
	_, err = loginSvc.Login(context.Background(), login.LoginRequest{Email: "a@x.com", Password: "pw1pw1pw1"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNotVerified))

	// A wrong code fails but leaves the pending record usable.
	_, err = regSvc.VerifyOTP(context.Background(), VerifyOTPRequest{Email: "a@x.com", OTP: "000000"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidOTP))

	acct, err := regSvc.VerifyOTP(context.Background(), VerifyOTPRequest{Email: "a@x.com", OTP: "123456"})
	require.NoError(t, err)
	assert.True(t, acct.Active)
	assert.Equal(t, "alice", acct.Username)

	// The pending record was consumed by the promotion.
	_, err = regSvc.VerifyOTP(context.Background(), VerifyOTPRequest{Email: "a@x.com", OTP: "123456"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	res, err := loginSvc.Login(context.Background(), login.LoginRequest{Email: "a@x.com", Password: "pw1pw1pw1"})
	require.NoError(t, err)
	assert.Equal(t, acct.AccountID, res.Account.AccountID)
	require.NotNil(t, res.Profile)
	assert.Equal(t, acct.AccountID, res.Profile.AccountID)
	assert.Empty(t, res.Profile.FirstName)
	assert.Empty(t, res.Profile.LastName)
}

func TestConcurrentSignups_ExactlyOneWins(t *testing.T) {
	as := newFakeAccounts()
	ps := newFakePendings()
	svc := NewService(ServiceDeps{
		AccountRepo: as,
		PendingRepo: ps,
		Mailer:      nopMailer{},
		Hasher:      fakeHasher{},
	})

	const n = 20
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Signup(context.Background(), baseSignup())
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			require.True(t, errors.Is(err, domain.ErrThrottled), "unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Len(t, ps.byEmail, 1)
}

func TestConcurrentVerifies_AtMostOneAccount(t *testing.T) {
	as := newFakeAccounts()
	ps := newFakePendings()
	svc := NewService(ServiceDeps{
		AccountRepo: as,
		PendingRepo: ps,
		Mailer:      nopMailer{},
		Hasher:      fakeHasher{},
		NewOTP:      fixedOTP("123456"),
	})

	_, err := svc.Signup(context.Background(), baseSignup())
	require.NoError(t, err)

	const n = 20
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.VerifyOTP(context.Background(), VerifyOTPRequest{Email: "a@x.com", OTP: "123456"})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			require.True(t, errors.Is(err, domain.ErrNotFound), "unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, succeeded, "exactly one verify may create the account")
	assert.Equal(t, 1, as.count())
}

