package profile

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/member-api/internal/domain"
	s3infra "github.com/member-api/internal/infrastructure/s3"
	"github.com/member-api/internal/infrastructure/sns"
	"github.com/member-api/internal/pkg/otp"
	"github.com/member-api/internal/pkg/validate"
)

// DefaultPhoneOTPWindow is how long a phone confirmation code stays valid.
const DefaultPhoneOTPWindow = 15 * time.Minute

const verTypePhone = "phone"

// DynamoDB attribute names used in partial update maps.
const (
	fieldFirstName      = "first_name"
	fieldLastName       = "last_name"
	fieldBirthday       = "birthday"
	fieldPhone          = "phone"
	fieldPictureURI     = "picture_uri"
	fieldPhoneConfirmed = "phone_confirmed"
)

type Service interface {
	Create(ctx context.Context, accountID string, req domain.CreateProfileRequest) (*domain.Profile, error)
	Get(ctx context.Context, accountID string) (*domain.Profile, error)
	Update(ctx context.Context, accountID string, req domain.UpdateProfileRequest) (*domain.Profile, error)
	UploadPicture(ctx context.Context, accountID, filename, base64Data string) (*domain.Profile, error)
	RequestPhoneConfirmation(ctx context.Context, accountID string) error
	ValidatePhoneOTP(ctx context.Context, accountID, code string) error
}

type accountStore interface {
	Get(ctx context.Context, accountID string) (*domain.Account, error)
}

type profileStore interface {
	Create(ctx context.Context, p *domain.Profile) error
	Get(ctx context.Context, accountID string) (*domain.Profile, error)
	Update(ctx context.Context, accountID string, updates map[string]interface{}) error
}

type verificationStore interface {
	Put(ctx context.Context, v *domain.AccountVerification) error
	Get(ctx context.Context, accountID, verType string) (*domain.AccountVerification, error)
	Delete(ctx context.Context, accountID, verType string) error
}

type objectStore interface {
	Upload(ctx context.Context, key string, r io.Reader, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
}

type service struct {
	accounts      accountStore
	profiles      profileStore
	verifications verificationStore
	media         objectStore
	sms           sns.SMSSender
	phoneWindow   time.Duration
	now           func() time.Time
	newOTP        func() (string, error)
}

type ServiceDeps struct {
	AccountRepo      accountStore
	ProfileRepo      profileStore
	VerificationRepo verificationStore
	Media            objectStore
	SMSSender        sns.SMSSender // optional; phone confirmation is disabled when absent
	PhoneOTPWindow   time.Duration
	Now              func() time.Time
	NewOTP           func() (string, error)
}

func NewService(deps ServiceDeps) Service {
	s := &service{
		accounts:      deps.AccountRepo,
		profiles:      deps.ProfileRepo,
		verifications: deps.VerificationRepo,
		media:         deps.Media,
		sms:           deps.SMSSender,
		phoneWindow:   deps.PhoneOTPWindow,
		now:           deps.Now,
		newOTP:        deps.NewOTP,
	}
	if s.phoneWindow == 0 {
		s.phoneWindow = DefaultPhoneOTPWindow
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newOTP == nil {
		s.newOTP = otp.NewCode
	}
	return s
}

func (s *service) Create(ctx context.Context, accountID string, req domain.CreateProfileRequest) (*domain.Profile, error) {
	if err := validate.Struct(&req); err != nil {
		return nil, fmt.Errorf("%s: %w", err, domain.ErrBadRequest)
	}
	if _, err := s.accounts.Get(ctx, accountID); err != nil {
		return nil, fmt.Errorf("account %s: %w", accountID, domain.ErrNotFound)
	}
	var birthday time.Time
	if req.Birthday != "" {
		var err error
		birthday, err = time.Parse("2006-01-02", req.Birthday)
		if err != nil {
			return nil, fmt.Errorf("birthday must be in YYYY-MM-DD format: %w", domain.ErrBadRequest)
		}
	}
	now := s.now().UTC()
	p := &domain.Profile{
		AccountID: accountID,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Birthday:  birthday,
		Phone:     req.Phone,
		CreatedAt: now,
		UpdatedAt: now,
	}
	// The store refuses a second profile for the account; it never overwrites.
	if err := s.profiles.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *service) Get(ctx context.Context, accountID string) (*domain.Profile, error) {
	return s.profiles.Get(ctx, accountID)
}

func (s *service) Update(ctx context.Context, accountID string, req domain.UpdateProfileRequest) (*domain.Profile, error) {
	updates := map[string]interface{}{}
	if req.FirstName != nil {
		updates[fieldFirstName] = *req.FirstName
	}
	if req.LastName != nil {
		updates[fieldLastName] = *req.LastName
	}
	if req.Birthday != nil {
		t, err := time.Parse("2006-01-02", *req.Birthday)
		if err != nil {
			return nil, fmt.Errorf("birthday must be in YYYY-MM-DD format: %w", domain.ErrBadRequest)
		}
		updates[fieldBirthday] = t
	}
	if req.Phone != nil {
		updates[fieldPhone] = *req.Phone
		// A new number has to be confirmed again.
		updates[fieldPhoneConfirmed] = false
	}
	if len(updates) == 0 {
		return s.profiles.Get(ctx, accountID)
	}
	if err := s.profiles.Update(ctx, accountID, updates); err != nil {
		return nil, err
	}
	return s.profiles.Get(ctx, accountID)
}

func (s *service) UploadPicture(ctx context.Context, accountID, filename, base64Data string) (*domain.Profile, error) {
	prev, err := s.profiles.Get(ctx, accountID)
	if err != nil {
		return nil, err
	}
	decoded, err := base64.StdEncoding.DecodeString(base64Data)
	if err != nil {
		return nil, fmt.Errorf("decode base64: %w", domain.ErrBadRequest)
	}
	safeName := sanitizeFilename(filename)
	key := fmt.Sprintf("profile_pics/%s/%s", accountID, safeName)
	uri, err := s.media.Upload(ctx, key, bytes.NewReader(decoded), s3infra.ContentTypeFromName(safeName))
	if err != nil {
		return nil, err
	}
	if err := s.profiles.Update(ctx, accountID, map[string]interface{}{fieldPictureURI: uri}); err != nil {
		return nil, err
	}
	// Best-effort cleanup of the replaced object.
	if oldKey := objectKeyFromURI(prev.PictureURI); oldKey != "" && prev.PictureURI != uri {
		if err := s.media.Delete(ctx, oldKey); err != nil {
			slog.Warn("failed to delete replaced profile picture", "account_id", accountID, "key", oldKey, "err", err)
		}
	}
	return s.profiles.Get(ctx, accountID)
}

// objectKeyFromURI extracts the object key from an s3://bucket/key URI.
// Returns "" for anything it does not recognize.
func objectKeyFromURI(uri string) string {
	const scheme = "s3://"
	if !strings.HasPrefix(uri, scheme) {
		return ""
	}
	rest := uri[len(scheme):]
	if i := strings.IndexByte(rest, '/'); i >= 0 && i+1 < len(rest) {
		return rest[i+1:]
	}
	return ""
}

func (s *service) RequestPhoneConfirmation(ctx context.Context, accountID string) error {
	if s.sms == nil {
		return fmt.Errorf("sms delivery not configured: %w", domain.ErrNotificationFailure)
	}
	p, err := s.profiles.Get(ctx, accountID)
	if err != nil {
		return err
	}
	if p.Phone == nil || *p.Phone == "" {
		return fmt.Errorf("no phone number on profile: %w", domain.ErrBadRequest)
	}
	code, err := s.newOTP()
	if err != nil {
		return err
	}
	v := &domain.AccountVerification{
		AccountID: accountID,
		Type:      verTypePhone,
		Code:      code,
		ExpiresAt: s.now().Add(s.phoneWindow).Unix(),
	}
	if err := s.verifications.Put(ctx, v); err != nil {
		return err
	}
	if err := s.sms.SendSMS(ctx, *p.Phone, "Your confirmation code: "+code); err != nil {
		slog.Warn("phone confirmation delivery failed", "account_id", accountID, "err", err)
		return fmt.Errorf("sending confirmation code: %w", domain.ErrNotificationFailure)
	}
	return nil
}

func (s *service) ValidatePhoneOTP(ctx context.Context, accountID, code string) error {
	v, err := s.verifications.Get(ctx, accountID, verTypePhone)
	if err != nil {
		return fmt.Errorf("no confirmation pending: %w", domain.ErrNotFound)
	}
	if v.ExpiresAt < s.now().Unix() {
		return fmt.Errorf("confirmation code: %w", domain.ErrExpired)
	}
	if v.Code != code {
		return fmt.Errorf("confirmation code mismatch: %w", domain.ErrInvalidOTP)
	}
	if err := s.verifications.Delete(ctx, accountID, verTypePhone); err != nil {
		slog.Warn("failed to delete phone verification record", "account_id", accountID, "err", err)
	}
	return s.profiles.Update(ctx, accountID, map[string]interface{}{fieldPhoneConfirmed: true})
}

// sanitizeFilename strips directory components and keeps only safe characters
// (alphanumeric, dot, dash, underscore) to prevent path traversal in S3 keys.
func sanitizeFilename(name string) string {
	name = path.Base(name)
	var b strings.Builder
	for _, r := range name {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
			(r >= '0' && r <= '9') || r == '.' || r == '-' || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	if result := b.String(); result != "" && result != "." {
		return result
	}
	return "_"
}
