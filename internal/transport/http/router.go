package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/member-api/internal/application/account"
	"github.com/member-api/internal/application/login"
	"github.com/member-api/internal/application/profile"
	"github.com/member-api/internal/application/registration"
	"github.com/member-api/internal/config"
	jwtinfra "github.com/member-api/internal/infrastructure/jwt"
	"github.com/member-api/internal/infrastructure/smtp"
	"github.com/member-api/internal/infrastructure/sns"
	"github.com/member-api/internal/transport/http/handler"
	appmiddleware "github.com/member-api/internal/transport/http/middleware"
	"golang.org/x/time/rate"
)

// Deps holds all infrastructure dependencies for the router.
type Deps struct {
	AccountRepo      AccountRepository
	PendingRepo      PendingRepository
	ProfileRepo      ProfileRepository
	VerificationRepo VerificationRepository
	S3Store          ObjectStore
	Mailer           smtp.Mailer
	SMSSender        sns.SMSSender
	JWTProvider      *jwtinfra.Provider
}

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	var authMw func(http.Handler) http.Handler
	if deps.JWTProvider != nil {
		authMw = appmiddleware.Auth(deps.JWTProvider)
	} else {
		authMw = func(next http.Handler) http.Handler { return next }
	}

	// 5 requests/second, burst of 10. Applied to sensitive public endpoints.
	sensitiveRL := appmiddleware.NewRateLimiter(rate.Limit(5), 10)

	regSvc := registration.NewService(registration.ServiceDeps{
		AccountRepo: deps.AccountRepo,
		PendingRepo: deps.PendingRepo,
		Mailer:      deps.Mailer,
		OTPWindow:   cfg.OTPWindow,
	})
	loginDeps := login.ServiceDeps{
		AccountRepo: deps.AccountRepo,
		PendingRepo: deps.PendingRepo,
		ProfileRepo: deps.ProfileRepo,
	}
	if deps.JWTProvider != nil {
		loginDeps.Signer = deps.JWTProvider
	}
	loginSvc := login.NewService(loginDeps)
	profileSvc := profile.NewService(profile.ServiceDeps{
		AccountRepo:      deps.AccountRepo,
		ProfileRepo:      deps.ProfileRepo,
		VerificationRepo: deps.VerificationRepo,
		Media:            deps.S3Store,
		SMSSender:        deps.SMSSender,
		PhoneOTPWindow:   cfg.PhoneOTPWindow,
	})
	acctSvc := account.NewService(deps.AccountRepo)

	healthH := handler.NewHealthHandler()
	accountH := handler.NewAccountHandler(regSvc, acctSvc)
	sessionH := handler.NewSessionHandler(loginSvc)
	profileH := handler.NewProfileHandler(profileSvc)
	phoneH := handler.NewPhoneConfirmHandler(profileSvc)

	r.Route("/v1", func(r chi.Router) {
		// ── Public routes (no auth) ──────────────────────────────────────────
		r.Get("/health-check/{action}", healthH.Ping)
		r.Post("/health-check/{action}", healthH.Ping)
		r.With(sensitiveRL.Limit).Post("/accounts", accountH.Signup)
		r.With(sensitiveRL.Limit).Post("/accounts/verify-otp", accountH.VerifyOTP)
		r.With(sensitiveRL.Limit).Post("/sessions/login", sessionH.Login)

		// ── Authenticated routes ─────────────────────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(authMw)

			r.Get("/accounts/{id}", accountH.Get)
			r.Delete("/accounts/{id}", accountH.Deactivate)

			r.Post("/accounts/{id}/profile", profileH.Create)
			r.Get("/accounts/{id}/profile", profileH.Get)
			r.Put("/accounts/{id}/profile", profileH.Update)
			r.Post("/accounts/{id}/profile/picture", profileH.UploadPicture)

			r.Post("/profiles/phone-confirm/{action}", phoneH.Action)
		})
	})

	return r
}
