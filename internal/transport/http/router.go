package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mohammad-issa2020/backend-7awell-sub001/internal/platform/middleware"
	ratelimitMW "github.com/mohammad-issa2020/backend-7awell-sub001/internal/ratelimit/middleware"
	rlmodels "github.com/mohammad-issa2020/backend-7awell-sub001/internal/ratelimit/models"
	transportjson "github.com/mohammad-issa2020/backend-7awell-sub001/internal/transport/http/json"
	"github.com/mohammad-issa2020/backend-7awell-sub001/internal/verification/models"
	id "github.com/mohammad-issa2020/backend-7awell-sub001/pkg/domain"
)

// VerificationService is everything the HTTP layer needs from the
// orchestrator.
type VerificationService interface {
	Start(ctx context.Context, phone, email string) (*models.StartResponse, error)
	SendOTP(ctx context.Context, sessionID id.SessionID, medium models.Medium, channel string) (*models.SendOTPResponse, error)
	VerifyOTP(ctx context.Context, sessionID id.SessionID, medium models.Medium, code string) (*models.VerifyOTPResponse, error)
	CompleteLogin(ctx context.Context, sessionID id.SessionID) (*models.CompleteLoginResponse, error)
	Status(ctx context.Context, sessionID id.SessionID) (*models.StatusResponse, error)

	StartChange(ctx context.Context, accountID id.AccountID, newPhone string) (*models.StartResponse, error)
	SendChangeOTP(ctx context.Context, accountID id.AccountID, sessionID id.SessionID, medium models.Medium, channel string) (*models.SendOTPResponse, error)
	VerifyChangeOTP(ctx context.Context, accountID id.AccountID, sessionID id.SessionID, medium models.Medium, code string) (*models.VerifyOTPResponse, error)
	ChangeStatus(ctx context.Context, accountID id.AccountID, sessionID id.SessionID) (*models.StatusResponse, error)
}

// NewRouter wires all public endpoints with the middleware stack: recovery,
// request id, client ip, logging, timeout, content-type, then per-class rate
// limits and bearer auth on the guarded-change namespace.
func NewRouter(h *Handler, rl *ratelimitMW.Middleware, verifier middleware.CredentialVerifier, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.ClientIP)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(middleware.ContentTypeJSON)

	r.Route("/verification", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(rl.RateLimit(rlmodels.ClassLogin))
			r.Post("/start", h.handleStart)
			r.Post("/verify-otp", h.handleVerifyOTP)
			r.Post("/complete-login", h.handleCompleteLogin)
		})
		r.Group(func(r chi.Router) {
			r.Use(rl.RateLimit(rlmodels.ClassOTPSend))
			r.Post("/send-otp", h.handleSendOTP)
		})
		r.Group(func(r chi.Router) {
			r.Use(rl.RateLimit(rlmodels.ClassGeneric))
			r.Get("/status/{sessionID}", h.handleStatus)
		})
	})

	r.Route("/account/phone-change", func(r chi.Router) {
		r.Use(middleware.RequireAuth(verifier))
		r.Group(func(r chi.Router) {
			r.Use(rl.RateLimit(rlmodels.ClassLogin))
			r.Post("/start", h.handleChangeStart)
			r.Post("/verify-otp", h.handleChangeVerifyOTP)
		})
		r.Group(func(r chi.Router) {
			r.Use(rl.RateLimit(rlmodels.ClassOTPSend))
			r.Post("/send-otp", h.handleChangeSendOTP)
		})
		r.Group(func(r chi.Router) {
			r.Use(rl.RateLimit(rlmodels.ClassGeneric))
			r.Get("/status/{sessionID}", h.handleChangeStatus)
		})
	})

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		transportjson.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	return r
}
