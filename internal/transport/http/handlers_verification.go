package httptransport

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	transportjson "github.com/mohammad-issa2020/backend-7awell-sub001/internal/transport/http/json"
	"github.com/mohammad-issa2020/backend-7awell-sub001/internal/transport/http/shared"
	"github.com/mohammad-issa2020/backend-7awell-sub001/internal/verification/models"
	id "github.com/mohammad-issa2020/backend-7awell-sub001/pkg/domain"
	dErrors "github.com/mohammad-issa2020/backend-7awell-sub001/pkg/domain-errors"
	"github.com/mohammad-issa2020/backend-7awell-sub001/pkg/validation"
)

const maxBodyBytes = 1 << 20

// Handler is the thin HTTP layer. It should delegate to domain services
// without embedding business logic so transport concerns remain isolated.
type Handler struct {
	verification VerificationService
	logger       *slog.Logger
}

func NewHandler(verification VerificationService, logger *slog.Logger) *Handler {
	return &Handler{
		verification: verification,
		logger:       logger,
	}
}

// decodeAndValidate parses the JSON body into req and runs struct validation.
func decodeAndValidate(r *http.Request, req any) error {
	r.Body = http.MaxBytesReader(nil, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		return dErrors.New(dErrors.CodeBadRequest, "invalid request body")
	}
	return validation.Validate(req)
}

func parseSessionID(raw string) (id.SessionID, error) {
	sessionID, err := id.ParseSessionID(raw)
	if err != nil {
		return "", err
	}
	return sessionID, nil
}

func (h *Handler) handleStart(w http.ResponseWriter, r *http.Request) {
	var req models.StartRequest
	if err := decodeAndValidate(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}
	resp, err := h.verification.Start(r.Context(), req.Phone, req.Email)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	transportjson.WriteJSON(w, http.StatusCreated, resp)
}

func (h *Handler) handleSendOTP(w http.ResponseWriter, r *http.Request) {
	var req models.SendOTPRequest
	if err := decodeAndValidate(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}
	sessionID, err := parseSessionID(req.SessionID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	resp, err := h.verification.SendOTP(r.Context(), sessionID, models.Medium(req.Medium), req.Channel)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	transportjson.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleVerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req models.VerifyOTPRequest
	if err := decodeAndValidate(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}
	sessionID, err := parseSessionID(req.SessionID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	resp, err := h.verification.VerifyOTP(r.Context(), sessionID, models.Medium(req.Medium), req.OTP)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	transportjson.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleCompleteLogin(w http.ResponseWriter, r *http.Request) {
	var req models.CompleteLoginRequest
	if err := decodeAndValidate(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}
	sessionID, err := parseSessionID(req.SessionID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	resp, err := h.verification.CompleteLogin(r.Context(), sessionID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	transportjson.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	sessionID, err := parseSessionID(chi.URLParam(r, "sessionID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	resp, err := h.verification.Status(r.Context(), sessionID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	transportjson.WriteJSON(w, http.StatusOK, resp)
}
