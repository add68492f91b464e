package httptransport

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mohammad-issa2020/backend-7awell-sub001/internal/platform/middleware"
	transportjson "github.com/mohammad-issa2020/backend-7awell-sub001/internal/transport/http/json"
	"github.com/mohammad-issa2020/backend-7awell-sub001/internal/transport/http/shared"
	"github.com/mohammad-issa2020/backend-7awell-sub001/internal/verification/models"
	id "github.com/mohammad-issa2020/backend-7awell-sub001/pkg/domain"
	dErrors "github.com/mohammad-issa2020/backend-7awell-sub001/pkg/domain-errors"
)

// Guarded phone-change endpoints. RequireAuth has already resolved the
// acting account; handlers only bridge HTTP to the service.

func actingAccount(r *http.Request) (id.AccountID, error) {
	accountID, ok := middleware.GetAccountID(r.Context())
	if !ok {
		return accountID, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	return accountID, nil
}

func (h *Handler) handleChangeStart(w http.ResponseWriter, r *http.Request) {
	accountID, err := actingAccount(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	var req models.StartChangeRequest
	if err := decodeAndValidate(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}
	resp, err := h.verification.StartChange(r.Context(), accountID, req.NewPhone)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	transportjson.WriteJSON(w, http.StatusCreated, resp)
}

func (h *Handler) handleChangeSendOTP(w http.ResponseWriter, r *http.Request) {
	accountID, err := actingAccount(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
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
	resp, err := h.verification.SendChangeOTP(r.Context(), accountID, sessionID, models.Medium(req.Medium), req.Channel)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	transportjson.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleChangeVerifyOTP(w http.ResponseWriter, r *http.Request) {
	accountID, err := actingAccount(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
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
	resp, err := h.verification.VerifyChangeOTP(r.Context(), accountID, sessionID, models.Medium(req.Medium), req.OTP)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	transportjson.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleChangeStatus(w http.ResponseWriter, r *http.Request) {
	accountID, err := actingAccount(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	sessionID, err := parseSessionID(chi.URLParam(r, "sessionID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	resp, err := h.verification.ChangeStatus(r.Context(), accountID, sessionID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	transportjson.WriteJSON(w, http.StatusOK, resp)
}
