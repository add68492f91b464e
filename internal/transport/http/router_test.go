package httptransport

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ratelimitMW "github.com/mohammad-issa2020/backend-7awell-sub001/internal/ratelimit/middleware"
	rlmodels "github.com/mohammad-issa2020/backend-7awell-sub001/internal/ratelimit/models"
	"github.com/mohammad-issa2020/backend-7awell-sub001/internal/verification/models"
	id "github.com/mohammad-issa2020/backend-7awell-sub001/pkg/domain"
	dErrors "github.com/mohammad-issa2020/backend-7awell-sub001/pkg/domain-errors"
)

const goodToken = "good-token"

var testAccountID = id.AccountID{0x01, 0x02}

// stubService answers every operation with canned data or a single canned
// error, recording what it was called with.
type stubService struct {
	err error

	lastSessionID id.SessionID
	lastMedium    models.Medium
	lastAccountID id.AccountID
	startCalled   bool
}

func (s *stubService) Start(_ context.Context, _, _ string) (*models.StartResponse, error) {
	s.startCalled = true
	if s.err != nil {
		return nil, s.err
	}
	return &models.StartResponse{SessionID: string(id.NewSessionID(id.FlowLogin)), ExpiresAt: time.Now().Add(10 * time.Minute)}, nil
}

func (s *stubService) SendOTP(_ context.Context, sessionID id.SessionID, medium models.Medium, _ string) (*models.SendOTPResponse, error) {
	s.lastSessionID, s.lastMedium = sessionID, medium
	if s.err != nil {
		return nil, s.err
	}
	return &models.SendOTPResponse{MethodID: "method-1"}, nil
}

func (s *stubService) VerifyOTP(_ context.Context, sessionID id.SessionID, medium models.Medium, _ string) (*models.VerifyOTPResponse, error) {
	s.lastSessionID, s.lastMedium = sessionID, medium
	if s.err != nil {
		return nil, s.err
	}
	return &models.VerifyOTPResponse{Verified: true, PhoneVerified: true}, nil
}

func (s *stubService) CompleteLogin(_ context.Context, sessionID id.SessionID) (*models.CompleteLoginResponse, error) {
	s.lastSessionID = sessionID
	if s.err != nil {
		return nil, s.err
	}
	return &models.CompleteLoginResponse{AccountID: testAccountID.String(), Token: "jwt", TokenExpiry: time.Now().Add(time.Hour)}, nil
}

func (s *stubService) Status(_ context.Context, sessionID id.SessionID) (*models.StatusResponse, error) {
	s.lastSessionID = sessionID
	if s.err != nil {
		return nil, s.err
	}
	return &models.StatusResponse{PhoneVerified: true}, nil
}

func (s *stubService) StartChange(_ context.Context, accountID id.AccountID, _ string) (*models.StartResponse, error) {
	s.lastAccountID = accountID
	if s.err != nil {
		return nil, s.err
	}
	return &models.StartResponse{SessionID: string(id.NewSessionID(id.FlowPhoneChange)), ExpiresAt: time.Now().Add(10 * time.Minute)}, nil
}

func (s *stubService) SendChangeOTP(_ context.Context, accountID id.AccountID, sessionID id.SessionID, medium models.Medium, _ string) (*models.SendOTPResponse, error) {
	s.lastAccountID, s.lastSessionID, s.lastMedium = accountID, sessionID, medium
	if s.err != nil {
		return nil, s.err
	}
	return &models.SendOTPResponse{MethodID: "method-1"}, nil
}

func (s *stubService) VerifyChangeOTP(_ context.Context, accountID id.AccountID, sessionID id.SessionID, medium models.Medium, _ string) (*models.VerifyOTPResponse, error) {
	s.lastAccountID, s.lastSessionID, s.lastMedium = accountID, sessionID, medium
	if s.err != nil {
		return nil, s.err
	}
	return &models.VerifyOTPResponse{Verified: true, PhoneVerified: true, EmailVerified: true, PhoneChanged: true}, nil
}

func (s *stubService) ChangeStatus(_ context.Context, accountID id.AccountID, sessionID id.SessionID) (*models.StatusResponse, error) {
	s.lastAccountID, s.lastSessionID = accountID, sessionID
	if s.err != nil {
		return nil, s.err
	}
	return &models.StatusResponse{PhoneVerified: true, EmailVerified: true, BothVerified: true}, nil
}

type allowAllLimiter struct {
	denied bool
}

func (l *allowAllLimiter) Check(_ context.Context, _ rlmodels.EndpointClass, _ string) (*rlmodels.Result, error) {
	if l.denied {
		return &rlmodels.Result{Allowed: false, Limit: 5, Remaining: 0, ResetAt: time.Now().Add(time.Minute), RetryAfter: 60}, nil
	}
	return &rlmodels.Result{Allowed: true, Limit: 5, Remaining: 4, ResetAt: time.Now().Add(time.Minute)}, nil
}

type stubVerifier struct{}

func (stubVerifier) VerifyCredential(_ context.Context, token string) (id.AccountID, error) {
	if token != goodToken {
		return id.AccountID{}, dErrors.New(dErrors.CodeUnauthorized, "invalid or expired credential")
	}
	return testAccountID, nil
}

func newTestRouter(svc *stubService, limiter *allowAllLimiter) http.Handler {
	logger := slog.Default()
	return NewRouter(NewHandler(svc, logger), ratelimitMW.New(limiter, logger), stubVerifier{}, logger)
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body["error"]
}

func TestStartEndpoint(t *testing.T) {
	svc := &stubService{}
	router := newTestRouter(svc, &allowAllLimiter{})

	rec := doJSON(t, router, http.MethodPost, "/verification/start", models.StartRequest{
		Phone: "+15551230001",
		Email: "user@example.com",
	}, "")

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "5", rec.Header().Get("X-RateLimit-Limit"))

	var resp models.StartResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.SessionID)
}

func TestStartValidation(t *testing.T) {
	svc := &stubService{}
	router := newTestRouter(svc, &allowAllLimiter{})

	rec := doJSON(t, router, http.MethodPost, "/verification/start", models.StartRequest{
		Phone: "not-a-phone",
		Email: "user@example.com",
	}, "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, string(dErrors.CodeValidation), errorCode(t, rec))
	assert.False(t, svc.startCalled, "invalid input never reaches the service")
}

func TestMalformedBody(t *testing.T) {
	router := newTestRouter(&stubService{}, &allowAllLimiter{})

	req := httptest.NewRequest(http.MethodPost, "/verification/start", bytes.NewBufferString("{not json"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, string(dErrors.CodeBadRequest), errorCode(t, rec))
}

func TestInvalidSessionIDFormat(t *testing.T) {
	router := newTestRouter(&stubService{}, &allowAllLimiter{})

	rec := doJSON(t, router, http.MethodPost, "/verification/send-otp", models.SendOTPRequest{
		SessionID: "xx_definitely-wrong",
		Medium:    "phone",
		Channel:   "sms",
	}, "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, string(dErrors.CodeInvalidInput), errorCode(t, rec))
}

func TestDomainErrorMapping(t *testing.T) {
	cases := []struct {
		code   dErrors.Code
		status int
	}{
		{dErrors.CodeSessionNotFound, http.StatusNotFound},
		{dErrors.CodeOrderViolation, http.StatusConflict},
		{dErrors.CodeAttemptsExceeded, http.StatusForbidden},
		{dErrors.CodeVerificationFailed, http.StatusUnauthorized},
		{dErrors.CodeBlocked, http.StatusTooManyRequests},
		{dErrors.CodeGateway, http.StatusBadGateway},
		{dErrors.CodeTimeout, http.StatusGatewayTimeout},
	}

	for _, tc := range cases {
		t.Run(string(tc.code), func(t *testing.T) {
			svc := &stubService{err: dErrors.New(tc.code, "boom")}
			router := newTestRouter(svc, &allowAllLimiter{})

			rec := doJSON(t, router, http.MethodPost, "/verification/verify-otp", models.VerifyOTPRequest{
				SessionID: string(id.NewSessionID(id.FlowLogin)),
				Medium:    "phone",
				OTP:       "123456",
			}, "")

			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, string(tc.code), errorCode(t, rec))
		})
	}
}

func TestStatusEndpoint(t *testing.T) {
	svc := &stubService{}
	router := newTestRouter(svc, &allowAllLimiter{})
	sessionID := id.NewSessionID(id.FlowLogin)

	req := httptest.NewRequest(http.MethodGet, "/verification/status/"+sessionID.String(), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, sessionID, svc.lastSessionID)
}

func TestCompleteLoginEndpoint(t *testing.T) {
	svc := &stubService{}
	router := newTestRouter(svc, &allowAllLimiter{})

	rec := doJSON(t, router, http.MethodPost, "/verification/complete-login", models.CompleteLoginRequest{
		SessionID: string(id.NewSessionID(id.FlowLogin)),
	}, "")

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp models.CompleteLoginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "jwt", resp.Token)
}

func TestRateLimitedRequest(t *testing.T) {
	svc := &stubService{}
	router := newTestRouter(svc, &allowAllLimiter{denied: true})

	rec := doJSON(t, router, http.MethodPost, "/verification/send-otp", models.SendOTPRequest{
		SessionID: string(id.NewSessionID(id.FlowLogin)),
		Medium:    "phone",
		Channel:   "sms",
	}, "")

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
	assert.True(t, svc.lastSessionID.IsNil(), "denied requests never reach the handler")
}

func TestPhoneChangeRequiresAuth(t *testing.T) {
	svc := &stubService{}
	router := newTestRouter(svc, &allowAllLimiter{})
	body := models.StartChangeRequest{NewPhone: "+15551230002"}

	rec := doJSON(t, router, http.MethodPost, "/account/phone-change/start", body, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/account/phone-change/start", body, "wrong-token")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/account/phone-change/start", body, goodToken)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, testAccountID, svc.lastAccountID, "the acting account comes from the credential")
}

func TestPhoneChangeVerifyEndpoint(t *testing.T) {
	svc := &stubService{}
	router := newTestRouter(svc, &allowAllLimiter{})
	sessionID := id.NewSessionID(id.FlowPhoneChange)

	rec := doJSON(t, router, http.MethodPost, "/account/phone-change/verify-otp", models.VerifyOTPRequest{
		SessionID: sessionID.String(),
		Medium:    "new",
		OTP:       "123456",
	}, goodToken)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, sessionID, svc.lastSessionID)
	assert.Equal(t, models.MediumNew, svc.lastMedium)

	var resp models.VerifyOTPResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.PhoneChanged)
}

func TestContentTypeEnforced(t *testing.T) {
	router := newTestRouter(&stubService{}, &allowAllLimiter{})

	req := httptest.NewRequest(http.MethodPost, "/verification/start", bytes.NewBufferString("{}"))
	req.Header.Set("Content-Type", "text/plain")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}

func TestHealthEndpoint(t *testing.T) {
	router := newTestRouter(&stubService{}, &allowAllLimiter{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}
