package otp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/mohammad-issa2020/backend-7awell-sub001/internal/platform/config"
	id "github.com/mohammad-issa2020/backend-7awell-sub001/pkg/domain"
	dErrors "github.com/mohammad-issa2020/backend-7awell-sub001/pkg/domain-errors"
)

// HTTPGateway talks to the managed OTP provider over its REST API. Every
// call is bounded by the configured timeout; a timeout surfaces as a coded
// timeout error so callers never confuse it with a rejected code.
type HTTPGateway struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewHTTPGateway creates a provider client from configuration.
func NewHTTPGateway(cfg config.OTPConfig) *HTTPGateway {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPGateway{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		client:  &http.Client{Timeout: timeout},
	}
}

type sendRequest struct {
	To      string `json:"to"`
	Channel string `json:"channel"`
}

type sendResponse struct {
	MethodID string `json:"method_id"`
}

type checkRequest struct {
	MethodID string `json:"method_id"`
	Code     string `json:"code"`
}

type checkResponse struct {
	Verified bool `json:"verified"`
}

func (g *HTTPGateway) Send(ctx context.Context, destination, channel string) (id.MethodID, error) {
	var resp sendResponse
	err := g.post(ctx, "/v1/verifications", sendRequest{To: destination, Channel: channel}, &resp)
	if err != nil {
		return "", err
	}
	if resp.MethodID == "" {
		return "", dErrors.New(dErrors.CodeGateway, "provider returned no method id")
	}
	return id.MethodID(resp.MethodID), nil
}

func (g *HTTPGateway) Authenticate(ctx context.Context, methodID id.MethodID, code string) (bool, error) {
	var resp checkResponse
	err := g.post(ctx, "/v1/verifications/check", checkRequest{MethodID: methodID.String(), Code: code}, &resp)
	if err != nil {
		return false, err
	}
	return resp.Verified, nil
}

func (g *HTTPGateway) post(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "encode provider request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "build provider request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.apiKey)

	resp, err := g.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isClientTimeout(err) {
			return dErrors.Wrap(err, dErrors.CodeTimeout, "otp provider timed out")
		}
		return dErrors.Wrap(err, dErrors.CodeGateway, "otp provider unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return dErrors.New(dErrors.CodeGateway, fmt.Sprintf("otp provider responded with status %d", resp.StatusCode))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return dErrors.Wrap(err, dErrors.CodeGateway, "decode provider response")
	}
	return nil
}

func isClientTimeout(err error) bool {
	var netErr interface{ Timeout() bool }
	return errors.As(err, &netErr) && netErr.Timeout()
}
