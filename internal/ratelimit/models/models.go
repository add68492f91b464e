package models

import "time"

// EndpointClass groups endpoints that share a rate-limit tier.
type EndpointClass string

const (
	// ClassGeneric is the broad, high-ceiling tier for everything else.
	ClassGeneric EndpointClass = "generic"
	// ClassOTPSend is the narrow tier guarding OTP sends, the most
	// abuse-sensitive operation (each send costs provider money).
	ClassOTPSend EndpointClass = "otp_send"
	// ClassLogin is the moderate tier for login-flow endpoints.
	ClassLogin EndpointClass = "login"
)

// Result is the outcome of a rate-limit check.
type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter int // seconds; 0 when allowed
}

// RateLimitExceededResponse is the 429 payload.
type RateLimitExceededResponse struct {
	Error      string `json:"error"`
	Message    string `json:"message"`
	RetryAfter int    `json:"retry_after"`
}
