package models

import "time"

type StartResponse struct {
	SessionID string    `json:"sessionId"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type SendOTPResponse struct {
	MethodID string `json:"methodId"`
}

type VerifyOTPResponse struct {
	Verified      bool `json:"verified"`
	PhoneVerified bool `json:"phoneVerified"`
	EmailVerified bool `json:"emailVerified"`
	// PhoneChanged is set on the phone-change flow when the final
	// verification committed the mutation.
	PhoneChanged bool `json:"phoneChanged,omitempty"`
}

type CompleteLoginResponse struct {
	AccountID   string    `json:"accountId"`
	Token       string    `json:"token"`
	TokenExpiry time.Time `json:"tokenExpiry"`
}

type StatusResponse struct {
	PhoneVerified bool      `json:"phoneVerified"`
	EmailVerified bool      `json:"emailVerified"`
	BothVerified  bool      `json:"bothVerified"`
	ExpiresAt     time.Time `json:"expiresAt"`
}
