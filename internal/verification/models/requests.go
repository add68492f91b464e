package models

// Request DTOs for the verification HTTP surface. Validation tags are
// enforced by pkg/validation before any session or gateway work happens.

type StartRequest struct {
	Phone string `json:"phone" validate:"required,e164"`
	Email string `json:"email" validate:"required,email"`
}

type SendOTPRequest struct {
	SessionID string `json:"sessionId" validate:"required"`
	Medium    string `json:"medium" validate:"required,oneof=phone email old new"`
	Channel   string `json:"channel" validate:"required,notblank,max=32"`
}

type VerifyOTPRequest struct {
	SessionID string `json:"sessionId" validate:"required"`
	Medium    string `json:"medium" validate:"required,oneof=phone email old new"`
	OTP       string `json:"otp" validate:"required,otp"`
}

type CompleteLoginRequest struct {
	SessionID string `json:"sessionId" validate:"required"`
}

type StartChangeRequest struct {
	NewPhone string `json:"newPhone" validate:"required,e164"`
}
