package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"

	dErrors "github.com/mohammad-issa2020/backend-7awell-sub001/pkg/domain-errors"
)

type startPayload struct {
	Phone string `json:"phone" validate:"required,e164"`
	Email string `json:"email" validate:"required,email"`
}

type verifyPayload struct {
	SessionID string `json:"sessionId" validate:"required"`
	OTP       string `json:"otp" validate:"required,otp"`
	Channel   string `json:"channel" validate:"omitempty,notblank"`
}

func TestValidateAcceptsGoodPayload(t *testing.T) {
	err := Validate(&startPayload{Phone: "+15551230001", Email: "user@example.com"})
	assert.NoError(t, err)
}

func TestValidateRejects(t *testing.T) {
	cases := []struct {
		name    string
		payload any
		message string
	}{
		{"missing phone", &startPayload{Email: "user@example.com"}, "phone is required"},
		{"bad phone", &startPayload{Phone: "12345", Email: "user@example.com"}, "phone must be a valid E.164 phone number"},
		{"bad email", &startPayload{Phone: "+15551230001", Email: "nope"}, "email must be a valid email"},
		{"short otp", &verifyPayload{SessionID: "vs_x", OTP: "123"}, "otp must be a numeric one-time password"},
		{"alpha otp", &verifyPayload{SessionID: "vs_x", OTP: "12a456"}, "otp must be a numeric one-time password"},
		{"blank channel", &verifyPayload{SessionID: "vs_x", OTP: "123456", Channel: "   "}, "channel must not be blank"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := Validate(tc.payload)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
			assert.EqualError(t, err, tc.message)
		})
	}
}

func TestOTPBounds(t *testing.T) {
	assert.NoError(t, Validate(&verifyPayload{SessionID: "vs_x", OTP: "1234"}))
	assert.NoError(t, Validate(&verifyPayload{SessionID: "vs_x", OTP: "1234567890"}))
	assert.Error(t, Validate(&verifyPayload{SessionID: "vs_x", OTP: "12345678901"}))
}
