package models

import (
	"time"

	id "github.com/mohammad-issa2020/backend-7awell-sub001/pkg/domain"
	dErrors "github.com/mohammad-issa2020/backend-7awell-sub001/pkg/domain-errors"
)

// SessionStatus tracks progress through the sequential verification machine.
// The phone-change flow reuses the same statuses with the old channel in the
// phone slot and the new channel in the email slot.
type SessionStatus string

const (
	StatusStarted       SessionStatus = "started"
	StatusPhoneOTPSent  SessionStatus = "phone_otp_sent"
	StatusPhoneVerified SessionStatus = "phone_verified"
	StatusEmailOTPSent  SessionStatus = "email_otp_sent"
	StatusEmailVerified SessionStatus = "email_verified"
	StatusCompleted     SessionStatus = "completed"
	StatusExpired       SessionStatus = "expired"
	StatusAbandoned     SessionStatus = "abandoned"
)

// Medium names the channel being verified in a step. Login sessions use
// phone/email; phone-change sessions use old/new.
type Medium string

const (
	MediumPhone Medium = "phone"
	MediumEmail Medium = "email"
	MediumOld   Medium = "old"
	MediumNew   Medium = "new"
)

// step is the position of a medium in the two-step sequence.
type step int

const (
	stepFirst step = iota
	stepSecond
)

// VerificationSession is the short-lived state for one multi-step flow.
// Invariant: the second step can be verified only after the first
// (emailVerified only after phoneVerified; new channel only after old).
// Expiry is fixed at creation and never extended by activity.
type VerificationSession struct {
	ID   id.SessionID
	Flow id.Flow

	Phone string
	Email string

	// Phone-change flow only: the account being mutated and the new value
	// that will replace the current phone once both checks pass.
	AccountID   id.AccountID
	TargetValue string

	PhoneVerified bool
	EmailVerified bool
	PhoneMethodID id.MethodID
	EmailMethodID id.MethodID
	AttemptsPhone int
	AttemptsEmail int

	CreatedAt time.Time
	ExpiresAt time.Time
	Status    SessionStatus
}

// NewLoginSession constructs a session for the sequential phone+email login
// flow, enforcing construction invariants.
func NewLoginSession(sessionID id.SessionID, phone, email string, now time.Time, ttl time.Duration) (*VerificationSession, error) {
	if sessionID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "session ID is required")
	}
	if phone == "" || email == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "phone and email are required")
	}
	if ttl <= 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "session TTL must be positive")
	}
	return &VerificationSession{
		ID:        sessionID,
		Flow:      id.FlowLogin,
		Phone:     phone,
		Email:     email,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
		Status:    StatusStarted,
	}, nil
}

// NewPhoneChangeSession constructs a guarded-change session bound to the
// account's current phone (old channel) and the requested new phone.
func NewPhoneChangeSession(sessionID id.SessionID, accountID id.AccountID, currentPhone, newPhone string, now time.Time, ttl time.Duration) (*VerificationSession, error) {
	if sessionID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "session ID is required")
	}
	if accountID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "account ID is required")
	}
	if currentPhone == "" || newPhone == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "current and new phone are required")
	}
	if currentPhone == newPhone {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "new phone must differ from the current phone")
	}
	if ttl <= 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "session TTL must be positive")
	}
	return &VerificationSession{
		ID:          sessionID,
		Flow:        id.FlowPhoneChange,
		Phone:       currentPhone,
		AccountID:   accountID,
		TargetValue: newPhone,
		CreatedAt:   now,
		ExpiresAt:   now.Add(ttl),
		Status:      StatusStarted,
	}, nil
}

// IsExpired reports whether the session has passed its fixed expiry.
func (s *VerificationSession) IsExpired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// IsTerminal reports whether the session can no longer make progress.
func (s *VerificationSession) IsTerminal() bool {
	switch s.Status {
	case StatusCompleted, StatusExpired, StatusAbandoned:
		return true
	}
	return false
}

// BothVerified reports whether both steps have succeeded.
func (s *VerificationSession) BothVerified() bool {
	return s.PhoneVerified && s.EmailVerified
}

// stepFor maps a medium onto the session's two-step sequence, rejecting
// mediums that do not belong to the flow.
func (s *VerificationSession) stepFor(medium Medium) (step, error) {
	switch s.Flow {
	case id.FlowPhoneChange:
		switch medium {
		case MediumOld:
			return stepFirst, nil
		case MediumNew:
			return stepSecond, nil
		}
	default:
		switch medium {
		case MediumPhone:
			return stepFirst, nil
		case MediumEmail:
			return stepSecond, nil
		}
	}
	return 0, dErrors.New(dErrors.CodeInvalidInput, "medium "+string(medium)+" is not valid for this session")
}

// Destination returns the address an OTP for the medium must be sent to.
func (s *VerificationSession) Destination(medium Medium) (string, error) {
	st, err := s.stepFor(medium)
	if err != nil {
		return "", err
	}
	if st == stepFirst {
		return s.Phone, nil
	}
	if s.Flow == id.FlowPhoneChange {
		return s.TargetValue, nil
	}
	return s.Email, nil
}

// MarkOTPSent records a freshly issued challenge for the medium. Issuing for
// the second step before the first is verified violates the ordering
// invariant. Re-issuing replaces the methodId and, when resetAttempts is
// set, clears that medium's attempt counter; the other medium's progress is
// never touched.
func (s *VerificationSession) MarkOTPSent(medium Medium, methodID id.MethodID, resetAttempts bool) error {
	if s.IsTerminal() {
		return s.terminalError()
	}
	st, err := s.stepFor(medium)
	if err != nil {
		return err
	}
	if st == stepSecond && !s.PhoneVerified {
		return dErrors.New(dErrors.CodeOrderViolation, "first channel must be verified before requesting the second challenge")
	}
	if st == stepFirst {
		s.PhoneMethodID = methodID
		if resetAttempts {
			s.AttemptsPhone = 0
		}
		if s.Status == StatusStarted {
			s.Status = StatusPhoneOTPSent
		}
		return nil
	}
	s.EmailMethodID = methodID
	if resetAttempts {
		s.AttemptsEmail = 0
	}
	if s.Status == StatusPhoneVerified {
		s.Status = StatusEmailOTPSent
	}
	return nil
}

// MethodIDFor returns the current challenge handle for the medium.
func (s *VerificationSession) MethodIDFor(medium Medium) (id.MethodID, error) {
	st, err := s.stepFor(medium)
	if err != nil {
		return "", err
	}
	if st == stepFirst {
		return s.PhoneMethodID, nil
	}
	return s.EmailMethodID, nil
}

// RecordAttempt charges one verification attempt against the medium. The
// counter moves regardless of what the gateway later answers. Crossing the
// cap abandons the session; an abandoned session keeps failing with the same
// error until it expires.
func (s *VerificationSession) RecordAttempt(medium Medium, maxAttempts int) error {
	if s.Status == StatusAbandoned {
		return dErrors.New(dErrors.CodeAttemptsExceeded, "verification attempts exceeded, session abandoned")
	}
	if s.IsTerminal() {
		return s.terminalError()
	}
	st, err := s.stepFor(medium)
	if err != nil {
		return err
	}
	var methodID id.MethodID
	if st == stepFirst {
		methodID = s.PhoneMethodID
	} else {
		methodID = s.EmailMethodID
	}
	if methodID.IsNil() {
		return dErrors.New(dErrors.CodeOrderViolation, "no challenge has been issued for this medium")
	}
	if st == stepFirst {
		s.AttemptsPhone++
		if s.AttemptsPhone > maxAttempts {
			s.Status = StatusAbandoned
			return dErrors.New(dErrors.CodeAttemptsExceeded, "verification attempts exceeded, session abandoned")
		}
		return nil
	}
	s.AttemptsEmail++
	if s.AttemptsEmail > maxAttempts {
		s.Status = StatusAbandoned
		return dErrors.New(dErrors.CodeAttemptsExceeded, "verification attempts exceeded, session abandoned")
	}
	return nil
}

// MarkVerified flips the medium's verified flag and advances the machine.
func (s *VerificationSession) MarkVerified(medium Medium) error {
	if s.IsTerminal() {
		return s.terminalError()
	}
	st, err := s.stepFor(medium)
	if err != nil {
		return err
	}
	if st == stepSecond && !s.PhoneVerified {
		return dErrors.New(dErrors.CodeOrderViolation, "first channel must be verified before the second")
	}
	if st == stepFirst {
		s.PhoneVerified = true
		if s.Status == StatusStarted || s.Status == StatusPhoneOTPSent {
			s.Status = StatusPhoneVerified
		}
		return nil
	}
	s.EmailVerified = true
	s.Status = StatusEmailVerified
	return nil
}

// Complete marks the session consumed. It fails unless both steps succeeded.
func (s *VerificationSession) Complete() error {
	if s.IsTerminal() {
		return s.terminalError()
	}
	if !s.BothVerified() {
		return dErrors.New(dErrors.CodeOrderViolation, "both channels must be verified before completion")
	}
	s.Status = StatusCompleted
	return nil
}

func (s *VerificationSession) terminalError() error {
	switch s.Status {
	case StatusAbandoned:
		return dErrors.New(dErrors.CodeAttemptsExceeded, "verification attempts exceeded, session abandoned")
	case StatusCompleted:
		return dErrors.New(dErrors.CodeSessionNotFound, "session already consumed")
	default:
		return dErrors.New(dErrors.CodeSessionNotFound, "session expired")
	}
}
