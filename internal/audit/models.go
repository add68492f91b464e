package audit

import "time"

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Timestamp time.Time
	Subject   string
	Action    string
	Reason    string
	Severity  string
	RequestID string
}

const (
	SeverityInfo = "info"
	SeverityHigh = "high"
)

type AuditEvent string

const (
	EventSessionStarted     AuditEvent = "verification_session_started"
	EventOTPSent            AuditEvent = "otp_sent"
	EventOTPVerified        AuditEvent = "otp_verified"
	EventOTPRejected        AuditEvent = "otp_rejected"
	EventSessionCompleted   AuditEvent = "verification_session_completed"
	EventSessionAbandoned   AuditEvent = "verification_session_abandoned"
	EventPhoneChangeStarted AuditEvent = "phone_change_started"
	EventPhoneChanged       AuditEvent = "phone_changed"
	EventClientBlocked      AuditEvent = "client_blocked"
	EventRateLimitExceeded  AuditEvent = "rate_limit_exceeded"
)
