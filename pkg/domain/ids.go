// Package domain provides type-safe identifiers to prevent mixing up IDs at compile time.
package domain

import (
	"crypto/rand"
	"encoding/hex"
	"strings"

	"github.com/google/uuid"

	dErrors "github.com/mohammad-issa2020/backend-7awell-sub001/pkg/domain-errors"
)

// Flow distinguishes the verification flows a session can belong to. The
// session id carries the flow as a prefix so the format can be validated
// before any store lookup.
type Flow string

const (
	FlowLogin       Flow = "login"
	FlowPhoneChange Flow = "phone_change"
)

const (
	loginPrefix       = "vs_"
	phoneChangePrefix = "pc_"

	// sessionEntropyBytes is the size of the random suffix. 16 bytes of
	// crypto/rand hex-encoded gives 128 bits, same order as a UUID.
	sessionEntropyBytes = 16
)

// SessionID is a prefixed opaque identifier for a verification session
// (e.g. "vs_3f2a..." for login, "pc_9c41..." for phone-change sessions).
type SessionID string

// AccountID identifies a durable wallet account.
type AccountID uuid.UUID

// MethodID is the opaque handle the OTP gateway returns for one issued challenge.
type MethodID string

// NewSessionID generates a cryptographically random session id for the flow.
func NewSessionID(flow Flow) SessionID {
	buf := make([]byte, sessionEntropyBytes)
	// rand.Read never fails on supported platforms; it panics internally otherwise.
	_, _ = rand.Read(buf)
	return SessionID(prefixFor(flow) + hex.EncodeToString(buf))
}

func prefixFor(flow Flow) string {
	if flow == FlowPhoneChange {
		return phoneChangePrefix
	}
	return loginPrefix
}

// ParseSessionID validates the wire format at a trust boundary and returns
// the typed id. It rejects ids whose prefix or suffix shape is wrong without
// ever touching the store.
func ParseSessionID(s string) (SessionID, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "session ID cannot be empty")
	}
	var suffix string
	switch {
	case strings.HasPrefix(s, loginPrefix):
		suffix = s[len(loginPrefix):]
	case strings.HasPrefix(s, phoneChangePrefix):
		suffix = s[len(phoneChangePrefix):]
	default:
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid session ID format")
	}
	if len(suffix) != sessionEntropyBytes*2 {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid session ID format")
	}
	if _, err := hex.DecodeString(suffix); err != nil {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid session ID format")
	}
	return SessionID(s), nil
}

// Flow derives the flow from the id prefix.
func (id SessionID) Flow() Flow {
	if strings.HasPrefix(string(id), phoneChangePrefix) {
		return FlowPhoneChange
	}
	return FlowLogin
}

func ParseAccountID(s string) (AccountID, error) {
	if s == "" {
		return AccountID(uuid.Nil), dErrors.New(dErrors.CodeInvalidInput, "account ID cannot be empty")
	}
	parsed, err := uuid.Parse(s)
	if err != nil {
		return AccountID(uuid.Nil), dErrors.New(dErrors.CodeInvalidInput, "invalid account ID format")
	}
	return AccountID(parsed), nil
}

// String methods - for logging and debugging.

func (id SessionID) String() string { return string(id) }
func (id AccountID) String() string { return uuid.UUID(id).String() }
func (id MethodID) String() string  { return string(id) }

// IsNil checks - used for service-layer validation.

func (id SessionID) IsNil() bool { return id == "" }
func (id AccountID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id MethodID) IsNil() bool  { return id == "" }
