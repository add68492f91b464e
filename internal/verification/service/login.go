package service

import (
	"context"

	"github.com/mohammad-issa2020/backend-7awell-sub001/internal/audit"
	"github.com/mohammad-issa2020/backend-7awell-sub001/internal/verification/models"
	id "github.com/mohammad-issa2020/backend-7awell-sub001/pkg/domain"
	dErrors "github.com/mohammad-issa2020/backend-7awell-sub001/pkg/domain-errors"
)

// Start opens a sequential phone+email login flow. Formats are validated at
// the transport boundary; the session is created in STARTED with a fixed
// expiry that no later activity extends.
func (s *Service) Start(ctx context.Context, phone, email string) (*models.StartResponse, error) {
	if err := s.ensureNotBlocked(ctx, "phone:"+phone); err != nil {
		return nil, err
	}

	session, err := models.NewLoginSession(id.NewSessionID(id.FlowLogin), phone, email, s.now(), s.config.SessionTTL)
	if err != nil {
		return nil, err
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, translateStoreError(err)
	}

	s.logAudit(ctx, string(audit.EventSessionStarted), session.ID.String(),
		"session_id", session.ID.String(),
		"flow", string(session.Flow),
	)
	s.incrementSessionsStarted(string(session.Flow))

	return &models.StartResponse{
		SessionID: session.ID.String(),
		ExpiresAt: session.ExpiresAt,
	}, nil
}

// SendOTP issues a challenge for the medium on a login session.
func (s *Service) SendOTP(ctx context.Context, sessionID id.SessionID, medium models.Medium, channel string) (*models.SendOTPResponse, error) {
	if sessionID.Flow() != id.FlowLogin {
		return nil, errSessionNotFound()
	}
	return s.sendOTP(ctx, sessionID, nil, medium, channel)
}

// VerifyOTP checks a submitted code for the medium on a login session.
func (s *Service) VerifyOTP(ctx context.Context, sessionID id.SessionID, medium models.Medium, code string) (*models.VerifyOTPResponse, error) {
	if sessionID.Flow() != id.FlowLogin {
		return nil, errSessionNotFound()
	}
	return s.verifyOTP(ctx, sessionID, nil, medium, code)
}

// CompleteLogin consumes a fully verified session: it resolves or creates
// the durable account, issues a credential, and deletes the session so a
// second call answers SessionNotFound.
func (s *Service) CompleteLogin(ctx context.Context, sessionID id.SessionID) (*models.CompleteLoginResponse, error) {
	if sessionID.Flow() != id.FlowLogin {
		return nil, errSessionNotFound()
	}

	// Claim the session atomically; concurrent completions lose here.
	session, err := s.sessions.Update(ctx, sessionID, func(sess *models.VerificationSession) error {
		return sess.Complete()
	})
	if err != nil {
		return nil, translateStoreError(err)
	}

	// The claim is irreversible; if no credential can be issued, drop the
	// session so the caller restarts cleanly instead of leaving a stranded
	// completed record behind until expiry.
	accountID, err := s.identity.FindOrCreateAccount(ctx, session.Phone, session.Email)
	if err != nil {
		_ = s.sessions.Delete(ctx, sessionID)
		return nil, err
	}
	credential, err := s.identity.IssueCredential(ctx, accountID)
	if err != nil {
		_ = s.sessions.Delete(ctx, sessionID)
		return nil, err
	}

	// Single-use: the claimed session is gone either way.
	_ = s.sessions.Delete(ctx, sessionID)

	s.logAudit(ctx, string(audit.EventSessionCompleted), session.ID.String(),
		"session_id", session.ID.String(),
		"account_id", accountID.String(),
	)
	s.incrementSessionsCompleted(string(session.Flow))

	return &models.CompleteLoginResponse{
		AccountID:   accountID.String(),
		Token:       credential.Token,
		TokenExpiry: credential.ExpiresAt,
	}, nil
}

// Status reports progress. It is read-only and never extends expiry.
func (s *Service) Status(ctx context.Context, sessionID id.SessionID) (*models.StatusResponse, error) {
	if sessionID.Flow() != id.FlowLogin {
		return nil, errSessionNotFound()
	}
	return s.status(ctx, sessionID, nil)
}

// sendOTP is the flow-agnostic core. The actor is nil for login flows and
// the authenticated account for guarded changes; a mismatch reads as a
// missing session so callers cannot probe foreign sessions.
func (s *Service) sendOTP(ctx context.Context, sessionID id.SessionID, actor *id.AccountID, medium models.Medium, channel string) (*models.SendOTPResponse, error) {
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, translateStoreError(err)
	}
	if actor != nil && session.AccountID != *actor {
		return nil, errSessionNotFound()
	}
	if err := s.ensureNotBlocked(ctx, clientKey(session)); err != nil {
		return nil, err
	}

	destination, err := session.Destination(medium)
	if err != nil {
		return nil, err
	}
	// Reject ordering violations and terminal sessions before spending a
	// gateway call; the clone is discarded.
	if err := session.MarkOTPSent(medium, "precheck", false); err != nil {
		return nil, err
	}

	// Gateway I/O runs outside any session lock.
	methodID, err := s.gateway.Send(ctx, destination, channel)
	if err != nil {
		s.incrementGatewayErrors()
		return nil, err
	}

	updated, err := s.sessions.Update(ctx, sessionID, func(sess *models.VerificationSession) error {
		return sess.MarkOTPSent(medium, methodID, s.config.ResendResetsAttempts)
	})
	if err != nil {
		return nil, translateStoreError(err)
	}

	s.logAudit(ctx, string(audit.EventOTPSent), updated.ID.String(),
		"session_id", updated.ID.String(),
		"medium", string(medium),
		"channel", channel,
	)
	s.incrementOTPSends(string(updated.Flow), string(medium))

	return &models.SendOTPResponse{MethodID: methodID.String()}, nil
}

// verifyOTP is the flow-agnostic core of code verification. The attempt
// counter moves before the gateway is consulted, so every submission is
// charged regardless of outcome. Only an explicit provider rejection feeds
// the abuse detector; gateway failures and timeouts do not.
func (s *Service) verifyOTP(ctx context.Context, sessionID id.SessionID, actor *id.AccountID, medium models.Medium, code string) (*models.VerifyOTPResponse, error) {
	start := s.now()

	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, translateStoreError(err)
	}
	if actor != nil && session.AccountID != *actor {
		return nil, errSessionNotFound()
	}
	if err := s.ensureNotBlocked(ctx, clientKey(session)); err != nil {
		return nil, err
	}

	charged, err := s.sessions.Update(ctx, sessionID, func(sess *models.VerificationSession) error {
		return sess.RecordAttempt(medium, s.config.MaxAttempts)
	})
	if err != nil {
		translated := translateStoreError(err)
		if dErrors.HasCode(translated, dErrors.CodeAttemptsExceeded) {
			s.logAudit(ctx, string(audit.EventSessionAbandoned), session.ID.String(),
				"session_id", session.ID.String(),
				"medium", string(medium),
			)
			s.incrementSessionsAbandoned()
		}
		return nil, translated
	}

	methodID, err := charged.MethodIDFor(medium)
	if err != nil {
		return nil, err
	}

	// Gateway I/O runs outside any session lock.
	verified, err := s.gateway.Authenticate(ctx, methodID, code)
	if err != nil {
		// Transport or provider failure: not a verification failure, and it
		// must not feed the abuse detector.
		s.incrementGatewayErrors()
		return nil, err
	}

	if !verified {
		if s.abuse != nil {
			if abuseErr := s.abuse.RecordFailure(ctx, clientKey(charged)); abuseErr != nil {
				s.logger.ErrorContext(ctx, "failed to record abuse failure", "error", abuseErr)
			}
		}
		s.logAudit(ctx, string(audit.EventOTPRejected), charged.ID.String(),
			"session_id", charged.ID.String(),
			"medium", string(medium),
			"attempts", attemptCount(charged, medium),
		)
		s.incrementVerificationFailures()
		return nil, dErrors.New(dErrors.CodeVerificationFailed, "the provided code was rejected")
	}

	updated, err := s.sessions.Update(ctx, sessionID, func(sess *models.VerificationSession) error {
		if err := sess.MarkVerified(medium); err != nil {
			return err
		}
		// Guarded change: claim the session in the same transition so the
		// mutation below commits exactly once.
		if sess.Flow == id.FlowPhoneChange && sess.BothVerified() {
			return sess.Complete()
		}
		return nil
	})
	if err != nil {
		return nil, translateStoreError(err)
	}

	response := &models.VerifyOTPResponse{
		Verified:      true,
		PhoneVerified: updated.PhoneVerified,
		EmailVerified: updated.EmailVerified,
	}

	if updated.Flow == id.FlowPhoneChange && updated.Status == models.StatusCompleted {
		if err := s.commitPhoneChange(ctx, updated); err != nil {
			return nil, err
		}
		response.PhoneChanged = true
	}

	s.logAudit(ctx, string(audit.EventOTPVerified), updated.ID.String(),
		"session_id", updated.ID.String(),
		"medium", string(medium),
	)
	s.observeVerifyDuration(float64(s.now().Sub(start).Milliseconds()))

	return response, nil
}

func (s *Service) status(ctx context.Context, sessionID id.SessionID, actor *id.AccountID) (*models.StatusResponse, error) {
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, translateStoreError(err)
	}
	if actor != nil && session.AccountID != *actor {
		return nil, errSessionNotFound()
	}
	return &models.StatusResponse{
		PhoneVerified: session.PhoneVerified,
		EmailVerified: session.EmailVerified,
		BothVerified:  session.BothVerified(),
		ExpiresAt:     session.ExpiresAt,
	}, nil
}

func (s *Service) ensureNotBlocked(ctx context.Context, key string) error {
	if s.abuse == nil {
		return nil
	}
	blocked, err := s.abuse.IsBlocked(ctx, key)
	if err != nil {
		return err
	}
	if blocked {
		return dErrors.New(dErrors.CodeBlocked, "too many verification failures, try again later")
	}
	return nil
}

func attemptCount(session *models.VerificationSession, medium models.Medium) int {
	if medium == models.MediumEmail || medium == models.MediumNew {
		return session.AttemptsEmail
	}
	return session.AttemptsPhone
}
