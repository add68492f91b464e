package service

import (
	"context"

	"github.com/mohammad-issa2020/backend-7awell-sub001/internal/audit"
	"github.com/mohammad-issa2020/backend-7awell-sub001/internal/verification/models"
	id "github.com/mohammad-issa2020/backend-7awell-sub001/pkg/domain"
)

// Guarded reauthentication: an authenticated principal changing their phone
// number must re-verify control of the current phone before the new one. A
// party holding only one of the two channels cannot take the account over.

// StartChange opens a guarded phone-change session bound to the account's
// current phone as the old channel and newPhone as the new channel.
func (s *Service) StartChange(ctx context.Context, accountID id.AccountID, newPhone string) (*models.StartResponse, error) {
	if err := s.ensureNotBlocked(ctx, "account:"+accountID.String()); err != nil {
		return nil, err
	}

	account, err := s.identity.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}

	session, err := models.NewPhoneChangeSession(
		id.NewSessionID(id.FlowPhoneChange),
		accountID,
		account.Phone,
		newPhone,
		s.now(),
		s.config.SessionTTL,
	)
	if err != nil {
		return nil, err
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, translateStoreError(err)
	}

	s.logAudit(ctx, string(audit.EventPhoneChangeStarted), session.ID.String(),
		"session_id", session.ID.String(),
		"account_id", accountID.String(),
	)
	s.incrementSessionsStarted(string(session.Flow))

	return &models.StartResponse{
		SessionID: session.ID.String(),
		ExpiresAt: session.ExpiresAt,
	}, nil
}

// SendChangeOTP issues a challenge for the old or new channel of a
// phone-change session owned by the acting account.
func (s *Service) SendChangeOTP(ctx context.Context, accountID id.AccountID, sessionID id.SessionID, medium models.Medium, channel string) (*models.SendOTPResponse, error) {
	if sessionID.Flow() != id.FlowPhoneChange {
		return nil, errSessionNotFound()
	}
	return s.sendOTP(ctx, sessionID, &accountID, medium, channel)
}

// VerifyChangeOTP checks a submitted code; verifying the new channel after
// the old one commits the phone mutation and deletes the session.
func (s *Service) VerifyChangeOTP(ctx context.Context, accountID id.AccountID, sessionID id.SessionID, medium models.Medium, code string) (*models.VerifyOTPResponse, error) {
	if sessionID.Flow() != id.FlowPhoneChange {
		return nil, errSessionNotFound()
	}
	return s.verifyOTP(ctx, sessionID, &accountID, medium, code)
}

// ChangeStatus reports progress of a phone-change session.
func (s *Service) ChangeStatus(ctx context.Context, accountID id.AccountID, sessionID id.SessionID) (*models.StatusResponse, error) {
	if sessionID.Flow() != id.FlowPhoneChange {
		return nil, errSessionNotFound()
	}
	return s.status(ctx, sessionID, &accountID)
}

// commitPhoneChange applies the mutation for a claimed change session and
// deletes the session. The claim (Complete inside the verify transition)
// guarantees at most one caller reaches this point.
func (s *Service) commitPhoneChange(ctx context.Context, session *models.VerificationSession) error {
	if _, err := s.identity.ChangePhone(ctx, session.AccountID, session.TargetValue); err != nil {
		return err
	}
	_ = s.sessions.Delete(ctx, session.ID)

	s.logAudit(ctx, string(audit.EventPhoneChanged), session.ID.String(),
		"session_id", session.ID.String(),
		"account_id", session.AccountID.String(),
	)
	s.incrementSessionsCompleted(string(session.Flow))
	return nil
}
