package accountd

import (
	"context"
	"errors"
	"time"

	"github.com/aonyx-labs/accountd/password"
	"github.com/aonyx-labs/accountd/session"
	"github.com/aonyx-labs/accountd/token"
)

const (
	auditEventSignInSuccess     = "sign_in_success"
	auditEventSignInFailure     = "sign_in_failure"
	auditEventSignInRateLimited = "sign_in_rate_limited"
	auditEventAccountLocked     = "account_locked"
	auditEventSignUpSuccess     = "sign_up_success"
	auditEventSignUpDuplicate   = "sign_up_duplicate"
)

// AuditErrorCode is the stable error label carried in AuditEvent.Error.
type AuditErrorCode string

const (
	auditErrInvalidCredentials AuditErrorCode = "invalid_credentials"
	auditErrRateLimited        AuditErrorCode = "rate_limited"
	auditErrDuplicate          AuditErrorCode = "duplicate"
	auditErrInvalidEmail       AuditErrorCode = "invalid_email"
	auditErrPasswordPolicy     AuditErrorCode = "password_policy"
	auditErrInvalidToken       AuditErrorCode = "invalid_token"
	auditErrUserNotFound       AuditErrorCode = "user_not_found"
	auditErrUnavailable        AuditErrorCode = "backend_unavailable"
	auditErrInternal           AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	userID string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		UserID:    userID,
		IP:        clientIPFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return auditErrInvalidCredentials
	case errors.Is(err, ErrSignInRateLimited):
		return auditErrRateLimited
	case errors.Is(err, ErrEmailTaken):
		return auditErrDuplicate
	case errors.Is(err, ErrInvalidEmail):
		return auditErrInvalidEmail
	case errors.Is(err, password.ErrPolicy):
		return auditErrPasswordPolicy
	case errors.Is(err, token.ErrInvalid):
		return auditErrInvalidToken
	case errors.Is(err, ErrUserNotFound):
		return auditErrUserNotFound
	case errors.Is(err, session.ErrRedisUnavailable):
		return auditErrUnavailable
	default:
		return auditErrInternal
	}
}
