package goShield

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

const (
	auditEventTokenIssued        = "token_issued"
	auditEventTokenRotated       = "token_rotated"
	auditEventTokenValidated     = "token_validated"
	auditEventTokenRejected      = "token_rejected"
	auditEventSessionLocked      = "session_locked"
	auditEventSessionCleared     = "session_cleared"
	auditEventRateLimitTriggered = "rate_limit_triggered"
	auditEventIssuanceDegraded   = "issuance_degraded"
)

// AuditErrorCode defines a public type used by goShield APIs.
//
// AuditErrorCode instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuditErrorCode string

const (
	auditErrTokenMissing    AuditErrorCode = "token_missing"
	auditErrTokenExpired    AuditErrorCode = "token_expired"
	auditErrTokenInvalid    AuditErrorCode = "token_invalid"
	auditErrLocked          AuditErrorCode = "locked"
	auditErrRateLimited     AuditErrorCode = "rate_limited"
	auditErrSessionRequired AuditErrorCode = "session_required"
	auditErrUnavailable     AuditErrorCode = "backend_unavailable"
	auditErrInternal        AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	sessionID string,
	route string,
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
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		SessionID: sessionID,
		IP:        clientIPFromContext(ctx),
		Route:     route,
		RequestID: requestIDFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func (e *Engine) emitRateLimit(
	ctx context.Context,
	scope string,
	sessionID string,
	route string,
	metadataBuilder func() map[string]string,
) {
	e.metricInc(MetricRateLimited)
	e.emitAudit(ctx, auditEventRateLimitTriggered, false, sessionID, route, nil, func() map[string]string {
		base := map[string]string{
			"scope": scope,
		}
		if metadataBuilder == nil {
			return base
		}
		for k, v := range metadataBuilder() {
			base[k] = v
		}
		return base
	})
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrTokenMissing):
		return auditErrTokenMissing
	case errors.Is(err, ErrTokenExpired):
		return auditErrTokenExpired
	case errors.Is(err, ErrTokenInvalid):
		return auditErrTokenInvalid
	case errors.Is(err, ErrTokenLocked):
		return auditErrLocked
	case errors.Is(err, ErrRateLimited):
		return auditErrRateLimited
	case errors.Is(err, ErrSessionRequired):
		return auditErrSessionRequired
	case errors.Is(err, ErrStoreUnavailable):
		return auditErrUnavailable
	default:
		return auditErrInternal
	}
}
