package goShield

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/MrEthical07/goShield/internal"
	"github.com/MrEthical07/goShield/internal/stores"
)

// ValidateToken describes the validatetoken operation and its observable behavior.
//
// ValidateToken may return an error when input validation, dependency calls, or security checks fail.
// ValidateToken does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) ValidateToken(ctx context.Context, sessionID, tokenID, tokenValue string) error {
	if e == nil || e.tokens == nil {
		return ErrEngineNotReady
	}
	if sessionID == "" {
		return ErrSessionRequired
	}

	return e.validate(ctx, Request{
		SessionID:  sessionID,
		TokenID:    tokenID,
		TokenValue: tokenValue,
	}, false)
}

// ValidateRequest describes the validaterequest operation and its observable behavior.
//
// ValidateRequest may return an error when input validation, dependency calls, or security checks fail.
// ValidateRequest does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) ValidateRequest(ctx context.Context, req Request) error {
	if e == nil || e.tokens == nil {
		return ErrEngineNotReady
	}
	if req.SessionID == "" {
		return ErrSessionRequired
	}

	return e.validate(ctx, req, e.channel != nil)
}

// validate runs the ordered validation pipeline: lock state first, then the
// channel binding, then the token itself. Only a value whose MAC check ran
// and failed counts toward the lockout.
func (e *Engine) validate(ctx context.Context, req Request, enforceChannel bool) error {
	start := time.Now()
	defer func() {
		e.metricObserve(MetricValidateLatency, time.Since(start))
	}()

	locked, err := e.failures.Locked(ctx, req.SessionID)
	if err != nil {
		return e.rejectUnavailable(ctx, req, err)
	}
	if locked {
		e.metricInc(MetricValidateLocked)
		e.emitAudit(ctx, auditEventTokenRejected, false, req.SessionID, req.Route, ErrTokenLocked, nil)
		return ErrTokenLocked
	}

	if enforceChannel {
		if req.ChannelToken == "" {
			return e.rejectMissing(ctx, req)
		}
		if err := e.channel.Verify(req.ChannelToken, req.SessionID); err != nil {
			e.metricInc(MetricChannelRejected)
			e.recordFailure(ctx, req.SessionID, req.Route)
			e.metricInc(MetricValidateInvalid)
			e.emitAudit(ctx, auditEventTokenRejected, false, req.SessionID, req.Route, ErrTokenInvalid, func() map[string]string {
				return map[string]string{"stage": "channel"}
			})
			return ErrTokenInvalid
		}
	}

	tokenID, tokenValue := req.TokenID, req.TokenValue
	if req.Submission != "" {
		id, secret, err := internal.DecodeSubmission(req.Submission)
		if err != nil {
			return e.rejectMalformed(ctx, req)
		}
		tokenID = id
		tokenValue = base64.RawURLEncoding.EncodeToString(secret[:])
	}

	if tokenID == "" || tokenValue == "" {
		return e.rejectMissing(ctx, req)
	}

	id, err := internal.ParseTokenID(tokenID)
	if err != nil {
		// An unparseable id can never name a stored entry.
		return e.rejectMissing(ctx, req)
	}

	secretRaw, err := base64.RawURLEncoding.DecodeString(tokenValue)
	if err != nil || len(secretRaw) != 32 {
		return e.rejectMalformed(ctx, req)
	}

	entry, err := e.tokens.Consume(ctx, req.SessionID, id, internal.MACBytes(e.macKey[:], secretRaw))
	switch {
	case err == nil:
		e.metricInc(MetricValidateOK)
		e.emitAudit(ctx, auditEventTokenValidated, true, req.SessionID, req.Route, nil, func() map[string]string {
			if !entry.SingleUse {
				return nil
			}
			return map[string]string{"single_use": "true"}
		})
		return nil

	case errors.Is(err, stores.ErrTokenNotFound):
		return e.rejectMissing(ctx, req)

	case errors.Is(err, stores.ErrTokenExpired):
		e.metricInc(MetricValidateExpired)
		e.emitAudit(ctx, auditEventTokenRejected, false, req.SessionID, req.Route, ErrTokenExpired, nil)
		return ErrTokenExpired

	case errors.Is(err, stores.ErrTokenMismatch):
		e.recordFailure(ctx, req.SessionID, req.Route)
		e.metricInc(MetricValidateInvalid)
		e.emitAudit(ctx, auditEventTokenRejected, false, req.SessionID, req.Route, ErrTokenInvalid, nil)
		return ErrTokenInvalid

	default:
		return e.rejectUnavailable(ctx, req, err)
	}
}

func (e *Engine) rejectMissing(ctx context.Context, req Request) error {
	e.metricInc(MetricValidateMissing)
	e.emitAudit(ctx, auditEventTokenRejected, false, req.SessionID, req.Route, ErrTokenMissing, nil)
	return ErrTokenMissing
}

// rejectMalformed covers values that never reached a MAC comparison. They
// read as invalid but do not feed the lockout counter.
func (e *Engine) rejectMalformed(ctx context.Context, req Request) error {
	e.metricInc(MetricValidateInvalid)
	e.emitAudit(ctx, auditEventTokenRejected, false, req.SessionID, req.Route, ErrTokenInvalid, func() map[string]string {
		return map[string]string{"stage": "decode"}
	})
	return ErrTokenInvalid
}

func (e *Engine) rejectUnavailable(ctx context.Context, req Request, cause error) error {
	e.metricInc(MetricStoreUnavailable)
	e.emitAudit(ctx, auditEventTokenRejected, false, req.SessionID, req.Route, ErrStoreUnavailable, nil)
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, cause)
}

func (e *Engine) recordFailure(ctx context.Context, sessionID, route string) {
	count, lockedNow, err := e.failures.RecordFailure(ctx, sessionID)
	if err != nil {
		e.logger.Warn().Err(err).Msg("failure counter update failed")
		return
	}
	if lockedNow && count == e.config.Attempts.MaxFailures {
		e.metricInc(MetricSessionLocked)
		e.emitAudit(ctx, auditEventSessionLocked, false, sessionID, route, ErrTokenLocked, func() map[string]string {
			return map[string]string{"failures": strconv.Itoa(count)}
		})
	}
}

// Locked describes the locked operation and its observable behavior.
//
// Locked may return an error when input validation, dependency calls, or security checks fail.
// Locked does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Locked(ctx context.Context, sessionID string) (bool, error) {
	if e == nil || e.failures == nil {
		return false, ErrEngineNotReady
	}
	if sessionID == "" {
		return false, ErrSessionRequired
	}

	locked, err := e.failures.Locked(ctx, sessionID)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return locked, nil
}

// FailureCount describes the failurecount operation and its observable behavior.
//
// FailureCount may return an error when input validation, dependency calls, or security checks fail.
// FailureCount does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) FailureCount(ctx context.Context, sessionID string) (int, error) {
	if e == nil || e.failures == nil {
		return 0, ErrEngineNotReady
	}
	if sessionID == "" {
		return 0, ErrSessionRequired
	}

	count, err := e.failures.FailureCount(ctx, sessionID)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return count, nil
}

// ResetFailures describes the resetfailures operation and its observable behavior.
//
// ResetFailures may return an error when input validation, dependency calls, or security checks fail.
// ResetFailures does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) ResetFailures(ctx context.Context, sessionID string) error {
	if e == nil || e.failures == nil {
		return ErrEngineNotReady
	}
	if sessionID == "" {
		return ErrSessionRequired
	}

	if err := e.failures.Reset(ctx, sessionID); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}
