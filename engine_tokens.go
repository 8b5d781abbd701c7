package goShield

import (
	"context"
	"encoding/base64"
	"fmt"
	"strconv"
	"time"

	"github.com/MrEthical07/goShield/internal"
	"github.com/MrEthical07/goShield/internal/stores"
)

func (e *Engine) mintToken(sessionID string) (*IssuedToken, stores.TokenEntry, error) {
	id, err := internal.NewTokenID()
	if err != nil {
		return nil, stores.TokenEntry{}, fmt.Errorf("token material: %v", err)
	}
	secret, err := internal.NewTokenSecret()
	if err != nil {
		return nil, stores.TokenEntry{}, fmt.Errorf("token material: %v", err)
	}

	now := time.Now()
	expiresAt := now.Add(e.config.Tokens.TTL)

	entry := stores.TokenEntry{
		ID:        id,
		MAC:       internal.ComputeMAC(e.macKey[:], secret),
		CreatedAt: now.UnixMilli(),
		ExpiresAt: expiresAt.UnixMilli(),
		SingleUse: e.config.Tokens.SingleUse,
	}

	submission, err := internal.EncodeSubmission(id.String(), secret)
	if err != nil {
		return nil, stores.TokenEntry{}, fmt.Errorf("token material: %v", err)
	}

	token := &IssuedToken{
		ID:         id.String(),
		Secret:     base64.RawURLEncoding.EncodeToString(secret[:]),
		Submission: submission,
		CreatedAt:  now,
		ExpiresAt:  expiresAt,
		SingleUse:  entry.SingleUse,
		Persisted:  true,
	}

	if e.channel != nil {
		channelToken, err := e.channel.Mint(sessionID)
		if err != nil {
			return nil, stores.TokenEntry{}, fmt.Errorf("channel token: %v", err)
		}
		token.ChannelToken = channelToken
	}

	return token, entry, nil
}

func (e *Engine) issueFailed(ctx context.Context, sessionID string, token *IssuedToken, cause error) (*IssuedToken, error) {
	if e.config.Tokens.IssuancePolicy == IssueFailOpen {
		e.metricInc(MetricIssuanceDegraded)
		e.logger.Warn().Err(cause).Msg("anti-forgery store write failed, issuing unpersisted token")
		e.emitAudit(ctx, auditEventIssuanceDegraded, true, sessionID, "", ErrStoreUnavailable, nil)
		token.Persisted = false
		return token, nil
	}

	e.metricInc(MetricStoreUnavailable)
	e.emitAudit(ctx, auditEventTokenIssued, false, sessionID, "", ErrStoreUnavailable, nil)
	return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, cause)
}

// IssueToken describes the issuetoken operation and its observable behavior.
//
// IssueToken may return an error when input validation, dependency calls, or security checks fail.
// IssueToken does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) IssueToken(ctx context.Context, sessionID string) (*IssuedToken, error) {
	if e == nil || e.tokens == nil {
		return nil, ErrEngineNotReady
	}
	if sessionID == "" {
		return nil, ErrSessionRequired
	}

	token, entry, err := e.mintToken(sessionID)
	if err != nil {
		return nil, err
	}

	evicted, err := e.tokens.Insert(ctx, sessionID, entry)
	if err != nil {
		return e.issueFailed(ctx, sessionID, token, err)
	}

	e.metricInc(MetricTokenIssued)
	e.emitAudit(ctx, auditEventTokenIssued, true, sessionID, "", nil, func() map[string]string {
		if len(evicted) == 0 {
			return nil
		}
		return map[string]string{"evicted": strconv.Itoa(len(evicted))}
	})

	return token, nil
}

// RotateToken describes the rotatetoken operation and its observable behavior.
//
// RotateToken may return an error when input validation, dependency calls, or security checks fail.
// RotateToken does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) RotateToken(ctx context.Context, sessionID string) (*IssuedToken, error) {
	if e == nil || e.tokens == nil {
		return nil, ErrEngineNotReady
	}
	if sessionID == "" {
		return nil, ErrSessionRequired
	}

	token, entry, err := e.mintToken(sessionID)
	if err != nil {
		return nil, err
	}

	// Rotation promises that earlier tokens stop validating, so a failed
	// replace never degrades to an unpersisted token.
	if err := e.tokens.Replace(ctx, sessionID, entry); err != nil {
		e.metricInc(MetricStoreUnavailable)
		e.emitAudit(ctx, auditEventTokenRotated, false, sessionID, "", ErrStoreUnavailable, nil)
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	e.metricInc(MetricTokenRotated)
	e.emitAudit(ctx, auditEventTokenRotated, true, sessionID, "", nil, nil)

	return token, nil
}

// EnsureToken describes the ensuretoken operation and its observable behavior.
//
// EnsureToken may return an error when input validation, dependency calls, or security checks fail.
// EnsureToken does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) EnsureToken(ctx context.Context, sessionID string) (*IssuedToken, bool, error) {
	if e == nil || e.tokens == nil {
		return nil, false, ErrEngineNotReady
	}
	if sessionID == "" {
		return nil, false, ErrSessionRequired
	}

	live, err := e.tokens.Live(ctx, sessionID)
	if err != nil && e.config.Tokens.IssuancePolicy != IssueFailOpen {
		e.metricInc(MetricStoreUnavailable)
		return nil, false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if err == nil && live > 0 {
		return nil, false, nil
	}

	token, err := e.IssueToken(ctx, sessionID)
	if err != nil {
		return nil, false, err
	}
	return token, true, nil
}

// LiveTokenCount describes the livetokencount operation and its observable behavior.
//
// LiveTokenCount may return an error when input validation, dependency calls, or security checks fail.
// LiveTokenCount does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) LiveTokenCount(ctx context.Context, sessionID string) (int, error) {
	if e == nil || e.tokens == nil {
		return 0, ErrEngineNotReady
	}
	if sessionID == "" {
		return 0, ErrSessionRequired
	}

	live, err := e.tokens.Live(ctx, sessionID)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return live, nil
}

// OnSessionDestroyed describes the onsessiondestroyed operation and its observable behavior.
//
// OnSessionDestroyed may return an error when input validation, dependency calls, or security checks fail.
// OnSessionDestroyed does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) OnSessionDestroyed(ctx context.Context, sessionID string) error {
	if e == nil || e.tokens == nil {
		return ErrEngineNotReady
	}
	if sessionID == "" {
		return ErrSessionRequired
	}

	if err := e.tokens.Clear(ctx, sessionID); err != nil {
		e.metricInc(MetricStoreUnavailable)
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if err := e.failures.Reset(ctx, sessionID); err != nil {
		e.metricInc(MetricStoreUnavailable)
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	e.metricInc(MetricSessionCleared)
	e.emitAudit(ctx, auditEventSessionCleared, true, sessionID, "", nil, nil)

	return nil
}
