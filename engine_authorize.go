package goShield

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

func rateIdentity(req Request) string {
	if req.SessionID != "" {
		return "s:" + req.SessionID
	}
	if req.ClientIP != "" {
		return "ip:" + req.ClientIP
	}
	return "anon"
}

func (e *Engine) isSafeMethod(method string) bool {
	for _, m := range e.config.Guard.SafeMethods {
		if strings.EqualFold(m, method) {
			return true
		}
	}
	return false
}

func denyReasonFor(err error) DenyReason {
	switch {
	case err == nil:
		return DenyNone
	case errors.Is(err, ErrRateLimited):
		return DenyRateLimited
	case errors.Is(err, ErrTokenMissing), errors.Is(err, ErrSessionRequired):
		return DenyTokenMissing
	case errors.Is(err, ErrTokenExpired):
		return DenyTokenExpired
	case errors.Is(err, ErrTokenInvalid):
		return DenyTokenInvalid
	case errors.Is(err, ErrTokenLocked):
		return DenyLocked
	default:
		return DenyStoreUnavailable
	}
}

// Authorize describes the authorize operation and its observable behavior.
//
// Authorize may return an error when input validation, dependency calls, or security checks fail.
// Authorize does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Authorize(ctx context.Context, req Request) (Decision, error) {
	if e == nil || e.tokens == nil || e.rate == nil {
		return Decision{Reason: DenyStoreUnavailable}, ErrEngineNotReady
	}

	start := time.Now()
	defer func() {
		e.metricObserve(MetricAuthorizeLatency, time.Since(start))
	}()

	if req.ClientIP != "" && clientIPFromContext(ctx) == "" {
		ctx = WithClientIP(ctx, req.ClientIP)
	}

	identity := rateIdentity(req)

	res, err := e.rate.Check(ctx, "g:"+identity, e.config.Rate.GlobalLimit, e.config.Rate.GlobalWindow)
	if err != nil {
		return e.denyUnavailable(err)
	}
	if !res.Allowed {
		e.emitRateLimit(ctx, "global", req.SessionID, req.Route, nil)
		e.metricInc(MetricGuardDenied)
		return Decision{Reason: DenyRateLimited, RetryAfter: res.RetryAfter}, ErrRateLimited
	}

	if e.isSafeMethod(req.Method) {
		return e.authorizeSafe(ctx, req)
	}
	return e.authorizeUnsafe(ctx, req, identity)
}

func (e *Engine) authorizeSafe(ctx context.Context, req Request) (Decision, error) {
	// Anonymous safe traffic gets no token work; tokens bind to sessions.
	if req.SessionID == "" {
		e.metricInc(MetricGuardAllowed)
		return Decision{Allowed: true}, nil
	}

	token, issued, err := e.EnsureToken(ctx, req.SessionID)
	if err != nil {
		e.metricInc(MetricGuardDenied)
		return Decision{Reason: denyReasonFor(err)}, err
	}

	e.metricInc(MetricGuardAllowed)

	decision := Decision{Allowed: true}
	if issued {
		decision.NewToken = token
	}
	return decision, nil
}

func (e *Engine) authorizeUnsafe(ctx context.Context, req Request, identity string) (Decision, error) {
	if req.Route != "" {
		if rl, ok := e.config.Rate.Routes[req.Route]; ok {
			res, err := e.rate.Check(ctx, "r:"+req.Route+":"+identity, rl.Limit, rl.Window)
			if err != nil {
				return e.denyUnavailable(err)
			}
			if !res.Allowed {
				e.emitRateLimit(ctx, "route", req.SessionID, req.Route, nil)
				e.metricInc(MetricGuardDenied)
				return Decision{Reason: DenyRateLimited, RetryAfter: res.RetryAfter}, ErrRateLimited
			}
		}
	}

	// Without a session no stored token can match; deny the same way a
	// missing token is denied.
	if req.SessionID == "" {
		e.metricInc(MetricGuardDenied)
		return Decision{Reason: DenyTokenMissing}, e.rejectMissing(ctx, req)
	}

	if err := e.validate(ctx, req, e.channel != nil); err != nil {
		e.metricInc(MetricGuardDenied)
		return Decision{Reason: denyReasonFor(err)}, err
	}

	e.metricInc(MetricGuardAllowed)

	if e.config.Tokens.SingleUse {
		// The consumed token is gone; hand the client its replacement in
		// the same response.
		token, err := e.IssueToken(ctx, req.SessionID)
		if err != nil {
			e.logger.Warn().Err(err).Msg("replacement token issuance failed")
			return Decision{Allowed: true}, nil
		}
		return Decision{Allowed: true, NewToken: token}, nil
	}

	return Decision{Allowed: true}, nil
}

func (e *Engine) denyUnavailable(cause error) (Decision, error) {
	e.metricInc(MetricStoreUnavailable)
	e.metricInc(MetricGuardDenied)
	return Decision{Reason: DenyStoreUnavailable}, fmt.Errorf("%w: %v", ErrStoreUnavailable, cause)
}

// CheckRate describes the checkrate operation and its observable behavior.
//
// CheckRate may return an error when input validation, dependency calls, or security checks fail.
// CheckRate does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) CheckRate(ctx context.Context, req Request) (Decision, error) {
	if e == nil || e.rate == nil {
		return Decision{Reason: DenyStoreUnavailable}, ErrEngineNotReady
	}

	identity := rateIdentity(req)

	res, err := e.rate.Check(ctx, "g:"+identity, e.config.Rate.GlobalLimit, e.config.Rate.GlobalWindow)
	if err != nil {
		return e.denyUnavailable(err)
	}
	if !res.Allowed {
		e.emitRateLimit(ctx, "global", req.SessionID, req.Route, nil)
		return Decision{Reason: DenyRateLimited, RetryAfter: res.RetryAfter}, ErrRateLimited
	}

	if req.Route != "" {
		if rl, ok := e.config.Rate.Routes[req.Route]; ok {
			res, err := e.rate.Check(ctx, "r:"+req.Route+":"+identity, rl.Limit, rl.Window)
			if err != nil {
				return e.denyUnavailable(err)
			}
			if !res.Allowed {
				e.emitRateLimit(ctx, "route", req.SessionID, req.Route, nil)
				return Decision{Reason: DenyRateLimited, RetryAfter: res.RetryAfter}, ErrRateLimited
			}
		}
	}

	return Decision{Allowed: true}, nil
}
