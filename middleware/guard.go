package middleware

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"time"

	goShield "github.com/MrEthical07/goShield"
)

type decisionContextKey struct{}

// DecisionFromContext returns the authorization decision [Protect] recorded
// for the current request.
func DecisionFromContext(ctx context.Context) (*goShield.Decision, bool) {
	d, ok := ctx.Value(decisionContextKey{}).(*goShield.Decision)
	return d, ok
}

// Protect wraps a handler with the full request gate: rate limits, lock
// state, and anti-forgery validation via [goShield.Engine.Authorize]. Safe
// methods pass through with token issuance; unsafe methods must present a
// valid submission. Denials get uniform bodies so rejection classes are not
// distinguishable from outside.
func Protect(engine *goShield.Engine, session SessionFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				http.Error(w, "service unavailable", http.StatusServiceUnavailable)
				return
			}

			profile := engine.ChannelProfile()
			req := goShield.Request{
				ClientIP: clientIP(r),
				Route:    r.URL.Path,
				Method:   r.Method,
			}
			if session != nil {
				req.SessionID = session(r)
			}
			req.Submission = readSubmission(r, profile)
			if profile.Enabled && profile.CookieName != "" {
				if c, err := r.Cookie(profile.CookieName); err == nil {
					req.ChannelToken = c.Value
				}
			}

			decision, err := engine.Authorize(r.Context(), req)
			if err != nil || !decision.Allowed {
				writeDenial(w, decision)
				return
			}

			if decision.NewToken != nil {
				writeIssued(w, profile, decision.NewToken)
			}

			ctx := context.WithValue(r.Context(), decisionContextKey{}, &decision)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// readSubmission prefers the header carrier; the form field is the fallback
// for plain HTML posts. Query parameters are never read so tokens cannot
// leak into URLs and logs.
func readSubmission(r *http.Request, profile goShield.ChannelConfig) string {
	if profile.HeaderName != "" {
		if v := r.Header.Get(profile.HeaderName); v != "" {
			return v
		}
	}
	if profile.FormField != "" {
		if v := r.PostFormValue(profile.FormField); v != "" {
			return v
		}
	}
	return ""
}

func writeIssued(w http.ResponseWriter, profile goShield.ChannelConfig, token *goShield.IssuedToken) {
	if profile.HeaderName != "" {
		w.Header().Set(profile.HeaderName, token.Submission)
	}
	if profile.Enabled && token.ChannelToken != "" {
		http.SetCookie(w, &http.Cookie{
			Name:     profile.CookieName,
			Value:    token.ChannelToken,
			Path:     "/",
			MaxAge:   int(profile.TTL / time.Second),
			HttpOnly: true,
			Secure:   profile.RequireSecureCookies,
			SameSite: profile.SameSitePolicy,
		})
	}
}

func writeDenial(w http.ResponseWriter, decision goShield.Decision) {
	switch decision.Reason {
	case goShield.DenyRateLimited:
		if decision.RetryAfter > 0 {
			w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds(decision.RetryAfter)))
		}
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	case goShield.DenyStoreUnavailable:
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
	default:
		http.Error(w, "forbidden", http.StatusForbidden)
	}
}

// retryAfterSeconds rounds up so a sub-second remainder still tells the
// client to wait.
func retryAfterSeconds(d time.Duration) int {
	secs := int((d + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return secs
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
