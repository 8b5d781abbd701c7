package goShield

import "time"

// IssuancePolicy selects how token issuance behaves when the shared store is
// unreachable.
type IssuancePolicy uint8

const (
	// IssueFailClosed is an exported constant or variable used by the anti-forgery engine.
	IssueFailClosed IssuancePolicy = iota
	// IssueFailOpen is an exported constant or variable used by the anti-forgery engine.
	IssueFailOpen
)

// DenyReason classifies why the gateway refused a request. The zero value
// means the request was not denied.
type DenyReason uint8

const (
	// DenyNone is an exported constant or variable used by the anti-forgery engine.
	DenyNone DenyReason = iota
	// DenyRateLimited is an exported constant or variable used by the anti-forgery engine.
	DenyRateLimited
	// DenyTokenMissing is an exported constant or variable used by the anti-forgery engine.
	DenyTokenMissing
	// DenyTokenExpired is an exported constant or variable used by the anti-forgery engine.
	DenyTokenExpired
	// DenyTokenInvalid is an exported constant or variable used by the anti-forgery engine.
	DenyTokenInvalid
	// DenyLocked is an exported constant or variable used by the anti-forgery engine.
	DenyLocked
	// DenyStoreUnavailable is an exported constant or variable used by the anti-forgery engine.
	DenyStoreUnavailable
)

// String returns the audit-stable name of the reason.
func (r DenyReason) String() string {
	switch r {
	case DenyNone:
		return "none"
	case DenyRateLimited:
		return "rate_limited"
	case DenyTokenMissing:
		return "token_missing"
	case DenyTokenExpired:
		return "token_expired"
	case DenyTokenInvalid:
		return "token_invalid"
	case DenyLocked:
		return "locked"
	case DenyStoreUnavailable:
		return "store_unavailable"
	default:
		return "unknown"
	}
}

// IssuedToken carries the freshly generated token material back to the
// caller. The secret value exists only here; the store keeps its MAC.
type IssuedToken struct {
	ID           string
	Secret       string
	Submission   string
	ChannelToken string
	CreatedAt    time.Time
	ExpiresAt    time.Time
	SingleUse    bool

	// Persisted is false only for tokens minted under [IssueFailOpen] while
	// the store was down; such tokens can never validate.
	Persisted bool
}

// Request is the gateway input for [Engine.Authorize]. TokenID and
// TokenValue may be left empty when Submission carries the combined
// encoding.
type Request struct {
	SessionID    string
	ClientIP     string
	Route        string
	Method       string
	TokenID      string
	TokenValue   string
	Submission   string
	ChannelToken string
}

// Decision is returned by [Engine.Authorize].
type Decision struct {
	Allowed    bool
	Reason     DenyReason
	RetryAfter time.Duration

	// NewToken is set when a safe request caused a fresh token to be issued
	// for the session.
	NewToken *IssuedToken
}

// RouteLimit overrides the global request budget for one route class.
type RouteLimit struct {
	Limit  int
	Window time.Duration
}

// SecurityReport is a read-only snapshot of the engine's protection posture,
// returned by [Engine.SecurityReport].
type SecurityReport struct {
	TokenTTL            time.Duration
	MaxTokensPerSession int
	SingleUse           bool
	IssuancePolicy      IssuancePolicy
	ChannelBindingOn    bool
	LockThreshold       int
	LockWindow          time.Duration
	GlobalRateLimit     int
	GlobalRateWindow    time.Duration
	RouteOverrides      int
	AuditEnabled        bool
	MetricsEnabled      bool
}
