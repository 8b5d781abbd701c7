package internaldefs

import (
	goShield "github.com/MrEthical07/goShield"
)

// CounterDef defines a public type used by goShield APIs.
//
// CounterDef instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type CounterDef struct {
	ID   goShield.MetricID
	Name string
	Help string
}

// HistogramDef defines a public type used by goShield APIs.
//
// HistogramDef instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type HistogramDef struct {
	ID   goShield.MetricID
	Name string
	Help string
}

// CounterDefs is an exported constant or variable used by the protection engine.
var CounterDefs = []CounterDef{
	{ID: goShield.MetricTokenIssued, Name: "goshield_token_issued_total", Help: "Issued anti-forgery tokens."},
	{ID: goShield.MetricTokenRotated, Name: "goshield_token_rotated_total", Help: "Token rotation operations."},
	{ID: goShield.MetricValidateOK, Name: "goshield_validate_ok_total", Help: "Successful token validations."},
	{ID: goShield.MetricValidateMissing, Name: "goshield_validate_missing_total", Help: "Validations against unknown or evicted tokens."},
	{ID: goShield.MetricValidateExpired, Name: "goshield_validate_expired_total", Help: "Validations against expired tokens."},
	{ID: goShield.MetricValidateInvalid, Name: "goshield_validate_invalid_total", Help: "Validations rejected for bad token material."},
	{ID: goShield.MetricValidateLocked, Name: "goshield_validate_locked_total", Help: "Validations refused while the session was locked."},
	{ID: goShield.MetricSessionLocked, Name: "goshield_session_locked_total", Help: "Sessions locked by the failure limiter."},
	{ID: goShield.MetricRateLimited, Name: "goshield_rate_limited_total", Help: "Requests denied by rate limits."},
	{ID: goShield.MetricGuardAllowed, Name: "goshield_guard_allowed_total", Help: "Requests allowed by Authorize."},
	{ID: goShield.MetricGuardDenied, Name: "goshield_guard_denied_total", Help: "Requests denied by Authorize."},
	{ID: goShield.MetricChannelRejected, Name: "goshield_channel_rejected_total", Help: "Requests rejected by channel binding."},
	{ID: goShield.MetricStoreUnavailable, Name: "goshield_store_unavailable_total", Help: "Operations failed closed on store errors."},
	{ID: goShield.MetricSessionCleared, Name: "goshield_session_cleared_total", Help: "Session teardown operations."},
	{ID: goShield.MetricIssuanceDegraded, Name: "goshield_issuance_degraded_total", Help: "Unpersisted tokens issued under the fail-open policy."},
}

// HistogramDefs is an exported constant or variable used by the protection engine.
var HistogramDefs = []HistogramDef{
	{ID: goShield.MetricValidateLatency, Name: "goshield_validate_latency_seconds", Help: "Validate latency histogram."},
	{ID: goShield.MetricAuthorizeLatency, Name: "goshield_authorize_latency_seconds", Help: "Authorize latency histogram."},
}

// HistogramBounds is an exported constant or variable used by the protection engine.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix is an exported constant or variable used by the protection engine.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets describes the normalizebuckets operation and its observable behavior.
//
// NormalizeBuckets may return an error when input validation, dependency calls, or security checks fail.
// NormalizeBuckets does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets describes the cumulativebuckets operation and its observable behavior.
//
// CumulativeBuckets may return an error when input validation, dependency calls, or security checks fail.
// CumulativeBuckets does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
