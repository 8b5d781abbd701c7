// Package middleware exposes the HTTP adapter for goShield.Engine: a single
// wrapper that enforces rate limits and anti-forgery validation per request.
//
// # Guard
//
//   - [Protect] wraps a handler, classifies the method, and delegates the
//     decision to Engine.Authorize.
//   - [SessionFromCookie] and [SessionFromHeader] build the session extractor
//     for the host application's session scheme.
//   - [DecisionFromContext] recovers the recorded decision downstream.
//
// The submission travels in the configured header with a form-field fallback;
// the signed channel token travels in a server-controlled cookie that the
// wrapper sets whenever the engine issues a token. Denials map to 403, rate
// limits to 429 with Retry-After, store outages to 503, each with a uniform
// body.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. It does NOT
// implement protection logic itself; all decisions are delegated to
// Engine.Authorize.
//
// # What this package must NOT do
//
//   - Mint, parse, or compare tokens directly (delegates to Engine).
//   - Access Redis (Engine handles I/O).
//   - Vary denial bodies by rejection class.
package middleware
