package goShield

import "errors"

var (
	// ErrTokenMissing is an exported constant or variable used by the anti-forgery engine.
	ErrTokenMissing = errors.New("anti-forgery token missing")
	// ErrTokenExpired is an exported constant or variable used by the anti-forgery engine.
	ErrTokenExpired = errors.New("anti-forgery token expired")
	// ErrTokenInvalid is an exported constant or variable used by the anti-forgery engine.
	ErrTokenInvalid = errors.New("anti-forgery token invalid")
	// ErrTokenLocked is an exported constant or variable used by the anti-forgery engine.
	ErrTokenLocked = errors.New("anti-forgery validation locked")
	// ErrRateLimited is an exported constant or variable used by the anti-forgery engine.
	ErrRateLimited = errors.New("rate limited")
	// ErrStoreUnavailable is an exported constant or variable used by the anti-forgery engine.
	ErrStoreUnavailable = errors.New("shared store unavailable")
	// ErrSessionRequired is an exported constant or variable used by the anti-forgery engine.
	ErrSessionRequired = errors.New("session id required")
	// ErrEngineNotReady is an exported constant or variable used by the anti-forgery engine.
	ErrEngineNotReady = errors.New("engine not initialized")
)
