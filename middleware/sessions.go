package middleware

import "net/http"

// SessionFunc extracts the caller's session identifier from a request. An
// empty return treats the request as anonymous: safe methods pass without
// token work, unsafe methods are denied.
type SessionFunc func(r *http.Request) string

// SessionFromCookie returns a [SessionFunc] that reads the named cookie.
func SessionFromCookie(name string) SessionFunc {
	return func(r *http.Request) string {
		c, err := r.Cookie(name)
		if err != nil {
			return ""
		}
		return c.Value
	}
}

// SessionFromHeader returns a [SessionFunc] that reads the named header.
func SessionFromHeader(name string) SessionFunc {
	return func(r *http.Request) string {
		return r.Header.Get(name)
	}
}
