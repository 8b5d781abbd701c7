// Package channel mints and verifies the signed second-channel token that
// binds an anti-forgery submission to its session, with strict validation
// semantics suitable for low-latency request paths.
package channel
