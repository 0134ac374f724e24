// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Failure taxonomy shared by the API client, cache, and command layers.
var (
	// ErrUnauthenticated indicates a missing or rejected credential.
	// The command layer clears the session when it sees this.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrValidation indicates client-side input validation failure.
	// Such errors never reach the network.
	ErrValidation = errors.New("validation failed")

	// ErrRejected indicates the server returned an error response.
	ErrRejected = errors.New("rejected by server")

	// ErrUnreachable indicates the request was sent but no response arrived.
	ErrUnreachable = errors.New("server unreachable")

	// ErrUnexpected covers everything else, including malformed responses.
	ErrUnexpected = errors.New("unexpected error")
)
