package model

import "errors"

// Sentinel error kinds shared by every layer of the coordinator. Callers
// compare against these with errors.Is; the facade wraps them with
// github.com/pkg/errors at the boundary where a stack trace is useful.
var (
	// ErrNotInitialized is returned when a facade method is called before
	// Initialize has bound a role policy and connection id.
	ErrNotInitialized = errors.New("coordinator: not initialized")

	// ErrNoTrack is returned when an operation requires a loaded track and
	// none is currently set.
	ErrNoTrack = errors.New("coordinator: no track loaded")

	// ErrBlocked is returned when the corresponding can_* advisory flag is
	// false. It never reflects an authoritative role check.
	ErrBlocked = errors.New("coordinator: operation blocked by policy")

	// ErrRoleDenied reports that the local sender lacks a role required to
	// emit an outbound event. The coordinator facade does not return it: a
	// failed local role check surfaces from the facade as ErrBlocked.
	ErrRoleDenied = errors.New("coordinator: role denied")
)

// TransportError wraps a failure returned by the underlying transport's
// Send. It is always comparable with errors.As.
type TransportError struct {
	Kind EventKind
	Err  error
}

func (e *TransportError) Error() string {
	return "transport: send " + string(e.Kind) + " failed: " + e.Err.Error()
}

func (e *TransportError) Unwrap() error { return e.Err }

// ProtocolError describes a malformed inbound event. It is always recovered
// locally by the receiver and never propagated to a facade caller.
type ProtocolError struct {
	Kind   EventKind
	Reason string
}

func (e *ProtocolError) Error() string {
	return "protocol: " + string(e.Kind) + ": " + e.Reason
}
