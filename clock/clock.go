// Package clock provides the monotonic reference-time source every peer's
// coordinator treats as authoritative (spec.md §3), plus correlation id
// generation for log tracing — never used for group-state ordering, which
// is always (timestamp, sender id) from the reference clock.
package clock

import (
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Clock returns the current reference timestamp in integer milliseconds.
type Clock interface {
	NowMillis() int64
}

// System is the production Clock, backed by time.Now(). All peers in a
// session are assumed to run against clocks close enough together that
// ordering by timestamp is meaningful; the coordinator never assumes
// wall-clock agreement beyond what spec.md §3 requires.
type System struct{}

// NowMillis implements Clock.
func (System) NowMillis() int64 { return time.Now().UnixMilli() }

const correlationIDAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// NewCorrelationID generates a short, URL-safe id for tagging a batch of
// log lines that belong to the same inbound event, independent of the
// group-state ordering clock.
func NewCorrelationID() string {
	id, err := gonanoid.Generate(correlationIDAlphabet, 12)
	if err != nil {
		// gonanoid only fails on a bad alphabet/length, both fixed above.
		return "unknown"
	}
	return id
}
