// Package eventchannel is a typed publish/subscribe layer over the
// broadcast transport (spec.md §4.1), restructuring the teacher's
// string-keyed WSMessage{Type, Action, Payload} dispatch (hub.go's
// HandleMessage switch) into a statically typed subscription table per
// spec.md §9's design note: "Event-emitter pattern → typed subscription
// map."
package eventchannel

import (
	"context"
	"encoding/json"

	"github.com/syncplay/coordinator/model"
)

// Envelope is the wire frame every event is carried in (spec.md §6.1):
// {clientId, timestamp, name, data}.
type Envelope struct {
	ClientID  string          `json:"clientId"`
	Timestamp int64           `json:"timestamp"`
	Name      model.EventKind `json:"name"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// Transport is the out-of-scope broadcast collaborator (spec.md §1): it
// delivers signed, timestamped envelopes to every peer. Send publishes
// one outbound envelope; Subscribe registers the single receiver that
// every inbound envelope (from any peer, including echoes of our own
// sends) is dispatched to.
type Transport interface {
	Send(ctx context.Context, env Envelope) error
	Subscribe(handler func(Envelope))
}
