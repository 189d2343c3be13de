package eventchannel

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/syncplay/coordinator/model"
	"github.com/syncplay/coordinator/rolegate"
)

var roleDeniedTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "coordinator_role_denied_total",
	Help: "Inbound transport events dropped by a role-gated scope.",
})

// Scope wraps a Channel's inbound registration with a role check (spec.md
// §4.1's restricted vs unrestricted event scopes). A RestrictedScope checks
// its own fixed connID against the required roles each time an inbound
// event arrives and drops the event before the registered Handler runs if
// that connection lacks them; the event's SenderID is not checked. An
// UnrestrictedScope never checks and behaves like calling Channel.On
// directly.
type Scope struct {
	channel  *Channel
	gate     *rolegate.Gate
	connID   string
	required []string
}

// RestrictedScope returns a Scope that dispatches inbound events (from any
// sender) only while gate.Allows reports that connID holds one of required.
func RestrictedScope(channel *Channel, gate *rolegate.Gate, connID string, required []string) *Scope {
	return &Scope{channel: channel, gate: gate, connID: connID, required: required}
}

// UnrestrictedScope returns a Scope with no role requirement.
func UnrestrictedScope(channel *Channel) *Scope {
	return &Scope{channel: channel}
}

// On registers h for kind, subject to this scope's role check. A denied
// event is dropped silently (from the sender's perspective) and counted via
// coordinator_role_denied_total.
func (s *Scope) On(kind model.EventKind, h Handler) {
	if s.gate == nil {
		s.channel.On(kind, h)
		return
	}
	s.channel.On(kind, func(ctx context.Context, ev model.TransportEvent) {
		allowed, err := s.gate.Allows(ctx, s.connID, s.required)
		if err != nil || !allowed {
			roleDeniedTotal.Inc()
			return
		}
		h(ctx, ev)
	})
}
