package eventchannel

import (
	"context"
	"encoding/json"

	"github.com/syncplay/coordinator/clock"
	"github.com/syncplay/coordinator/model"
)

// Handler receives one decoded inbound event.
type Handler func(ctx context.Context, ev model.TransportEvent)

// Channel is a typed publish/subscribe binding over a Transport: one
// Send method per wire kind (spec.md §6.1), one registered Handler per
// kind, every outgoing envelope stamped with (sender_id, timestamp) from
// the clock at send time (spec.md §4.1).
type Channel struct {
	transport Transport
	clock     clock.Clock
	senderID  string
	handlers  map[model.EventKind]Handler
}

// New creates a Channel that sends as senderID and stamps outgoing events
// using clk.
func New(transport Transport, clk clock.Clock, senderID string) *Channel {
	c := &Channel{
		transport: transport,
		clock:     clk,
		senderID:  senderID,
		handlers:  make(map[model.EventKind]Handler),
	}
	transport.Subscribe(c.dispatch)
	return c
}

// SenderID returns this channel's stamped sender id.
func (c *Channel) SenderID() string { return c.senderID }

// On registers the single receiver for a given inbound event kind,
// replacing any previously registered handler for that kind.
func (c *Channel) On(kind model.EventKind, h Handler) {
	c.handlers[kind] = h
}

func (c *Channel) dispatch(env Envelope) {
	h, ok := c.handlers[env.Name]
	if !ok {
		return
	}
	h(context.Background(), model.TransportEvent{
		Kind:      env.Name,
		Payload:   env.Data,
		SenderID:  env.ClientID,
		Timestamp: env.Timestamp,
	})
}

func (c *Channel) send(ctx context.Context, kind model.EventKind, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return &model.TransportError{Kind: kind, Err: err}
	}
	env := Envelope{
		ClientID:  c.senderID,
		Timestamp: c.clock.NowMillis(),
		Name:      kind,
		Data:      data,
	}
	if err := c.transport.Send(ctx, env); err != nil {
		return &model.TransportError{Kind: kind, Err: err}
	}
	return nil
}

// SendPlay publishes a play event.
func (c *Channel) SendPlay(ctx context.Context, p model.PlayPausePayload) error {
	return c.send(ctx, model.EventPlay, p)
}

// SendPause publishes a pause event.
func (c *Channel) SendPause(ctx context.Context, p model.PlayPausePayload) error {
	return c.send(ctx, model.EventPause, p)
}

// SendSeekTo publishes a seekTo event.
func (c *Channel) SendSeekTo(ctx context.Context, p model.PlayPausePayload) error {
	return c.send(ctx, model.EventSeekTo, p)
}

// SendSetTrack publishes a setTrack event.
func (c *Channel) SendSetTrack(ctx context.Context, p model.SetTrackPayload) error {
	return c.send(ctx, model.EventSetTrack, p)
}

// SendSetTrackData publishes a setTrackData event.
func (c *Channel) SendSetTrackData(ctx context.Context, p model.SetTrackDataPayload) error {
	return c.send(ctx, model.EventSetTrackData, p)
}

// SendPositionUpdate publishes a positionUpdate event.
func (c *Channel) SendPositionUpdate(ctx context.Context, p model.PositionUpdatePayload) error {
	return c.send(ctx, model.EventPositionUpdate, p)
}

// SendJoined publishes a joined event.
func (c *Channel) SendJoined(ctx context.Context) error {
	return c.send(ctx, model.EventJoined, struct{}{})
}
