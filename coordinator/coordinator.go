// Package coordinator implements the session facade (spec.md §4.5): the
// single public surface a host application drives to issue playback
// commands and to receive the group-decided local actions. It owns no
// transport or storage of its own; it wires a groupstate.State, a
// suspension.Manager, a rolegate.Gate and a player.Binding together and
// is meant to be driven from exactly one goroutine per session (spec.md
// §5), matching the teacher's one-hub-per-LiveSession actor model.
package coordinator

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/syncplay/coordinator/clock"
	"github.com/syncplay/coordinator/eventchannel"
	"github.com/syncplay/coordinator/groupstate"
	"github.com/syncplay/coordinator/log"
	"github.com/syncplay/coordinator/model"
	"github.com/syncplay/coordinator/player"
	"github.com/syncplay/coordinator/position"
	"github.com/syncplay/coordinator/rolegate"
	"github.com/syncplay/coordinator/suspension"
)

// Facade is the coordinator's public API (spec.md §4.5). Zero value is not
// usable; construct with New.
type Facade struct {
	clk      clock.Clock
	channel  *eventchannel.Channel
	state    *groupstate.State
	suspend  *suspension.Manager
	player   player.Binding
	gate     *rolegate.Gate
	required []string

	initialized bool
	connID      string
}

// New creates a Facade. required is the set of roles a connection must
// hold to drive playback (spec.md §6.3's allowedTransportRoles); an empty
// set means unrestricted.
func New(clk clock.Clock, channel *eventchannel.Channel, state *groupstate.State, suspend *suspension.Manager, p player.Binding, gate *rolegate.Gate, required []string) *Facade {
	return &Facade{
		clk:      clk,
		channel:  channel,
		state:    state,
		suspend:  suspend,
		player:   p,
		gate:     gate,
		required: required,
	}
}

// Initialize binds connID as the local connection identity used for role
// checks, and registers the channel handlers that drive the state machine
// from inbound events. It is idempotent.
func (f *Facade) Initialize(connID string) error {
	if f.initialized {
		return nil
	}
	f.connID = connID
	f.state.SetLocalRoleGate(func() bool {
		allowed, err := f.gate.Allows(context.Background(), f.connID, f.required)
		return err == nil && allowed
	})

	f.channel.On(model.EventPlay, f.onCommand(model.EventPlay))
	f.channel.On(model.EventPause, f.onCommand(model.EventPause))
	f.channel.On(model.EventSeekTo, f.onCommand(model.EventSeekTo))
	f.channel.On(model.EventSetTrack, f.onSetTrack)
	f.channel.On(model.EventSetTrackData, f.onSetTrackData)
	f.channel.On(model.EventPositionUpdate, f.onPositionUpdate)
	f.channel.On(model.EventJoined, f.onJoined)

	f.initialized = true
	return nil
}

// IsInitialized reports whether Initialize has run.
func (f *Facade) IsInitialized() bool { return f.initialized }

// IsSuspended reports the local detachment flag.
func (f *Facade) IsSuspended() bool { return f.state.IsSuspended() }

// CanPlayPause, CanSeek, CanSetTrack and CanSetTrackData are advisory: they
// report whether the local role currently permits sending the
// corresponding command. They are never authoritative — a send can still
// be dropped by the role gate between the check and the send.
func (f *Facade) CanPlayPause(ctx context.Context) bool    { return f.roleAllows(ctx) }
func (f *Facade) CanSeek(ctx context.Context) bool         { return f.roleAllows(ctx) }
func (f *Facade) CanSetTrack(ctx context.Context) bool     { return f.roleAllows(ctx) }
func (f *Facade) CanSetTrackData(ctx context.Context) bool { return f.roleAllows(ctx) }

func (f *Facade) roleAllows(ctx context.Context) bool {
	allowed, err := f.gate.Allows(ctx, f.connID, f.required)
	return err == nil && allowed
}

func (f *Facade) precheck(requireTrack bool) error {
	if !f.initialized {
		return errors.WithStack(model.ErrNotInitialized)
	}
	if requireTrack && f.state.CurrentTrack() == nil {
		return errors.WithStack(model.ErrNoTrack)
	}
	return nil
}

// Play issues a play command at the local peer's current projected position.
func (f *Facade) Play(ctx context.Context) error {
	if err := f.precheck(true); err != nil {
		return err
	}
	if !f.CanPlayPause(ctx) {
		return errors.WithStack(model.ErrBlocked)
	}
	pos := position.Project(f.state.LocalRecord(), f.clk.NowMillis())
	payload := model.PlayPausePayload{Track: f.state.CurrentTrack(), Position: pos}
	if err := f.channel.SendPlay(ctx, payload); err != nil {
		return errors.Wrap(err, "coordinator: play")
	}
	return nil
}

// Pause issues a pause command at the local peer's current projected position.
func (f *Facade) Pause(ctx context.Context) error {
	if err := f.precheck(true); err != nil {
		return err
	}
	if !f.CanPlayPause(ctx) {
		return errors.WithStack(model.ErrBlocked)
	}
	pos := position.Project(f.state.LocalRecord(), f.clk.NowMillis())
	payload := model.PlayPausePayload{Track: f.state.CurrentTrack(), Position: pos}
	if err := f.channel.SendPause(ctx, payload); err != nil {
		return errors.Wrap(err, "coordinator: pause")
	}
	return nil
}

// SeekTo issues a seekTo command to t seconds. If the send fails, the local
// player is reconciled back to the group's last-known state (spec.md §7:
// "a failed seek_to triggers an automatic sync_local") before the error is
// returned.
func (f *Facade) SeekTo(ctx context.Context, t float64) error {
	if err := f.precheck(true); err != nil {
		return err
	}
	if !f.CanSeek(ctx) {
		return errors.WithStack(model.ErrBlocked)
	}
	payload := model.PlayPausePayload{Track: f.state.CurrentTrack(), Position: t}
	if err := f.channel.SendSeekTo(ctx, payload); err != nil {
		f.syncLocal()
		return errors.Wrap(err, "coordinator: seek_to")
	}
	return nil
}

// SetTrack issues a setTrack command. metadata nil clears the current
// track.
func (f *Facade) SetTrack(ctx context.Context, metadata *model.Track, waitPoints []model.WaitPoint) error {
	if !f.initialized {
		return errors.WithStack(model.ErrNotInitialized)
	}
	if !f.CanSetTrack(ctx) {
		return errors.WithStack(model.ErrBlocked)
	}
	payload := model.SetTrackPayload{Metadata: metadata, WaitPoints: waitPoints}
	if err := f.channel.SendSetTrack(ctx, payload); err != nil {
		return errors.Wrap(err, "coordinator: set_track")
	}
	return nil
}

// SetTrackData issues a setTrackData command.
func (f *Facade) SetTrackData(ctx context.Context, data map[string]any) error {
	if err := f.precheck(true); err != nil {
		return err
	}
	if !f.CanSetTrackData(ctx) {
		return errors.WithStack(model.ErrBlocked)
	}
	payload := model.SetTrackDataPayload{Data: data}
	if err := f.channel.SendSetTrackData(ctx, payload); err != nil {
		return errors.Wrap(err, "coordinator: set_track_data")
	}
	return nil
}

// BeginSuspension detaches the local peer from group synchronization
// (spec.md §4.4). If wp is non-nil it is broadcast as a dynamic wait
// point on a best-effort basis: a failed broadcast does not fail the call,
// since the suspension itself is purely local state.
func (f *Facade) BeginSuspension(ctx context.Context, wp *model.WaitPoint) (*suspension.Handle, error) {
	if !f.initialized {
		return nil, errors.WithStack(model.ErrNotInitialized)
	}
	handle := f.suspend.Begin(wp)
	if wp != nil {
		local := f.state.LocalRecord()
		payload := model.PositionUpdatePayload{
			PlaybackState: model.PlaybackWaiting,
			Position:      position.Project(local, f.clk.NowMillis()),
			WaitPoint:     wp,
		}
		if err := f.channel.SendPositionUpdate(ctx, payload); err != nil {
			log.Warn(ctx, "begin_suspension: broadcast of dynamic wait point failed", "error", err)
		}
	}
	return handle, nil
}

// EndSuspension releases a suspension handle and applies whatever
// reconciliation action it produces to the local player.
func (f *Facade) EndSuspension(handle *suspension.Handle, resumePosition *float64) error {
	if !f.initialized {
		return errors.WithStack(model.ErrNotInitialized)
	}
	f.applyActions(handle.End(f.clk.NowMillis(), resumePosition))
	return nil
}

// Tick samples the local player, folds the sample into the group state,
// applies any resulting actions, and broadcasts a position_update if the
// local role currently permits sending. It is meant to be called
// periodically by the host's per-session actor at the configured
// positionUpdateInterval (spec.md §4.5).
func (f *Facade) Tick(ctx context.Context) error {
	if !f.initialized {
		return errors.WithStack(model.ErrNotInitialized)
	}
	now := f.clk.NowMillis()
	ps := f.player.GetState()

	var reachedWP *model.WaitPoint
	if ps.PositionState != nil {
		if wp, ok := f.state.Track().FindWaitPointAt(ps.PositionState.Position); ok && !f.state.Track().IsConsumed(wp.Position) {
			cp := wp
			reachedWP = &cp
			ps.PlaybackState = model.PlaybackWaiting
		}
	}

	f.state.RecordLocalPlayerState(ps, now)
	f.applyActions(f.state.Recompute(now))
	f.applyActions(f.suspend.FlushPendingResume(now))

	payload := model.PositionUpdatePayload{
		PlaybackState: ps.PlaybackState,
		TrackData:     f.state.TrackData(),
		WaitPoint:     reachedWP,
	}
	if ps.PositionState != nil {
		payload.Position = ps.PositionState.Position
		payload.PlaybackRate = ps.PositionState.PlaybackRate
	}

	if !f.roleAllows(ctx) {
		return nil
	}
	if err := f.channel.SendPositionUpdate(ctx, payload); err != nil {
		log.Warn(ctx, "position_update broadcast failed", "error", err)
	}
	return nil
}

func (f *Facade) syncLocal() {
	f.applyActions([]groupstate.Action{f.state.SyncLocalAction(f.clk.NowMillis())})
}

func (f *Facade) applyActions(actions []groupstate.Action) {
	for _, a := range actions {
		f.applyAction(a)
	}
}

func (f *Facade) applyAction(a groupstate.Action) {
	switch a.Kind {
	case groupstate.ActionNone:
	case groupstate.ActionPlay:
		f.player.OnPlay(a.Position)
	case groupstate.ActionPause:
		f.player.OnPause(a.Position)
	case groupstate.ActionSeek:
		f.player.OnSeek(a.Position)
	case groupstate.ActionCatchup:
		f.player.OnCatchup(a.Position)
	case groupstate.ActionLoadTrack:
		f.player.OnLoadTrack(a.Track)
	case groupstate.ActionTrackDataChanged:
		f.player.OnTrackData(a.TrackData)
	case groupstate.ActionSyncLocal:
		if a.Track != nil && !model.SameTrack(a.Track, f.player.GetState().Metadata) {
			f.player.OnLoadTrack(a.Track)
		}
		f.player.OnSeek(a.Position)
		if a.SyncPlaying {
			f.player.OnPlay(a.Position)
		} else {
			f.player.OnPause(a.Position)
		}
	}
}

// senderAllows checks senderID against the role gate, the way roleAllows
// checks the local connection's own id. Every inbound handler that mutates
// group state via a restricted event kind (spec.md's Role gate: play,
// pause, seekTo, setTrack, setTrackData) must pass this before ingesting,
// not just the outbound Can* advisories.
func (f *Facade) senderAllows(ctx context.Context, senderID string) bool {
	allowed, err := f.gate.Allows(ctx, senderID, f.required)
	return err == nil && allowed
}

func (f *Facade) onCommand(kind model.EventKind) eventchannel.Handler {
	return func(ctx context.Context, ev model.TransportEvent) {
		var payload model.PlayPausePayload
		if err := json.Unmarshal(ev.Payload, &payload); err != nil {
			log.Warn(ctx, "malformed command event", "kind", kind, "error", err)
			return
		}
		if !f.senderAllows(ctx, ev.SenderID) {
			log.Warn(ctx, "dropped role-denied command", "kind", kind, "sender", ev.SenderID)
			return
		}
		f.applyAction(f.state.IngestCommand(kind, payload, ev.Timestamp, ev.SenderID))
	}
}

func (f *Facade) onSetTrack(ctx context.Context, ev model.TransportEvent) {
	var payload model.SetTrackPayload
	if err := json.Unmarshal(ev.Payload, &payload); err != nil {
		log.Warn(ctx, "malformed setTrack event", "error", err)
		return
	}
	if !f.senderAllows(ctx, ev.SenderID) {
		log.Warn(ctx, "dropped role-denied setTrack", "sender", ev.SenderID)
		return
	}
	f.applyActions(f.state.IngestSetTrack(payload, ev.Timestamp, ev.SenderID))
}

func (f *Facade) onSetTrackData(ctx context.Context, ev model.TransportEvent) {
	var payload model.SetTrackDataPayload
	if err := json.Unmarshal(ev.Payload, &payload); err != nil {
		log.Warn(ctx, "malformed setTrackData event", "error", err)
		return
	}
	if !f.senderAllows(ctx, ev.SenderID) {
		log.Warn(ctx, "dropped role-denied setTrackData", "sender", ev.SenderID)
		return
	}
	f.applyAction(f.state.IngestSetTrackData(payload, ev.Timestamp, ev.SenderID))
}

func (f *Facade) onPositionUpdate(ctx context.Context, ev model.TransportEvent) {
	var payload model.PositionUpdatePayload
	if err := json.Unmarshal(ev.Payload, &payload); err != nil {
		log.Warn(ctx, "malformed positionUpdate event", "error", err)
		return
	}
	now := f.clk.NowMillis()
	f.applyActions(f.state.IngestPositionUpdate(payload, ev.Timestamp, ev.SenderID, ev.TrackRef, now))
	f.applyActions(f.suspend.FlushPendingResume(now))
}

func (f *Facade) onJoined(ctx context.Context, ev model.TransportEvent) {
	reply, ok := f.state.IngestJoined(ev.SenderID)
	if !ok {
		return
	}
	if err := f.channel.SendPositionUpdate(ctx, reply); err != nil {
		log.Warn(ctx, "joined reply broadcast failed", "error", err)
	}
}

// Disconnected reaps a peer's record after its connection closes.
func (f *Facade) Disconnected(connID string) {
	f.state.RemovePeer(connID)
	f.applyActions(f.state.Recompute(f.clk.NowMillis()))
}
