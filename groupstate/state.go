// Package groupstate implements the coordinator's core state machine
// (spec.md §4.3): it merges incoming transport/position/track events,
// computes the authoritative group state, and decides the local action the
// media player binding should perform. It holds no internal locks — per
// spec.md §5 it is meant to be driven exclusively from a single-goroutine
// event loop (see server/syncsession's per-session actor).
package groupstate

import (
	"math"

	"github.com/syncplay/coordinator/model"
	"github.com/syncplay/coordinator/playbacktrack"
	"github.com/syncplay/coordinator/position"
)

// Config is the subset of the coordinator's configuration the state
// machine itself needs.
type Config struct {
	MaxPlaybackDrift float64 // seconds, spec.md §6.3's maxPlaybackDriftSeconds
}

// catchupDedupeFraction bounds how close a newly computed catchup position
// has to be to the last one emitted before it's suppressed, so a peer
// sitting just past the drift threshold doesn't re-emit a near-identical
// catchup every position_update tick (last_action_sent, spec.md §4.3).
const catchupDedupeFraction = 0.25

// State is the authoritative, per-session group coordinator state.
type State struct {
	localSenderID string
	track         *playbacktrack.PlaybackTrack
	peers         map[string]model.GroupPositionRecord

	isSuspended bool
	isWaiting   bool
	groupState  model.PlaybackState
	lastAction  Action

	cfg Config

	// localRoleAllowed reports whether the local connection currently holds
	// the role required to drive playback (spec.md §4.3's "if role-gate
	// permits"). nil means unrestricted.
	localRoleAllowed func() bool
}

// New creates a State for localSenderID (this peer's connection id),
// detached (no track, nothing suspended).
func New(localSenderID string, cfg Config) *State {
	return &State{
		localSenderID: localSenderID,
		track:         playbacktrack.New(),
		peers:         make(map[string]model.GroupPositionRecord),
		groupState:    model.PlaybackNone,
		cfg:           cfg,
	}
}

// SetLocalRoleGate installs the predicate used by position_update ingest to
// decide whether the local connection may be driven into playing.
func (s *State) SetLocalRoleGate(fn func() bool) {
	s.localRoleAllowed = fn
}

func (s *State) localRoleAllows() bool {
	return s.localRoleAllowed == nil || s.localRoleAllowed()
}

// CurrentTrack returns the group's authoritative current track, or nil.
func (s *State) CurrentTrack() *model.Track { return s.track.Current() }

// TrackData returns the last accepted set_track_data payload.
func (s *State) TrackData() map[string]any { return s.track.TrackData() }

// Track exposes the underlying playbacktrack.PlaybackTrack for callers
// (suspension) that need wait-point lookups beyond what State re-exports.
func (s *State) Track() *playbacktrack.PlaybackTrack { return s.track }

// GroupPlaybackState is the authoritative view of what the group is doing,
// last recomputed by a position_update ingest or an explicit Recompute.
func (s *State) GroupPlaybackState() model.PlaybackState { return s.groupState }

// IsSuspended reports the local detachment flag (spec.md §4.4).
func (s *State) IsSuspended() bool { return s.isSuspended }

// SetSuspended is used by the suspension manager to flip local detachment.
func (s *State) SetSuspended(v bool) { s.isSuspended = v }

// IsWaiting reports whether the local peer is currently held at a wait
// point (spec.md §4.3's invariant 3).
func (s *State) IsWaiting() bool { return s.isWaiting }

// Peers returns a snapshot copy of every known peer record, keyed by
// sender id (including the local one).
func (s *State) Peers() map[string]model.GroupPositionRecord {
	out := make(map[string]model.GroupPositionRecord, len(s.peers))
	for k, v := range s.peers {
		out[k] = v
	}
	return out
}

// LocalRecord returns the local peer's own last-recorded state.
func (s *State) LocalRecord() model.GroupPositionRecord {
	return s.peers[s.localSenderID]
}

// RemovePeer reaps a disconnected peer's record (spec.md §3's lifecycle:
// "Group position records are reaped when their underlying peer
// disconnects"). The local peer's own record is never reaped this way.
func (s *State) RemovePeer(senderID string) {
	if senderID == s.localSenderID {
		return
	}
	delete(s.peers, senderID)
}

// RecordLocalPlayerState updates the local peer's own record from a
// PlayerState sample, independent of the network ingest path — this is how
// the facade's position-update ticker keeps the coordinator self-consistent
// even when a role-gated send is suppressed (spec.md §4.5).
func (s *State) RecordLocalPlayerState(ps model.PlayerState, nowMillis int64) {
	rec := model.GroupPositionRecord{
		PlaybackState: ps.PlaybackState,
		Track:         s.track.Current(),
		Timestamp:     nowMillis,
		PlaybackRate:  1,
	}
	if ps.PositionState != nil {
		rec.PositionAtTimestamp = ps.PositionState.Position
		rec.PlaybackRate = ps.PositionState.PlaybackRate
	}
	rec.Waiting = ps.PlaybackState == model.PlaybackWaiting
	s.peers[s.localSenderID] = rec
}

// IngestCommand applies a play/pause/seekTo transport event (spec.md
// §4.3's "Transport command" ingest rules) and returns the local action to
// perform, or ActionNone if the event was rejected or is a stale duplicate.
func (s *State) IngestCommand(kind model.EventKind, payload model.PlayPausePayload, eventTS int64, senderID string) Action {
	if !model.SameTrack(payload.Track, s.track.Current()) {
		return none() // rule 1: stale track_ref
	}
	if s.isSuspended {
		return none() // rule 2: detached locally
	}
	if existing, ok := s.peers[senderID]; ok && eventTS < existing.Timestamp {
		return none() // stale duplicate/out-of-order delivery
	}

	rec := s.peers[senderID]
	switch kind {
	case model.EventPlay:
		rec.PlaybackState = model.PlaybackPlaying
		rec.PlaybackRate = 1
	case model.EventPause:
		rec.PlaybackState = model.PlaybackPaused
		rec.PlaybackRate = 0
	case model.EventSeekTo:
		if rec.PlaybackState == "" {
			rec.PlaybackState = model.PlaybackPaused
		}
	default:
		return none()
	}
	rec.PositionAtTimestamp = payload.Position
	rec.Timestamp = eventTS
	rec.Track = s.track.Current()
	s.peers[senderID] = rec

	var action Action
	switch kind {
	case model.EventPlay:
		action = playAt(payload.Position)
		if senderID != s.localSenderID {
			localProjected := position.Project(s.peers[s.localSenderID], eventTS)
			if payload.Position-localProjected > s.cfg.MaxPlaybackDrift {
				action = catchup(payload.Position)
			}
		}
	case model.EventPause:
		action = pauseAt(payload.Position)
	case model.EventSeekTo:
		action = seekTo(payload.Position)
	}
	return s.dedupe(action)
}

// IngestSetTrack applies a setTrack transport event (spec.md §4.3). It
// returns either no actions or two: loading a genuinely new track emits
// load_track then pause_at(0); updating only the wait points of the
// current track emits nothing.
func (s *State) IngestSetTrack(payload model.SetTrackPayload, eventTS int64, senderID string) []Action {
	changed, accepted := s.track.SetCurrent(payload.Metadata, payload.WaitPoints, eventTS, senderID)
	if !accepted {
		return nil
	}
	if !changed {
		return nil
	}
	s.peers[senderID] = model.GroupPositionRecord{
		PlaybackState:       model.PlaybackPaused,
		Track:               s.track.Current(),
		PositionAtTimestamp: 0,
		Timestamp:           eventTS,
	}
	return []Action{loadTrack(payload.Metadata), pauseAt(0)}
}

// IngestSetTrackData applies a setTrackData transport event, last-writer-
// wins on (eventTS, senderID).
func (s *State) IngestSetTrackData(payload model.SetTrackDataPayload, eventTS int64, senderID string) Action {
	if !s.track.SetTrackData(payload.Data, eventTS, senderID) {
		return none()
	}
	return trackDataChanged(payload.Data)
}

// IngestPositionUpdate applies an inbound position_update (spec.md §4.3):
// upserts the sender's record, recomputes the authoritative group
// playback state, and returns any local actions the recomputation implies.
// trackRef is the event's TrackRef: a non-empty trackRef that doesn't
// match the current track drops the update, while an empty trackRef is
// accepted without any track check. eventchannel.Channel never fills
// TrackRef, so updates received through it are not checked this way.
func (s *State) IngestPositionUpdate(payload model.PositionUpdatePayload, eventTS int64, senderID string, trackRef string, nowMillis int64) []Action {
	current := s.track.Current()
	if trackRef != "" {
		if current == nil || trackRef != current.TrackIdentity {
			return nil
		}
	}

	if existing, ok := s.peers[senderID]; ok && eventTS < existing.Timestamp {
		return nil // stale duplicate/out-of-order delivery
	}

	s.peers[senderID] = model.GroupPositionRecord{
		PlaybackState:       payload.PlaybackState,
		Track:               current,
		PositionAtTimestamp: payload.Position,
		Timestamp:           eventTS,
		Waiting:             payload.PlaybackState == model.PlaybackWaiting,
		PlaybackRate:        payload.PlaybackRate,
	}
	if payload.WaitPoint != nil {
		s.track.AddDynamicWaitPoint(*payload.WaitPoint)
	}

	return s.recompute(nowMillis)
}

// IngestJoined handles a joined event from a newly connected peer: every
// existing peer immediately re-broadcasts its own position so the
// newcomer learns current state (spec.md §4.3). It returns the payload to
// send and whether anything should be sent (nothing is sent in response to
// our own joined event).
func (s *State) IngestJoined(senderID string) (model.PositionUpdatePayload, bool) {
	if senderID == s.localSenderID {
		return model.PositionUpdatePayload{}, false
	}
	local := s.peers[s.localSenderID]
	return model.PositionUpdatePayload{
		PlaybackState: local.PlaybackState,
		Position:      local.PositionAtTimestamp,
		PlaybackRate:  local.PlaybackRate,
		TrackData:     s.track.TrackData(),
	}, true
}

// Recompute re-runs the group playback state decision (spec.md §4.3 steps
// 2-3) without a new position_update, e.g. after a peer is reaped or a
// suspension ends. now is the reference clock's current reading.
func (s *State) Recompute(nowMillis int64) []Action {
	return s.recompute(nowMillis)
}

func (s *State) recompute(nowMillis int64) []Action {
	if s.isSuspended {
		return nil
	}

	var actions []Action

	if wp, waiting := s.anyoneWaitingAtUnconsumed(); waiting {
		s.groupState = model.PlaybackPaused
		s.isWaiting = true
		local := s.peers[s.localSenderID]
		if position.Project(local, nowMillis) > wp.Position {
			actions = append(actions, s.dedupe(seekTo(wp.Position)))
		}
		return actions
	}
	s.isWaiting = false

	if s.majorityPlaying() {
		s.groupState = model.PlaybackPlaying
		local := s.peers[s.localSenderID]
		if local.PlaybackState != model.PlaybackPlaying && s.localRoleAllows() {
			projected := position.Project(local, nowMillis)
			actions = append(actions, s.dedupe(playAt(projected)))
		}
	} else {
		s.groupState = model.PlaybackPaused
	}

	if a, ok := s.driftCatchup(nowMillis); ok {
		actions = append(actions, a)
	}
	return actions
}

// anyoneWaitingAtUnconsumed reports the wait point currently holding the
// group, releasing it first if enough peers have reached it (all online
// peers, or wp.MaxClients of them — spec.md §4.4).
func (s *State) anyoneWaitingAtUnconsumed() (model.WaitPoint, bool) {
	var held *model.WaitPoint
	reached := 0
	for _, rec := range s.peers {
		if !rec.Waiting {
			continue
		}
		if wp, ok := s.track.FindWaitPointAt(rec.PositionAtTimestamp); ok && !s.track.IsConsumed(wp.Position) {
			if held == nil {
				cp := wp
				held = &cp
			}
			if wp.Position == held.Position {
				reached++
			}
		}
	}
	if held == nil {
		return model.WaitPoint{}, false
	}
	required := len(s.peers)
	if held.MaxClients > 0 && held.MaxClients < required {
		required = held.MaxClients
	}
	if reached >= required {
		s.track.MarkConsumed(held.Position)
		return model.WaitPoint{}, false
	}
	return *held, true
}

// SyncLocalAction builds the one-shot reconciliation action the
// suspension manager emits on resume (spec.md §4.4): set track if
// changed, set position, then play or pause.
func (s *State) SyncLocalAction(nowMillis int64) Action {
	local := s.peers[s.localSenderID]
	pos := position.Project(local, nowMillis)
	return syncLocal(pos, s.track.Current(), s.groupState == model.PlaybackPlaying)
}

func (s *State) majorityPlaying() bool {
	if len(s.peers) == 0 {
		return false
	}
	playing := 0
	for _, rec := range s.peers {
		if rec.PlaybackState == model.PlaybackPlaying {
			playing++
		}
	}
	return playing*2 > len(s.peers)
}

func (s *State) driftCatchup(nowMillis int64) (Action, bool) {
	local := s.peers[s.localSenderID]
	if local.PlaybackState != model.PlaybackPlaying {
		return Action{}, false
	}
	var playingPositions []float64
	for id, rec := range s.peers {
		if id != s.localSenderID && rec.PlaybackState == model.PlaybackPlaying {
			playingPositions = append(playingPositions, position.Project(rec, nowMillis))
		}
	}
	if len(playingPositions) == 0 {
		return Action{}, false
	}
	projected := position.Median(playingPositions)
	localProjected := position.Project(local, nowMillis)
	if math.Abs(localProjected-projected) <= s.cfg.MaxPlaybackDrift {
		return Action{}, false
	}
	a := s.dedupe(catchup(projected))
	return a, a.Kind != ActionNone
}

// dedupe suppresses a catchup action that differs only trivially from the
// last one emitted, and otherwise records the emitted action so the next
// dedupe call has something to compare against.
func (s *State) dedupe(a Action) Action {
	if a.Kind == ActionCatchup && s.lastAction.Kind == ActionCatchup {
		tolerance := s.cfg.MaxPlaybackDrift * catchupDedupeFraction
		if math.Abs(s.lastAction.Position-a.Position) <= tolerance {
			return none()
		}
	}
	if a.Kind != ActionNone {
		s.lastAction = a
	}
	return a
}
