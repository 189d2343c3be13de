// Package suspension implements the local detach/reattach lifecycle
// (spec.md §4.4): begin_suspension hands back a Handle whose End releases
// the local peer back into group synchronization, deferring a requested
// resume position until the group is neither suspended nor waiting.
// Grounded on the teacher's grace-period bookkeeping in hub.go's
// Leave/graceTimer, generalized from "whole-session grace period" to
// "per-peer local suspension with an optional dynamic wait point".
package suspension

import (
	"github.com/syncplay/coordinator/groupstate"
	"github.com/syncplay/coordinator/model"
)

// Manager owns the local suspension lifecycle for one session's
// groupstate.State.
type Manager struct {
	state         *groupstate.State
	pendingResume *float64
}

// NewManager creates a Manager bound to state.
func NewManager(state *groupstate.State) *Manager {
	return &Manager{state: state}
}

// Handle is returned by Begin; End is idempotent after the first call.
type Handle struct {
	mgr   *Manager
	ended bool
}

// Begin marks the local peer suspended. If wp is non-nil it is the dynamic
// wait point the caller (session facade) must broadcast via a
// position_update event carrying WaitPoint — Begin only flips local state;
// it does not touch the transport.
func (m *Manager) Begin(wp *model.WaitPoint) *Handle {
	m.state.SetSuspended(true)
	return &Handle{mgr: m}
}

// End clears the local suspension. If resumePosition is nil, it returns a
// sync_local action that reconciles the player to the group's current
// state. If resumePosition is set, it returns sync_local then
// seek_to(resumePosition) — sync_local first so a track change made while
// suspended is reconciled before the explicit seek lands on it (spec.md §8
// Scenario S5) — immediately when the group is already unsuspended and not
// waiting; otherwise the resume is deferred and FlushPendingResume will
// return the same two actions once the wait clears.
func (h *Handle) End(nowMillis int64, resumePosition *float64) []groupstate.Action {
	if h.ended {
		return nil
	}
	h.ended = true
	h.mgr.state.SetSuspended(false)

	if resumePosition == nil {
		return []groupstate.Action{h.mgr.state.SyncLocalAction(nowMillis)}
	}
	if h.mgr.state.IsWaiting() {
		h.mgr.pendingResume = resumePosition
		return nil
	}
	return []groupstate.Action{
		h.mgr.state.SyncLocalAction(nowMillis),
		{Kind: groupstate.ActionSeek, Position: *resumePosition},
	}
}

// FlushPendingResume applies a resume position deferred by End because the
// group was still waiting at the time. The facade calls this after every
// recompute (e.g. following a position_update ingest); it is a no-op until
// the wait clears. Mirrors End's sync_local-then-seek sequence so a
// deferred resume reconciles a track change the same way an immediate one
// does.
func (m *Manager) FlushPendingResume(nowMillis int64) []groupstate.Action {
	if m.pendingResume == nil || m.state.IsWaiting() {
		return nil
	}
	pos := *m.pendingResume
	m.pendingResume = nil
	return []groupstate.Action{
		m.state.SyncLocalAction(nowMillis),
		{Kind: groupstate.ActionSeek, Position: pos},
	}
}
