// Package player defines the boundary between the coordinator and the
// concrete media element it drives. The coordinator never touches a
// player directly; every repository/device-specific host implements
// Binding and hands it to coordinator.New.
package player

import "github.com/syncplay/coordinator/model"

// Binding is the local media element the coordinator facade drives and
// samples (spec.md §1's "local media player" collaborator).
type Binding interface {
	// GetState samples the player's current reported state. The facade
	// calls this once per position-update tick and whenever it needs to
	// project the local position before sending a command.
	GetState() model.PlayerState

	OnPlay(position float64)
	OnPause(position float64)
	OnSeek(position float64)
	OnCatchup(position float64)
	OnLoadTrack(metadata *model.Track)
	OnTrackData(data map[string]any)
}

// Null is a Binding that drives nothing. It is used by hosts that only
// need the coordinator's decision logic and authoritative group-state
// snapshot (e.g. a server-side relay that never itself plays media) and
// have no local media element to callback into.
type Null struct{}

// GetState always reports no loaded media and no position.
func (Null) GetState() model.PlayerState { return model.PlayerState{PlaybackState: model.PlaybackNone} }

func (Null) OnPlay(float64)             {}
func (Null) OnPause(float64)            {}
func (Null) OnSeek(float64)             {}
func (Null) OnCatchup(float64)          {}
func (Null) OnLoadTrack(*model.Track)   {}
func (Null) OnTrackData(map[string]any) {}
