package groupstate

import "github.com/syncplay/coordinator/model"

// ActionKind identifies the local action the media player binding should
// perform, spec.md §2's "none | play | pause | seek | catchup | load-track"
// plus the two reconciliation actions spec.md §4.4/§7 introduce.
type ActionKind string

const (
	ActionNone             ActionKind = "none"
	ActionPlay             ActionKind = "play"
	ActionPause            ActionKind = "pause"
	ActionSeek             ActionKind = "seek"
	ActionCatchup          ActionKind = "catchup"
	ActionLoadTrack        ActionKind = "load_track"
	ActionTrackDataChanged ActionKind = "track_data_changed"
	// ActionSyncLocal re-applies the full authoritative group state to the
	// player in one shot: set track if changed, set position, then play or
	// pause (spec.md §4.4). SyncPlaying carries which of the two it is.
	ActionSyncLocal ActionKind = "sync_local"
)

// Action is what the group state decided the local media player should do.
// Not every field is meaningful for every Kind.
type Action struct {
	Kind        ActionKind
	Position    float64
	Track       *model.Track
	TrackData   map[string]any
	SyncPlaying bool // only meaningful when Kind == ActionSyncLocal
}

func none() Action               { return Action{Kind: ActionNone} }
func playAt(pos float64) Action  { return Action{Kind: ActionPlay, Position: pos} }
func pauseAt(pos float64) Action { return Action{Kind: ActionPause, Position: pos} }
func seekTo(pos float64) Action  { return Action{Kind: ActionSeek, Position: pos} }
func catchup(pos float64) Action { return Action{Kind: ActionCatchup, Position: pos} }
func loadTrack(t *model.Track) Action {
	return Action{Kind: ActionLoadTrack, Track: t}
}
func trackDataChanged(d map[string]any) Action {
	return Action{Kind: ActionTrackDataChanged, TrackData: d}
}
func syncLocal(pos float64, t *model.Track, playing bool) Action {
	return Action{Kind: ActionSyncLocal, Position: pos, Track: t, SyncPlaying: playing}
}
