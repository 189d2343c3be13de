// Package playbacktrack tracks the group's currently selected track, its
// static and dynamic wait points, and which of them have already been
// consumed (spec.md §4.2). Grounded on the teacher's LiveSession
// tracks/queue/currentIndex bookkeeping in hub.go, narrowed from a
// multi-track queue to the single-current-track + wait-point model the
// spec requires.
package playbacktrack

import (
	"sort"

	"github.com/syncplay/coordinator/model"
)

// PlaybackTrack holds the current track and its wait-point lifecycle.
type PlaybackTrack struct {
	current     *model.Track
	currentTS   int64
	currentSndr string
	trackData   map[string]any
	dataTS      int64
	dataSndr    string
	dynamicWPs  []model.WaitPoint
	consumed    map[float64]bool
}

// New creates an empty PlaybackTrack (no track loaded).
func New() *PlaybackTrack {
	return &PlaybackTrack{consumed: make(map[float64]bool)}
}

// Current returns the currently selected track, or nil if none is loaded.
func (t *PlaybackTrack) Current() *model.Track {
	return t.current
}

// TrackData returns the last track_data payload set via set_track_data,
// cleared whenever the current track changes.
func (t *PlaybackTrack) TrackData() map[string]any {
	return t.trackData
}

// SetTrackData replaces the track_data payload, last-writer-wins on
// (eventTS, senderID) (spec.md §4.3's set_track_data rule). It returns
// whether the new value was actually accepted.
func (t *PlaybackTrack) SetTrackData(data map[string]any, eventTS int64, senderID string) bool {
	if !model.Newer(eventTS, senderID, t.dataTS, t.dataSndr) {
		return false
	}
	t.trackData = data
	t.dataTS, t.dataSndr = eventTS, senderID
	return true
}

// SetCurrent accepts a new track per spec.md §4.2: accepted only if
// (eventTS, senderID) is strictly newer than the currently recorded
// (timestamp, sender), or if the track identity differs outright. A
// successful call to a genuinely new track identity resets consumed wait
// points and clears track_data; replacing only the wait points of the
// *same* track identity (a newer set_track for the same track) resets
// nothing but the wait point list itself.
//
// It returns whether the track identity changed (groupstate uses this to
// decide between emitting load_track+pause_at(0) versus just updating wait
// points).
func (t *PlaybackTrack) SetCurrent(track *model.Track, waitPoints []model.WaitPoint, eventTS int64, senderID string) (changed bool, accepted bool) {
	sameIdentity := model.SameTrack(t.current, track)
	if sameIdentity {
		if !model.Newer(eventTS, senderID, t.currentTS, t.currentSndr) {
			return false, false
		}
		t.currentTS, t.currentSndr = eventTS, senderID
		t.setWaitPoints(waitPoints)
		return false, true
	}

	t.current = cloneTrack(track)
	t.currentTS, t.currentSndr = eventTS, senderID
	t.trackData = nil
	t.dataTS, t.dataSndr = 0, ""
	t.dynamicWPs = nil
	t.consumed = make(map[float64]bool)
	t.setWaitPoints(waitPoints)
	return true, true
}

func cloneTrack(track *model.Track) *model.Track {
	if track == nil {
		return nil
	}
	cp := *track
	return &cp
}

func (t *PlaybackTrack) setWaitPoints(waitPoints []model.WaitPoint) {
	if t.current == nil {
		return
	}
	t.current.StaticWaitPoints = waitPoints
}

// AddDynamicWaitPoint merges a wait point broadcast at runtime via
// begin_suspension. It persists only for the remainder of the current
// track (spec.md glossary: "Dynamic wait point").
func (t *PlaybackTrack) AddDynamicWaitPoint(wp model.WaitPoint) {
	t.dynamicWPs = append(t.dynamicWPs, wp)
}

// MarkConsumed records that a wait point at the given position has been
// released and should no longer hold anyone on this track.
func (t *PlaybackTrack) MarkConsumed(position float64) {
	t.consumed[position] = true
}

// IsConsumed reports whether the wait point at position has already been
// released on the current track.
func (t *PlaybackTrack) IsConsumed(position float64) bool {
	return t.consumed[position]
}

// allWaitPoints returns static and dynamic wait points for the current
// track, sorted by position.
func (t *PlaybackTrack) allWaitPoints() []model.WaitPoint {
	var all []model.WaitPoint
	if t.current != nil {
		all = append(all, t.current.StaticWaitPoints...)
	}
	all = append(all, t.dynamicWPs...)
	sort.Slice(all, func(i, j int) bool { return all[i].Position < all[j].Position })
	return all
}

// FindNextWaitPoint returns the lowest-position wait point strictly after
// afterPosition that has not yet been consumed, or (WaitPoint{}, false) if
// none remains (spec.md §4.2).
func (t *PlaybackTrack) FindNextWaitPoint(afterPosition float64) (model.WaitPoint, bool) {
	for _, wp := range t.allWaitPoints() {
		if wp.Position > afterPosition && !t.IsConsumed(wp.Position) {
			return wp, true
		}
	}
	return model.WaitPoint{}, false
}

// FindWaitPointAt returns the wait point exactly at position, if any,
// regardless of whether it has been consumed.
func (t *PlaybackTrack) FindWaitPointAt(position float64) (model.WaitPoint, bool) {
	for _, wp := range t.allWaitPoints() {
		if wp.Position == position {
			return wp, true
		}
	}
	return model.WaitPoint{}, false
}
