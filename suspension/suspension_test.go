package suspension

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syncplay/coordinator/groupstate"
	"github.com/syncplay/coordinator/model"
)

func newStateWithTrack(t *testing.T) *groupstate.State {
	t.Helper()
	s := groupstate.New("a", groupstate.Config{MaxPlaybackDrift: 1.0})
	s.IngestSetTrack(model.SetTrackPayload{Metadata: &model.Track{TrackIdentity: "song-1"}}, 100, "a")
	return s
}

func TestBegin_MarksStateSuspended(t *testing.T) {
	s := newStateWithTrack(t)
	mgr := NewManager(s)

	mgr.Begin(nil)
	assert.True(t, s.IsSuspended())
}

func TestEnd_WithNilResumeReturnsSyncLocal(t *testing.T) {
	s := newStateWithTrack(t)
	mgr := NewManager(s)

	h := mgr.Begin(nil)
	actions := h.End(2000, nil)
	require.Len(t, actions, 1)
	assert.Equal(t, groupstate.ActionSyncLocal, actions[0].Kind)
	assert.False(t, s.IsSuspended())
}

func TestEnd_WithResumePositionSeeksImmediatelyWhenNotWaiting(t *testing.T) {
	s := newStateWithTrack(t)
	mgr := NewManager(s)

	h := mgr.Begin(nil)
	pos := 42.0
	actions := h.End(2000, &pos)
	require.Len(t, actions, 2)
	assert.Equal(t, groupstate.ActionSyncLocal, actions[0].Kind)
	assert.Equal(t, groupstate.ActionSeek, actions[1].Kind)
	assert.Equal(t, pos, actions[1].Position)
}

func TestEnd_IsIdempotent(t *testing.T) {
	s := newStateWithTrack(t)
	mgr := NewManager(s)

	h := mgr.Begin(nil)
	pos := 42.0
	first := h.End(2000, &pos)
	second := h.End(2000, &pos)
	assert.NotEmpty(t, first)
	assert.Empty(t, second)
}

func TestEnd_DefersResumeWhileGroupIsWaiting(t *testing.T) {
	s := newStateWithTrack(t)
	s.IngestSetTrack(model.SetTrackPayload{
		Metadata:   s.CurrentTrack(),
		WaitPoints: []model.WaitPoint{{Position: 10}},
	}, 150, "a")
	// Put the group into a waiting state: two known peers, one at the wait point.
	s.IngestPositionUpdate(model.PositionUpdatePayload{PlaybackState: model.PlaybackPlaying, Position: 1}, 500, "b", "song-1", 500)
	s.IngestPositionUpdate(model.PositionUpdatePayload{PlaybackState: model.PlaybackWaiting, Position: 10}, 600, "b", "song-1", 600)
	require.True(t, s.IsWaiting())

	mgr := NewManager(s)
	h := mgr.Begin(nil)
	pos := 5.0
	actions := h.End(700, &pos)
	assert.Empty(t, actions, "resume must defer while the group is still waiting")

	flushed := mgr.FlushPendingResume(700)
	assert.Empty(t, flushed, "still waiting, nothing to flush yet")

	// The remaining peer reaches the wait point too, releasing it.
	s.IngestPositionUpdate(model.PositionUpdatePayload{PlaybackState: model.PlaybackWaiting, Position: 10}, 600, "a", "song-1", 800)
	require.False(t, s.IsWaiting())

	flushed = mgr.FlushPendingResume(900)
	require.Len(t, flushed, 2)
	assert.Equal(t, groupstate.ActionSyncLocal, flushed[0].Kind)
	assert.Equal(t, groupstate.ActionSeek, flushed[1].Kind)
	assert.Equal(t, pos, flushed[1].Position)
}
