package groupstate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syncplay/coordinator/model"
)

func newTestState(local string) *State {
	return New(local, Config{MaxPlaybackDrift: 1.0})
}

func mustLoadTrack(t *testing.T, s *State, id string, ts int64, sender string) {
	t.Helper()
	actions := s.IngestSetTrack(model.SetTrackPayload{Metadata: &model.Track{TrackIdentity: id}}, ts, sender)
	require.NotEmpty(t, actions)
}

func TestIngestSetTrack_NewIdentityLoadsAndPauses(t *testing.T) {
	s := newTestState("a")
	actions := s.IngestSetTrack(model.SetTrackPayload{Metadata: &model.Track{TrackIdentity: "song-1"}}, 100, "a")
	require.Len(t, actions, 2)
	assert.Equal(t, ActionLoadTrack, actions[0].Kind)
	assert.Equal(t, ActionPause, actions[1].Kind)
	assert.Equal(t, "song-1", s.CurrentTrack().TrackIdentity)
}

func TestIngestSetTrack_SameIdentityOnlyUpdatesWaitPoints(t *testing.T) {
	s := newTestState("a")
	mustLoadTrack(t, s, "song-1", 100, "a")

	actions := s.IngestSetTrack(model.SetTrackPayload{
		Metadata:   &model.Track{TrackIdentity: "song-1"},
		WaitPoints: []model.WaitPoint{{Position: 30}},
	}, 200, "a")
	assert.Empty(t, actions, "replacing wait points on the same track must not reload it")

	wp, ok := s.Track().FindWaitPointAt(30)
	require.True(t, ok)
	assert.Equal(t, float64(30), wp.Position)
}

func TestIngestCommand_RejectsStaleTrackRef(t *testing.T) {
	s := newTestState("a")
	mustLoadTrack(t, s, "song-1", 100, "a")

	stale := &model.Track{TrackIdentity: "song-0"}
	action := s.IngestCommand(model.EventPlay, model.PlayPausePayload{Track: stale, Position: 5}, 200, "b")
	assert.Equal(t, ActionNone, action.Kind)
}

func TestIngestCommand_RejectsWhileLocallySuspended(t *testing.T) {
	s := newTestState("a")
	mustLoadTrack(t, s, "song-1", 100, "a")
	s.SetSuspended(true)

	track := s.CurrentTrack()
	action := s.IngestCommand(model.EventPlay, model.PlayPausePayload{Track: track, Position: 5}, 200, "a")
	assert.Equal(t, ActionNone, action.Kind)
}

func TestIngestCommand_RemotePlayBeyondDriftTriggersCatchup(t *testing.T) {
	s := newTestState("a")
	mustLoadTrack(t, s, "song-1", 100, "a")
	track := s.CurrentTrack()

	// Local peer reports paused at 0 at t=1000.
	s.IngestCommand(model.EventPause, model.PlayPausePayload{Track: track, Position: 0}, 1000, "a")

	// Remote peer starts playing far ahead.
	action := s.IngestCommand(model.EventPlay, model.PlayPausePayload{Track: track, Position: 50}, 1000, "b")
	assert.Equal(t, ActionCatchup, action.Kind)
	assert.Equal(t, float64(50), action.Position)
}

func TestIngestCommand_RemotePlayWithinDriftJustPlays(t *testing.T) {
	s := newTestState("a")
	mustLoadTrack(t, s, "song-1", 100, "a")
	track := s.CurrentTrack()

	s.IngestCommand(model.EventPause, model.PlayPausePayload{Track: track, Position: 10}, 1000, "a")
	action := s.IngestCommand(model.EventPlay, model.PlayPausePayload{Track: track, Position: 10.5}, 1000, "b")
	assert.Equal(t, ActionPlay, action.Kind)
}

func TestIngestPositionUpdate_DropsStaleTrackRef(t *testing.T) {
	s := newTestState("a")
	mustLoadTrack(t, s, "song-1", 100, "a")

	actions := s.IngestPositionUpdate(model.PositionUpdatePayload{PlaybackState: model.PlaybackPlaying, Position: 1}, 200, "b", "song-0", 1000)
	assert.Nil(t, actions)
}

func TestIngestPositionUpdate_DropsOutOfOrderDuplicate(t *testing.T) {
	s := newTestState("a")
	mustLoadTrack(t, s, "song-1", 100, "a")

	s.IngestPositionUpdate(model.PositionUpdatePayload{PlaybackState: model.PlaybackPaused, Position: 10}, 500, "b", "song-1", 1000)
	actions := s.IngestPositionUpdate(model.PositionUpdatePayload{PlaybackState: model.PlaybackPaused, Position: 1}, 400, "b", "song-1", 1000)
	assert.Nil(t, actions)
	assert.Equal(t, float64(10), s.Peers()["b"].PositionAtTimestamp)
}

func TestRecompute_MajorityPlayingDrivesLocalToPlay(t *testing.T) {
	s := newTestState("a")
	mustLoadTrack(t, s, "song-1", 100, "a")
	track := s.CurrentTrack()

	s.IngestCommand(model.EventPause, model.PlayPausePayload{Track: track, Position: 0}, 1000, "a")
	// Two of the three known peers are playing.
	s.IngestPositionUpdate(model.PositionUpdatePayload{PlaybackState: model.PlaybackPlaying, Position: 0, PlaybackRate: 1}, 1000, "b", "song-1", 1000)
	actions := s.IngestPositionUpdate(model.PositionUpdatePayload{PlaybackState: model.PlaybackPlaying, Position: 0, PlaybackRate: 1}, 1000, "c", "song-1", 1000)

	require.NotEmpty(t, actions)
	assert.Equal(t, ActionPlay, actions[0].Kind)
	assert.Equal(t, model.PlaybackPlaying, s.GroupPlaybackState())
}

func TestAnyoneWaitingAtUnconsumed_ReleasesOnceAllPeersReach(t *testing.T) {
	s := newTestState("a")
	mustLoadTrack(t, s, "song-1", 100, "a")
	s.IngestSetTrack(model.SetTrackPayload{
		Metadata:   s.CurrentTrack(),
		WaitPoints: []model.WaitPoint{{Position: 20}},
	}, 150, "a")

	// Establish both peers as known, neither waiting yet.
	s.IngestPositionUpdate(model.PositionUpdatePayload{PlaybackState: model.PlaybackPlaying, Position: 5, PlaybackRate: 1}, 1000, "a", "song-1", 1000)
	s.IngestPositionUpdate(model.PositionUpdatePayload{PlaybackState: model.PlaybackPlaying, Position: 5, PlaybackRate: 1}, 1000, "b", "song-1", 1000)

	// Peer a reaches the wait point first.
	actions := s.IngestPositionUpdate(model.PositionUpdatePayload{PlaybackState: model.PlaybackWaiting, Position: 20}, 2000, "a", "song-1", 2000)
	assert.Empty(t, actions)
	assert.True(t, s.IsWaiting())

	// Peer b reaches it too — now every known peer is waiting, it releases.
	s.IngestPositionUpdate(model.PositionUpdatePayload{PlaybackState: model.PlaybackWaiting, Position: 20}, 2000, "b", "song-1", 2000)
	assert.False(t, s.IsWaiting())
	assert.True(t, s.Track().IsConsumed(20))
}

func TestSyncLocalAction_ReflectsGroupState(t *testing.T) {
	s := newTestState("a")
	mustLoadTrack(t, s, "song-1", 100, "a")
	track := s.CurrentTrack()
	s.IngestCommand(model.EventPlay, model.PlayPausePayload{Track: track, Position: 30}, 1000, "a")

	a := s.SyncLocalAction(1000)
	assert.Equal(t, ActionSyncLocal, a.Kind)
	assert.Equal(t, track.TrackIdentity, a.Track.TrackIdentity)
}

func TestIngestJoined_RepliesWithLocalStateExceptForSelf(t *testing.T) {
	s := newTestState("a")
	_, ok := s.IngestJoined("a")
	assert.False(t, ok, "should never reply to our own joined event")

	_, ok = s.IngestJoined("b")
	assert.True(t, ok)
}
