package playbacktrack

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syncplay/coordinator/model"
)

func TestSetCurrent_NewIdentityReplacesTrackAndResetsWaitState(t *testing.T) {
	pt := New()
	changed, accepted := pt.SetCurrent(&model.Track{TrackIdentity: "song-1"}, []model.WaitPoint{{Position: 10}}, 100, "a")
	require.True(t, accepted)
	require.True(t, changed)

	pt.MarkConsumed(10)
	assert.True(t, pt.IsConsumed(10))

	changed, accepted = pt.SetCurrent(&model.Track{TrackIdentity: "song-2"}, nil, 200, "a")
	require.True(t, accepted)
	require.True(t, changed)
	assert.False(t, pt.IsConsumed(10), "switching track identity must reset consumed wait points")
}

func TestSetCurrent_SameIdentityStaleUpdateRejected(t *testing.T) {
	pt := New()
	pt.SetCurrent(&model.Track{TrackIdentity: "song-1"}, nil, 100, "a")

	changed, accepted := pt.SetCurrent(&model.Track{TrackIdentity: "song-1"}, []model.WaitPoint{{Position: 5}}, 50, "b")
	assert.False(t, accepted)
	assert.False(t, changed)
	_, ok := pt.FindWaitPointAt(5)
	assert.False(t, ok)
}

func TestSetCurrent_DoesNotAliasCallerTrack(t *testing.T) {
	pt := New()
	track := &model.Track{TrackIdentity: "song-1"}
	pt.SetCurrent(track, []model.WaitPoint{{Position: 1}}, 100, "a")

	track.StaticWaitPoints = []model.WaitPoint{{Position: 999}}
	_, ok := pt.FindWaitPointAt(999)
	assert.False(t, ok, "mutating the caller's track after SetCurrent must not affect stored state")
}

func TestSetTrackData_LastWriterWins(t *testing.T) {
	pt := New()
	pt.SetCurrent(&model.Track{TrackIdentity: "song-1"}, nil, 100, "a")

	accepted := pt.SetTrackData(map[string]any{"lyrics": "v1"}, 100, "a")
	assert.True(t, accepted)

	accepted = pt.SetTrackData(map[string]any{"lyrics": "stale"}, 50, "z")
	assert.False(t, accepted)
	assert.Equal(t, "v1", pt.TrackData()["lyrics"])

	accepted = pt.SetTrackData(map[string]any{"lyrics": "v2"}, 200, "a")
	assert.True(t, accepted)
	assert.Equal(t, "v2", pt.TrackData()["lyrics"])
}

func TestFindNextWaitPoint_SkipsConsumed(t *testing.T) {
	pt := New()
	pt.SetCurrent(&model.Track{TrackIdentity: "song-1"}, []model.WaitPoint{{Position: 10}, {Position: 20}}, 100, "a")
	pt.MarkConsumed(10)

	wp, ok := pt.FindNextWaitPoint(0)
	require.True(t, ok)
	assert.Equal(t, float64(20), wp.Position)
}

func TestAddDynamicWaitPoint_MergesWithStatic(t *testing.T) {
	pt := New()
	pt.SetCurrent(&model.Track{TrackIdentity: "song-1"}, []model.WaitPoint{{Position: 30}}, 100, "a")
	pt.AddDynamicWaitPoint(model.WaitPoint{Position: 15})

	wp, ok := pt.FindNextWaitPoint(0)
	require.True(t, ok)
	assert.Equal(t, float64(15), wp.Position, "dynamic wait points must sort alongside static ones")
}
