package core

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syncplay/coordinator/config"
	"github.com/syncplay/coordinator/model"
	"github.com/syncplay/coordinator/tests"
)

func newTestService(repo *tests.MockSessionRepo) SessionService {
	return newSessionServiceWithRepo(func(context.Context) model.CoordinatorSessionRepository {
		return repo
	})
}

func TestCreate_PersistsAndReturnsSession(t *testing.T) {
	repo := &tests.MockSessionRepo{}
	svc := newTestService(repo)

	session, err := svc.Create(context.Background(), "host-1", "movie night", []string{"host", "viewer"}, config.Default())
	require.NoError(t, err)
	assert.NotEmpty(t, session.ID)
	assert.Equal(t, "host-1", session.HostConnID)
	assert.Equal(t, "host,viewer", session.AllowedRoles)
	assert.Equal(t, config.DefaultMaxPlaybackDriftSeconds, session.MaxPlaybackDrift)
}

func TestCreate_PropagatesRepositoryError(t *testing.T) {
	repo := &tests.MockSessionRepo{Error: errors.New("db unavailable")}
	svc := newTestService(repo)

	_, err := svc.Create(context.Background(), "host-1", "", nil, config.Default())
	assert.Error(t, err)
}

func TestLoad_ReturnsNotFoundForMissingSession(t *testing.T) {
	repo := &tests.MockSessionRepo{}
	svc := newTestService(repo)

	_, err := svc.Load(context.Background(), "missing")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestLoad_ReturnsPersistedSession(t *testing.T) {
	repo := &tests.MockSessionRepo{Entity: &model.CoordinatorSession{ID: "abc123", Description: "movie night"}}
	svc := newTestService(repo)

	session, err := svc.Load(context.Background(), "abc123")
	require.NoError(t, err)
	assert.Equal(t, "movie night", session.Description)
}

func TestDelete_ClearsRepositoryEntity(t *testing.T) {
	repo := &tests.MockSessionRepo{}
	svc := newTestService(repo)

	_, err := svc.Create(context.Background(), "host-1", "", nil, config.Default())
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), repo.ID))
	assert.Empty(t, repo.ID)
}
