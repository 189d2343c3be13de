package rolegate

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRoleService struct {
	calls int
	roles map[string][]string
	err   error
}

func (f *fakeRoleService) RolesFor(ctx context.Context, connID string) ([]string, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.roles[connID], nil
}

func TestAllows_EmptyRequiredIsUnrestricted(t *testing.T) {
	svc := &fakeRoleService{}
	g := New(svc, 0)

	allowed, err := g.Allows(context.Background(), "conn-1", nil)
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Zero(t, svc.calls, "an unrestricted check should never consult the RoleService")
}

func TestAllows_GrantsWhenConnectionHoldsRequiredRole(t *testing.T) {
	svc := &fakeRoleService{roles: map[string][]string{"conn-1": {"host", "viewer"}}}
	g := New(svc, 0)

	allowed, err := g.Allows(context.Background(), "conn-1", []string{"host"})
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestAllows_DeniesWhenRoleMissing(t *testing.T) {
	svc := &fakeRoleService{roles: map[string][]string{"conn-1": {"viewer"}}}
	g := New(svc, 0)

	allowed, err := g.Allows(context.Background(), "conn-1", []string{"host"})
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestAllows_PropagatesServiceError(t *testing.T) {
	svc := &fakeRoleService{err: errors.New("boom")}
	g := New(svc, 0)

	_, err := g.Allows(context.Background(), "conn-1", []string{"host"})
	assert.Error(t, err)
}

func TestAllows_CachesAcrossCalls(t *testing.T) {
	svc := &fakeRoleService{roles: map[string][]string{"conn-1": {"host"}}}
	g := New(svc, 0)

	_, _ = g.Allows(context.Background(), "conn-1", []string{"host"})
	_, _ = g.Allows(context.Background(), "conn-1", []string{"host"})
	assert.Equal(t, 1, svc.calls)
}

func TestInvalidate_ForcesRefetch(t *testing.T) {
	svc := &fakeRoleService{roles: map[string][]string{"conn-1": {"host"}}}
	g := New(svc, 0)

	_, _ = g.Allows(context.Background(), "conn-1", []string{"host"})
	g.Invalidate("conn-1")
	_, _ = g.Allows(context.Background(), "conn-1", []string{"host"})
	assert.Equal(t, 2, svc.calls)
}

func TestCacheKey_OrderIndependent(t *testing.T) {
	a := CacheKey("conn-1", []string{"host", "viewer"})
	b := CacheKey("conn-1", []string{"viewer", "host"})
	assert.Equal(t, a, b)
}
