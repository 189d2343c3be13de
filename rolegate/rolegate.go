// Package rolegate filters inbound transport commands by sender role and
// refuses outbound sends the local connection isn't authorized to make
// (spec.md §4.1, §6.1/Role gate in the glossary). It is the generalization
// of the teacher's single hard-coded isRemoteHolder check in hub.go into an
// arbitrary required-role-set check against a pluggable RoleService, with
// per-connection caching the way heilerich-livekit-server's participant
// state caches hot lookups via hashicorp/golang-lru.
package rolegate

import (
	"context"
	"sort"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// RoleService maps a connection id to the set of roles it currently holds.
// It is an external collaborator (spec.md §1): typically backed by the
// transport's auth layer.
type RoleService interface {
	RolesFor(ctx context.Context, connID string) ([]string, error)
}

const defaultCacheSize = 256

// Gate decides whether a connection id holds at least one role from a
// required set.
type Gate struct {
	service RoleService
	cache   *lru.Cache[string, []string]
}

// New creates a Gate backed by service, caching up to size (connID,roles)
// pairs. size <= 0 selects defaultCacheSize.
func New(service RoleService, size int) *Gate {
	if size <= 0 {
		size = defaultCacheSize
	}
	cache, _ := lru.New[string, []string](size)
	return &Gate{service: service, cache: cache}
}

// Allows reports whether connID holds at least one role in required. An
// empty required set means unrestricted (spec.md §4.1's unrestricted
// scope) and always allows.
func (g *Gate) Allows(ctx context.Context, connID string, required []string) (bool, error) {
	if len(required) == 0 {
		return true, nil
	}
	roles, err := g.rolesFor(ctx, connID)
	if err != nil {
		return false, err
	}
	requiredSet := make(map[string]struct{}, len(required))
	for _, r := range required {
		requiredSet[r] = struct{}{}
	}
	for _, r := range roles {
		if _, ok := requiredSet[r]; ok {
			return true, nil
		}
	}
	return false, nil
}

func (g *Gate) rolesFor(ctx context.Context, connID string) ([]string, error) {
	if roles, ok := g.cache.Get(connID); ok {
		return roles, nil
	}
	roles, err := g.service.RolesFor(ctx, connID)
	if err != nil {
		return nil, err
	}
	g.cache.Add(connID, roles)
	return roles, nil
}

// Invalidate evicts a connection's cached roles, called when the
// transport signals that a connection has disconnected or re-authenticated
// (spec.md §5's "cached for the duration of the connection").
func (g *Gate) Invalidate(connID string) {
	g.cache.Remove(connID)
}

// CacheKey is exposed for callers that want a stable key combining a
// connection id with a required role set, e.g. for metrics labels.
func CacheKey(connID string, required []string) string {
	sorted := append([]string(nil), required...)
	sort.Strings(sorted)
	return connID + "|" + strings.Join(sorted, ",")
}
