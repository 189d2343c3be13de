package model

import (
	"strings"
	"time"
)

// CoordinatorSession is the durable record created when a synchronized
// playback session is stood up. It is intentionally thin: everything about
// what the group is currently doing lives in the in-memory groupstate.State
// keyed by this record's ID, mirroring the split between a persisted
// ListenSession row and its live in-memory counterpart.
type CoordinatorSession struct {
	ID                     string    `structs:"id" json:"id,omitempty"`
	HostConnID             string    `structs:"host_conn_id" json:"hostConnId,omitempty"`
	Description            string    `structs:"description" json:"description,omitempty"`
	AllowedRoles           string    `structs:"allowed_roles" json:"allowedRoles,omitempty"`
	MaxPlaybackDrift       float64   `structs:"max_playback_drift" json:"maxPlaybackDrift,omitempty"`
	PositionUpdateInterval float64   `structs:"position_update_interval" json:"positionUpdateInterval,omitempty"`
	CreatedAt              time.Time `structs:"created_at" json:"createdAt,omitempty"`
	UpdatedAt              time.Time `structs:"updated_at" json:"updatedAt,omitempty"`
}

// CoordinatorSessions is a collection of CoordinatorSession rows.
type CoordinatorSessions []CoordinatorSession

// Roles splits the persisted comma-separated AllowedRoles column into a
// role set. An empty value means unrestricted.
func (s CoordinatorSession) Roles() []string {
	if s.AllowedRoles == "" {
		return nil
	}
	return strings.Split(s.AllowedRoles, ",")
}

// CoordinatorSessionRepository is the storage interface a session's
// persisted record is read through, grounded on the teacher's
// ListenSessionRepository shape.
type CoordinatorSessionRepository interface {
	Exists(id string) (bool, error)
	Get(id string) (*CoordinatorSession, error)
	GetAll(options ...QueryOptions) (CoordinatorSessions, error)
	CountAll(options ...QueryOptions) (int64, error)
}
