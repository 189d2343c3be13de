// Package persistence stores the durable half of a coordinator session —
// the CoordinatorSession row — the way the teacher's persistence package
// stores a ListenSession: squirrel builds the query, dbx runs it.
package persistence

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/deluan/rest"
	"github.com/pocketbase/dbx"

	"github.com/syncplay/coordinator/model"
)

const sessionTable = "coordinator_session"

type sessionRepository struct {
	ctx context.Context
	db  dbx.Builder
}

// NewSessionRepository creates a model.CoordinatorSessionRepository backed
// by the given dbx connection/transaction.
func NewSessionRepository(ctx context.Context, db dbx.Builder) model.CoordinatorSessionRepository {
	return &sessionRepository{ctx: ctx, db: db}
}

func (r *sessionRepository) selectSession(options ...model.QueryOptions) sq.SelectBuilder {
	sel := sq.Select("id", "host_conn_id", "description", "allowed_roles",
		"max_playback_drift", "position_update_interval", "created_at", "updated_at").
		From(sessionTable)
	for _, o := range options {
		if o.Filters != nil {
			sel = sel.Where(o.Filters)
		}
		if o.Sort != "" {
			order := o.Sort
			if o.Order != "" {
				order += " " + o.Order
			}
			sel = sel.OrderBy(order)
		}
		if o.Max > 0 {
			sel = sel.Limit(uint64(o.Max))
		}
		if o.Offset > 0 {
			sel = sel.Offset(uint64(o.Offset))
		}
	}
	return sel
}

func (r *sessionRepository) Exists(id string) (bool, error) {
	q, err := bind(r.db, sq.Select("1").From(sessionTable).Where(sq.Eq{"id": id}))
	if err != nil {
		return false, err
	}
	var found int
	err = q.Row(&found)
	if isNotFound(err) {
		return false, nil
	}
	return err == nil, err
}

func (r *sessionRepository) Get(id string) (*model.CoordinatorSession, error) {
	q, err := bind(r.db, r.selectSession().Where(sq.Eq{"id": id}))
	if err != nil {
		return nil, err
	}
	var out model.CoordinatorSession
	err = q.One(&out)
	if isNotFound(err) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *sessionRepository) GetAll(options ...model.QueryOptions) (model.CoordinatorSessions, error) {
	q, err := bind(r.db, r.selectSession(options...))
	if err != nil {
		return nil, err
	}
	var out model.CoordinatorSessions
	err = q.All(&out)
	return out, err
}

func (r *sessionRepository) CountAll(options ...model.QueryOptions) (int64, error) {
	sel := sq.Select("count(*)").From(sessionTable)
	for _, o := range options {
		if o.Filters != nil {
			sel = sel.Where(o.Filters)
		}
	}
	q, err := bind(r.db, sel)
	if err != nil {
		return 0, err
	}
	var count int64
	err = q.Row(&count)
	return count, err
}

// Save inserts a new session row, assigning CreatedAt/UpdatedAt, the way
// listenSessionRepository.Save stamps timestamps on insert.
func (r *sessionRepository) Save(entity interface{}) (string, error) {
	s := entity.(*model.CoordinatorSession)
	now := time.Now()
	s.CreatedAt = now
	s.UpdatedAt = now

	stmt := sq.Insert(sessionTable).
		Columns("id", "host_conn_id", "description", "allowed_roles",
			"max_playback_drift", "position_update_interval", "created_at", "updated_at").
		Values(s.ID, s.HostConnID, s.Description, s.AllowedRoles,
			s.MaxPlaybackDrift, s.PositionUpdateInterval, s.CreatedAt, s.UpdatedAt)
	q, err := bind(r.db, stmt)
	if err != nil {
		return "", err
	}
	_, err = q.Execute()
	return s.ID, err
}

// Update replaces the mutable columns of an existing session row.
func (r *sessionRepository) Update(id string, entity interface{}, cols ...string) error {
	s := entity.(*model.CoordinatorSession)
	s.ID = id
	s.UpdatedAt = time.Now()

	stmt := sq.Update(sessionTable).
		Set("description", s.Description).
		Set("allowed_roles", s.AllowedRoles).
		Set("max_playback_drift", s.MaxPlaybackDrift).
		Set("position_update_interval", s.PositionUpdateInterval).
		Set("updated_at", s.UpdatedAt).
		Where(sq.Eq{"id": id})
	q, err := bind(r.db, stmt)
	if err != nil {
		return err
	}
	res, err := q.Execute()
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return rest.ErrNotFound
	}
	return nil
}

func (r *sessionRepository) Delete(id string) error {
	q, err := bind(r.db, sq.Delete(sessionTable).Where(sq.Eq{"id": id}))
	if err != nil {
		return err
	}
	res, err := q.Execute()
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return rest.ErrNotFound
	}
	return nil
}

// --- rest.Repository / rest.Persistable plumbing, mirroring the teacher's
// dual-interface pattern so this repository slots into deluan/rest's
// generic HTTP-to-storage glue.

func (r *sessionRepository) EntityName() string { return "coordinator_session" }

func (r *sessionRepository) NewInstance() interface{} { return &model.CoordinatorSession{} }

func (r *sessionRepository) Read(id string) (interface{}, error) {
	return r.Get(id)
}

func (r *sessionRepository) ReadAll(options ...rest.QueryOptions) (interface{}, error) {
	return r.GetAll()
}

func (r *sessionRepository) Count(options ...rest.QueryOptions) (int64, error) {
	return r.CountAll()
}

var _ model.CoordinatorSessionRepository = (*sessionRepository)(nil)
var _ rest.Repository = (*sessionRepository)(nil)
var _ rest.Persistable = (*sessionRepository)(nil)
