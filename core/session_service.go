// Package core hosts the thin service layer between the HTTP surface and
// persistence, grounded on the teacher's core.ListenTogether service.
package core

import (
	"context"
	"strings"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/pocketbase/dbx"

	"github.com/syncplay/coordinator/config"
	"github.com/syncplay/coordinator/model"
	"github.com/syncplay/coordinator/persistence"
)

const sessionIDAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// SessionService creates and loads the durable half of a coordinator
// session, the way the teacher's ListenTogether service wraps a
// ListenSessionRepository.
type SessionService interface {
	Create(ctx context.Context, hostConnID, description string, allowedRoles []string, cfg config.Config) (*model.CoordinatorSession, error)
	Load(ctx context.Context, id string) (*model.CoordinatorSession, error)
	Delete(ctx context.Context, id string) error
}

type sessionService struct {
	repoFactory func(context.Context) model.CoordinatorSessionRepository
}

// NewSessionService creates a SessionService backed by the given database.
func NewSessionService(db dbx.Builder) SessionService {
	return &sessionService{
		repoFactory: func(ctx context.Context) model.CoordinatorSessionRepository {
			return persistence.NewSessionRepository(ctx, db)
		},
	}
}

// newSessionServiceWithRepo wires an arbitrary repository factory in place
// of a live database connection, the way the teacher's service tests swap
// in a MockListenSessionRepo.
func newSessionServiceWithRepo(factory func(context.Context) model.CoordinatorSessionRepository) SessionService {
	return &sessionService{repoFactory: factory}
}

func (s *sessionService) repo(ctx context.Context) model.CoordinatorSessionRepository {
	return s.repoFactory(ctx)
}

func (s *sessionService) newID(ctx context.Context) (string, error) {
	repo := s.repo(ctx)
	for {
		id, err := gonanoid.Generate(sessionIDAlphabet, 10)
		if err != nil {
			return "", err
		}
		exists, err := repo.Exists(id)
		if err != nil {
			return "", err
		}
		if !exists {
			return id, nil
		}
	}
}

func (s *sessionService) Create(ctx context.Context, hostConnID, description string, allowedRoles []string, cfg config.Config) (*model.CoordinatorSession, error) {
	id, err := s.newID(ctx)
	if err != nil {
		return nil, err
	}
	session := &model.CoordinatorSession{
		ID:                     id,
		HostConnID:             hostConnID,
		Description:            description,
		AllowedRoles:           strings.Join(allowedRoles, ","),
		MaxPlaybackDrift:       cfg.MaxPlaybackDriftSeconds,
		PositionUpdateInterval: cfg.PositionUpdateIntervalSeconds,
	}
	repo := s.repo(ctx)
	saveable, ok := repo.(interface{ Save(interface{}) (string, error) })
	if !ok {
		return nil, model.ErrNotFound
	}
	if _, err := saveable.Save(session); err != nil {
		return nil, err
	}
	return session, nil
}

func (s *sessionService) Load(ctx context.Context, id string) (*model.CoordinatorSession, error) {
	return s.repo(ctx).Get(id)
}

func (s *sessionService) Delete(ctx context.Context, id string) error {
	repo := s.repo(ctx)
	deletable, ok := repo.(interface{ Delete(string) error })
	if !ok {
		return model.ErrNotFound
	}
	return deletable.Delete(id)
}
