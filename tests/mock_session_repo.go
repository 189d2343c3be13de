package tests

import (
	"github.com/deluan/rest"

	"github.com/syncplay/coordinator/model"
)

// MockSessionRepo is a hand-rolled fake of model.CoordinatorSessionRepository,
// grounded on the teacher's MockListenSessionRepo: embed the interfaces so
// the zero value satisfies them, then override only what a test needs and
// force failures via Error.
type MockSessionRepo struct {
	model.CoordinatorSessionRepository
	rest.Repository
	rest.Persistable

	Entity interface{}
	ID     string
	Cols   []string
	Error  error
}

func (m *MockSessionRepo) Exists(id string) (bool, error) {
	if m.Error != nil {
		return false, m.Error
	}
	return m.ID == id, nil
}

func (m *MockSessionRepo) Get(id string) (*model.CoordinatorSession, error) {
	if m.Error != nil {
		return nil, m.Error
	}
	if m.Entity != nil {
		s := m.Entity.(*model.CoordinatorSession)
		return s, nil
	}
	return nil, model.ErrNotFound
}

func (m *MockSessionRepo) GetAll(options ...model.QueryOptions) (model.CoordinatorSessions, error) {
	if m.Error != nil {
		return nil, m.Error
	}
	return model.CoordinatorSessions{}, nil
}

func (m *MockSessionRepo) CountAll(options ...model.QueryOptions) (int64, error) {
	if m.Error != nil {
		return 0, m.Error
	}
	return 0, nil
}

func (m *MockSessionRepo) Save(entity interface{}) (string, error) {
	if m.Error != nil {
		return "", m.Error
	}
	m.Entity = entity
	s := entity.(*model.CoordinatorSession)
	m.ID = s.ID
	return s.ID, nil
}

func (m *MockSessionRepo) Delete(id string) error {
	if m.Error != nil {
		return m.Error
	}
	m.ID = ""
	m.Entity = nil
	return nil
}
