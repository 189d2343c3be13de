package model

import (
	"errors"

	"github.com/Masterminds/squirrel"
)

// ErrNotFound is returned by repositories when a row does not exist.
var ErrNotFound = errors.New("model: not found")

// QueryOptions narrows a repository read, grounded on the teacher's
// persistence.sqlRepository query-building convention.
type QueryOptions struct {
	Filters squirrel.Sqlizer
	Sort    string
	Order   string
	Max     int
	Offset  int
}
