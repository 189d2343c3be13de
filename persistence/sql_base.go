package persistence

import (
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/pocketbase/dbx"
)

// bind translates a squirrel statement's "?" placeholders into dbx's named
// parameter syntax and returns a ready-to-run dbx.Query, mirroring the
// teacher's sqlRepository bridge between squirrel's query building and
// dbx's execution.
func bind(db dbx.Builder, stmt sq.Sqlizer) (*dbx.Query, error) {
	query, args, err := stmt.ToSql()
	if err != nil {
		return nil, err
	}
	params := make(dbx.Params, len(args))
	rebound := make([]byte, 0, len(query)+len(args)*4)
	argIdx := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			key := fmt.Sprintf("p%d", argIdx)
			params[key] = args[argIdx]
			rebound = append(rebound, []byte("{:"+key+"}")...)
			argIdx++
			continue
		}
		rebound = append(rebound, query[i])
	}
	return db.NewQuery(string(rebound)).Bind(params), nil
}

func isNotFound(err error) bool {
	return err == sql.ErrNoRows
}
