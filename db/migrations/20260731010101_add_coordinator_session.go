package migrations

import (
	"context"
	"database/sql"

	"github.com/pressly/goose/v3"
)

func init() {
	goose.AddMigrationContext(upAddCoordinatorSession, downAddCoordinatorSession)
}

func upAddCoordinatorSession(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS coordinator_session (
			id                       VARCHAR(255) NOT NULL PRIMARY KEY,
			host_conn_id             VARCHAR(255) NOT NULL DEFAULT '',
			description              VARCHAR(255) DEFAULT '',
			allowed_roles            VARCHAR(255) DEFAULT '',
			max_playback_drift       REAL NOT NULL DEFAULT 1.0,
			position_update_interval REAL NOT NULL DEFAULT 2.0,
			created_at               DATETIME NOT NULL,
			updated_at               DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_coordinator_session_host ON coordinator_session(host_conn_id);
	`)
	return err
}

func downAddCoordinatorSession(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `
		DROP INDEX IF EXISTS idx_coordinator_session_host;
		DROP TABLE IF EXISTS coordinator_session;
	`)
	return err
}
