package sqlite

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the subsplit store (SQLite).
var Migrations = migrate.NewGroup("subsplit")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_subsplit_records",
			Version: "20250101000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS subsplit_records (
    kind       TEXT NOT NULL,
    record_id  TEXT NOT NULL,
    value      BLOB DEFAULT x'',
    deleted    INTEGER NOT NULL DEFAULT 0,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (kind, record_id)
);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS subsplit_records`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_subsplit_records_tombstone_index",
			Version: "20250101000002",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE INDEX IF NOT EXISTS idx_subsplit_records_deleted
    ON subsplit_records (deleted, updated_at);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP INDEX IF EXISTS idx_subsplit_records_deleted`)
				return err
			},
		},
	)
}
