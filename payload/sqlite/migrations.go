package sqlite

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the payload table.
var Migrations = migrate.NewGroup("interceder")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_interceder_payloads",
			Version: "20250101000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS interceder_payloads (
    topic_key   TEXT PRIMARY KEY,
    body        BLOB NOT NULL,
    updated_at  INTEGER NOT NULL
);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS interceder_payloads`)
				return err
			},
		},
	)
}
