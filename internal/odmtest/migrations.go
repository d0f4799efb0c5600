package odmtest

import (
	"context"
	"database/sql"
	"fmt"
)

// schema contains the DDL for the fake service state.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS entities (
		accession  TEXT PRIMARY KEY,
		kind       TEXT NOT NULL,
		data_link  TEXT NOT NULL DEFAULT ''
	)`,

	`CREATE TABLE IF NOT EXISTS jobs (
		id               INTEGER PRIMARY KEY AUTOINCREMENT,
		kind             TEXT NOT NULL,
		data_link        TEXT NOT NULL,
		metadata_link    TEXT NOT NULL DEFAULT '',
		template_id      TEXT NOT NULL DEFAULT '',
		source           TEXT NOT NULL DEFAULT '',
		previous_version TEXT NOT NULL DEFAULT '',
		polls_left       INTEGER NOT NULL DEFAULT 0,
		failure          TEXT NOT NULL DEFAULT '',
		accession        TEXT NOT NULL DEFAULT '',
		UNIQUE (kind, data_link)
	)`,

	`CREATE TABLE IF NOT EXISTS links (
		relation TEXT NOT NULL,
		source   TEXT NOT NULL,
		target   TEXT NOT NULL,
		seq      INTEGER NOT NULL,
		PRIMARY KEY (relation, source, target)
	)`,

	`CREATE TABLE IF NOT EXISTS templates (
		accession  TEXT PRIMARY KEY,
		name       TEXT NOT NULL DEFAULT '',
		is_default INTEGER NOT NULL DEFAULT 0
	)`,

	`CREATE INDEX IF NOT EXISTS idx_entities_kind ON entities(kind)`,
	`CREATE INDEX IF NOT EXISTS idx_links_target ON links(relation, target)`,
}

// migrate runs all schema statements.
func migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
