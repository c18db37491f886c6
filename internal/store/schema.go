package store

import migrate "github.com/rubenv/sql-migrate"

// migrationSource is the embedded schema history applied on every Open. New
// migrations are appended, never edited in place.
var migrationSource = &migrate.MemoryMigrationSource{
	Migrations: []*migrate.Migration{
		{
			Id: "0001_initial",
			Up: []string{
				`CREATE TABLE deployment_log (
					id                INTEGER PRIMARY KEY AUTOINCREMENT,
					sources           TEXT NOT NULL DEFAULT '',
					targets           TEXT NOT NULL DEFAULT '',
					filter_expression TEXT NOT NULL DEFAULT '',
					filter_type       TEXT NOT NULL DEFAULT '',
					restart           BOOLEAN NOT NULL DEFAULT 0,
					deployment_type   TEXT NOT NULL,
					state             TEXT NOT NULL,
					start_time        TIMESTAMP NULL,
					end_time          TIMESTAMP NULL
				)`,
				// Only one PLANNED deployment may exist at a time (spec.md §3).
				`CREATE UNIQUE INDEX deployment_log_one_planned
					ON deployment_log (state)
					WHERE state = 'PLANNED'`,
				`CREATE TABLE operation_log (
					deployment_id INTEGER NOT NULL REFERENCES deployment_log(id) ON DELETE CASCADE,
					plan_index    INTEGER NOT NULL,
					operation     TEXT NOT NULL,
					state         TEXT NOT NULL,
					start_time    TIMESTAMP NULL,
					end_time      TIMESTAMP NULL,
					logs          BLOB NULL,
					PRIMARY KEY (deployment_id, plan_index)
				)`,
				`CREATE TABLE component_version_log (
					id            INTEGER PRIMARY KEY AUTOINCREMENT,
					deployment_id INTEGER NOT NULL REFERENCES deployment_log(id) ON DELETE CASCADE,
					emit_order    INTEGER NOT NULL,
					service       TEXT NOT NULL,
					component     TEXT NOT NULL DEFAULT '',
					version       TEXT NOT NULL
				)`,
				`CREATE INDEX component_version_log_latest
					ON component_version_log (service, component, id DESC)`,
			},
			Down: []string{
				`DROP TABLE component_version_log`,
				`DROP TABLE operation_log`,
				`DROP TABLE deployment_log`,
			},
		},
	},
}
