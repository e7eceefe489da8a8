package store

// Schema DDL for the run registry. The SQLite database is rebuilt from
// runs.jsonl on every Attach, so the schema carries no migrations.
const (
	createRuns = `CREATE TABLE runs (
    run_id TEXT PRIMARY KEY,
    kind TEXT NOT NULL,
    exp_version TEXT NOT NULL,
    state TEXT NOT NULL,
    command TEXT NOT NULL,
    output_dir TEXT,
    metrics_path TEXT,
    log_path TEXT,
    exit_code INTEGER NOT NULL DEFAULT 0,
    notes TEXT,
    created_at TEXT NOT NULL,
    started_at TEXT,
    finished_at TEXT
);`

	createRunsIndexes = `CREATE INDEX idx_runs_kind_state ON runs (kind, state);
CREATE INDEX idx_runs_exp_version ON runs (exp_version);`
)

// schemaSQL is the full DDL executed on Attach.
var schemaSQL = createRuns + "\n" + createRunsIndexes
