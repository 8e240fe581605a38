// Package store holds the per-job state: the last-known dispatch record, the
// current route, and the session token, partitioned strictly by job id. The
// memory layer is the single source of truth for rendering; every mutation is
// an atomic whole-value replacement mirrored to the state database so a
// restart resumes exactly where the driver left off.
package store

import (
	"database/sql"
	"fmt"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"livery/internal/log"
)

const schema = `
CREATE TABLE IF NOT EXISTS jobs (
	job_id     TEXT PRIMARY KEY,
	record     TEXT,
	route      TEXT NOT NULL DEFAULT '',
	token      TEXT NOT NULL DEFAULT '',
	updated_at INTEGER NOT NULL
);`

// DB is the on-disk half of the store.
type DB struct {
	db   *sql.DB
	path string
}

// jobRow mirrors one row of the jobs table. The record column holds the
// serialized envelope, empty when the job has no data yet.
type jobRow struct {
	JobID     string
	Record    string
	Route     string
	Token     string
	UpdatedAt int64
}

// OpenDB opens (creating if needed) the state database at path.
func OpenDB(path string) (*DB, error) {
	log.Debug(log.CatDB, "opening state database", "path", path)
	db, err := sql.Open("sqlite3", "file:"+path)
	if err != nil {
		return nil, fmt.Errorf("opening state db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pinging state db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating state schema: %w", err)
	}
	return &DB{db: db, path: path}, nil
}

// Path returns the database file path (used by the state watcher).
func (d *DB) Path() string { return d.path }

// Close closes the underlying connection.
func (d *DB) Close() error { return d.db.Close() }

// saveJob upserts one job row. The whole row is replaced in a single
// statement so readers never observe a partial update.
func (d *DB) saveJob(row jobRow) error {
	_, err := d.db.Exec(
		`INSERT INTO jobs (job_id, record, route, token, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(job_id) DO UPDATE SET
			record = excluded.record,
			route = excluded.route,
			token = excluded.token,
			updated_at = excluded.updated_at`,
		row.JobID, row.Record, row.Route, row.Token, row.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("saving job %s: %w", row.JobID, err)
	}
	return nil
}

// deleteJob removes one job row.
func (d *DB) deleteJob(jobID string) error {
	if _, err := d.db.Exec(`DELETE FROM jobs WHERE job_id = ?`, jobID); err != nil {
		return fmt.Errorf("deleting job %s: %w", jobID, err)
	}
	return nil
}

// loadJobs reads every persisted row.
func (d *DB) loadJobs() ([]jobRow, error) {
	rows, err := d.db.Query(`SELECT job_id, record, route, token, updated_at FROM jobs`)
	if err != nil {
		return nil, fmt.Errorf("loading jobs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []jobRow
	for rows.Next() {
		var row jobRow
		if err := rows.Scan(&row.JobID, &row.Record, &row.Route, &row.Token, &row.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning job row: %w", err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating job rows: %w", err)
	}
	return out, nil
}
