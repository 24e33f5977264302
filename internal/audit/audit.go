// Package audit persists gate decisions to a local SQLite database, so a
// teacher can review when students ran which tool and why launches were
// refused. The log is advisory: a broken database never blocks the gate.
package audit

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/tartampluch/go-coursebox/internal/config"
	"github.com/tartampluch/go-coursebox/internal/gate"

	_ "modernc.org/sqlite" // SQLite driver.
)

// Log records gate decisions. It implements gate.Recorder.
type Log struct {
	db  *sql.DB
	log *slog.Logger
}

// Open opens or creates the audit database and applies migrations.
func Open(path string) (*Log, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, config.DirPermUserRWX); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	l := &Log{
		db:  db,
		log: slog.With(config.LogKeyComponent, config.CompAudit),
	}
	if err := l.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return l, nil
}

// Close closes the underlying database.
func (l *Log) Close() error {
	return l.db.Close()
}

func (l *Log) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS decisions (
			id INTEGER PRIMARY KEY,
			at TEXT NOT NULL,
			app_id TEXT NOT NULL,
			state TEXT NOT NULL,
			reason TEXT NOT NULL,
			source TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_decisions_at ON decisions(at);`,
		`CREATE INDEX IF NOT EXISTS idx_decisions_app_id ON decisions(app_id);`,
	}
	for _, stmt := range stmts {
		if _, err := l.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Record stores one decision. Failures are logged and swallowed: an audit
// write must never change a gate outcome.
func (l *Log) Record(ctx context.Context, d gate.Decision) {
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO decisions (at, app_id, state, reason, source) VALUES (?, ?, ?, ?, ?)`,
		d.At.UTC().Format(time.RFC3339Nano),
		d.AppID,
		string(d.State),
		string(d.Reason),
		d.Source,
	)
	if err != nil {
		l.log.Warn(config.MsgAuditDegraded, config.LogKeyError, err)
	}
}

// Recent returns up to limit decisions, newest first.
func (l *Log) Recent(ctx context.Context, limit int) ([]gate.Decision, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT at, app_id, state, reason, source FROM decisions ORDER BY at DESC, id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []gate.Decision
	for rows.Next() {
		var at string
		var d gate.Decision
		var state, reason string
		if err := rows.Scan(&at, &d.AppID, &state, &reason, &d.Source); err != nil {
			return nil, err
		}
		ts, err := time.Parse(time.RFC3339Nano, at)
		if err != nil {
			return nil, err
		}
		d.At = ts
		d.State = gate.State(state)
		d.Reason = gate.Reason(reason)
		out = append(out, d)
	}
	return out, rows.Err()
}
