// Package storage implements the queryable audit history: a SQLite-backed
// index over completed AuditReports that
// lets an operator ask "show me the last 50 REVIEW_QUEUE reports for
// template X" without re-parsing the on-disk JSON artifacts the pipeline
// writes under internal/artifacts. The artifact files remain the source of
// truth; this store is a derived, queryable view over them.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/cgtqwmwkhp-rgb/job-sheet-qa-auditor-sub001/pkg/audit"
)

// History is the queryable audit-history store.
type History struct {
	db *sql.DB
}

// Open opens (creating if absent) a SQLite database at path and ensures its
// schema exists. Use ":memory:" for tests.
func Open(path string) (*History, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	h, err := OpenWithDB(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return h, nil
}

// OpenWithDB wraps an already-opened *sql.DB, running the same migration
// Open does. It exists so tests can substitute a mocked driver (e.g.
// github.com/DATA-DOG/go-sqlmock) for the real SQLite backend without
// exercising a file or in-memory database.
func OpenWithDB(db *sql.DB) (*History, error) {
	h := &History{db: db}
	if err := h.migrate(); err != nil {
		return nil, err
	}
	return h, nil
}

func (h *History) migrate() error {
	_, err := h.db.Exec(`
		CREATE TABLE IF NOT EXISTS audit_reports (
			correlation_id TEXT PRIMARY KEY,
			document_id    TEXT NOT NULL,
			template_id    TEXT NOT NULL,
			overall_result TEXT NOT NULL,
			score          REAL NOT NULL,
			recorded_at    TEXT NOT NULL,
			data           TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_audit_reports_template_result
			ON audit_reports (template_id, overall_result, recorded_at DESC);
	`)
	if err != nil {
		return fmt.Errorf("migrate sqlite schema: %w", err)
	}
	return nil
}

// Close releases the underlying database handle.
func (h *History) Close() error {
	return h.db.Close()
}

// Record indexes one completed AuditReport against templateID, the template
// version the pipeline selected for this document.
func (h *History) Record(ctx context.Context, documentID, templateID string, report audit.AuditReport, recordedAt string) error {
	raw, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal audit report: %w", err)
	}
	_, err = h.db.ExecContext(ctx, `
		INSERT INTO audit_reports (correlation_id, document_id, template_id, overall_result, score, recorded_at, data)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (correlation_id) DO UPDATE SET
			document_id = excluded.document_id,
			template_id = excluded.template_id,
			overall_result = excluded.overall_result,
			score = excluded.score,
			recorded_at = excluded.recorded_at,
			data = excluded.data
	`, report.CorrelationID, documentID, templateID, string(report.OverallResult), report.Score, recordedAt, raw)
	if err != nil {
		return fmt.Errorf("record audit report: %w", err)
	}
	return nil
}

// Query selects recent audit-history entries, optionally filtered by
// template id and/or overall result; both filters are applied only when
// non-empty. Results are ordered most-recent-first and capped at limit (a
// non-positive limit defaults to 50).
func (h *History) Query(ctx context.Context, templateID string, result audit.OverallResult, limit int) ([]audit.AuditReport, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT data FROM audit_reports WHERE 1=1`
	var args []any
	if templateID != "" {
		query += ` AND template_id = ?`
		args = append(args, templateID)
	}
	if result != "" {
		query += ` AND overall_result = ?`
		args = append(args, string(result))
	}
	query += ` ORDER BY recorded_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := h.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit history: %w", err)
	}
	defer rows.Close()

	var out []audit.AuditReport
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan audit history row: %w", err)
		}
		var report audit.AuditReport
		if err := json.Unmarshal([]byte(raw), &report); err != nil {
			return nil, fmt.Errorf("unmarshal audit history row: %w", err)
		}
		out = append(out, report)
	}
	return out, rows.Err()
}
