package registry

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cgtqwmwkhp-rgb/job-sheet-qa-auditor-sub001/pkg/audit"
)

// PgStore is the durable Store implementation, backing the registry's
// opaque key-value interface with two JSONB tables.
//
// Expected schema:
//
//	CREATE TABLE templates (slug TEXT PRIMARY KEY, data JSONB NOT NULL);
//	CREATE TABLE fixture_packs (version_id TEXT PRIMARY KEY, data JSONB NOT NULL);
type PgStore struct {
	pool *pgxpool.Pool
}

// NewPgStore wraps an already-connected pool.
func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

func (s *PgStore) GetTemplate(ctx context.Context, slug string) (audit.Template, bool, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, `SELECT data FROM templates WHERE slug = $1`, slug).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return audit.Template{}, false, nil
	}
	if err != nil {
		return audit.Template{}, false, err
	}
	var tmpl audit.Template
	if err := json.Unmarshal(raw, &tmpl); err != nil {
		return audit.Template{}, false, err
	}
	return tmpl, true, nil
}

func (s *PgStore) PutTemplate(ctx context.Context, tmpl audit.Template) error {
	raw, err := json.Marshal(tmpl)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO templates (slug, data) VALUES ($1, $2)
		ON CONFLICT (slug) DO UPDATE SET data = EXCLUDED.data
	`, tmpl.Slug, raw)
	return err
}

func (s *PgStore) ListTemplates(ctx context.Context) ([]audit.Template, error) {
	rows, err := s.pool.Query(ctx, `SELECT data FROM templates`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []audit.Template
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var tmpl audit.Template
		if err := json.Unmarshal(raw, &tmpl); err != nil {
			return nil, err
		}
		out = append(out, tmpl)
	}
	return out, rows.Err()
}

func (s *PgStore) GetFixturePack(ctx context.Context, versionID string) (audit.FixturePack, bool, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, `SELECT data FROM fixture_packs WHERE version_id = $1`, versionID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return audit.FixturePack{}, false, nil
	}
	if err != nil {
		return audit.FixturePack{}, false, err
	}
	var pack audit.FixturePack
	if err := json.Unmarshal(raw, &pack); err != nil {
		return audit.FixturePack{}, false, err
	}
	return pack, true, nil
}

func (s *PgStore) PutFixturePack(ctx context.Context, versionID string, pack audit.FixturePack) error {
	raw, err := json.Marshal(pack)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO fixture_packs (version_id, data) VALUES ($1, $2)
		ON CONFLICT (version_id) DO UPDATE SET data = EXCLUDED.data
	`, versionID, raw)
	return err
}
