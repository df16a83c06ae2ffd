// SPDX-License-Identifier: MIT

// Package sqlite stores the zone document in a SQLite database: one row per
// zone and one row per component, rewritten in a single transaction on
// every save.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ManuGH/zonewatch/internal/derived"
	"gopkg.in/yaml.v3"
)

const schema = `
CREATE TABLE IF NOT EXISTS zone_document (
	id      INTEGER PRIMARY KEY CHECK (id = 1),
	version INTEGER NOT NULL,
	saved_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))
);
CREATE TABLE IF NOT EXISTS zones (
	position INTEGER PRIMARY KEY,
	name     TEXT NOT NULL UNIQUE
);
CREATE TABLE IF NOT EXISTS zone_components (
	zone_position INTEGER NOT NULL REFERENCES zones(position) ON DELETE CASCADE,
	position      INTEGER NOT NULL,
	kind          TEXT NOT NULL,
	params        TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (zone_position, position)
);`

// Store is a derived.Store backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// New opens (creating if needed) the database at path and applies the
// schema.
func New(ctx context.Context, path string, cfg Config) (*Store, error) {
	db, err := Open(path, cfg)
	if err != nil {
		return nil, err
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: apply schema: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// Verify runs a quick integrity check.
func (s *Store) Verify() ([]string, error) {
	return VerifyIntegrity(s.path, "quick")
}

// Load reads the document. A database that has never been saved to returns
// derived.ErrNoDocument.
func (s *Store) Load(ctx context.Context) (derived.Document, error) {
	var doc derived.Document
	err := s.db.QueryRowContext(ctx, `SELECT version FROM zone_document WHERE id = 1`).Scan(&doc.Version)
	if err == sql.ErrNoRows {
		return derived.Document{}, derived.ErrNoDocument
	}
	if err != nil {
		return derived.Document{}, fmt.Errorf("sqlite: read document: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT z.position, z.name, c.kind, c.params
		FROM zones z
		LEFT JOIN zone_components c ON c.zone_position = z.position
		ORDER BY z.position, c.position`)
	if err != nil {
		return derived.Document{}, fmt.Errorf("sqlite: read zones: %w", err)
	}
	defer rows.Close()

	lastPos := int64(-1)
	for rows.Next() {
		var (
			pos    int64
			name   string
			kind   sql.NullString
			params sql.NullString
		)
		if err := rows.Scan(&pos, &name, &kind, &params); err != nil {
			return derived.Document{}, fmt.Errorf("sqlite: scan zone: %w", err)
		}
		if pos != lastPos {
			doc.Zones = append(doc.Zones, derived.ZoneSpec{Name: name})
			lastPos = pos
		}
		if !kind.Valid {
			continue
		}
		p, err := decodeParams(params.String)
		if err != nil {
			return derived.Document{}, fmt.Errorf("%w: zone %q: %w", derived.ErrCorruptDocument, name, err)
		}
		z := &doc.Zones[len(doc.Zones)-1]
		z.Components = append(z.Components, derived.ComponentSpec{Kind: kind.String, Params: p})
	}
	if err := rows.Err(); err != nil {
		return derived.Document{}, fmt.Errorf("sqlite: read zones: %w", err)
	}
	if err := doc.Validate(); err != nil {
		return derived.Document{}, fmt.Errorf("%w: %w", derived.ErrCorruptDocument, err)
	}
	return doc, nil
}

// Save replaces the stored document in one transaction.
func (s *Store) Save(ctx context.Context, doc derived.Document) (err error) {
	if doc.Version == 0 {
		doc.Version = derived.DocumentVersion
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM zone_components`); err != nil {
		return fmt.Errorf("sqlite: clear components: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM zones`); err != nil {
		return fmt.Errorf("sqlite: clear zones: %w", err)
	}
	if _, err = tx.ExecContext(ctx,
		`INSERT INTO zone_document (id, version) VALUES (1, ?)
		 ON CONFLICT(id) DO UPDATE SET version = excluded.version,
		   saved_at = strftime('%Y-%m-%dT%H:%M:%fZ', 'now')`, doc.Version); err != nil {
		return fmt.Errorf("sqlite: write document: %w", err)
	}

	for i, z := range doc.Zones {
		if _, err = tx.ExecContext(ctx, `INSERT INTO zones (position, name) VALUES (?, ?)`, i, z.Name); err != nil {
			return fmt.Errorf("sqlite: insert zone %q: %w", z.Name, err)
		}
		for j, c := range z.Components {
			var params string
			if params, err = encodeParams(c.Params); err != nil {
				return fmt.Errorf("sqlite: zone %q component %d: %w", z.Name, j, err)
			}
			if _, err = tx.ExecContext(ctx,
				`INSERT INTO zone_components (zone_position, position, kind, params) VALUES (?, ?, ?, ?)`,
				i, j, c.Kind, params); err != nil {
				return fmt.Errorf("sqlite: insert component %d of zone %q: %w", j, z.Name, err)
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit: %w", err)
	}
	return nil
}

// Params are stored as YAML so integers survive the round trip as integers.
func encodeParams(p derived.Params) (string, error) {
	if len(p) == 0 {
		return "", nil
	}
	out, err := yaml.Marshal(map[string]any(p))
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func decodeParams(s string) (derived.Params, error) {
	if s == "" {
		return nil, nil
	}
	var p derived.Params
	if err := yaml.Unmarshal([]byte(s), &p); err != nil {
		return nil, err
	}
	return p, nil
}
