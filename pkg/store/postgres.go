// SPDX-License-Identifier: AGPL-3.0-or-later

/*

remoteconfig - a context-aware configuration resolution service for mobile clients.

Copyright (C) 2025  Bartek Kus

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.

*/

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/google/uuid"

	"remoteconfig/pkg/model"
)

// Postgres is a Store backed by a single JSONB table, one row per
// (app_id, version). It uses database/sql with the pgx stdlib driver
// rather than pgx's native pool API.
type Postgres struct {
	db *sql.DB
}

// OpenPostgres opens dbURL and ensures the backing table exists.
func OpenPostgres(ctx context.Context, dbURL string) (*Postgres, error) {
	db, err := sql.Open("pgx", dbURL)
	if err != nil {
		return nil, fmt.Errorf("store: open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("store: ping postgres: %w", err)
	}

	p := &Postgres{db: db}
	if err := p.ensureTable(ctx); err != nil {
		return nil, err
	}
	return p, nil
}

// Close releases the underlying connection pool.
func (p *Postgres) Close() error {
	return p.db.Close()
}

func (p *Postgres) ensureTable(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS remoteconfig_specifications (
			id          TEXT PRIMARY KEY,
			app_id      TEXT NOT NULL,
			version     TEXT NOT NULL,
			document    JSONB NOT NULL,
			created_at  TIMESTAMPTZ NOT NULL,
			updated_at  TIMESTAMPTZ NOT NULL,
			UNIQUE (app_id, version)
		)
	`)
	if err != nil {
		return fmt.Errorf("store: ensure table: %w", err)
	}
	return nil
}

func (p *Postgres) Get(ctx context.Context, appID, version string) (model.Specification, error) {
	row := p.db.QueryRowContext(ctx, `
		SELECT document FROM remoteconfig_specifications WHERE app_id = $1 AND version = $2
	`, appID, version)

	var raw []byte
	if err := row.Scan(&raw); err != nil {
		if err == sql.ErrNoRows {
			return model.Specification{}, ErrNotFound
		}
		return model.Specification{}, fmt.Errorf("store: get: %w", err)
	}

	var spec model.Specification
	if err := json.Unmarshal(raw, &spec); err != nil {
		return model.Specification{}, fmt.Errorf("store: decode: %w", err)
	}
	return spec, nil
}

func (p *Postgres) List(ctx context.Context) ([]model.Specification, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT document FROM remoteconfig_specifications ORDER BY app_id, version
	`)
	if err != nil {
		return nil, fmt.Errorf("store: list: %w", err)
	}
	defer rows.Close()

	var out []model.Specification
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("store: scan: %w", err)
		}
		var spec model.Specification
		if err := json.Unmarshal(raw, &spec); err != nil {
			return nil, fmt.Errorf("store: decode: %w", err)
		}
		out = append(out, spec)
	}
	return out, rows.Err()
}

func (p *Postgres) Save(ctx context.Context, spec model.Specification) (model.Specification, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Specification{}, fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback()

	existing, err := p.getTx(ctx, tx, spec.AppID, spec.Version)
	switch {
	case err == nil:
		spec.ID = existing.ID
		spec.CreatedAt = existing.CreatedAt
	case err == ErrNotFound:
		if spec.ID == "" {
			spec.ID = uuid.NewString()
		}
	default:
		return model.Specification{}, err
	}

	raw, err := json.Marshal(spec)
	if err != nil {
		return model.Specification{}, fmt.Errorf("store: encode: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO remoteconfig_specifications (id, app_id, version, document, created_at, updated_at)
		VALUES ($1, $2, $3, $4, now(), now())
		ON CONFLICT (app_id, version) DO UPDATE
		SET document = EXCLUDED.document, updated_at = now()
	`, spec.ID, spec.AppID, spec.Version, raw)
	if err != nil {
		return model.Specification{}, fmt.Errorf("store: upsert: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return model.Specification{}, fmt.Errorf("store: commit: %w", err)
	}
	return p.Get(ctx, spec.AppID, spec.Version)
}

func (p *Postgres) getTx(ctx context.Context, tx *sql.Tx, appID, version string) (model.Specification, error) {
	row := tx.QueryRowContext(ctx, `
		SELECT document FROM remoteconfig_specifications WHERE app_id = $1 AND version = $2
	`, appID, version)

	var raw []byte
	if err := row.Scan(&raw); err != nil {
		if err == sql.ErrNoRows {
			return model.Specification{}, ErrNotFound
		}
		return model.Specification{}, err
	}
	var spec model.Specification
	if err := json.Unmarshal(raw, &spec); err != nil {
		return model.Specification{}, err
	}
	return spec, nil
}

func (p *Postgres) Delete(ctx context.Context, appID, version string) error {
	res, err := p.db.ExecContext(ctx, `
		DELETE FROM remoteconfig_specifications WHERE app_id = $1 AND version = $2
	`, appID, version)
	if err != nil {
		return fmt.Errorf("store: delete: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
