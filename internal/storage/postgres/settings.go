package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"github.com/ettoiadev/williamdiskpizza/internal/storage"
	"github.com/ettoiadev/williamdiskpizza/internal/types"
)

func scanSetting(row interface{ Scan(...interface{}) error }) (*types.Setting, error) {
	var s types.Setting
	err := row.Scan(&s.Key, &s.Value, &s.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (p *Postgres) ListSettings(ctx context.Context) ([]types.Setting, error) {
	return p.querySettings(ctx, `SELECT key, value, updated_at FROM settings ORDER BY key`)
}

func (p *Postgres) GetSetting(ctx context.Context, key string) (*types.Setting, error) {
	return scanSetting(p.Db.QueryRowContext(ctx,
		`SELECT key, value, updated_at FROM settings WHERE key = $1`, key))
}

func (p *Postgres) GetSettings(ctx context.Context, keys []string) ([]types.Setting, error) {
	return p.querySettings(ctx,
		`SELECT key, value, updated_at FROM settings WHERE key = ANY($1) ORDER BY key`,
		pq.Array(keys))
}

func (p *Postgres) querySettings(ctx context.Context, query string, args ...interface{}) ([]types.Setting, error) {
	rows, err := p.Db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var settings []types.Setting
	for rows.Next() {
		s, err := scanSetting(rows)
		if err != nil {
			return nil, err
		}
		settings = append(settings, *s)
	}

	return settings, rows.Err()
}

func (p *Postgres) UpsertSetting(ctx context.Context, in storage.SettingInput) (*types.Setting, error) {
	query := `
	INSERT INTO settings (key, value)
	VALUES ($1, $2)
	ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()
	RETURNING key, value, updated_at
	`

	return scanSetting(p.Db.QueryRowContext(ctx, query, in.Key, []byte(in.Value)))
}

func (p *Postgres) UpsertSettings(ctx context.Context, items []storage.SettingInput) ([]types.Setting, error) {
	tx, err := p.Db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	query := `
	INSERT INTO settings (key, value)
	VALUES ($1, $2)
	ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()
	RETURNING key, value, updated_at
	`

	settings := make([]types.Setting, 0, len(items))
	for _, item := range items {
		s, err := scanSetting(tx.QueryRowContext(ctx, query, item.Key, []byte(item.Value)))
		if err != nil {
			return nil, err
		}
		settings = append(settings, *s)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return settings, nil
}

func (p *Postgres) DeleteSetting(ctx context.Context, key string) error {
	res, err := p.Db.ExecContext(ctx, `DELETE FROM settings WHERE key = $1`, key)
	if err != nil {
		return err
	}
	return requireRow(res)
}
