package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/ettoiadev/williamdiskpizza/internal/storage"
	"github.com/ettoiadev/williamdiskpizza/internal/types"
)

const contentColumns = `id, section, key, value, type, created_at, updated_at`

func scanContent(row interface{ Scan(...interface{}) error }) (*types.SiteContent, error) {
	var c types.SiteContent
	err := row.Scan(&c.ID, &c.Section, &c.Key, &c.Value, &c.Type, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (p *Postgres) ListContent(ctx context.Context) ([]types.SiteContent, error) {
	query := `SELECT ` + contentColumns + ` FROM site_content ORDER BY section, key`
	return p.queryContent(ctx, query)
}

func (p *Postgres) ListContentBySection(ctx context.Context, section string) ([]types.SiteContent, error) {
	query := `SELECT ` + contentColumns + ` FROM site_content WHERE section = $1 ORDER BY key`
	return p.queryContent(ctx, query, section)
}

func (p *Postgres) queryContent(ctx context.Context, query string, args ...interface{}) ([]types.SiteContent, error) {
	rows, err := p.Db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []types.SiteContent
	for rows.Next() {
		c, err := scanContent(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *c)
	}

	return items, rows.Err()
}

func (p *Postgres) GetContent(ctx context.Context, section, key string) (*types.SiteContent, error) {
	query := `SELECT ` + contentColumns + ` FROM site_content WHERE section = $1 AND key = $2`
	return scanContent(p.Db.QueryRowContext(ctx, query, section, key))
}

func (p *Postgres) UpsertContent(ctx context.Context, in storage.ContentInput) (*types.SiteContent, error) {
	query := `
	INSERT INTO site_content (section, key, value, type)
	VALUES ($1, $2, $3, $4)
	ON CONFLICT (section, key)
	DO UPDATE SET value = EXCLUDED.value, type = EXCLUDED.type, updated_at = NOW()
	RETURNING ` + contentColumns

	return scanContent(p.Db.QueryRowContext(ctx, query, in.Section, in.Key, []byte(in.Value), in.Type))
}

func (p *Postgres) DeleteContent(ctx context.Context, section, key string) error {
	res, err := p.Db.ExecContext(ctx, `DELETE FROM site_content WHERE section = $1 AND key = $2`, section, key)
	if err != nil {
		return err
	}
	return requireRow(res)
}
