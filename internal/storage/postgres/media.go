package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ettoiadev/williamdiskpizza/internal/storage"
	"github.com/ettoiadev/williamdiskpizza/internal/types"
)

const mediaColumns = `id, name, url, type, size, COALESCE(alt_text, ''), created_at, updated_at`

func scanMedia(row interface{ Scan(...interface{}) error }) (*types.MediaFile, error) {
	var m types.MediaFile
	err := row.Scan(&m.ID, &m.Name, &m.URL, &m.Type, &m.Size, &m.AltText, &m.CreatedAt, &m.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (p *Postgres) CreateMedia(ctx context.Context, in storage.MediaInput) (*types.MediaFile, error) {
	query := `
	INSERT INTO media (name, url, type, size, alt_text)
	VALUES ($1, $2, $3, $4, NULLIF($5, ''))
	RETURNING ` + mediaColumns

	return scanMedia(p.Db.QueryRowContext(ctx, query, in.Name, in.URL, in.Type, in.Size, in.AltText))
}

func (p *Postgres) GetMediaByID(ctx context.Context, id string) (*types.MediaFile, error) {
	query := `SELECT ` + mediaColumns + ` FROM media WHERE id = $1`
	return scanMedia(p.Db.QueryRowContext(ctx, query, id))
}

func (p *Postgres) ListMedia(ctx context.Context, f storage.MediaFilters) ([]types.MediaFile, error) {
	query := `SELECT ` + mediaColumns + ` FROM media`
	var args []interface{}
	var where []string

	if f.Type != "" {
		args = append(args, f.Type)
		where = append(where, fmt.Sprintf("type = $%d", len(args)))
	}
	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		where = append(where, fmt.Sprintf("(name ILIKE $%d OR alt_text ILIKE $%d)", len(args), len(args)))
	}

	for i, cond := range where {
		if i == 0 {
			query += " WHERE " + cond
		} else {
			query += " AND " + cond
		}
	}
	query += " ORDER BY created_at DESC"

	rows, err := p.Db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var files []types.MediaFile
	for rows.Next() {
		m, err := scanMedia(rows)
		if err != nil {
			return nil, err
		}
		files = append(files, *m)
	}

	return files, rows.Err()
}

func (p *Postgres) ListMediaURLs(ctx context.Context) ([]string, error) {
	rows, err := p.Db.QueryContext(ctx, `SELECT url FROM media`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var urls []string
	for rows.Next() {
		var url string
		if err := rows.Scan(&url); err != nil {
			return nil, err
		}
		urls = append(urls, url)
	}

	return urls, rows.Err()
}

func (p *Postgres) UpdateMedia(ctx context.Context, id, name, altText string) (*types.MediaFile, error) {
	query := `
	UPDATE media
	SET name = $1, alt_text = NULLIF($2, ''), updated_at = NOW()
	WHERE id = $3
	RETURNING ` + mediaColumns

	return scanMedia(p.Db.QueryRowContext(ctx, query, name, altText, id))
}

func (p *Postgres) DeleteMedia(ctx context.Context, id string) error {
	res, err := p.Db.ExecContext(ctx, `DELETE FROM media WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (p *Postgres) CountMedia(ctx context.Context) (int, error) {
	var count int
	err := p.Db.QueryRowContext(ctx, `SELECT COUNT(*) FROM media`).Scan(&count)
	return count, err
}

func (p *Postgres) TotalMediaSize(ctx context.Context) (int64, error) {
	var total int64
	err := p.Db.QueryRowContext(ctx, `SELECT COALESCE(SUM(size), 0) FROM media`).Scan(&total)
	return total, err
}
