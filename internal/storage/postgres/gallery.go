package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/ettoiadev/williamdiskpizza/internal/storage"
	"github.com/ettoiadev/williamdiskpizza/internal/types"
)

const galleryColumns = `id, title, image_url, alt_text, position, is_active, created_at, updated_at`

func scanGalleryItem(row interface{ Scan(...interface{}) error }) (*types.GalleryItem, error) {
	var g types.GalleryItem
	err := row.Scan(&g.ID, &g.Title, &g.ImageURL, &g.AltText, &g.Position, &g.IsActive, &g.CreatedAt, &g.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &g, nil
}

func (p *Postgres) ListGallery(ctx context.Context, activeOnly bool) ([]types.GalleryItem, error) {
	query := `SELECT ` + galleryColumns + ` FROM gallery`
	if activeOnly {
		query += ` WHERE is_active`
	}
	query += ` ORDER BY position, created_at`

	rows, err := p.Db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []types.GalleryItem
	for rows.Next() {
		g, err := scanGalleryItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *g)
	}

	return items, rows.Err()
}

func (p *Postgres) GetGalleryItem(ctx context.Context, id string) (*types.GalleryItem, error) {
	query := `SELECT ` + galleryColumns + ` FROM gallery WHERE id = $1`
	return scanGalleryItem(p.Db.QueryRowContext(ctx, query, id))
}

func (p *Postgres) CreateGalleryItem(ctx context.Context, in storage.GalleryInput) (*types.GalleryItem, error) {
	query := `
	INSERT INTO gallery (title, image_url, alt_text, position, is_active)
	VALUES ($1, $2, $3, $4, $5)
	RETURNING ` + galleryColumns

	return scanGalleryItem(p.Db.QueryRowContext(ctx, query,
		in.Title, in.ImageURL, in.AltText, in.Position, in.IsActive))
}

func (p *Postgres) UpdateGalleryItem(ctx context.Context, id string, in storage.GalleryInput) (*types.GalleryItem, error) {
	query := `
	UPDATE gallery
	SET title = $1, image_url = $2, alt_text = $3, position = $4, is_active = $5, updated_at = NOW()
	WHERE id = $6
	RETURNING ` + galleryColumns

	return scanGalleryItem(p.Db.QueryRowContext(ctx, query,
		in.Title, in.ImageURL, in.AltText, in.Position, in.IsActive, id))
}

func (p *Postgres) SetGalleryActive(ctx context.Context, id string, active bool) error {
	res, err := p.Db.ExecContext(ctx,
		`UPDATE gallery SET is_active = $1, updated_at = NOW() WHERE id = $2`, active, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (p *Postgres) ReorderGallery(ctx context.Context, updates []storage.PositionUpdate) error {
	return p.reorder(ctx, `UPDATE gallery SET position = $1, updated_at = NOW() WHERE id = $2`, updates)
}

func (p *Postgres) DeleteGalleryItem(ctx context.Context, id string) error {
	res, err := p.Db.ExecContext(ctx, `DELETE FROM gallery WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// reorder applies position updates in one transaction so a partial reorder
// never becomes visible.
func (p *Postgres) reorder(ctx context.Context, query string, updates []storage.PositionUpdate) error {
	tx, err := p.Db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, u := range updates {
		if _, err := tx.ExecContext(ctx, query, u.Position, u.ID); err != nil {
			return err
		}
	}

	return tx.Commit()
}
