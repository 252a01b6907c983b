package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/ettoiadev/williamdiskpizza/internal/storage"
	"github.com/ettoiadev/williamdiskpizza/internal/types"
)

const testimonialColumns = `id, name, rating, comment, location, COALESCE(image_url, ''), is_active, position, created_at, updated_at`

func scanTestimonial(row interface{ Scan(...interface{}) error }) (*types.Testimonial, error) {
	var t types.Testimonial
	err := row.Scan(&t.ID, &t.Name, &t.Rating, &t.Comment, &t.Location, &t.ImageURL,
		&t.IsActive, &t.Position, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (p *Postgres) ListTestimonials(ctx context.Context, activeOnly bool) ([]types.Testimonial, error) {
	query := `SELECT ` + testimonialColumns + ` FROM testimonials`
	if activeOnly {
		query += ` WHERE is_active`
	}
	query += ` ORDER BY position, created_at`

	rows, err := p.Db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []types.Testimonial
	for rows.Next() {
		t, err := scanTestimonial(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *t)
	}

	return items, rows.Err()
}

func (p *Postgres) GetTestimonial(ctx context.Context, id string) (*types.Testimonial, error) {
	query := `SELECT ` + testimonialColumns + ` FROM testimonials WHERE id = $1`
	return scanTestimonial(p.Db.QueryRowContext(ctx, query, id))
}

func (p *Postgres) CreateTestimonial(ctx context.Context, in storage.TestimonialInput) (*types.Testimonial, error) {
	query := `
	INSERT INTO testimonials (name, rating, comment, location, image_url, is_active, position)
	VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7)
	RETURNING ` + testimonialColumns

	return scanTestimonial(p.Db.QueryRowContext(ctx, query,
		in.Name, in.Rating, in.Comment, in.Location, in.ImageURL, in.IsActive, in.Position))
}

func (p *Postgres) UpdateTestimonial(ctx context.Context, id string, in storage.TestimonialInput) (*types.Testimonial, error) {
	query := `
	UPDATE testimonials
	SET name = $1, rating = $2, comment = $3, location = $4, image_url = NULLIF($5, ''),
	    is_active = $6, position = $7, updated_at = NOW()
	WHERE id = $8
	RETURNING ` + testimonialColumns

	return scanTestimonial(p.Db.QueryRowContext(ctx, query,
		in.Name, in.Rating, in.Comment, in.Location, in.ImageURL, in.IsActive, in.Position, id))
}

func (p *Postgres) SetTestimonialActive(ctx context.Context, id string, active bool) error {
	res, err := p.Db.ExecContext(ctx,
		`UPDATE testimonials SET is_active = $1, updated_at = NOW() WHERE id = $2`, active, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (p *Postgres) ReorderTestimonials(ctx context.Context, updates []storage.PositionUpdate) error {
	return p.reorder(ctx, `UPDATE testimonials SET position = $1, updated_at = NOW() WHERE id = $2`, updates)
}

func (p *Postgres) DeleteTestimonial(ctx context.Context, id string) error {
	res, err := p.Db.ExecContext(ctx, `DELETE FROM testimonials WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (p *Postgres) TestimonialStats(ctx context.Context) (*types.TestimonialStats, error) {
	rows, err := p.Db.QueryContext(ctx,
		`SELECT rating, COUNT(*) FROM testimonials WHERE is_active GROUP BY rating`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := &types.TestimonialStats{Counts: make(map[int]int)}
	var sum, total int
	for rows.Next() {
		var rating, count int
		if err := rows.Scan(&rating, &count); err != nil {
			return nil, err
		}
		stats.Counts[rating] = count
		sum += rating * count
		total += count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if total > 0 {
		stats.Average = float64(sum) / float64(total)
	}

	return stats, nil
}
