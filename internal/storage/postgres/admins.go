package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/ettoiadev/williamdiskpizza/internal/storage"
	"github.com/ettoiadev/williamdiskpizza/internal/types"
)

func (p *Postgres) CreateAdmin(ctx context.Context, email, passwordHash string, role types.Role) (*types.AdminUser, error) {
	var admin types.AdminUser
	query := `
	INSERT INTO admin_users (email, password_hash, role)
	VALUES ($1, $2, $3)
	RETURNING id, email, role, created_at, last_login
	`

	err := p.Db.QueryRowContext(ctx, query, email, passwordHash, role).Scan(
		&admin.ID, &admin.Email, &admin.Role, &admin.CreatedAt, &admin.LastLogin)
	if err != nil {
		return nil, err
	}

	return &admin, nil
}

func (p *Postgres) GetAdminByID(ctx context.Context, id string) (*types.AdminUser, error) {
	var admin types.AdminUser
	query := `
	SELECT id, email, role, created_at, last_login FROM admin_users WHERE id = $1
	`

	err := p.Db.QueryRowContext(ctx, query, id).Scan(
		&admin.ID, &admin.Email, &admin.Role, &admin.CreatedAt, &admin.LastLogin)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return &admin, nil
}

func (p *Postgres) GetAdminByEmail(ctx context.Context, email string) (*types.AdminUser, string, error) {
	var admin types.AdminUser
	var passwordHash string
	query := `
	SELECT id, email, password_hash, role, created_at, last_login FROM admin_users WHERE email = $1
	`

	err := p.Db.QueryRowContext(ctx, query, email).Scan(
		&admin.ID, &admin.Email, &passwordHash, &admin.Role, &admin.CreatedAt, &admin.LastLogin)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, "", storage.ErrNotFound
	}
	if err != nil {
		return nil, "", err
	}

	return &admin, passwordHash, nil
}

func (p *Postgres) ListAdmins(ctx context.Context) ([]types.AdminUser, error) {
	query := `
	SELECT id, email, role, created_at, last_login FROM admin_users ORDER BY created_at DESC
	`

	rows, err := p.Db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var admins []types.AdminUser
	for rows.Next() {
		var admin types.AdminUser
		if err := rows.Scan(&admin.ID, &admin.Email, &admin.Role, &admin.CreatedAt, &admin.LastLogin); err != nil {
			return nil, err
		}
		admins = append(admins, admin)
	}

	return admins, rows.Err()
}

func (p *Postgres) UpdateAdminRole(ctx context.Context, id string, role types.Role) error {
	res, err := p.Db.ExecContext(ctx, `UPDATE admin_users SET role = $1 WHERE id = $2`, role, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (p *Postgres) UpdateAdminPassword(ctx context.Context, id, passwordHash string) error {
	res, err := p.Db.ExecContext(ctx, `UPDATE admin_users SET password_hash = $1 WHERE id = $2`, passwordHash, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (p *Postgres) UpdateLastLogin(ctx context.Context, id string) error {
	_, err := p.Db.ExecContext(ctx, `UPDATE admin_users SET last_login = NOW() WHERE id = $1`, id)
	return err
}

func (p *Postgres) DeleteAdmin(ctx context.Context, id string) error {
	res, err := p.Db.ExecContext(ctx, `DELETE FROM admin_users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// requireRow converts a zero-row update or delete into ErrNotFound.
func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}
