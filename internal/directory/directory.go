package directory

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"atfal-portal/internal/models"
	"atfal-portal/pkg/apperr"
)

// Directory provides read-only access to the portal's user records. The
// underlying users table is owned by the surrounding portal; this service
// never mutates it.
type Directory interface {
	GetUser(ctx context.Context, id uuid.UUID) (models.User, error)
	UsersByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.User, error)
	SearchTifls(ctx context.Context, query string, limit int) ([]models.User, error)
	NazimContacts(ctx context.Context, majlisID *uuid.UUID) (local, regional *models.User, err error)
}

// SQLDirectory is a sqlx implementation of Directory over the shared database.
type SQLDirectory struct {
	db *sqlx.DB
}

// NewSQLDirectory constructs a SQLDirectory.
func NewSQLDirectory(db *sqlx.DB) *SQLDirectory {
	return &SQLDirectory{db: db}
}

// GetUser fetches a single active user. Soft-deleted users are not found.
func (d *SQLDirectory) GetUser(ctx context.Context, id uuid.UUID) (models.User, error) {
	var user models.User
	err := d.db.GetContext(ctx, &user,
		`SELECT id, name, role, majlis_id, deleted_at FROM users WHERE id=$1 AND deleted_at IS NULL`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, apperr.ErrUserNotFound
	}
	return user, err
}

// UsersByIDs fetches multiple users keyed by id. Missing or deleted users are
// simply absent from the result; callers degrade to a display placeholder.
func (d *SQLDirectory) UsersByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.User, error) {
	result := map[uuid.UUID]models.User{}
	if len(ids) == 0 {
		return result, nil
	}

	query, args, err := sqlx.In(`SELECT id, name, role, majlis_id, deleted_at FROM users WHERE id IN (?)`, ids)
	if err != nil {
		return nil, err
	}
	query = d.db.Rebind(query)

	var users []models.User
	if err := d.db.SelectContext(ctx, &users, query, args...); err != nil {
		return nil, err
	}
	for _, u := range users {
		result[u.ID] = u
	}
	return result, nil
}

// SearchTifls returns active tifls whose name contains the query,
// case-insensitively.
func (d *SQLDirectory) SearchTifls(ctx context.Context, query string, limit int) ([]models.User, error) {
	var users []models.User
	err := d.db.SelectContext(ctx, &users,
		`SELECT id, name, role, majlis_id, deleted_at FROM users
         WHERE role=$1 AND deleted_at IS NULL AND name ILIKE '%' || $2 || '%'
         ORDER BY name LIMIT $3`,
		models.RoleTifl, query, limit)
	return users, err
}

// NazimContacts resolves the tifl's local nazim (for their majlis, when they
// have one) and a regional nazim. Either may be nil when no such user exists.
func (d *SQLDirectory) NazimContacts(ctx context.Context, majlisID *uuid.UUID) (*models.User, *models.User, error) {
	var local *models.User
	if majlisID != nil {
		var u models.User
		err := d.db.GetContext(ctx, &u,
			`SELECT id, name, role, majlis_id, deleted_at FROM users
             WHERE role=$1 AND majlis_id=$2 AND deleted_at IS NULL LIMIT 1`,
			models.RoleLocalNazim, *majlisID)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, nil, err
		}
		if err == nil {
			local = &u
		}
	}

	var regional *models.User
	var u models.User
	err := d.db.GetContext(ctx, &u,
		`SELECT id, name, role, majlis_id, deleted_at FROM users
         WHERE role=$1 AND deleted_at IS NULL ORDER BY name LIMIT 1`,
		models.RoleRegionalNazim)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, nil, err
	}
	if err == nil {
		regional = &u
	}

	return local, regional, nil
}
