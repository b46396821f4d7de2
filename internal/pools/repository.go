package pools

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/highlightreel/backend/internal/models"
)

var (
	ErrPoolNotFound  = errors.New("pool not found")
	ErrAngleNotFound = errors.New("angle not found")
	ErrUnknownUser   = errors.New("unknown user")
)

// Store is the pool persistence used by Service.
type Store interface {
	Create(ctx context.Context, p *models.Pool) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Pool, error)
	ListVisible(ctx context.Context, viewer *uuid.UUID) ([]models.Pool, error)
	ListAll(ctx context.Context) ([]models.Pool, error)
	IsMember(ctx context.Context, poolID, userID uuid.UUID) (bool, error)
	AddMember(ctx context.Context, poolID, userID uuid.UUID) error
	CreateAngle(ctx context.Context, a *models.Angle) error
	GetAngle(ctx context.Context, id int64) (*models.Angle, error)
	ListAngles(ctx context.Context, poolID uuid.UUID) ([]models.Angle, error)
}

// Repository handles pool, membership and angle persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a pools repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const poolColumns = `id, name, COALESCE(venue,''), is_public, owner_id, created_at, updated_at`

func scanPools(rows pgx.Rows) ([]models.Pool, error) {
	defer rows.Close()
	var list []models.Pool
	for rows.Next() {
		var p models.Pool
		if err := rows.Scan(&p.ID, &p.Name, &p.Venue, &p.IsPublic, &p.OwnerID, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

// Create inserts a pool and fills its id and timestamps.
func (r *Repository) Create(ctx context.Context, p *models.Pool) error {
	const q = `INSERT INTO pools (name, venue, is_public, owner_id)
		VALUES ($1, NULLIF($2,''), $3, $4)
		RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, q, p.Name, p.Venue, p.IsPublic, p.OwnerID).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
}

// GetByID returns a pool or ErrPoolNotFound.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Pool, error) {
	var p models.Pool
	err := r.pool.QueryRow(ctx, `SELECT `+poolColumns+` FROM pools WHERE id = $1`, id).
		Scan(&p.ID, &p.Name, &p.Venue, &p.IsPublic, &p.OwnerID, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrPoolNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListVisible returns public pools plus, for a signed-in viewer, pools they own or belong to.
func (r *Repository) ListVisible(ctx context.Context, viewer *uuid.UUID) ([]models.Pool, error) {
	if viewer == nil {
		rows, err := r.pool.Query(ctx, `SELECT `+poolColumns+` FROM pools WHERE is_public ORDER BY created_at DESC`)
		if err != nil {
			return nil, err
		}
		return scanPools(rows)
	}
	const q = `SELECT ` + poolColumns + ` FROM pools p
		WHERE p.is_public OR p.owner_id = $1
			OR EXISTS (SELECT 1 FROM pool_members m WHERE m.pool_id = p.id AND m.user_id = $1)
		ORDER BY p.created_at DESC`
	rows, err := r.pool.Query(ctx, q, *viewer)
	if err != nil {
		return nil, err
	}
	return scanPools(rows)
}

// ListAll returns every pool (admin view).
func (r *Repository) ListAll(ctx context.Context) ([]models.Pool, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+poolColumns+` FROM pools ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	return scanPools(rows)
}

// IsMember reports whether the user was added to the pool.
func (r *Repository) IsMember(ctx context.Context, poolID, userID uuid.UUID) (bool, error) {
	var ok bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM pool_members WHERE pool_id = $1 AND user_id = $2)`, poolID, userID).Scan(&ok)
	return ok, err
}

// AddMember grants a user access to a pool. Adding twice is a no-op.
func (r *Repository) AddMember(ctx context.Context, poolID, userID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO pool_members (pool_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`, poolID, userID)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23503" {
		return ErrUnknownUser
	}
	return err
}

// CreateAngle inserts a camera angle for a pool.
func (r *Repository) CreateAngle(ctx context.Context, a *models.Angle) error {
	const q = `INSERT INTO angles (pool_id, label) VALUES ($1, $2) RETURNING id, created_at`
	if err := r.pool.QueryRow(ctx, q, a.PoolID, a.Label).Scan(&a.ID, &a.CreatedAt); err != nil {
		return fmt.Errorf("insert angle: %w", err)
	}
	return nil
}

// GetAngle returns an angle or ErrAngleNotFound.
func (r *Repository) GetAngle(ctx context.Context, id int64) (*models.Angle, error) {
	var a models.Angle
	err := r.pool.QueryRow(ctx, `SELECT id, pool_id, label, created_at FROM angles WHERE id = $1`, id).
		Scan(&a.ID, &a.PoolID, &a.Label, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrAngleNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// ListAngles returns a pool's angles ordered by id, which fixes the order
// angle slices are handed to the grouper.
func (r *Repository) ListAngles(ctx context.Context, poolID uuid.UUID) ([]models.Angle, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, pool_id, label, created_at FROM angles WHERE pool_id = $1 ORDER BY id`, poolID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Angle
	for rows.Next() {
		var a models.Angle
		if err := rows.Scan(&a.ID, &a.PoolID, &a.Label, &a.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, a)
	}
	return list, rows.Err()
}
