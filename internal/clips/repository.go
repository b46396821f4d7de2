package clips

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/highlightreel/backend/internal/highlight"
	"github.com/highlightreel/backend/internal/models"
)

var (
	ErrClipNotFound = errors.New("clip not found")
	ErrDuplicate    = errors.New("clip already registered")
)

// Position is a decoded cursor whose event id is a clip id.
type Position struct {
	ClipID     uuid.UUID
	CapturedAt *int64 // nil for clips without a capture time
}

// AngleQuery selects one angle's slice of the feed.
type AngleQuery struct {
	PoolID    uuid.UUID
	AngleID   int64
	Wristband *string
	After     *Position // exclusive; nil starts at the newest (next) or oldest (prev) clip
	Direction highlight.Direction
	Limit     int
}

// Repository handles clip persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a clips repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const clipColumns = `id, pool_id, angle_id, wristband, captured_at, video_key, thumbnail_key, created_at`

func scanClip(row pgx.Row) (models.Clip, error) {
	var c models.Clip
	err := row.Scan(&c.ID, &c.PoolID, &c.AngleID, &c.Wristband, &c.CapturedAt, &c.VideoKey, &c.ThumbnailKey, &c.CreatedAt)
	return c, err
}

// angleQuerySQL builds the keyset query for one angle. The feed order is
// captured_at descending with NULL newest, then id descending: next walks it
// forwards, prev backwards. The cursor row itself is excluded.
func angleQuerySQL(q AngleQuery) (string, []any) {
	var (
		sb   strings.Builder
		args []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	sb.WriteString(`SELECT ` + clipColumns + ` FROM clips WHERE pool_id = ` + arg(q.PoolID))
	sb.WriteString(` AND angle_id = ` + arg(q.AngleID))
	if q.Wristband != nil {
		sb.WriteString(` AND wristband = ` + arg(*q.Wristband))
	}

	prev := q.Direction == highlight.DirPrev
	if q.After != nil {
		sb.WriteString(` AND ` + afterPredicate(q.After, prev, arg))
	}
	if prev {
		fmt.Fprintf(&sb, ` ORDER BY captured_at ASC NULLS LAST, id ASC LIMIT %s`, arg(q.Limit))
	} else {
		fmt.Fprintf(&sb, ` ORDER BY captured_at DESC NULLS FIRST, id DESC LIMIT %s`, arg(q.Limit))
	}
	return sb.String(), args
}

// afterPredicate selects the rows strictly past p in the scan direction.
func afterPredicate(p *Position, prev bool, arg func(any) string) string {
	if p.CapturedAt == nil {
		id := arg(p.ClipID)
		if prev {
			return fmt.Sprintf(`(captured_at IS NULL AND id > %s)`, id)
		}
		return fmt.Sprintf(`((captured_at IS NULL AND id < %s) OR captured_at IS NOT NULL)`, id)
	}
	ts := arg(*p.CapturedAt)
	id := arg(p.ClipID)
	if prev {
		return fmt.Sprintf(`(captured_at IS NULL OR captured_at > %s OR (captured_at = %s AND id > %s))`, ts, ts, id)
	}
	return fmt.Sprintf(`(captured_at < %s OR (captured_at = %s AND id < %s))`, ts, ts, id)
}

// FetchAngle returns up to q.Limit clips of one angle in scan order.
func (r *Repository) FetchAngle(ctx context.Context, q AngleQuery) ([]models.Clip, error) {
	sql, args := angleQuerySQL(q)
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query angle %d: %w", q.AngleID, err)
	}
	defer rows.Close()

	list := make([]models.Clip, 0, q.Limit)
	for rows.Next() {
		c, err := scanClip(rows)
		if err != nil {
			return nil, fmt.Errorf("scan clip: %w", err)
		}
		list = append(list, c)
	}
	return list, rows.Err()
}

// GetByID returns a clip or ErrClipNotFound.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Clip, error) {
	c, err := scanClip(r.pool.QueryRow(ctx, `SELECT `+clipColumns+` FROM clips WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrClipNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Create inserts a clip. A second clip for the same video key returns ErrDuplicate.
func (r *Repository) Create(ctx context.Context, c *models.Clip) error {
	const q = `INSERT INTO clips (pool_id, angle_id, wristband, captured_at, video_key, thumbnail_key)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`
	err := r.pool.QueryRow(ctx, q, c.PoolID, c.AngleID, c.Wristband, c.CapturedAt, c.VideoKey, c.ThumbnailKey).
		Scan(&c.ID, &c.CreatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("insert clip: %w", err)
	}
	return nil
}

// Delete removes a clip row.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM clips WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete clip: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrClipNotFound
	}
	return nil
}
