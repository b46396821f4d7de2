package clips

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/highlightreel/backend/internal/highlight"
)

func TestAngleQuerySQL(t *testing.T) {
	pool := uuid.New()
	clip := uuid.New()

	t.Run("first page", func(t *testing.T) {
		sql, args := angleQuerySQL(AngleQuery{PoolID: pool, AngleID: 4, Direction: highlight.DirNext, Limit: 13})
		assert.Contains(t, sql, "WHERE pool_id = $1 AND angle_id = $2")
		assert.Contains(t, sql, "ORDER BY captured_at DESC NULLS FIRST, id DESC LIMIT $3")
		assert.NotContains(t, sql, "wristband =")
		assert.Equal(t, []any{pool, int64(4), 13}, args)
	})

	t.Run("next after cursor", func(t *testing.T) {
		sql, args := angleQuerySQL(AngleQuery{
			PoolID:    pool,
			AngleID:   4,
			Wristband: str("w2"),
			After:     &Position{ClipID: clip, CapturedAt: i64(50)},
			Direction: highlight.DirNext,
			Limit:     5,
		})
		assert.Contains(t, sql, "AND wristband = $3")
		assert.Contains(t, sql, "AND (captured_at < $4 OR (captured_at = $4 AND id < $5))")
		assert.Contains(t, sql, "LIMIT $6")
		assert.Equal(t, []any{pool, int64(4), "w2", int64(50), clip, 5}, args)
	})

	t.Run("prev after cursor", func(t *testing.T) {
		sql, _ := angleQuerySQL(AngleQuery{
			PoolID:    pool,
			AngleID:   4,
			After:     &Position{ClipID: clip, CapturedAt: i64(50)},
			Direction: highlight.DirPrev,
			Limit:     5,
		})
		assert.Contains(t, sql, "AND (captured_at IS NULL OR captured_at > $3 OR (captured_at = $3 AND id > $4))")
		assert.Contains(t, sql, "ORDER BY captured_at ASC NULLS LAST, id ASC")
	})

	t.Run("next after clip without timestamp", func(t *testing.T) {
		sql, args := angleQuerySQL(AngleQuery{
			PoolID:    pool,
			AngleID:   4,
			After:     &Position{ClipID: clip},
			Direction: highlight.DirNext,
			Limit:     5,
		})
		assert.Contains(t, sql, "AND ((captured_at IS NULL AND id < $3) OR captured_at IS NOT NULL)")
		assert.Contains(t, sql, "ORDER BY captured_at DESC NULLS FIRST, id DESC LIMIT $4")
		assert.Equal(t, []any{pool, int64(4), clip, 5}, args)
	})

	t.Run("prev after clip without timestamp", func(t *testing.T) {
		sql, args := angleQuerySQL(AngleQuery{
			PoolID:    pool,
			AngleID:   4,
			After:     &Position{ClipID: clip},
			Direction: highlight.DirPrev,
			Limit:     5,
		})
		assert.Contains(t, sql, "AND (captured_at IS NULL AND id > $3)")
		assert.NotContains(t, sql, "captured_at >")
		assert.Equal(t, []any{pool, int64(4), clip, 5}, args)
	})
}
