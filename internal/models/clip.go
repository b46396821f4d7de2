package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/highlightreel/backend/internal/highlight"
)

// Clip is a short video recorded by one angle. Clips are immutable once stored.
type Clip struct {
	ID           uuid.UUID `json:"id"`
	PoolID       uuid.UUID `json:"pool_id"`
	AngleID      *int64    `json:"angle_id,omitempty"`
	Wristband    *string   `json:"wristband,omitempty"`
	CapturedAt   *int64    `json:"captured_at,omitempty"` // unix seconds
	VideoKey     string    `json:"-"`
	ThumbnailKey string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Event returns the fields the highlight engine groups and pages on.
func (c *Clip) Event() highlight.Event {
	return highlight.Event{
		ID:        c.ID.String(),
		Timestamp: c.CapturedAt,
		AngleID:   c.AngleID,
		Wristband: c.Wristband,
	}
}
