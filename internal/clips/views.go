package clips

import (
	"path"

	"github.com/google/uuid"

	"github.com/highlightreel/backend/internal/models"
	"github.com/highlightreel/backend/pkg/storage"
)

// VideoView is a clip as shown in the highlight feed.
type VideoView struct {
	ID         uuid.UUID `json:"id"`
	PoolID     uuid.UUID `json:"pool_id"`
	AngleID    *int64    `json:"angle_id,omitempty"`
	Wristband  *string   `json:"wristband,omitempty"`
	CapturedAt *int64    `json:"captured_at,omitempty"`
	Name       string    `json:"name"`
	VideoURL   string    `json:"video_url"`
}

// ThumbnailView is a clip as shown in a single-angle grid.
type ThumbnailView struct {
	ID           uuid.UUID `json:"id"`
	AngleID      *int64    `json:"angle_id,omitempty"`
	CapturedAt   *int64    `json:"captured_at,omitempty"`
	ThumbnailURL string    `json:"thumbnail_url"`
}

// ToVideoView projects a clip with its signed video URL.
func ToVideoView(c *models.Clip, videoURL string) VideoView {
	return VideoView{
		ID:         c.ID,
		PoolID:     c.PoolID,
		AngleID:    c.AngleID,
		Wristband:  c.Wristband,
		CapturedAt: c.CapturedAt,
		Name:       storage.StripExt(path.Base(c.VideoKey)),
		VideoURL:   videoURL,
	}
}

// ToThumbnailView projects a clip with its signed thumbnail URL.
func ToThumbnailView(c *models.Clip, thumbnailURL string) ThumbnailView {
	return ThumbnailView{
		ID:           c.ID,
		AngleID:      c.AngleID,
		CapturedAt:   c.CapturedAt,
		ThumbnailURL: thumbnailURL,
	}
}
