package clips

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/highlightreel/backend/internal/highlight"
	"github.com/highlightreel/backend/internal/middleware"
	"github.com/highlightreel/backend/internal/models"
	"github.com/highlightreel/backend/internal/pools"
	"github.com/highlightreel/backend/pkg/metrics"
)

// Store is the clip persistence used by Service.
type Store interface {
	FetchAngle(ctx context.Context, q AngleQuery) ([]models.Clip, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Clip, error)
	Create(ctx context.Context, c *models.Clip) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// PoolAccess resolves visibility and the angles of a pool.
type PoolAccess interface {
	CheckPool(ctx context.Context, viewer *middleware.Identity, poolID uuid.UUID) (*models.Pool, error)
	CheckAngle(ctx context.Context, viewer *middleware.Identity, angleID int64) (*models.Angle, error)
	ListAngles(ctx context.Context, poolID uuid.UUID) ([]models.Angle, error)
}

// FeedOptions bounds feed requests.
type FeedOptions struct {
	DefaultPageSize  int
	MaxPageSize      int
	FetchParallelism int
}

// FeedQuery is one feed request as received from the client.
type FeedQuery struct {
	Cursor    string
	Amount    int // 0 means the default page size
	Wristband *string
}

// Service assembles feeds: it fetches per-angle slices, groups and pages
// them, and projects the surviving clips with signed URLs.
type Service struct {
	clips  Store
	pools  PoolAccess
	urls   URLSigner
	opts   FeedOptions
	logger *zap.Logger
}

// NewService creates a clips service.
func NewService(clips Store, pools PoolAccess, urls URLSigner, opts FeedOptions, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.DefaultPageSize <= 0 {
		opts.DefaultPageSize = 12
	}
	if opts.MaxPageSize < opts.DefaultPageSize {
		opts.MaxPageSize = opts.DefaultPageSize
	}
	if opts.FetchParallelism <= 0 {
		opts.FetchParallelism = 1
	}
	return &Service{clips: clips, pools: pools, urls: urls, opts: opts, logger: logger}
}

func (s *Service) pageSize(amount int) int {
	switch {
	case amount <= 0:
		return s.opts.DefaultPageSize
	case amount > s.opts.MaxPageSize:
		return s.opts.MaxPageSize
	}
	return amount
}

// resolveCursor decodes a client token. Anything unusable, including an event
// id that is not a clip id, restarts the feed from the newest clip.
func resolveCursor(token string) (*Position, highlight.Direction) {
	c, ok := highlight.DecodeCursor(token)
	if !ok {
		return nil, highlight.DirNext
	}
	id, err := uuid.Parse(c.EventID)
	if err != nil {
		return nil, highlight.DirNext
	}
	return &Position{ClipID: id, CapturedAt: c.TimestampValue()}, c.Direction
}

// HighlightFeed returns one page of concurrent groups for a pool.
func (s *Service) HighlightFeed(ctx context.Context, viewer *middleware.Identity, poolID uuid.UUID, q FeedQuery) (highlight.Page[[]VideoView], error) {
	if _, err := s.pools.CheckPool(ctx, viewer, poolID); err != nil {
		return highlight.Page[[]VideoView]{}, err
	}
	angles, err := s.pools.ListAngles(ctx, poolID)
	if err != nil {
		return highlight.Page[[]VideoView]{}, fmt.Errorf("list angles: %w", err)
	}

	start := time.Now()
	amount := s.pageSize(q.Amount)
	after, dir := resolveCursor(q.Cursor)

	fetched := make([][]models.Clip, len(angles))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.FetchParallelism)
	for i, a := range angles {
		i, a := i, a
		g.Go(func() error {
			rows, err := s.clips.FetchAngle(gctx, AngleQuery{
				PoolID:    poolID,
				AngleID:   a.ID,
				Wristband: q.Wristband,
				After:     after,
				Direction: dir,
				Limit:     amount + 1,
			})
			if err != nil {
				return err
			}
			fetched[i] = rows
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return highlight.Page[[]VideoView]{}, err
	}

	byID := make(map[string]*models.Clip)
	slices := make([][]highlight.Event, len(fetched))
	for i, rows := range fetched {
		slices[i] = make([]highlight.Event, len(rows))
		for j := range rows {
			c := &rows[j]
			slices[i][j] = c.Event()
			byID[slices[i][j].ID] = c
		}
	}

	groups := highlight.GroupEvents(slices, amount+1, dir)
	page := highlight.PaginateGroups(groups, amount, dir)

	out := highlight.Page[[]VideoView]{
		Items:      make([][]VideoView, 0, len(page.Items)),
		HasNext:    page.HasNext,
		NextCursor: page.NextCursor,
		PrevCursor: page.PrevCursor,
	}
	for _, g := range page.Items {
		views := make([]VideoView, 0, len(g))
		for _, e := range g {
			c := byID[e.ID]
			url, err := s.urls.SignedURL(ctx, c.VideoKey)
			if err != nil {
				return highlight.Page[[]VideoView]{}, fmt.Errorf("sign clip %s: %w", c.ID, err)
			}
			views = append(views, ToVideoView(c, url))
		}
		out.Items = append(out.Items, views)
	}

	s.logger.Debug("highlight feed",
		zap.String("pool_id", poolID.String()),
		zap.Int("angles", len(angles)),
		zap.String("direction", string(dir)),
		zap.Int("groups", len(out.Items)),
		zap.Bool("has_next", out.HasNext),
	)
	metrics.ObserveFeed("highlights", len(out.Items), time.Since(start))
	return out, nil
}

// AngleFeed returns one page of a single angle's clips, ungrouped.
func (s *Service) AngleFeed(ctx context.Context, viewer *middleware.Identity, angleID int64, q FeedQuery) (highlight.Page[ThumbnailView], error) {
	angle, err := s.pools.CheckAngle(ctx, viewer, angleID)
	if err != nil {
		return highlight.Page[ThumbnailView]{}, err
	}

	start := time.Now()
	amount := s.pageSize(q.Amount)
	after, dir := resolveCursor(q.Cursor)
	rows, err := s.clips.FetchAngle(ctx, AngleQuery{
		PoolID:    angle.PoolID,
		AngleID:   angle.ID,
		Wristband: q.Wristband,
		After:     after,
		Direction: dir,
		Limit:     amount + 1,
	})
	if err != nil {
		return highlight.Page[ThumbnailView]{}, err
	}

	byID := make(map[string]*models.Clip, len(rows))
	events := make([]highlight.Event, len(rows))
	for i := range rows {
		events[i] = rows[i].Event()
		byID[events[i].ID] = &rows[i]
	}
	page := highlight.Paginate(events, amount, dir)

	out := highlight.Page[ThumbnailView]{
		Items:      make([]ThumbnailView, 0, len(page.Items)),
		HasNext:    page.HasNext,
		NextCursor: page.NextCursor,
		PrevCursor: page.PrevCursor,
	}
	for _, e := range page.Items {
		c := byID[e.ID]
		url, err := s.urls.SignedURL(ctx, c.ThumbnailKey)
		if err != nil {
			return highlight.Page[ThumbnailView]{}, fmt.Errorf("sign thumbnail %s: %w", c.ID, err)
		}
		out.Items = append(out.Items, ToThumbnailView(c, url))
	}
	metrics.ObserveFeed("angle", len(out.Items), time.Since(start))
	return out, nil
}

// Get returns a single clip the viewer may see.
func (s *Service) Get(ctx context.Context, viewer *middleware.Identity, id uuid.UUID) (VideoView, error) {
	c, err := s.clips.GetByID(ctx, id)
	if err != nil {
		return VideoView{}, err
	}
	if _, err := s.pools.CheckPool(ctx, viewer, c.PoolID); err != nil {
		return VideoView{}, err
	}
	url, err := s.urls.SignedURL(ctx, c.VideoKey)
	if err != nil {
		return VideoView{}, fmt.Errorf("sign clip %s: %w", c.ID, err)
	}
	return ToVideoView(c, url), nil
}

// CheckUploadTarget verifies that angleID belongs to poolID and that the
// actor may see the pool.
func (s *Service) CheckUploadTarget(ctx context.Context, actor *middleware.Identity, poolID uuid.UUID, angleID int64) (*models.Angle, error) {
	a, err := s.pools.CheckAngle(ctx, actor, angleID)
	if err != nil {
		return nil, err
	}
	if a.PoolID != poolID {
		return nil, pools.ErrAngleNotFound
	}
	return a, nil
}

// Delete removes a clip row and returns it so callers can clean up its objects.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) (*models.Clip, error) {
	c, err := s.clips.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.clips.Delete(ctx, id); err != nil {
		return nil, err
	}
	s.logger.Info("clip deleted", zap.String("clip_id", id.String()), zap.String("video_key", c.VideoKey))
	return c, nil
}
