package clips

import (
	"context"
	"errors"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/highlightreel/backend/internal/highlight"
	"github.com/highlightreel/backend/internal/middleware"
	"github.com/highlightreel/backend/internal/models"
	"github.com/highlightreel/backend/internal/pools"
	"github.com/highlightreel/backend/pkg/queue"
	"github.com/highlightreel/backend/pkg/redis"
)

// memClips mirrors the keyset query of Repository in memory.
type memClips struct {
	mu      sync.Mutex
	clips   []models.Clip
	fetches int
	failOn  int64 // angle id whose fetch fails; 0 disables
}

func (m *memClips) add(poolID uuid.UUID, angleID int64, ts *int64, tag *string) models.Clip {
	m.mu.Lock()
	defer m.mu.Unlock()
	a := angleID
	c := models.Clip{
		ID:           uuid.New(),
		PoolID:       poolID,
		AngleID:      &a,
		Wristband:    tag,
		CapturedAt:   ts,
		VideoKey:     "clips/" + poolID.String() + "/cam.mp4",
		ThumbnailKey: "thumbnails/" + poolID.String() + "/cam.jpg",
		CreatedAt:    time.Now(),
	}
	m.clips = append(m.clips, c)
	return c
}

// less orders a before b in the scan direction. NULL timestamps are the
// newest clips, so they lead a next scan and trail a prev scan.
func less(a, b models.Clip, dir highlight.Direction) bool {
	prev := dir == highlight.DirPrev
	if (a.CapturedAt == nil) != (b.CapturedAt == nil) {
		return (a.CapturedAt == nil) != prev
	}
	if a.CapturedAt != nil && *a.CapturedAt != *b.CapturedAt {
		if prev {
			return *a.CapturedAt < *b.CapturedAt
		}
		return *a.CapturedAt > *b.CapturedAt
	}
	if prev {
		return a.ID.String() < b.ID.String()
	}
	return a.ID.String() > b.ID.String()
}

func (m *memClips) FetchAngle(_ context.Context, q AngleQuery) ([]models.Clip, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetches++
	if m.failOn != 0 && q.AngleID == m.failOn {
		return nil, errors.New("connection reset")
	}
	var out []models.Clip
	for _, c := range m.clips {
		if c.PoolID != q.PoolID || c.AngleID == nil || *c.AngleID != q.AngleID {
			continue
		}
		if q.Wristband != nil && (c.Wristband == nil || *c.Wristband != *q.Wristband) {
			continue
		}
		if q.After != nil {
			cursor := models.Clip{ID: q.After.ClipID, CapturedAt: q.After.CapturedAt}
			if !less(cursor, c, q.Direction) {
				continue
			}
		}
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j], q.Direction) })
	if len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (m *memClips) GetByID(_ context.Context, id uuid.UUID) (*models.Clip, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.clips {
		if c.ID == id {
			cp := c
			return &cp, nil
		}
	}
	return nil, ErrClipNotFound
}

func (m *memClips) Create(_ context.Context, c *models.Clip) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.clips {
		if e.VideoKey == c.VideoKey {
			return ErrDuplicate
		}
	}
	c.ID = uuid.New()
	c.CreatedAt = time.Now()
	m.clips = append(m.clips, *c)
	return nil
}

func (m *memClips) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, c := range m.clips {
		if c.ID == id {
			m.clips = append(m.clips[:i], m.clips[i+1:]...)
			return nil
		}
	}
	return ErrClipNotFound
}

// fakePools grants access to public pools, or to any pool for a non-nil viewer
// listed in members.
type fakePools struct {
	pools   map[uuid.UUID]*models.Pool
	angles  map[int64]*models.Angle
	members map[uuid.UUID]bool
}

func newFakePools() *fakePools {
	return &fakePools{
		pools:   map[uuid.UUID]*models.Pool{},
		angles:  map[int64]*models.Angle{},
		members: map[uuid.UUID]bool{},
	}
}

func (f *fakePools) addPool(public bool) uuid.UUID {
	id := uuid.New()
	f.pools[id] = &models.Pool{ID: id, Name: "pool", IsPublic: public}
	return id
}

func (f *fakePools) addAngle(poolID uuid.UUID, id int64) {
	f.angles[id] = &models.Angle{ID: id, PoolID: poolID, Label: "cam"}
}

func (f *fakePools) CheckPool(_ context.Context, viewer *middleware.Identity, poolID uuid.UUID) (*models.Pool, error) {
	p, ok := f.pools[poolID]
	if !ok {
		return nil, pools.ErrPoolNotFound
	}
	if p.IsPublic || (viewer != nil && (viewer.Role == models.RoleAdmin || f.members[viewer.UserID])) {
		return p, nil
	}
	return nil, pools.ErrForbidden
}

func (f *fakePools) CheckAngle(ctx context.Context, viewer *middleware.Identity, angleID int64) (*models.Angle, error) {
	a, ok := f.angles[angleID]
	if !ok {
		return nil, pools.ErrAngleNotFound
	}
	if _, err := f.CheckPool(ctx, viewer, a.PoolID); err != nil {
		return nil, err
	}
	return a, nil
}

func (f *fakePools) ListAngles(_ context.Context, poolID uuid.UUID) ([]models.Angle, error) {
	var out []models.Angle
	for _, a := range f.angles {
		if a.PoolID == poolID {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type prefixSigner struct{}

func (prefixSigner) SignedURL(_ context.Context, key string) (string, error) {
	if key == "" {
		return "", nil
	}
	return "https://signed.example/" + key, nil
}

type fakePresigner struct {
	calls  int
	expire time.Duration
	err    error
}

func (p *fakePresigner) PresignGet(_ context.Context, key string) (string, error) {
	p.calls++
	if p.err != nil {
		return "", p.err
	}
	return "https://bucket.example/" + key + "?sig=1", nil
}

func (p *fakePresigner) PresignExpire() time.Duration { return p.expire }

type memCache struct {
	values map[string]string
	ttls   map[string]time.Duration
}

func newMemCache() *memCache {
	return &memCache{values: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (c *memCache) GetString(_ context.Context, key string) (string, error) {
	v, ok := c.values[key]
	if !ok {
		return "", redis.ErrCacheMiss
	}
	return v, nil
}

func (c *memCache) SetString(_ context.Context, key, value string, ttl time.Duration) error {
	c.values[key] = value
	c.ttls[key] = ttl
	return nil
}

type fakeQueue struct {
	jobs []queue.ClipIngestPayload
	err  error
}

func (q *fakeQueue) EnqueueClipIngest(_ context.Context, p queue.ClipIngestPayload) (string, error) {
	if q.err != nil {
		return "", q.err
	}
	q.jobs = append(q.jobs, p)
	return "job-1", nil
}

type fakeObjects struct {
	uploaded map[string][]byte
	deleted  []string
}

func newFakeObjects() *fakeObjects {
	return &fakeObjects{uploaded: map[string][]byte{}}
}

func (o *fakeObjects) PresignPut(_ context.Context, key, _ string) (string, error) {
	return "https://bucket.example/" + key + "?put=1", nil
}

func (o *fakeObjects) Upload(_ context.Context, key, _ string, body io.Reader) error {
	b, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	o.uploaded[key] = b
	return nil
}

func (o *fakeObjects) Delete(_ context.Context, key string) error {
	o.deleted = append(o.deleted, key)
	return nil
}

func i64(v int64) *int64 { return &v }

func str(s string) *string { return &s }
