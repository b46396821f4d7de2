package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/highlightreel/backend/internal/clips"
	"github.com/highlightreel/backend/internal/models"
	"github.com/highlightreel/backend/internal/realtime"
	"github.com/highlightreel/backend/pkg/metrics"
	"github.com/highlightreel/backend/pkg/queue"
	"github.com/highlightreel/backend/pkg/storage"
)

// ErrMalformedJob marks jobs that can never succeed; they are dropped instead of retried.
var ErrMalformedJob = errors.New("malformed job")

// JobSource is the queue side of the worker.
type JobSource interface {
	Dequeue(ctx context.Context) (*queue.Job, error)
	// Retry requeues job; parked reports that it went to the dead-letter queue instead.
	Retry(ctx context.Context, job *queue.Job) (parked bool, err error)
}

// ObjectStat reports whether an uploaded object exists.
type ObjectStat interface {
	Stat(ctx context.Context, key string) (*storage.ObjectInfo, error)
}

// ClipCreator stores ingested clips.
type ClipCreator interface {
	Create(ctx context.Context, c *models.Clip) error
}

// ClipIngestProcessor turns uploaded objects into feed clips: it checks the
// object, stores the clip row and notifies the pool's viewers.
type ClipIngestProcessor struct {
	jobs    JobSource
	objects ObjectStat
	clips   ClipCreator
	events  realtime.Publisher
	backoff time.Duration
	logger  *zap.Logger
}

// NewClipIngestProcessor creates a clip ingest processor. events may be nil.
func NewClipIngestProcessor(jobs JobSource, objects ObjectStat, clipStore ClipCreator, events realtime.Publisher, backoff time.Duration, logger *zap.Logger) *ClipIngestProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if backoff <= 0 {
		backoff = 10 * time.Second
	}
	return &ClipIngestProcessor{jobs: jobs, objects: objects, clips: clipStore, events: events, backoff: backoff, logger: logger}
}

// Process executes one clip ingest job.
func (p *ClipIngestProcessor) Process(ctx context.Context, job *queue.Job) error {
	if job.Type != queue.JobTypeClipIngest {
		return fmt.Errorf("%w: unknown job type %q", ErrMalformedJob, job.Type)
	}
	var payload queue.ClipIngestPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedJob, err)
	}
	if payload.PoolID == uuid.Nil || payload.VideoKey == "" {
		return fmt.Errorf("%w: pool_id and video_key required", ErrMalformedJob)
	}

	info, err := p.objects.Stat(ctx, payload.VideoKey)
	if err != nil {
		return fmt.Errorf("stat %s: %w", payload.VideoKey, err)
	}

	angleID := payload.AngleID
	clip := &models.Clip{
		PoolID:       payload.PoolID,
		AngleID:      &angleID,
		Wristband:    payload.Wristband,
		CapturedAt:   payload.CapturedAt,
		VideoKey:     payload.VideoKey,
		ThumbnailKey: storage.ThumbnailKey(payload.VideoKey),
	}
	if clip.CapturedAt == nil && !info.LastModified.IsZero() {
		ts := info.LastModified.Unix()
		clip.CapturedAt = &ts
	}

	if err := p.clips.Create(ctx, clip); err != nil {
		if errors.Is(err, clips.ErrDuplicate) {
			p.logger.Info("clip already ingested", zap.String("video_key", payload.VideoKey))
			metrics.RecordIngest(metrics.IngestDuplicate)
			return nil
		}
		return fmt.Errorf("store clip: %w", err)
	}

	if p.events != nil {
		body, err := json.Marshal(clip)
		if err == nil {
			err = p.events.PublishPoolEvent(ctx, clip.PoolID, realtime.EventClipAdded, body)
		}
		if err != nil {
			p.logger.Warn("publish clip_added failed", zap.Error(err), zap.String("clip_id", clip.ID.String()))
		}
	}

	p.logger.Info("clip ingested",
		zap.String("clip_id", clip.ID.String()),
		zap.String("pool_id", clip.PoolID.String()),
		zap.Int64("angle_id", angleID),
		zap.Int64("size", info.Size),
	)
	metrics.RecordIngest(metrics.IngestStored)
	return nil
}

// Run starts the worker loop: dequeue, process, retry on error.
func (p *ClipIngestProcessor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("ingest worker stopping")
			return
		default:
		}

		job, err := p.jobs.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			p.logger.Warn("dequeue error", zap.Error(err))
			p.sleep(ctx)
			continue
		}
		if job == nil {
			continue
		}

		p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt))
		if err := p.Process(ctx, job); err != nil {
			if errors.Is(err, ErrMalformedJob) {
				p.logger.Error("dropping job", zap.String("job_id", job.ID), zap.Error(err))
				metrics.RecordIngest(metrics.IngestDropped)
				continue
			}
			p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Error(err))
			parked, reErr := p.jobs.Retry(ctx, job)
			if reErr != nil {
				p.logger.Error("retry enqueue failed", zap.Error(reErr))
			} else if parked {
				metrics.RecordIngest(metrics.IngestDeadLettered)
			} else {
				metrics.RecordIngest(metrics.IngestRetried)
			}
			p.sleep(ctx)
		}
	}
}

func (p *ClipIngestProcessor) sleep(ctx context.Context) {
	t := time.NewTimer(p.backoff)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
