package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	// QueueClipIngest is the Redis list key for clip ingest jobs.
	QueueClipIngest = "worker:clip_ingest"
	// QueueDLQ is the dead-letter queue for jobs that ran out of retries.
	QueueDLQ = "worker:dlq"
	// DefaultMaxRetries is used when NewQueue gets a non-positive limit.
	DefaultMaxRetries = 3
	// dequeueTimeout bounds one BLPOP so shutdown is noticed.
	dequeueTimeout = 5 * time.Second
)

// JobType identifies the job kind.
type JobType string

const (
	JobTypeClipIngest JobType = "clip_ingest"
)

// ClipIngestPayload describes an uploaded clip waiting to be registered.
type ClipIngestPayload struct {
	PoolID     uuid.UUID `json:"pool_id"`
	AngleID    int64     `json:"angle_id"`
	VideoKey   string    `json:"video_key"`
	Wristband  *string   `json:"wristband,omitempty"`
	CapturedAt *int64    `json:"captured_at,omitempty"`
}

// Job is a generic job envelope.
type Job struct {
	ID        string          `json:"id"`
	Type      JobType         `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Attempt   int             `json:"attempt"`
	CreatedAt time.Time       `json:"created_at"`
}

// Queue enqueues and dequeues jobs via Redis lists.
type Queue struct {
	client     *redis.Client
	maxRetries int
	logger     *zap.Logger
}

// NewQueue creates a Redis-backed job queue.
func NewQueue(client *redis.Client, maxRetries int, logger *zap.Logger) *Queue {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	return &Queue{client: client, maxRetries: maxRetries, logger: logger}
}

// NewJob wraps a payload in an envelope with a fresh id.
func NewJob(t JobType, payload interface{}) (*Job, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return &Job{
		ID:        uuid.New().String(),
		Type:      t,
		Payload:   body,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// EnqueueClipIngest enqueues a clip ingest job and returns its id.
func (q *Queue) EnqueueClipIngest(ctx context.Context, payload ClipIngestPayload) (string, error) {
	job, err := NewJob(JobTypeClipIngest, payload)
	if err != nil {
		return "", err
	}
	if err := q.push(ctx, QueueClipIngest, job); err != nil {
		return "", err
	}
	q.logger.Debug("enqueued clip ingest job", zap.String("job_id", job.ID), zap.String("video_key", payload.VideoKey))
	return job.ID, nil
}

// Dequeue waits briefly for a job. It returns nil, nil when none arrived or
// the entry could not be decoded.
func (q *Queue) Dequeue(ctx context.Context) (*Job, error) {
	result, err := q.client.BLPop(ctx, dequeueTimeout, QueueClipIngest).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	if len(result) < 2 {
		return nil, nil
	}
	var job Job
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		q.logger.Warn("invalid job payload", zap.String("raw", result[1]), zap.Error(err))
		return nil, nil
	}
	return &job, nil
}

// Retry re-enqueues a job with an incremented attempt, or parks it in the
// DLQ once the retry limit is reached. parked reports the DLQ case.
func (q *Queue) Retry(ctx context.Context, job *Job) (parked bool, err error) {
	key, parked := q.retryTarget(job)
	if err := q.push(ctx, key, job); err != nil {
		if parked {
			q.logger.Error("dlq push failed", zap.Error(err), zap.String("job_id", job.ID))
		}
		return parked, err
	}
	if parked {
		q.logger.Warn("job moved to DLQ", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt))
	} else {
		q.logger.Info("job retried", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt))
	}
	return parked, nil
}

// retryTarget bumps the attempt and picks the list the job goes back to.
func (q *Queue) retryTarget(job *Job) (key string, parked bool) {
	job.Attempt++
	if job.Attempt >= q.maxRetries {
		return QueueDLQ, true
	}
	return QueueClipIngest, false
}

func (q *Queue) push(ctx context.Context, key string, job *Job) error {
	raw, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	if err := q.client.RPush(ctx, key, raw).Err(); err != nil {
		return fmt.Errorf("rpush %s: %w", key, err)
	}
	return nil
}
