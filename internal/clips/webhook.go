package clips

import (
	"crypto/subtle"
	"net/url"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/highlightreel/backend/pkg/queue"
	"github.com/highlightreel/backend/pkg/response"
	"github.com/highlightreel/backend/pkg/storage"
)

// WebhookSecretHeader carries the shared secret on upload notifications.
const WebhookSecretHeader = "X-Webhook-Secret"

// UploadNotification is the subset of an S3 event notification the webhook reads.
type UploadNotification struct {
	Records []struct {
		EventName string `json:"eventName"`
		S3        struct {
			Object struct {
				Key string `json:"key"`
			} `json:"object"`
		} `json:"s3"`
	} `json:"Records"`
}

// WebhookHandler turns bucket upload notifications into ingest jobs, so clips
// uploaded through a presigned URL need no second call.
type WebhookHandler struct {
	queue  IngestQueue
	secret string
	logger *zap.Logger
}

// NewWebhookHandler creates a webhook handler. An empty secret rejects every call.
func NewWebhookHandler(q IngestQueue, secret string, logger *zap.Logger) *WebhookHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebhookHandler{queue: q, secret: secret, logger: logger}
}

// ParseClipKey splits clips/{pool_id}/{angle_id}/{file} into its pool and angle.
func ParseClipKey(key string) (uuid.UUID, int64, bool) {
	parts := strings.Split(key, "/")
	if len(parts) != 4 || parts[0] != storage.FolderClips || parts[3] == "" {
		return uuid.Nil, 0, false
	}
	poolID, err := uuid.Parse(parts[1])
	if err != nil {
		return uuid.Nil, 0, false
	}
	angleID, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil || angleID <= 0 {
		return uuid.Nil, 0, false
	}
	return poolID, angleID, true
}

// ClipUploaded handles POST /webhooks/clip-uploaded. Keys outside the clip
// layout are skipped; the worker verifies each object before storing it.
func (h *WebhookHandler) ClipUploaded(c *gin.Context) {
	if h.secret == "" || subtle.ConstantTimeCompare([]byte(c.GetHeader(WebhookSecretHeader)), []byte(h.secret)) != 1 {
		response.Unauthorized(c, "invalid webhook secret")
		return
	}
	var body UploadNotification
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	var jobs []string
	skipped := 0
	for _, rec := range body.Records {
		if !strings.HasPrefix(rec.EventName, "ObjectCreated") {
			skipped++
			continue
		}
		// S3 event keys are form-encoded.
		key, err := url.QueryUnescape(rec.S3.Object.Key)
		if err != nil {
			skipped++
			continue
		}
		poolID, angleID, ok := ParseClipKey(key)
		if !ok {
			skipped++
			continue
		}
		jobID, err := h.queue.EnqueueClipIngest(c.Request.Context(), queue.ClipIngestPayload{
			PoolID:   poolID,
			AngleID:  angleID,
			VideoKey: key,
		})
		if err != nil {
			h.logger.Error("enqueue clip ingest failed", zap.Error(err), zap.String("video_key", key))
			response.Internal(c, "failed to enqueue ingest")
			return
		}
		jobs = append(jobs, jobID)
	}

	h.logger.Info("clip upload webhook processed", zap.Int("queued", len(jobs)), zap.Int("skipped", skipped))
	response.Accepted(c, gin.H{"job_ids": jobs, "skipped": skipped})
}
