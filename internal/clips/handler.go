package clips

import (
	"context"
	"errors"
	"io"
	"path"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/highlightreel/backend/internal/middleware"
	"github.com/highlightreel/backend/internal/pools"
	"github.com/highlightreel/backend/pkg/queue"
	"github.com/highlightreel/backend/pkg/response"
	"github.com/highlightreel/backend/pkg/storage"
)

// IngestQueue hands uploaded clips to the ingest worker.
type IngestQueue interface {
	EnqueueClipIngest(ctx context.Context, p queue.ClipIngestPayload) (string, error)
}

// ObjectStore is the write side of clip storage.
type ObjectStore interface {
	PresignPut(ctx context.Context, key, contentType string) (string, error)
	Upload(ctx context.Context, key, contentType string, body io.Reader) error
	Delete(ctx context.Context, key string) error
}

// RegisterRequest is the body for POST /pools/:id/clips. The object must
// already be in the bucket under the pool's clip prefix.
type RegisterRequest struct {
	AngleID    int64   `json:"angle_id" binding:"required"`
	VideoKey   string  `json:"video_key" binding:"required"`
	Wristband  *string `json:"wristband"`
	CapturedAt *int64  `json:"captured_at"`
}

// UploadURLRequest is the body for POST /pools/:id/clips/upload-url.
type UploadURLRequest struct {
	AngleID     int64  `json:"angle_id" binding:"required"`
	ContentType string `json:"content_type" binding:"required"`
}

// Handler handles clip and feed endpoints.
type Handler struct {
	svc     *Service
	objects ObjectStore
	ingest  IngestQueue
	logger  *zap.Logger
}

// NewHandler creates a clips handler. objects and ingest may be nil, in which
// case upload endpoints answer 503.
func NewHandler(svc *Service, objects ObjectStore, ingest IngestQueue, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, objects: objects, ingest: ingest, logger: logger}
}

func writeError(c *gin.Context, err error) {
	if errors.Is(err, ErrClipNotFound) {
		response.NotFound(c, "clip not found")
		return
	}
	pools.WriteError(c, err)
}

// parseFeedQuery reads cursor, amount and wristband. A missing amount is 0
// (default page size); a malformed one is rejected.
func parseFeedQuery(c *gin.Context) (FeedQuery, bool) {
	q := FeedQuery{Cursor: c.Query("cursor")}
	if raw := c.Query("amount"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return FeedQuery{}, false
		}
		q.Amount = n
	}
	if w := strings.TrimSpace(c.Query("wristband")); w != "" {
		q.Wristband = &w
	}
	return q, true
}

// HighlightFeed handles GET /pools/:id/highlights.
func (h *Handler) HighlightFeed(c *gin.Context) {
	poolID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid pool id")
		return
	}
	q, ok := parseFeedQuery(c)
	if !ok {
		response.BadRequest(c, "amount must be a positive integer")
		return
	}
	page, err := h.svc.HighlightFeed(c.Request.Context(), middleware.Viewer(c), poolID, q)
	if err != nil {
		if !isAccessError(err) {
			h.logger.Error("highlight feed failed", zap.Error(err), zap.String("pool_id", poolID.String()))
		}
		writeError(c, err)
		return
	}
	response.Page(c, page.Items, response.Paging{HasNext: page.HasNext, NextCursor: page.NextCursor, PrevCursor: page.PrevCursor})
}

// AngleFeed handles GET /angles/:id/clips.
func (h *Handler) AngleFeed(c *gin.Context) {
	angleID, ok := pools.ParseAngleID(c.Param("id"))
	if !ok {
		response.BadRequest(c, "invalid angle id")
		return
	}
	q, ok := parseFeedQuery(c)
	if !ok {
		response.BadRequest(c, "amount must be a positive integer")
		return
	}
	page, err := h.svc.AngleFeed(c.Request.Context(), middleware.Viewer(c), angleID, q)
	if err != nil {
		if !isAccessError(err) {
			h.logger.Error("angle feed failed", zap.Error(err), zap.Int64("angle_id", angleID))
		}
		writeError(c, err)
		return
	}
	response.Page(c, page.Items, response.Paging{HasNext: page.HasNext, NextCursor: page.NextCursor, PrevCursor: page.PrevCursor})
}

// Get handles GET /clips/:id.
func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid clip id")
		return
	}
	v, err := h.svc.Get(c.Request.Context(), middleware.Viewer(c), id)
	if err != nil {
		writeError(c, err)
		return
	}
	response.OK(c, v)
}

// Register handles POST /pools/:id/clips (admin). The clip becomes visible
// once the ingest worker has verified the object.
func (h *Handler) Register(c *gin.Context) {
	if h.ingest == nil {
		response.ServiceUnavailable(c, "ingest queue not configured")
		return
	}
	poolID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid pool id")
		return
	}
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if _, err := h.svc.CheckUploadTarget(c.Request.Context(), middleware.Viewer(c), poolID, req.AngleID); err != nil {
		writeError(c, err)
		return
	}
	prefix := path.Join(storage.FolderClips, poolID.String(), strconv.FormatInt(req.AngleID, 10)) + "/"
	if !strings.HasPrefix(req.VideoKey, prefix) {
		response.BadRequest(c, "video_key must be under "+prefix)
		return
	}
	h.enqueue(c, queue.ClipIngestPayload{
		PoolID:     poolID,
		AngleID:    req.AngleID,
		VideoKey:   req.VideoKey,
		Wristband:  req.Wristband,
		CapturedAt: req.CapturedAt,
	})
}

// UploadURL handles POST /pools/:id/clips/upload-url (admin).
func (h *Handler) UploadURL(c *gin.Context) {
	if h.objects == nil {
		response.ServiceUnavailable(c, "storage not configured")
		return
	}
	poolID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid pool id")
		return
	}
	var req UploadURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	ext, ok := storage.ClipExtension(req.ContentType)
	if !ok {
		response.BadRequest(c, "unsupported content type")
		return
	}
	if _, err := h.svc.CheckUploadTarget(c.Request.Context(), middleware.Viewer(c), poolID, req.AngleID); err != nil {
		writeError(c, err)
		return
	}

	key := storage.ClipKey(poolID.String(), req.AngleID, uuid.New().String(), ext)
	url, err := h.objects.PresignPut(c.Request.Context(), key, req.ContentType)
	if err != nil {
		h.logger.Error("presign put failed", zap.Error(err), zap.String("key", key))
		response.Internal(c, "failed to create upload url")
		return
	}
	response.OK(c, gin.H{
		"upload_url":   url,
		"video_key":    key,
		"content_type": req.ContentType,
	})
}

// Upload handles POST /pools/:id/clips/upload (admin): a multipart clip is
// streamed to storage and queued for ingest in one call.
func (h *Handler) Upload(c *gin.Context) {
	if h.objects == nil || h.ingest == nil {
		response.ServiceUnavailable(c, "storage not configured")
		return
	}
	poolID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid pool id")
		return
	}
	angleID, ok := pools.ParseAngleID(c.PostForm("angle_id"))
	if !ok {
		response.BadRequest(c, "invalid angle_id")
		return
	}
	file, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, "missing file (form field: file)")
		return
	}
	if file.Size > storage.MaxClipFileSize {
		response.BadRequest(c, "file size exceeds 200MB limit")
		return
	}
	contentType := file.Header.Get("Content-Type")
	ext, ok := storage.ClipExtension(contentType)
	if !ok {
		response.BadRequest(c, "invalid file type: only mp4, mov and webm allowed")
		return
	}
	if _, err := h.svc.CheckUploadTarget(c.Request.Context(), middleware.Viewer(c), poolID, angleID); err != nil {
		writeError(c, err)
		return
	}

	payload := queue.ClipIngestPayload{PoolID: poolID, AngleID: angleID}
	if w := strings.TrimSpace(c.PostForm("wristband")); w != "" {
		payload.Wristband = &w
	}
	if raw := c.PostForm("captured_at"); raw != "" {
		ts, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			response.BadRequest(c, "invalid captured_at")
			return
		}
		payload.CapturedAt = &ts
	}

	rc, err := file.Open()
	if err != nil {
		h.logger.Error("open uploaded file failed", zap.Error(err))
		response.Internal(c, "failed to read file")
		return
	}
	defer rc.Close()

	payload.VideoKey = storage.ClipKey(poolID.String(), angleID, uuid.New().String(), ext)
	if err := h.objects.Upload(c.Request.Context(), payload.VideoKey, contentType, rc); err != nil {
		h.logger.Error("S3 upload failed", zap.Error(err), zap.String("key", payload.VideoKey))
		response.Internal(c, "failed to upload file to storage")
		return
	}
	h.enqueue(c, payload)
}

func (h *Handler) enqueue(c *gin.Context, p queue.ClipIngestPayload) {
	jobID, err := h.ingest.EnqueueClipIngest(c.Request.Context(), p)
	if err != nil {
		h.logger.Error("enqueue clip ingest failed", zap.Error(err), zap.String("video_key", p.VideoKey))
		response.Internal(c, "failed to queue clip")
		return
	}
	response.Accepted(c, gin.H{"job_id": jobID, "video_key": p.VideoKey})
}

// Delete handles DELETE /clips/:id (admin). Object cleanup is best-effort.
func (h *Handler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid clip id")
		return
	}
	clip, err := h.svc.Delete(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	if h.objects != nil {
		for _, key := range []string{clip.VideoKey, clip.ThumbnailKey} {
			if key == "" {
				continue
			}
			if err := h.objects.Delete(c.Request.Context(), key); err != nil {
				h.logger.Warn("delete object failed", zap.Error(err), zap.String("key", key))
			}
		}
	}
	response.NoContent(c)
}

func isAccessError(err error) bool {
	return errors.Is(err, pools.ErrPoolNotFound) ||
		errors.Is(err, pools.ErrAngleNotFound) ||
		errors.Is(err, pools.ErrForbidden) ||
		errors.Is(err, ErrClipNotFound)
}
