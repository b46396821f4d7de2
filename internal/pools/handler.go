package pools

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/highlightreel/backend/internal/middleware"
	"github.com/highlightreel/backend/internal/models"
	"github.com/highlightreel/backend/pkg/response"
)

// ContextPool is the gin context key for the pool resolved by RequirePoolAccess.
const ContextPool = "pool"

// CreateRequest is the body for POST /pools.
type CreateRequest struct {
	Name     string `json:"name" binding:"required"`
	Venue    string `json:"venue"`
	IsPublic bool   `json:"is_public"`
}

// AddMemberRequest is the body for POST /pools/:id/members.
type AddMemberRequest struct {
	UserID string `json:"user_id" binding:"required,uuid"`
}

// CreateAngleRequest is the body for POST /pools/:id/angles.
type CreateAngleRequest struct {
	Label string `json:"label" binding:"required"`
}

// Handler handles pool and angle HTTP endpoints.
type Handler struct {
	svc    *Service
	logger *zap.Logger
}

// NewHandler creates a pools handler.
func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, logger: logger}
}

// RequirePoolAccess resolves :id to a visible pool and stores it under ContextPool.
// Use after JWT or OptionalJWT.
func RequirePoolAccess(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		poolID, err := uuid.Parse(c.Param("id"))
		if err != nil {
			response.BadRequest(c, "invalid pool id")
			c.Abort()
			return
		}
		p, err := svc.CheckPool(c.Request.Context(), middleware.Viewer(c), poolID)
		if err != nil {
			writeError(c, err)
			c.Abort()
			return
		}
		c.Set(ContextPool, p)
		c.Next()
	}
}

// writeError maps service errors onto the response envelope.
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrPoolNotFound):
		response.NotFound(c, "pool not found")
	case errors.Is(err, ErrAngleNotFound):
		response.NotFound(c, "angle not found")
	case errors.Is(err, ErrForbidden):
		response.Forbidden(c, "not authorized for this pool")
	case errors.Is(err, ErrUnknownUser):
		response.BadRequest(c, "unknown user")
	case errors.Is(err, ErrInvalid):
		response.BadRequest(c, err.Error())
	default:
		_ = c.Error(err)
		response.Internal(c, "internal error")
	}
}

// List handles GET /pools.
func (h *Handler) List(c *gin.Context) {
	list, err := h.svc.List(c.Request.Context(), middleware.Viewer(c))
	if err != nil {
		h.logger.Error("list pools failed", zap.Error(err))
		response.Internal(c, "failed to list pools")
		return
	}
	if list == nil {
		list = []models.Pool{}
	}
	response.OK(c, list)
}

// Create handles POST /pools.
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	id, _ := middleware.CurrentIdentity(c)
	p, err := h.svc.Create(c.Request.Context(), id, req.Name, req.Venue, req.IsPublic)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Created(c, p)
}

// Get handles GET /pools/:id. Requires RequirePoolAccess.
func (h *Handler) Get(c *gin.Context) {
	response.OK(c, c.MustGet(ContextPool).(*models.Pool))
}

// AddMember handles POST /pools/:id/members.
func (h *Handler) AddMember(c *gin.Context) {
	poolID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid pool id")
		return
	}
	var req AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	userID, _ := uuid.Parse(req.UserID)
	actor, _ := middleware.CurrentIdentity(c)
	if err := h.svc.AddMember(c.Request.Context(), actor, poolID, userID); err != nil {
		writeError(c, err)
		return
	}
	response.NoContent(c)
}

// ListAngles handles GET /pools/:id/angles. Requires RequirePoolAccess.
func (h *Handler) ListAngles(c *gin.Context) {
	p := c.MustGet(ContextPool).(*models.Pool)
	list, err := h.svc.ListAngles(c.Request.Context(), p.ID)
	if err != nil {
		h.logger.Error("list angles failed", zap.Error(err), zap.String("pool_id", p.ID.String()))
		response.Internal(c, "failed to list angles")
		return
	}
	if list == nil {
		list = []models.Angle{}
	}
	response.OK(c, list)
}

// CreateAngle handles POST /pools/:id/angles.
func (h *Handler) CreateAngle(c *gin.Context) {
	poolID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid pool id")
		return
	}
	var req CreateAngleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	actor, _ := middleware.CurrentIdentity(c)
	a, err := h.svc.CreateAngle(c.Request.Context(), actor, poolID, req.Label)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Created(c, a)
}

// ParseAngleID parses an angle id path parameter.
func ParseAngleID(s string) (int64, bool) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// WriteError exposes the pool error mapping to sibling handlers.
func WriteError(c *gin.Context, err error) { writeError(c, err) }
