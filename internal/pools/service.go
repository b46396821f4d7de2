package pools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/highlightreel/backend/internal/middleware"
	"github.com/highlightreel/backend/internal/models"
)

var (
	// ErrForbidden means the pool exists but the viewer may not see or change it.
	ErrForbidden = errors.New("pool not accessible")
	ErrInvalid   = errors.New("invalid pool input")
)

// Service applies visibility rules on top of Store.
type Service struct {
	store  Store
	logger *zap.Logger
}

// NewService creates a pools service.
func NewService(store Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, logger: logger}
}

// canView resolves visibility: public pools are open to everyone, private
// pools to their owner, members and admins. viewer is nil for anonymous callers.
func (s *Service) canView(ctx context.Context, viewer *middleware.Identity, p *models.Pool) (bool, error) {
	if p.IsPublic {
		return true, nil
	}
	if viewer == nil {
		return false, nil
	}
	if viewer.Role == models.RoleAdmin || viewer.UserID == p.OwnerID {
		return true, nil
	}
	return s.store.IsMember(ctx, p.ID, viewer.UserID)
}

func canManage(viewer middleware.Identity, p *models.Pool) bool {
	return viewer.Role == models.RoleAdmin || viewer.UserID == p.OwnerID
}

// CheckPool returns the pool when viewer may see it, ErrPoolNotFound or ErrForbidden otherwise.
func (s *Service) CheckPool(ctx context.Context, viewer *middleware.Identity, poolID uuid.UUID) (*models.Pool, error) {
	p, err := s.store.GetByID(ctx, poolID)
	if err != nil {
		return nil, err
	}
	ok, err := s.canView(ctx, viewer, p)
	if err != nil {
		return nil, fmt.Errorf("check membership: %w", err)
	}
	if !ok {
		return nil, ErrForbidden
	}
	return p, nil
}

// CheckAngle returns the angle when its pool is visible to viewer.
func (s *Service) CheckAngle(ctx context.Context, viewer *middleware.Identity, angleID int64) (*models.Angle, error) {
	a, err := s.store.GetAngle(ctx, angleID)
	if err != nil {
		return nil, err
	}
	if _, err := s.CheckPool(ctx, viewer, a.PoolID); err != nil {
		return nil, err
	}
	return a, nil
}

// Create adds a pool owned by owner.
func (s *Service) Create(ctx context.Context, owner middleware.Identity, name, venue string, public bool) (*models.Pool, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name required", ErrInvalid)
	}
	p := &models.Pool{Name: name, Venue: strings.TrimSpace(venue), IsPublic: public, OwnerID: owner.UserID}
	if err := s.store.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	s.logger.Info("pool created", zap.String("pool_id", p.ID.String()), zap.Bool("public", public))
	return p, nil
}

// List returns the pools viewer can see.
func (s *Service) List(ctx context.Context, viewer *middleware.Identity) ([]models.Pool, error) {
	if viewer == nil {
		return s.store.ListVisible(ctx, nil)
	}
	if viewer.Role == models.RoleAdmin {
		return s.store.ListAll(ctx)
	}
	return s.store.ListVisible(ctx, &viewer.UserID)
}

// AddMember lets the owner (or an admin) share a private pool with a user.
func (s *Service) AddMember(ctx context.Context, actor middleware.Identity, poolID, userID uuid.UUID) error {
	p, err := s.store.GetByID(ctx, poolID)
	if err != nil {
		return err
	}
	if !canManage(actor, p) {
		return ErrForbidden
	}
	return s.store.AddMember(ctx, poolID, userID)
}

// CreateAngle registers a camera for a pool the actor manages.
func (s *Service) CreateAngle(ctx context.Context, actor middleware.Identity, poolID uuid.UUID, label string) (*models.Angle, error) {
	p, err := s.store.GetByID(ctx, poolID)
	if err != nil {
		return nil, err
	}
	if !canManage(actor, p) {
		return nil, ErrForbidden
	}
	label = strings.TrimSpace(label)
	if label == "" {
		return nil, fmt.Errorf("%w: label required", ErrInvalid)
	}
	a := &models.Angle{PoolID: poolID, Label: label}
	if err := s.store.CreateAngle(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// ListAngles returns a pool's angles ordered by id. Visibility is not checked here.
func (s *Service) ListAngles(ctx context.Context, poolID uuid.UUID) ([]models.Angle, error) {
	return s.store.ListAngles(ctx, poolID)
}
