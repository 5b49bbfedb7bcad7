package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/stackpilot/stackpilot-backend/internal/plans/cache"
	"github.com/stackpilot/stackpilot-backend/internal/plans/domain"
	"github.com/stackpilot/stackpilot-backend/internal/platform/logger"
)

// PlanService owns reads, deletes and saves of persisted plans and keeps the
// per-user history cache consistent with them.
type PlanService struct {
	store   PlanStore
	history HistoryStore
	log     *logger.Logger
}

func NewPlanService(store PlanStore, history HistoryStore, log *logger.Logger) *PlanService {
	if log == nil {
		log = logger.Nop()
	}
	return &PlanService{store: store, history: history, log: log}
}

// GetProjects serves the user's history through the cache. Cache failures
// fall back to the store and are never returned.
func (s *PlanService) GetProjects(ctx context.Context, userID string) (domain.ProjectList, error) {
	if userID == "" {
		return domain.ProjectList{}, domain.ErrUnauthenticated
	}
	log := s.log.WithContext(ctx).With("user_id", userID)

	cached, err := s.history.Get(ctx, userID)
	if err == nil {
		return *cached, nil
	}
	if !errors.Is(err, cache.ErrMiss) {
		log.Warn("history cache read failed, using database", "error", err)
	}

	plans, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return domain.ProjectList{}, err
	}
	list := domain.NewProjectList(plans)

	if err := s.history.Set(ctx, userID, list); err != nil {
		log.Warn("history cache write failed", "error", err)
	}
	return list, nil
}

// GetByID returns a plan. Private plans are reported as missing to everyone
// but their owner.
func (s *PlanService) GetByID(ctx context.Context, id, requesterID string) (*domain.ProjectPlan, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, domain.NewValidationError("id is required")
	}

	p, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Visibility == domain.VisibilityPrivate && p.UserID != requesterID {
		return nil, domain.ErrNotFound
	}

	if _, err := domain.DecodeContent(p.SchemaVersion, p.Content); err != nil {
		var unsupported *domain.UnsupportedSchemaError
		if errors.As(err, &unsupported) {
			return nil, err
		}
		s.log.WithContext(ctx).Warn("stored plan does not decode", "plan_id", id, "error", err)
	}
	return p, nil
}

// Delete removes a plan owned by userID. Missing and foreign plans both yield
// domain.ErrNotFound.
func (s *PlanService) Delete(ctx context.Context, id, userID string) error {
	if userID == "" {
		return domain.ErrUnauthenticated
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.NewValidationError("id is required")
	}

	ok, err := s.store.DeleteOwned(ctx, id, userID)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrNotFound
	}

	s.evict(ctx, userID)
	return nil
}

// Save persists a validated plan and evicts the owner's history.
func (s *PlanService) Save(ctx context.Context, userID string, content *domain.PlanContent, idea, id string, visibility domain.Visibility) (string, error) {
	if userID == "" {
		return "", domain.ErrUnauthenticated
	}
	raw, err := json.Marshal(content)
	if err != nil {
		return "", fmt.Errorf("encode plan: %w", err)
	}
	if visibility == "" {
		visibility = domain.VisibilityLink
	}

	p := &domain.ProjectPlan{
		ID:            id,
		UserID:        userID,
		IdeaText:      idea,
		Content:       raw,
		SchemaVersion: domain.CurrentSchemaVersion,
		Visibility:    visibility,
	}
	if err := s.store.Insert(ctx, p); err != nil {
		return "", err
	}

	s.evict(ctx, userID)
	return p.ID, nil
}

func (s *PlanService) evict(ctx context.Context, userID string) {
	if err := s.history.Invalidate(ctx, userID); err != nil {
		s.log.WithContext(ctx).Warn("history cache eviction failed", "user_id", userID, "error", err)
	}
}
