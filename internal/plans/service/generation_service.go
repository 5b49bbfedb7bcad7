package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/stackpilot/stackpilot-backend/internal/plans/domain"
	"github.com/stackpilot/stackpilot-backend/internal/plans/generator"
	"github.com/stackpilot/stackpilot-backend/internal/plans/validation"
	"github.com/stackpilot/stackpilot-backend/internal/platform/logger"
	"github.com/stackpilot/stackpilot-backend/internal/ratelimit"
)

// Stream event types, in the order a client sees them.
const (
	EventMeta          = "meta"
	EventPartial       = "partial"
	EventFinal         = "final"
	EventPersisted     = "persisted"
	EventPersistFailed = "persist_failed"
	EventSkipped       = "skipped"
	EventError         = "error"
)

type StreamEvent struct {
	Type string
	Data any
	Err  error
}

// Generation is an accepted request that has passed validation and rate
// limiting and owns its pre-generated id.
type Generation struct {
	ID         string
	Idea       string
	UserID     string
	Visibility domain.Visibility
}

type GenerationService struct {
	gen         *generator.Generator
	plans       *PlanService
	limiter     ratelimit.Limiter
	status      StatusTracker
	log         *logger.Logger
	saveTimeout time.Duration
	newID       func() string
}

func NewGenerationService(gen *generator.Generator, plans *PlanService, limiter ratelimit.Limiter, status StatusTracker, log *logger.Logger) *GenerationService {
	if log == nil {
		log = logger.Nop()
	}
	return &GenerationService{
		gen:         gen,
		plans:       plans,
		limiter:     limiter,
		status:      status,
		log:         log,
		saveTimeout: 10 * time.Second,
		newID:       uuid.NewString,
	}
}

// admit validates the idea and consumes one rate-limit slot for clientKey.
func (s *GenerationService) admit(ctx context.Context, rawIdea any, clientKey string) (string, error) {
	idea, err := validation.ValidateIdea(rawIdea)
	if err != nil {
		return "", err
	}
	d, err := s.limiter.Allow(ctx, clientKey)
	if err != nil {
		return "", err
	}
	if !d.Allowed {
		s.log.WithContext(ctx).Info("rate limited", "client", clientKey, "retry_after", d.RetryAfter.String())
		return "", &domain.RateLimitError{RetryAfter: d.RetryAfter, Limit: d.Limit}
	}
	return idea, nil
}

// Prepare runs the checks that must pass before any model call.
func (s *GenerationService) Prepare(ctx context.Context, rawIdea any, visibility, clientKey, userID string) (*Generation, error) {
	vis, ok := domain.ParseVisibility(visibility)
	if !ok {
		return nil, domain.NewValidationError("visibility must be link or private")
	}
	idea, err := s.admit(ctx, rawIdea, clientKey)
	if err != nil {
		return nil, err
	}
	return &Generation{ID: s.newID(), Idea: idea, UserID: userID, Visibility: vis}, nil
}

// Run streams the plan through emit and then persists it. The final object is
// delivered before persistence starts, and persistence runs detached from ctx
// so a client disconnect after the final event cannot abort the save.
func (s *GenerationService) Run(ctx context.Context, g *Generation, emit func(StreamEvent) error) error {
	log := s.log.WithContext(ctx).With("plan_id", g.ID)

	if err := emit(StreamEvent{Type: EventMeta, Data: map[string]any{"id": g.ID}}); err != nil {
		return err
	}
	if g.UserID != "" {
		s.setStatus(ctx, g.ID, domain.StatusPending)
	}

	plan, err := s.gen.Stream(ctx, generator.Request{ID: g.ID, Idea: g.Idea}, func(e generator.Event) error {
		switch e.Phase {
		case generator.PhaseStreaming:
			return emit(StreamEvent{Type: EventPartial, Data: e.Partial})
		case generator.PhaseValidated:
			return emit(StreamEvent{Type: EventFinal, Data: e.Final})
		}
		return nil
	})
	if err != nil {
		if g.UserID != "" {
			s.setStatus(ctx, g.ID, domain.StatusFailed)
		}
		if errors.Is(err, context.Canceled) {
			log.Info("generation cancelled by client")
			return err
		}
		_ = emit(StreamEvent{Type: EventError, Err: err})
		return err
	}

	if g.UserID == "" {
		s.setStatus(ctx, g.ID, domain.StatusSkipped)
		_ = emit(StreamEvent{Type: EventSkipped, Data: map[string]any{"id": g.ID, "reason": "not signed in"}})
		return nil
	}

	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.saveTimeout)
	defer cancel()

	if _, err := s.plans.Save(saveCtx, g.UserID, plan, g.Idea, g.ID, g.Visibility); err != nil {
		log.Error("plan persistence failed", "user_id", g.UserID, "idea", logger.Truncate(g.Idea, 120), "error", err)
		s.setStatus(saveCtx, g.ID, domain.StatusFailed)
		_ = emit(StreamEvent{Type: EventPersistFailed, Err: err})
		return nil
	}

	log.Info("plan persisted", "user_id", g.UserID)
	s.setStatus(saveCtx, g.ID, domain.StatusSaved)
	_ = emit(StreamEvent{Type: EventPersisted, Data: map[string]any{"id": g.ID}})
	return nil
}

func (s *GenerationService) setStatus(ctx context.Context, id string, st domain.GenerationStatus) {
	if s.status == nil {
		return
	}
	if err := s.status.Set(context.WithoutCancel(ctx), id, st); err != nil {
		s.log.WithContext(ctx).Warn("generation status update failed", "plan_id", id, "status", string(st), "error", err)
	}
}

// Status returns the persistence state of a generation.
func (s *GenerationService) Status(ctx context.Context, id string) (domain.GenerationStatus, error) {
	if id == "" {
		return "", domain.NewValidationError("id is required")
	}
	if s.status == nil {
		return "", domain.ErrNotFound
	}
	return s.status.Get(ctx, id)
}

// ValidateInput asks the model whether the idea is a buildable project.
func (s *GenerationService) ValidateInput(ctx context.Context, rawIdea any, clientKey string) (bool, string, error) {
	idea, err := s.admit(ctx, rawIdea, clientKey)
	if err != nil {
		return false, "", err
	}
	return s.gen.Classify(ctx, idea)
}

// Decide produces the single-choice architecture graph.
func (s *GenerationService) Decide(ctx context.Context, rawIdea any, clientKey string) (*domain.DecisionStructure, error) {
	idea, err := s.admit(ctx, rawIdea, clientKey)
	if err != nil {
		return nil, err
	}
	return s.gen.Decide(ctx, idea)
}
