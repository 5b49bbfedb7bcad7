package service

import (
	"context"

	"github.com/stackpilot/stackpilot-backend/internal/plans/domain"
)

type PlanStore interface {
	Insert(ctx context.Context, p *domain.ProjectPlan) error
	GetByID(ctx context.Context, id string) (*domain.ProjectPlan, error)
	ListByUser(ctx context.Context, userID string) ([]domain.ProjectPlan, error)
	DeleteOwned(ctx context.Context, id, userID string) (bool, error)
}

type HistoryStore interface {
	Get(ctx context.Context, userID string) (*domain.ProjectList, error)
	Set(ctx context.Context, userID string, list domain.ProjectList) error
	Invalidate(ctx context.Context, userID string) error
}

type StatusTracker interface {
	Set(ctx context.Context, id string, status domain.GenerationStatus) error
	Get(ctx context.Context, id string) (domain.GenerationStatus, error)
}
