package http

import (
	"github.com/stackpilot/stackpilot-backend/internal/plans/service"
	"github.com/stackpilot/stackpilot-backend/internal/platform/logger"
)

// Handler bundles the dependencies for plan endpoints.
type Handler struct {
	gen   *service.GenerationService
	plans *service.PlanService
	log   *logger.Logger
}

func New(gen *service.GenerationService, plans *service.PlanService, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.Nop()
	}
	return &Handler{gen: gen, plans: plans, log: log}
}

// ideaReq keeps projectIdea untyped so non-string values reach the validator
// and get a precise message instead of a bind error.
type ideaReq struct {
	ProjectIdea any    `json:"projectIdea"`
	Visibility  string `json:"visibility"`
}

type idReq struct {
	ID string `json:"id"`
}
