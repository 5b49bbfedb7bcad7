// Package generator drives the model call that produces a plan and checks the
// result against the plan contract.
package generator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/stackpilot/stackpilot-backend/internal/llm"
	"github.com/stackpilot/stackpilot-backend/internal/plans/domain"
	"github.com/stackpilot/stackpilot-backend/internal/plans/prompt"
	"github.com/stackpilot/stackpilot-backend/internal/platform/logger"
)

type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhasePrompting Phase = "prompting"
	PhaseStreaming Phase = "streaming"
	PhaseValidated Phase = "validated"
	PhaseFailed    Phase = "failed"
)

// Event is one step of a generation. Partial is set while streaming, Final
// once validated, Err when failed.
type Event struct {
	Phase   Phase
	Partial map[string]any
	Final   *domain.PlanContent
	Err     error
}

type Request struct {
	ID   string
	Idea string
}

type Generator struct {
	provider llm.Provider
	timeout  time.Duration
	log      *logger.Logger
}

func New(provider llm.Provider, timeout time.Duration, log *logger.Logger) *Generator {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Generator{provider: provider, timeout: timeout, log: log}
}

// Stream generates a plan, emitting a partial snapshot whenever the decoded
// prefix changes. It returns the validated plan or a typed error. When ctx is
// cancelled no further events are emitted and ctx.Err() is returned.
func (g *Generator) Stream(ctx context.Context, req Request, emit func(Event) error) (*domain.PlanContent, error) {
	if err := emit(Event{Phase: PhasePrompting}); err != nil {
		return nil, err
	}

	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	var (
		buf     strings.Builder
		last    map[string]any
		emitErr error
	)
	onDelta := func(delta string) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		buf.WriteString(delta)
		repaired, ok := repairPartial(buf.String())
		if !ok {
			return nil
		}
		var snap map[string]any
		if err := json.Unmarshal([]byte(repaired), &snap); err != nil {
			return nil
		}
		if _, ok := snap["id"]; ok {
			snap["id"] = req.ID
		}
		if reflect.DeepEqual(snap, last) {
			return nil
		}
		last = snap
		emitErr = emit(Event{Phase: PhaseStreaming, Partial: snap})
		return emitErr
	}

	raw, err := g.provider.StreamObject(callCtx, llm.ObjectRequest{
		System: prompt.System,
		User:   prompt.Build(req.Idea, req.ID),
		Schema: prompt.ContentSchema(),
	}, onDelta)
	if emitErr != nil {
		return nil, emitErr
	}
	// The provider may finish cleanly after the caller has gone away.
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if err != nil {
		return nil, g.fail(ctx, callCtx, req, err, emit)
	}

	plan, err := finalize(raw)
	if err != nil {
		return nil, g.fail(ctx, callCtx, req, err, emit)
	}
	plan.ID = req.ID

	if err := emit(Event{Phase: PhaseValidated, Final: plan}); err != nil {
		return nil, err
	}
	return plan, nil
}

func finalize(raw string) (*domain.PlanContent, error) {
	body := extractObject(raw)
	plan, err := domain.ParseContent([]byte(body))
	if err != nil {
		return nil, &domain.SchemaValidationError{Detail: err.Error(), Raw: raw}
	}
	if err := plan.Validate(); err != nil {
		return nil, &domain.SchemaValidationError{Detail: err.Error(), Raw: raw}
	}
	return plan, nil
}

// fail classifies err, logs it and emits the terminal failed event. Caller
// cancellation is returned as is and emits nothing.
func (g *Generator) fail(ctx, callCtx context.Context, req Request, err error, emit func(Event) error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	err = g.classify(callCtx, err)

	log := g.log.WithContext(ctx).With("plan_id", req.ID, "idea", logger.Truncate(req.Idea, 120), "at", time.Now().UTC().Format(time.RFC3339))
	var schemaErr *domain.SchemaValidationError
	if errors.As(err, &schemaErr) {
		log.Error("generated plan rejected", "detail", schemaErr.Detail, "raw", logger.Truncate(schemaErr.Raw, 500))
	} else {
		log.Error("plan generation failed", "error", err)
	}

	if emitErr := emit(Event{Phase: PhaseFailed, Err: err}); emitErr != nil {
		return errors.Join(err, emitErr)
	}
	return err
}

func (g *Generator) classify(callCtx context.Context, err error) error {
	var schemaErr *domain.SchemaValidationError
	switch {
	case errors.As(err, &schemaErr):
		return err
	case errors.Is(callCtx.Err(), context.DeadlineExceeded), errors.Is(err, context.DeadlineExceeded):
		return &domain.TimeoutError{After: g.timeout}
	default:
		return &domain.UpstreamError{Err: err}
	}
}

// Classify asks the model whether idea describes a software project.
func (g *Generator) Classify(ctx context.Context, idea string) (bool, string, error) {
	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	answer, err := g.provider.GenerateText(callCtx, "", prompt.Classify(idea))
	if err != nil {
		if ctx.Err() != nil {
			return false, "", ctx.Err()
		}
		return false, "", g.classify(callCtx, err)
	}
	valid, msg := prompt.ParseClassification(answer)
	return valid, msg, nil
}

// Decide produces the single-choice architecture graph for idea.
func (g *Generator) Decide(ctx context.Context, idea string) (*domain.DecisionStructure, error) {
	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	raw, err := g.provider.GenerateObject(callCtx, llm.ObjectRequest{
		System: prompt.System,
		User:   prompt.Decide(idea),
		Schema: prompt.DecisionSchema(),
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, g.classify(callCtx, err)
	}

	var d domain.DecisionStructure
	if err := json.Unmarshal([]byte(extractObject(raw)), &d); err != nil {
		return nil, &domain.SchemaValidationError{Detail: fmt.Sprintf("decode decision: %v", err), Raw: raw}
	}
	if err := d.Validate(); err != nil {
		return nil, &domain.SchemaValidationError{Detail: err.Error(), Raw: raw}
	}
	return &d, nil
}
