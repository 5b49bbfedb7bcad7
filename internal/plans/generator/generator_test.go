package generator

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stackpilot/stackpilot-backend/internal/plans/domain"
	"github.com/stackpilot/stackpilot-backend/internal/plans/plantest"
)

const planID = "0b8f7c1e-5a4d-4e21-9d0b-7b6f1e2a3c4d"

func collect(events *[]Event) func(Event) error {
	return func(e Event) error {
		*events = append(*events, e)
		return nil
	}
}

func TestStream_ValidPlan(t *testing.T) {
	p := &plantest.FakeProvider{Chunks: plantest.Split(plantest.JSON("model-made-up-id"), 25)}
	g := New(p, time.Second, nil)

	var events []Event
	plan, err := g.Stream(context.Background(), Request{ID: planID, Idea: plantest.WaterIntakeIdea}, collect(&events))
	require.NoError(t, err)

	assert.Equal(t, planID, plan.ID, "model id is replaced with the generated one")
	assert.GreaterOrEqual(t, len(plan.Roadmap.MustDo), 10)
	assert.LessOrEqual(t, len(plan.Roadmap.MustDo), 20)

	require.GreaterOrEqual(t, len(events), 3)
	assert.Equal(t, PhasePrompting, events[0].Phase)
	last := events[len(events)-1]
	assert.Equal(t, PhaseValidated, last.Phase)
	assert.Same(t, plan, last.Final)

	partials := 0
	for _, e := range events[1 : len(events)-1] {
		require.Equal(t, PhaseStreaming, e.Phase)
		require.NotNil(t, e.Partial)
		if id, ok := e.Partial["id"]; ok {
			assert.Equal(t, planID, id)
		}
		partials++
	}
	assert.Greater(t, partials, 1)

	assert.Contains(t, p.LastRequest.User, planID)
	assert.Contains(t, p.LastRequest.User, plantest.WaterIntakeIdea)
	assert.NotNil(t, p.LastRequest.Schema)
}

func TestStream_AcceptsFencedOutput(t *testing.T) {
	p := &plantest.FakeProvider{Chunks: []string{"```json\n", plantest.JSON(planID), "\n```"}}
	plan, err := New(p, time.Second, nil).Stream(context.Background(), Request{ID: planID, Idea: "idea text long"}, func(Event) error { return nil })
	require.NoError(t, err)
	assert.Equal(t, "HydroTrack", plan.ProjectName)
}

func TestStream_SchemaViolation(t *testing.T) {
	bad := plantest.Content(planID)
	bad.Roadmap.MustDo = bad.Roadmap.MustDo[:3]
	raw := mustJSON(t, bad)

	var events []Event
	_, err := New(&plantest.FakeProvider{Chunks: []string{raw}}, time.Second, nil).
		Stream(context.Background(), Request{ID: planID, Idea: "idea text long"}, collect(&events))

	var schemaErr *domain.SchemaValidationError
	require.True(t, errors.As(err, &schemaErr))
	assert.Contains(t, schemaErr.Detail, "mustDo")
	assert.Equal(t, raw, schemaErr.Raw)

	last := events[len(events)-1]
	assert.Equal(t, PhaseFailed, last.Phase)
	for _, e := range events {
		assert.NotEqual(t, PhaseValidated, e.Phase)
	}
}

func TestStream_NotJSON(t *testing.T) {
	_, err := New(&plantest.FakeProvider{Chunks: []string{"I cannot help with that."}}, time.Second, nil).
		Stream(context.Background(), Request{ID: planID, Idea: "idea text long"}, func(Event) error { return nil })
	var schemaErr *domain.SchemaValidationError
	assert.True(t, errors.As(err, &schemaErr))
}

func TestStream_Timeout(t *testing.T) {
	p := &plantest.FakeProvider{Chunks: []string{`{"projectName":"x"`, "never"}, Block: true}
	var events []Event
	_, err := New(p, 20*time.Millisecond, nil).Stream(context.Background(), Request{ID: planID, Idea: "idea text long"}, collect(&events))

	var timeoutErr *domain.TimeoutError
	require.True(t, errors.As(err, &timeoutErr))
	assert.Equal(t, PhaseFailed, events[len(events)-1].Phase)
}

func TestStream_CallerCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := &plantest.FakeProvider{Chunks: []string{`{"projectName":"x",`, `"description":"y"}`}, Block: true}

	var events []Event
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	_, err := New(p, time.Minute, nil).Stream(ctx, Request{ID: planID, Idea: "idea text long"}, collect(&events))

	assert.ErrorIs(t, err, context.Canceled)
	for _, e := range events {
		assert.NotEqual(t, PhaseFailed, e.Phase)
		assert.NotEqual(t, PhaseValidated, e.Phase)
	}
}

func TestStream_CancelDuringLastDeltaSkipsValidation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p := &plantest.FakeProvider{Chunks: []string{plantest.JSON(planID)}}

	var events []Event
	plan, err := New(p, time.Minute, nil).Stream(ctx, Request{ID: planID, Idea: "idea text long"}, func(e Event) error {
		events = append(events, e)
		if e.Phase == PhaseStreaming {
			cancel()
		}
		return nil
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, plan)
	for _, e := range events {
		assert.NotEqual(t, PhaseValidated, e.Phase)
		assert.NotEqual(t, PhaseFailed, e.Phase)
	}
}

func TestStream_UpstreamError(t *testing.T) {
	p := &plantest.FakeProvider{Err: errors.New("503 overloaded")}
	_, err := New(p, time.Second, nil).Stream(context.Background(), Request{ID: planID, Idea: "idea text long"}, func(Event) error { return nil })
	var upstream *domain.UpstreamError
	assert.True(t, errors.As(err, &upstream))
}

func TestStream_EmitErrorStops(t *testing.T) {
	p := &plantest.FakeProvider{Chunks: plantest.Split(plantest.JSON(planID), 10)}
	gone := errors.New("client gone")
	n := 0
	_, err := New(p, time.Second, nil).Stream(context.Background(), Request{ID: planID, Idea: "idea text long"}, func(e Event) error {
		if e.Phase == PhaseStreaming {
			n++
			return gone
		}
		return nil
	})
	assert.ErrorIs(t, err, gone)
	assert.Equal(t, 1, n)
}

func TestClassify(t *testing.T) {
	g := New(&plantest.FakeProvider{Text: "yes\nA habit tracking app."}, time.Second, nil)
	ok, msg, err := g.Classify(context.Background(), plantest.WaterIntakeIdea)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "A habit tracking app.", msg)

	g = New(&plantest.FakeProvider{Err: errors.New("boom")}, time.Second, nil)
	_, _, err = g.Classify(context.Background(), plantest.WaterIntakeIdea)
	var upstream *domain.UpstreamError
	assert.True(t, errors.As(err, &upstream))
}

func TestDecide(t *testing.T) {
	obj := `{"projectName":"HydroTrack","description":"water","techStack":{"frontend":["Next.js"],"backend":["Go"],"database":["PostgreSQL"],"deployment":["Fly.io"],"additional":[]},
	"nodes":[{"id":"fe","type":"default","data":{"label":"Web","description":"UI","category":"frontend","technologies":["Next.js"],"isCore":true},"position":{"x":100,"y":50}},
	{"id":"be","type":"default","data":{"label":"API","description":"API","category":"backend","technologies":["Go"],"isCore":true},"position":{"x":400,"y":50}}],
	"edges":[{"id":"e1","source":"fe","target":"be"}],
	"recommendations":{"bestPractices":[],"securityConsiderations":[],"scalabilityTips":[],"developmentWorkflow":[]},
	"estimatedTimeline":{"planning":"1w","development":"4w","testing":"1w","deployment":"1d"}}`

	p := &plantest.FakeProvider{Object: obj}
	d, err := New(p, time.Second, nil).Decide(context.Background(), plantest.WaterIntakeIdea)
	require.NoError(t, err)
	assert.Len(t, d.Nodes, 2)
	assert.NotNil(t, p.LastRequest.Schema)

	p.Object = `{"projectName":"x"}`
	_, err = New(p, time.Second, nil).Decide(context.Background(), plantest.WaterIntakeIdea)
	var schemaErr *domain.SchemaValidationError
	assert.True(t, errors.As(err, &schemaErr))
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return string(raw)
}
