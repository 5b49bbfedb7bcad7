package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stackpilot/stackpilot-backend/internal/plans/cache"
	"github.com/stackpilot/stackpilot-backend/internal/plans/domain"
	"github.com/stackpilot/stackpilot-backend/internal/plans/generator"
	"github.com/stackpilot/stackpilot-backend/internal/plans/plantest"
	"github.com/stackpilot/stackpilot-backend/internal/ratelimit"
)

type fixture struct {
	mr       *miniredis.Miniredis
	store    *plantest.MemStore
	provider *plantest.FakeProvider
	history  *cache.HistoryCache
	status   *cache.StatusStore
	plans    *PlanService
	gen      *GenerationService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	limiter, err := ratelimit.NewMemoryLimiter(10, time.Minute)
	require.NoError(t, err)

	f := &fixture{
		mr:       mr,
		store:    plantest.NewMemStore(),
		provider: &plantest.FakeProvider{},
		history:  cache.NewHistoryCache(client, 300*time.Second),
		status:   cache.NewStatusStore(client),
	}
	f.plans = NewPlanService(f.store, f.history, nil)
	f.gen = NewGenerationService(generator.New(f.provider, time.Second, nil), f.plans, limiter, f.status, nil)
	return f
}

func seedPlan(f *fixture, id, user string, vis domain.Visibility) {
	f.store.Seed(domain.ProjectPlan{
		ID: id, UserID: user, IdeaText: "idea " + id,
		Content:       json.RawMessage(plantest.JSON(id)),
		SchemaVersion: 1, Visibility: vis,
	})
}

func TestGetProjects_ReadThrough(t *testing.T) {
	f := newFixture(t)
	seedPlan(f, "p1", "alice", domain.VisibilityLink)
	seedPlan(f, "p2", "alice", domain.VisibilityLink)
	seedPlan(f, "p3", "bob", domain.VisibilityLink)
	ctx := context.Background()

	first, err := f.plans.GetProjects(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 2, first.Count)
	assert.Equal(t, "p2", first.Projects[0].ID, "newest first")
	assert.Equal(t, 1, f.store.ListCalls)
	assert.True(t, f.mr.Exists("user:alice"))

	second, err := f.plans.GetProjects(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, first.Count, second.Count)
	assert.Equal(t, first.Projects[0].ID, second.Projects[0].ID)
	assert.Equal(t, 1, f.store.ListCalls, "served from cache without touching the store")

	f.mr.FastForward(301 * time.Second)
	_, err = f.plans.GetProjects(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 2, f.store.ListCalls)
}

func TestGetProjects_CacheDownFallsBack(t *testing.T) {
	f := newFixture(t)
	seedPlan(f, "p1", "alice", domain.VisibilityLink)
	f.mr.Close()

	list, err := f.plans.GetProjects(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, list.Count)
}

func TestGetProjects_EmptyAndUnauthenticated(t *testing.T) {
	f := newFixture(t)

	list, err := f.plans.GetProjects(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Equal(t, 0, list.Count)
	assert.NotNil(t, list.Projects)

	_, err = f.plans.GetProjects(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
}

func TestGetByID_Visibility(t *testing.T) {
	f := newFixture(t)
	seedPlan(f, "shared", "alice", domain.VisibilityLink)
	seedPlan(f, "secret", "alice", domain.VisibilityPrivate)
	ctx := context.Background()

	p, err := f.plans.GetByID(ctx, "shared", "")
	require.NoError(t, err)
	assert.Equal(t, "alice", p.UserID)

	_, err = f.plans.GetByID(ctx, "secret", "bob")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = f.plans.GetByID(ctx, "secret", "")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	p, err = f.plans.GetByID(ctx, "secret", "alice")
	require.NoError(t, err)
	assert.Equal(t, "secret", p.ID)

	_, err = f.plans.GetByID(ctx, "   ", "alice")
	var verr *domain.ValidationError
	assert.True(t, errors.As(err, &verr))

	_, err = f.plans.GetByID(ctx, "missing", "alice")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGetByID_UnknownSchemaVersion(t *testing.T) {
	f := newFixture(t)
	f.store.Seed(domain.ProjectPlan{ID: "v9", UserID: "alice", Content: json.RawMessage(`{}`), SchemaVersion: 9, Visibility: domain.VisibilityLink})

	_, err := f.plans.GetByID(context.Background(), "v9", "alice")
	var unsupported *domain.UnsupportedSchemaError
	assert.True(t, errors.As(err, &unsupported))
}

func TestDelete_OwnershipAndIdempotence(t *testing.T) {
	f := newFixture(t)
	seedPlan(f, "p1", "alice", domain.VisibilityLink)
	ctx := context.Background()

	// bob cannot delete alice's plan, and the row survives
	assert.ErrorIs(t, f.plans.Delete(ctx, "p1", "bob"), domain.ErrNotFound)
	_, err := f.plans.GetByID(ctx, "p1", "bob")
	require.NoError(t, err)

	_, err = f.plans.GetProjects(ctx, "alice")
	require.NoError(t, err)
	require.True(t, f.mr.Exists("user:alice"))

	require.NoError(t, f.plans.Delete(ctx, "p1", "alice"))
	assert.False(t, f.mr.Exists("user:alice"), "delete evicts the owner's history")

	first := f.plans.Delete(ctx, "p1", "alice")
	second := f.plans.Delete(ctx, "p1", "alice")
	assert.ErrorIs(t, first, domain.ErrNotFound)
	assert.ErrorIs(t, second, domain.ErrNotFound)
	assert.Equal(t, first, second)

	assert.ErrorIs(t, f.plans.Delete(ctx, "p1", ""), domain.ErrUnauthenticated)
}

func TestSave_EvictsHistory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.plans.GetProjects(ctx, "alice")
	require.NoError(t, err)

	id, err := f.plans.Save(ctx, "alice", plantest.Content("new"), "idea", "new", "")
	require.NoError(t, err)
	assert.Equal(t, "new", id)
	assert.False(t, f.mr.Exists("user:alice"))

	list, err := f.plans.GetProjects(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, 1, list.Count)
	assert.Equal(t, domain.VisibilityLink, list.Projects[0].Visibility)
	assert.Equal(t, domain.CurrentSchemaVersion, list.Projects[0].SchemaVersion)
}

func collectEvents(events *[]StreamEvent) func(StreamEvent) error {
	return func(e StreamEvent) error {
		*events = append(*events, e)
		return nil
	}
}

func eventTypes(events []StreamEvent) []string {
	out := make([]string, 0, len(events))
	for _, e := range events {
		if len(out) > 0 && out[len(out)-1] == e.Type && e.Type == EventPartial {
			continue
		}
		out = append(out, e.Type)
	}
	return out
}

func TestGeneration_WaterIntakeEndToEnd(t *testing.T) {
	f := newFixture(t)
	f.provider.Chunks = plantest.Split(plantest.JSON("whatever"), 20)
	ctx := context.Background()

	g, err := f.gen.Prepare(ctx, plantest.WaterIntakeIdea, "", "203.0.113.9", "alice")
	require.NoError(t, err)
	require.NotEmpty(t, g.ID)

	var events []StreamEvent
	require.NoError(t, f.gen.Run(ctx, g, collectEvents(&events)))

	assert.Equal(t, []string{EventMeta, EventPartial, EventFinal, EventPersisted}, eventTypes(events))
	final := events[len(events)-2].Data.(*domain.PlanContent)
	assert.Equal(t, g.ID, final.ID)
	assert.GreaterOrEqual(t, len(final.Roadmap.MustDo), 10)
	assert.LessOrEqual(t, len(final.Roadmap.MustDo), 20)

	assert.Equal(t, 1, f.store.InsertCalls)
	stored, err := f.plans.GetByID(ctx, g.ID, "")
	require.NoError(t, err)
	assert.Equal(t, plantest.WaterIntakeIdea, stored.IdeaText)

	persisted, err := json.Marshal(final)
	require.NoError(t, err)
	assert.Equal(t, string(persisted), string(stored.Content))

	st, err := f.gen.Status(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSaved, st)
}

func TestGeneration_ShortIdeaNeverReachesModel(t *testing.T) {
	f := newFixture(t)

	_, err := f.gen.Prepare(context.Background(), "asdf", "", "203.0.113.9", "alice")
	var verr *domain.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Message, "at least 10")

	stream, text, object := f.provider.Calls()
	assert.Zero(t, stream+text+object)
	assert.Zero(t, f.store.InsertCalls)
}

func TestGeneration_RateLimited(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for i := 0; i < 10; i++ {
		_, err := f.gen.Prepare(ctx, plantest.WaterIntakeIdea, "", "198.51.100.1", "")
		require.NoError(t, err)
	}
	_, err := f.gen.Prepare(ctx, plantest.WaterIntakeIdea, "", "198.51.100.1", "")
	var rl *domain.RateLimitError
	require.True(t, errors.As(err, &rl))
	assert.GreaterOrEqual(t, rl.RetryAfter, time.Duration(0))
	assert.Equal(t, 10, rl.Limit)
}

func TestGeneration_RejectsUnknownVisibility(t *testing.T) {
	f := newFixture(t)
	_, err := f.gen.Prepare(context.Background(), plantest.WaterIntakeIdea, "public", "ip", "alice")
	var verr *domain.ValidationError
	assert.True(t, errors.As(err, &verr))
}

func TestGeneration_SchemaFailureNotPersisted(t *testing.T) {
	f := newFixture(t)
	bad := plantest.Content("x")
	bad.Complexity = "Trivial"
	raw, _ := json.Marshal(bad)
	f.provider.Chunks = []string{string(raw)}
	ctx := context.Background()

	g, err := f.gen.Prepare(ctx, plantest.WaterIntakeIdea, "", "ip", "alice")
	require.NoError(t, err)

	var events []StreamEvent
	err = f.gen.Run(ctx, g, collectEvents(&events))
	var schemaErr *domain.SchemaValidationError
	require.True(t, errors.As(err, &schemaErr))

	last := events[len(events)-1]
	assert.Equal(t, EventError, last.Type)
	assert.Zero(t, f.store.InsertCalls)

	st, err := f.gen.Status(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, st)
}

func TestGeneration_AnonymousIsSkipped(t *testing.T) {
	f := newFixture(t)
	f.provider.Chunks = []string{plantest.JSON("x")}
	ctx := context.Background()

	g, err := f.gen.Prepare(ctx, plantest.WaterIntakeIdea, "", "ip", "")
	require.NoError(t, err)

	var events []StreamEvent
	require.NoError(t, f.gen.Run(ctx, g, collectEvents(&events)))
	assert.Equal(t, EventSkipped, events[len(events)-1].Type)
	assert.Zero(t, f.store.InsertCalls)

	st, err := f.gen.Status(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSkipped, st)
}

func TestGeneration_PersistFailureStillDeliversPlan(t *testing.T) {
	f := newFixture(t)
	f.provider.Chunks = []string{plantest.JSON("x")}
	f.store.InsertErr = &domain.DatabaseError{Kind: domain.DBUnavailable, Op: "insert plan", Err: errors.New("connection refused")}
	ctx := context.Background()

	g, err := f.gen.Prepare(ctx, plantest.WaterIntakeIdea, "", "ip", "alice")
	require.NoError(t, err)

	var events []StreamEvent
	require.NoError(t, f.gen.Run(ctx, g, collectEvents(&events)))
	assert.Equal(t, []string{EventMeta, EventPartial, EventFinal, EventPersistFailed}, eventTypes(events))

	var dbErr *domain.DatabaseError
	assert.True(t, errors.As(events[len(events)-1].Err, &dbErr))

	st, err := f.gen.Status(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, st)
}

func TestGeneration_ClientAbortSkipsPersistence(t *testing.T) {
	f := newFixture(t)
	f.provider.Chunks = []string{`{"projectName":"Hydro",`, plantest.JSON("x")}
	f.provider.Block = true

	ctx, cancel := context.WithCancel(context.Background())
	g, err := f.gen.Prepare(ctx, plantest.WaterIntakeIdea, "", "ip", "alice")
	require.NoError(t, err)

	var events []StreamEvent
	err = f.gen.Run(ctx, g, func(e StreamEvent) error {
		events = append(events, e)
		if e.Type == EventPartial {
			cancel()
		}
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, f.store.InsertCalls)
	for _, e := range events {
		assert.NotEqual(t, EventFinal, e.Type)
		assert.NotEqual(t, EventError, e.Type)
	}
}

func TestGeneration_AbortOnLastDeltaSkipsPersistence(t *testing.T) {
	f := newFixture(t)
	f.provider.Chunks = []string{plantest.JSON("x")}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	g, err := f.gen.Prepare(ctx, plantest.WaterIntakeIdea, "", "ip", "alice")
	require.NoError(t, err)

	var events []StreamEvent
	err = f.gen.Run(ctx, g, func(e StreamEvent) error {
		events = append(events, e)
		if e.Type == EventPartial {
			cancel()
		}
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, f.store.InsertCalls)
	for _, e := range events {
		assert.NotEqual(t, EventFinal, e.Type)
		assert.NotEqual(t, EventPersisted, e.Type)
	}
}

func TestValidateInput(t *testing.T) {
	f := newFixture(t)
	f.provider.Text = "no\nThat is a greeting, not a project."

	valid, msg, err := f.gen.ValidateInput(context.Background(), "hello there my friend", "ip")
	require.NoError(t, err)
	assert.False(t, valid)
	assert.Equal(t, "That is a greeting, not a project.", msg)

	_, _, err = f.gen.ValidateInput(context.Background(), "hi", "ip")
	var verr *domain.ValidationError
	assert.True(t, errors.As(err, &verr))
	_, text, _ := f.provider.Calls()
	assert.Equal(t, 1, text)
}

func TestStatus_Unknown(t *testing.T) {
	f := newFixture(t)
	_, err := f.gen.Status(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
