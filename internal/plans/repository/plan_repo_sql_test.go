package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stackpilot/stackpilot-backend/internal/plans/domain"
)

var planColumns = []string{"id", "user_id", "generated_content", "project_idea", "schema_version", "visibility", "created_at", "updated_at"}

func setupPlanRepo(t *testing.T) (*PlanRepo, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewPlanRepo(mock), mock
}

func TestPlanRepo_Insert(t *testing.T) {
	repo, mock := setupPlanRepo(t)
	ctx := context.Background()

	t.Run("passes columns in order and reads back timestamps", func(t *testing.T) {
		created := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
		updated := created.Add(time.Millisecond)
		p := &domain.ProjectPlan{
			ID: "p1", UserID: "alice", IdeaText: "A water intake tracker",
			Content:       []byte(`{"projectName":"HydroTrack"}`),
			SchemaVersion: 1, Visibility: domain.VisibilityPrivate,
		}

		mock.ExpectQuery(`insert into generated_project_plan\s+\(id, user_id, generated_content, project_idea, schema_version, visibility, created_at, updated_at\)`).
			WithArgs("p1", "alice", []byte(`{"projectName":"HydroTrack"}`), "A water intake tracker", 1, "private").
			WillReturnRows(pgxmock.NewRows([]string{"created_at", "updated_at"}).AddRow(created, updated))

		require.NoError(t, repo.Insert(ctx, p))
		assert.Equal(t, created, p.CreatedAt)
		assert.Equal(t, updated, p.UpdatedAt)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate id is a conflict", func(t *testing.T) {
		mock.ExpectQuery(`insert into generated_project_plan`).
			WithArgs("p1", "alice", pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnError(&pgconn.PgError{Code: "23505"})

		err := repo.Insert(ctx, &domain.ProjectPlan{ID: "p1", UserID: "alice", Visibility: domain.VisibilityLink})
		var dbErr *domain.DatabaseError
		require.True(t, errors.As(err, &dbErr))
		assert.Equal(t, domain.DBConflict, dbErr.Kind)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPlanRepo_GetByID(t *testing.T) {
	repo, mock := setupPlanRepo(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	t.Run("scans the row", func(t *testing.T) {
		mock.ExpectQuery(`from generated_project_plan\s+where id = \$1`).
			WithArgs("p1").
			WillReturnRows(pgxmock.NewRows(planColumns).
				AddRow("p1", "alice", []byte(`{"projectName":"HydroTrack"}`), "idea", 1, "private", now, now))

		p, err := repo.GetByID(ctx, "p1")
		require.NoError(t, err)
		assert.Equal(t, "alice", p.UserID)
		assert.Equal(t, domain.VisibilityPrivate, p.Visibility)
		assert.JSONEq(t, `{"projectName":"HydroTrack"}`, string(p.Content))
		assert.Equal(t, now, p.CreatedAt)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no rows is not found", func(t *testing.T) {
		mock.ExpectQuery(`where id = \$1`).
			WithArgs("missing").
			WillReturnError(pgx.ErrNoRows)

		_, err := repo.GetByID(ctx, "missing")
		assert.ErrorIs(t, err, domain.ErrNotFound)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPlanRepo_ListByUser(t *testing.T) {
	repo, mock := setupPlanRepo(t)
	ctx := context.Background()
	newer := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	older := newer.Add(-24 * time.Hour)

	t.Run("newest first", func(t *testing.T) {
		mock.ExpectQuery(`where user_id = \$1\s+order by created_at desc`).
			WithArgs("alice").
			WillReturnRows(pgxmock.NewRows(planColumns).
				AddRow("p2", "alice", []byte(`{}`), "second", 1, "link", newer, newer).
				AddRow("p1", "alice", []byte(`{}`), "first", 1, "link", older, older))

		plans, err := repo.ListByUser(ctx, "alice")
		require.NoError(t, err)
		require.Len(t, plans, 2)
		assert.Equal(t, "p2", plans[0].ID)
		assert.Equal(t, "p1", plans[1].ID)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty history", func(t *testing.T) {
		mock.ExpectQuery(`order by created_at desc`).
			WithArgs("nobody").
			WillReturnRows(pgxmock.NewRows(planColumns))

		plans, err := repo.ListByUser(ctx, "nobody")
		require.NoError(t, err)
		assert.NotNil(t, plans)
		assert.Empty(t, plans)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("connection loss is unavailable", func(t *testing.T) {
		mock.ExpectQuery(`order by created_at desc`).
			WithArgs("alice").
			WillReturnError(&pgconn.PgError{Code: "08006"})

		_, err := repo.ListByUser(ctx, "alice")
		var dbErr *domain.DatabaseError
		require.True(t, errors.As(err, &dbErr))
		assert.Equal(t, domain.DBUnavailable, dbErr.Kind)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPlanRepo_DeleteOwned(t *testing.T) {
	repo, mock := setupPlanRepo(t)
	ctx := context.Background()
	predicate := regexp.QuoteMeta("where id = $1 and user_id = $2")

	t.Run("owner deletes the row", func(t *testing.T) {
		mock.ExpectExec(predicate).
			WithArgs("p1", "alice").
			WillReturnResult(pgxmock.NewResult("DELETE", 1))

		deleted, err := repo.DeleteOwned(ctx, "p1", "alice")
		require.NoError(t, err)
		assert.True(t, deleted)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("other user matches nothing", func(t *testing.T) {
		mock.ExpectExec(predicate).
			WithArgs("p1", "bob").
			WillReturnResult(pgxmock.NewResult("DELETE", 0))

		deleted, err := repo.DeleteOwned(ctx, "p1", "bob")
		require.NoError(t, err)
		assert.False(t, deleted)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPlanRepo_Ping(t *testing.T) {
	repo, mock := setupPlanRepo(t)

	mock.ExpectPing()
	require.NoError(t, repo.Ping(context.Background()))

	mock.ExpectPing().WillReturnError(errors.New("connection refused"))
	assert.Error(t, repo.Ping(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}
