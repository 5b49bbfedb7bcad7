package repository

import (
	"context"
	"errors"
	"net"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stackpilot/stackpilot-backend/internal/plans/domain"
)

// DBTX is the subset of *pgxpool.Pool the repository uses.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

var _ DBTX = (*pgxpool.Pool)(nil)

type PlanRepo struct {
	db DBTX
}

func NewPlanRepo(db DBTX) *PlanRepo {
	return &PlanRepo{db: db}
}

// Insert stores a new immutable plan row.
func (r *PlanRepo) Insert(ctx context.Context, p *domain.ProjectPlan) error {
	const q = `
insert into generated_project_plan
  (id, user_id, generated_content, project_idea, schema_version, visibility, created_at, updated_at)
values ($1, $2, $3, $4, $5, $6, now(), now())
returning created_at, updated_at;
`
	err := r.db.QueryRow(ctx, q, p.ID, p.UserID, []byte(p.Content), p.IdeaText, p.SchemaVersion, string(p.Visibility)).
		Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return classify("insert plan", err)
	}
	return nil
}

func (r *PlanRepo) GetByID(ctx context.Context, id string) (*domain.ProjectPlan, error) {
	const q = `
select id, user_id, generated_content, project_idea, schema_version, visibility, created_at, updated_at
from generated_project_plan
where id = $1;
`
	p, err := scanPlan(r.db.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, classify("get plan", err)
	}
	return p, nil
}

// ListByUser returns the user's plans, newest first.
func (r *PlanRepo) ListByUser(ctx context.Context, userID string) ([]domain.ProjectPlan, error) {
	const q = `
select id, user_id, generated_content, project_idea, schema_version, visibility, created_at, updated_at
from generated_project_plan
where user_id = $1
order by created_at desc;
`
	rows, err := r.db.Query(ctx, q, userID)
	if err != nil {
		return nil, classify("list plans", err)
	}
	defer rows.Close()

	out := make([]domain.ProjectPlan, 0, 16)
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, classify("list plans", err)
		}
		out = append(out, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list plans", err)
	}
	return out, nil
}

// DeleteOwned removes the row only when it belongs to userID. It reports
// whether a row was deleted.
func (r *PlanRepo) DeleteOwned(ctx context.Context, id, userID string) (bool, error) {
	const q = `
delete from generated_project_plan
where id = $1 and user_id = $2;
`
	ct, err := r.db.Exec(ctx, q, id, userID)
	if err != nil {
		return false, classify("delete plan", err)
	}
	return ct.RowsAffected() > 0, nil
}

// Ping checks connectivity for health probes.
func (r *PlanRepo) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}

func scanPlan(row pgx.Row) (*domain.ProjectPlan, error) {
	var (
		p          domain.ProjectPlan
		content    []byte
		visibility string
	)
	if err := row.Scan(&p.ID, &p.UserID, &content, &p.IdeaText, &p.SchemaVersion, &visibility, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.Content = content
	p.Visibility = domain.Visibility(visibility)
	return &p, nil
}

// classify maps driver errors onto typed database errors.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	return &domain.DatabaseError{Kind: kindOf(err), Op: op, Err: err}
}

func kindOf(err error) domain.DatabaseErrorKind {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == "23505":
			return domain.DBConflict
		case len(pgErr.Code) >= 2 && pgErr.Code[:2] == "08",
			pgErr.Code == "53300", pgErr.Code == "57P01", pgErr.Code == "57P03":
			return domain.DBUnavailable
		}
		return domain.DBInternal
	}

	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) || pgconn.Timeout(err) {
		return domain.DBUnavailable
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return domain.DBUnavailable
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.DBUnavailable
	}
	return domain.DBInternal
}
