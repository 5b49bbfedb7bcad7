package plantest

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/stackpilot/stackpilot-backend/internal/plans/domain"
)

// MemStore is an in-memory plan store with per-method call counters.
type MemStore struct {
	mu   sync.Mutex
	rows map[string]domain.ProjectPlan
	now  time.Time

	InsertErr error
	ListErr   error

	InsertCalls int
	GetCalls    int
	ListCalls   int
	DeleteCalls int
}

func NewMemStore() *MemStore {
	return &MemStore{rows: map[string]domain.ProjectPlan{}, now: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (s *MemStore) Insert(ctx context.Context, p *domain.ProjectPlan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.InsertCalls++
	if s.InsertErr != nil {
		return s.InsertErr
	}
	if _, dup := s.rows[p.ID]; dup {
		return &domain.DatabaseError{Kind: domain.DBConflict, Op: "insert plan", Err: errors.New("duplicate key value")}
	}
	s.now = s.now.Add(time.Second)
	p.CreatedAt, p.UpdatedAt = s.now, s.now
	row := *p
	row.Content = append([]byte(nil), p.Content...)
	s.rows[p.ID] = row
	return nil
}

func (s *MemStore) GetByID(ctx context.Context, id string) (*domain.ProjectPlan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.GetCalls++
	p, ok := s.rows[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &p, nil
}

func (s *MemStore) ListByUser(ctx context.Context, userID string) ([]domain.ProjectPlan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ListCalls++
	if s.ListErr != nil {
		return nil, s.ListErr
	}
	out := []domain.ProjectPlan{}
	for _, p := range s.rows {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *MemStore) DeleteOwned(ctx context.Context, id, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.DeleteCalls++
	p, ok := s.rows[id]
	if !ok || p.UserID != userID {
		return false, nil
	}
	delete(s.rows, id)
	return true, nil
}

// Seed inserts a plan directly.
func (s *MemStore) Seed(p domain.ProjectPlan) {
	_ = s.Insert(context.Background(), &p)
	s.mu.Lock()
	s.InsertCalls--
	s.mu.Unlock()
}

func (s *MemStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}
