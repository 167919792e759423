package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/CyberRaas/WealthWise-sub002/internal/core"
)

// MemoryStore implements Store with in-process maps. It is the default
// backend for development and the workhorse for tests.
type MemoryStore struct {
	mu          sync.RWMutex
	groups      map[uuid.UUID]core.Group
	expenses    map[uuid.UUID][]core.Expense
	settlements map[uuid.UUID]core.Settlement
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		groups:      make(map[uuid.UUID]core.Group),
		expenses:    make(map[uuid.UUID][]core.Expense),
		settlements: make(map[uuid.UUID]core.Settlement),
	}
}

func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) Group(ctx context.Context, groupID uuid.UUID) (core.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	g, ok := s.groups[groupID]
	if !ok {
		return core.Group{}, core.ErrGroupNotFound
	}
	return copyGroup(g), nil
}

func (s *MemoryStore) CreateGroup(ctx context.Context, g core.Group) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if g.CreatedAt.IsZero() {
		g.CreatedAt = time.Now().UTC()
	}
	s.groups[g.ID] = copyGroup(g)
	return nil
}

func (s *MemoryStore) Expenses(ctx context.Context, groupID uuid.UUID) ([]core.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored := s.expenses[groupID]
	out := make([]core.Expense, len(stored))
	for i, e := range stored {
		out[i] = copyExpense(e)
	}
	return out, nil
}

func (s *MemoryStore) AddExpense(ctx context.Context, e core.Expense) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.groups[e.GroupID]; !ok {
		return core.ErrGroupNotFound
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	s.expenses[e.GroupID] = append(s.expenses[e.GroupID], copyExpense(e))
	return nil
}

func (s *MemoryStore) RemoveExpense(ctx context.Context, groupID, expenseID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, e := range s.expenses[groupID] {
		if e.ID == expenseID {
			s.expenses[groupID][i].IsDeleted = true
			return nil
		}
	}
	return fmt.Errorf("expense %s not found in group %s", expenseID, groupID)
}

func (s *MemoryStore) Settlements(ctx context.Context, groupID uuid.UUID) ([]core.Settlement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []core.Settlement
	for _, st := range s.settlements {
		if st.GroupID == groupID {
			out = append(out, copySettlement(st))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].SettledAt.Equal(out[j].SettledAt) {
			return out[i].SettledAt.After(out[j].SettledAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

func (s *MemoryStore) Settlement(ctx context.Context, settlementID uuid.UUID) (core.Settlement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.settlements[settlementID]
	if !ok {
		return core.Settlement{}, core.ErrSettlementNotFound
	}
	return copySettlement(st), nil
}

func (s *MemoryStore) CreateSettlement(ctx context.Context, st core.Settlement) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.groups[st.GroupID]; !ok {
		return core.ErrGroupNotFound
	}
	if st.SettledAt.IsZero() {
		st.SettledAt = time.Now().UTC()
	}
	if st.Status == "" {
		st.Status = core.SettlementPending
	}
	s.settlements[st.ID] = copySettlement(st)
	return nil
}

func (s *MemoryStore) TransitionSettlement(ctx context.Context, settlementID uuid.UUID, to core.SettlementStatus, at time.Time) (core.Settlement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.settlements[settlementID]
	if !ok {
		return core.Settlement{}, core.ErrSettlementNotFound
	}
	if st.Status != core.SettlementPending {
		return core.Settlement{}, core.ErrNotPending
	}

	st.Status = to
	if to == core.SettlementConfirmed {
		confirmedAt := at
		st.ConfirmedAt = &confirmedAt

		g := s.groups[st.GroupID]
		g.TotalSettled.Cents += st.Amount.Cents
		g.SettledCount++
		s.groups[st.GroupID] = g
	}
	s.settlements[settlementID] = st

	return copySettlement(st), nil
}

func copyGroup(g core.Group) core.Group {
	out := g
	out.Members = append([]core.Member(nil), g.Members...)
	return out
}

func copyExpense(e core.Expense) core.Expense {
	out := e
	out.Splits = append([]core.Split(nil), e.Splits...)
	return out
}

func copySettlement(st core.Settlement) core.Settlement {
	out := st
	if st.ConfirmedAt != nil {
		t := *st.ConfirmedAt
		out.ConfirmedAt = &t
	}
	return out
}
