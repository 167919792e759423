// Package storage persists groups, expenses and settlements. Balances are
// never stored: they are recomputed from the expense and settlement log on
// every read, so the log is the single source of truth.
package storage

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/CyberRaas/WealthWise-sub002/internal/core"
)

// Store is the persistence contract shared by the sqlite and in-memory
// backends.
type Store interface {
	// Group loads a group with its full member roster.
	// Returns core.ErrGroupNotFound if the id is unknown.
	Group(ctx context.Context, groupID uuid.UUID) (core.Group, error)

	// CreateGroup persists a group and its roster.
	CreateGroup(ctx context.Context, g core.Group) error

	// Expenses returns all expenses of a group, including soft-deleted ones,
	// ordered by creation time. Callers filter deleted records themselves.
	Expenses(ctx context.Context, groupID uuid.UUID) ([]core.Expense, error)

	// AddExpense persists an expense together with its splits.
	AddExpense(ctx context.Context, e core.Expense) error

	// RemoveExpense soft-deletes an expense. The record stays in the log.
	RemoveExpense(ctx context.Context, groupID, expenseID uuid.UUID) error

	// Settlements returns all settlements of a group ordered by settled_at
	// descending.
	Settlements(ctx context.Context, groupID uuid.UUID) ([]core.Settlement, error)

	// Settlement loads one settlement by id.
	// Returns core.ErrSettlementNotFound if the id is unknown.
	Settlement(ctx context.Context, settlementID uuid.UUID) (core.Settlement, error)

	// CreateSettlement persists a new pending settlement.
	CreateSettlement(ctx context.Context, s core.Settlement) error

	// TransitionSettlement moves a pending settlement to a terminal status.
	// The update is compare-and-swap on status=pending: a settlement that has
	// already been decided yields core.ErrNotPending no matter how many
	// concurrent responders race. Confirming also bumps the group's
	// denormalized settled totals in the same transaction.
	TransitionSettlement(ctx context.Context, settlementID uuid.UUID, to core.SettlementStatus, at time.Time) (core.Settlement, error)

	Close() error
}
