package core

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	MemberActive   MemberStatus = "active"
	MemberInactive MemberStatus = "inactive"
)

const (
	SettlementPending   SettlementStatus = "pending"
	SettlementConfirmed SettlementStatus = "confirmed"
	SettlementRejected  SettlementStatus = "rejected"
)

type (
	MemberStatus     string
	SettlementStatus string

	// Member is a group participant. Identity and membership management are
	// owned by a different subsystem; the ledger only reads the roster.
	Member struct {
		ID     uuid.UUID
		Name   string
		Status MemberStatus
	}

	Group struct {
		ID      uuid.UUID
		Name    string
		Members []Member

		// TotalSettled and SettledCount are denormalized running totals kept
		// for fast display. They are bumped on each confirmation but are not
		// authoritative: summing confirmed settlements must always yield the
		// same numbers.
		TotalSettled Money
		SettledCount int64

		CreatedAt time.Time
	}

	// Split is one member's share of an expense.
	Split struct {
		MemberID uuid.UUID
		Amount   Money
	}

	// Expense is an immutable record of who paid and how the amount is
	// divided. Deletion is a soft flag so the ledger history stays replayable.
	Expense struct {
		ID          uuid.UUID
		GroupID     uuid.UUID
		Description string
		Amount      Money
		PaidBy      uuid.UUID
		Splits      []Split
		IsDeleted   bool
		CreatedAt   time.Time
	}

	// Settlement is a direct payment between two members, proposed by the
	// payer and confirmed or rejected by the recipient.
	Settlement struct {
		ID            uuid.UUID
		GroupID       uuid.UUID
		From          uuid.UUID
		To            uuid.UUID
		Amount        Money
		PaymentMethod string
		Notes         string
		Status        SettlementStatus
		SettledAt     time.Time
		ConfirmedAt   *time.Time
	}

	// Balance is a member's derived net position: Balance = Paid - Owes over
	// all non-deleted expenses, then adjusted by confirmed settlements. Never
	// persisted as source of truth.
	Balance struct {
		MemberID uuid.UUID
		Balance  Money
		Paid     Money
		Owes     Money
	}

	// Transaction is one payment of a simplified debt plan. Ephemeral,
	// recomputed on demand.
	Transaction struct {
		From   uuid.UUID
		To     uuid.UUID
		Amount Money
	}
)

var (
	ErrInvalidAmount      = errors.New("amount must be positive")
	ErrSelfSettlement     = errors.New("cannot settle with yourself")
	ErrNotMember          = errors.New("not an active member of this group")
	ErrNotRecipient       = errors.New("only the recipient can respond to a settlement")
	ErrNotPending         = errors.New("settlement is not pending")
	ErrGroupNotFound      = errors.New("group not found")
	ErrSettlementNotFound = errors.New("settlement not found")
	ErrEmptyName          = errors.New("name can't be empty")
	ErrSplitMismatch      = errors.New("split amounts do not sum to the expense amount")
)

// Member returns the roster entry for id, if present.
func (g Group) Member(id uuid.UUID) (Member, bool) {
	for _, m := range g.Members {
		if m.ID == id {
			return m, true
		}
	}
	return Member{}, false
}

// IsActiveMember reports whether id belongs to the group and is active.
func (g Group) IsActiveMember(id uuid.UUID) bool {
	m, ok := g.Member(id)
	return ok && m.Status == MemberActive
}

// ActiveMembers returns the subset of the roster with active status.
func (g Group) ActiveMembers() []Member {
	var active []Member
	for _, m := range g.Members {
		if m.Status == MemberActive {
			active = append(active, m)
		}
	}
	return active
}

func (g Group) Validate() error {
	if strings.TrimSpace(g.Name) == "" {
		return ErrEmptyName
	}
	return nil
}

// Validate checks the split-sum invariant: for a non-deleted expense the
// splits must sum to the total within one cent. Callers creating expenses
// enforce this; the balance calculator itself tolerates historical drift.
func (e Expense) Validate() error {
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	if e.PaidBy == uuid.Nil {
		return errors.New("expense has no payer")
	}
	if len(e.Splits) == 0 {
		return errors.New("expense has no splits")
	}
	var sum int64
	for _, s := range e.Splits {
		if s.Amount.Cents < 0 {
			return ErrInvalidAmount
		}
		sum += s.Amount.Cents
	}
	diff := sum - e.Amount.Cents
	if diff < -splitToleranceCents || diff > splitToleranceCents {
		return ErrSplitMismatch
	}
	return nil
}

func (s Settlement) Validate() error {
	if err := s.Amount.Validate(); err != nil {
		return err
	}
	if s.From == s.To {
		return ErrSelfSettlement
	}
	if s.From == uuid.Nil || s.To == uuid.Nil {
		return errors.New("settlement requires both parties")
	}
	return nil
}

// Terminal reports whether the settlement has left the pending state.
// Confirmed and rejected are final; no further transitions are allowed.
func (s Settlement) Terminal() bool {
	return s.Status == SettlementConfirmed || s.Status == SettlementRejected
}
