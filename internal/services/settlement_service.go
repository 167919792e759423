package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/CyberRaas/WealthWise-sub002/internal/amqp"
	"github.com/CyberRaas/WealthWise-sub002/internal/core"
	"github.com/CyberRaas/WealthWise-sub002/internal/metrics"
	"github.com/CyberRaas/WealthWise-sub002/internal/storage"
)

// SettlementService orchestrates the settlement lifecycle and the derived
// balance views across storage and AMQP.
type SettlementService struct {
	store      storage.Store
	amqpClient *amqp.Client
}

func NewSettlementService(store storage.Store, amqpClient *amqp.Client) *SettlementService {
	return &SettlementService{
		store:      store,
		amqpClient: amqpClient,
	}
}

// ProposeSettlementInput carries the payer's claim that a debt was paid.
type ProposeSettlementInput struct {
	GroupID       uuid.UUID
	From          uuid.UUID
	To            uuid.UUID
	Amount        core.Money
	PaymentMethod string
	Notes         string
}

// GetSettlements returns the settlement history of a group. The requester
// must be an active member.
func (s *SettlementService) GetSettlements(ctx context.Context, groupID, requesterID uuid.UUID) ([]core.Settlement, error) {
	if err := s.requireActiveMember(ctx, groupID, requesterID); err != nil {
		return nil, err
	}
	return s.store.Settlements(ctx, groupID)
}

// ProposeSettlement records a new pending settlement. Only the payer can
// propose, and both parties must be active members of the group.
func (s *SettlementService) ProposeSettlement(ctx context.Context, requesterID uuid.UUID, in ProposeSettlementInput) (core.Settlement, error) {
	if requesterID != in.From {
		return core.Settlement{}, core.ErrNotMember
	}

	st := core.Settlement{
		ID:            uuid.New(),
		GroupID:       in.GroupID,
		From:          in.From,
		To:            in.To,
		Amount:        in.Amount,
		PaymentMethod: in.PaymentMethod,
		Notes:         in.Notes,
		Status:        core.SettlementPending,
		SettledAt:     time.Now().UTC(),
	}
	if err := st.Validate(); err != nil {
		return core.Settlement{}, err
	}

	group, err := s.store.Group(ctx, in.GroupID)
	if err != nil {
		return core.Settlement{}, err
	}
	if !group.IsActiveMember(in.From) || !group.IsActiveMember(in.To) {
		return core.Settlement{}, core.ErrNotMember
	}

	if err := s.store.CreateSettlement(ctx, st); err != nil {
		return core.Settlement{}, fmt.Errorf("create settlement: %w", err)
	}

	metrics.SettlementProposed()
	s.publishEvent(ctx, amqp.EventSettlementProposed, st)

	slog.InfoContext(ctx, "Settlement proposed",
		"settlement_id", st.ID,
		"group_id", st.GroupID,
		"amount_cents", st.Amount.Cents)

	return st, nil
}

// RespondToSettlement lets the recipient confirm or reject a pending
// settlement. The transition is final: a second response, from anyone,
// gets core.ErrNotPending.
func (s *SettlementService) RespondToSettlement(ctx context.Context, settlementID, responderID uuid.UUID, accept bool) (core.Settlement, error) {
	st, err := s.store.Settlement(ctx, settlementID)
	if err != nil {
		return core.Settlement{}, err
	}
	if st.To != responderID {
		return core.Settlement{}, core.ErrNotRecipient
	}

	target := core.SettlementRejected
	event := amqp.EventSettlementRejected
	if accept {
		target = core.SettlementConfirmed
		event = amqp.EventSettlementConfirmed
	}

	updated, err := s.store.TransitionSettlement(ctx, settlementID, target, time.Now().UTC())
	if err != nil {
		if errors.Is(err, core.ErrNotPending) {
			metrics.SettlementConflict()
		}
		return core.Settlement{}, err
	}

	metrics.SettlementResponded(string(target))
	s.publishEvent(ctx, event, updated)

	slog.InfoContext(ctx, "Settlement decided",
		"settlement_id", updated.ID,
		"group_id", updated.GroupID,
		"status", string(updated.Status))

	return updated, nil
}

// BalanceSummary recomputes the group's balances from the full expense and
// settlement log and derives the simplified payment plan.
func (s *SettlementService) BalanceSummary(ctx context.Context, groupID, requesterID uuid.UUID) (core.BalanceSummary, error) {
	group, err := s.store.Group(ctx, groupID)
	if err != nil {
		return core.BalanceSummary{}, err
	}
	if !group.IsActiveMember(requesterID) {
		return core.BalanceSummary{}, core.ErrNotMember
	}

	expenses, err := s.store.Expenses(ctx, groupID)
	if err != nil {
		return core.BalanceSummary{}, fmt.Errorf("load expenses: %w", err)
	}
	settlements, err := s.store.Settlements(ctx, groupID)
	if err != nil {
		return core.BalanceSummary{}, fmt.Errorf("load settlements: %w", err)
	}

	return s.buildSummary(ctx, group, expenses, settlements), nil
}

// SettlementOverview is the settlement history combined with the derived
// balances and the minimal payment plan, plus the roster so callers can
// attach member identity to either.
type SettlementOverview struct {
	Settlements []core.Settlement
	Summary     core.BalanceSummary
	Members     []core.Member
}

// SettlementOverview returns the full simplified view of a group's
// settlements. The requester must be an active member.
func (s *SettlementService) SettlementOverview(ctx context.Context, groupID, requesterID uuid.UUID) (SettlementOverview, error) {
	group, err := s.store.Group(ctx, groupID)
	if err != nil {
		return SettlementOverview{}, err
	}
	if !group.IsActiveMember(requesterID) {
		return SettlementOverview{}, core.ErrNotMember
	}

	expenses, err := s.store.Expenses(ctx, groupID)
	if err != nil {
		return SettlementOverview{}, fmt.Errorf("load expenses: %w", err)
	}
	settlements, err := s.store.Settlements(ctx, groupID)
	if err != nil {
		return SettlementOverview{}, fmt.Errorf("load settlements: %w", err)
	}

	return SettlementOverview{
		Settlements: settlements,
		Summary:     s.buildSummary(ctx, group, expenses, settlements),
		Members:     group.Members,
	}, nil
}

// buildSummary recomputes the derived view and asserts the zero-sum
// invariant. A violation means the stored log drifted; it is logged as an
// integrity warning and the summary is served anyway.
func (s *SettlementService) buildSummary(ctx context.Context, group core.Group, expenses []core.Expense, settlements []core.Settlement) core.BalanceSummary {
	metrics.BalanceRecomputed()
	summary := core.BuildBalanceSummary(expenses, settlements, group.Members)
	if !core.ValidateBalances(summary.Balances) {
		slog.WarnContext(ctx, "Balance zero-sum invariant violated",
			"group_id", group.ID)
	}
	return summary
}

// MemberDebts filters the simplified plan down to one member's view.
func (s *SettlementService) MemberDebts(ctx context.Context, groupID, requesterID uuid.UUID) (core.DebtView, error) {
	summary, err := s.BalanceSummary(ctx, groupID, requesterID)
	if err != nil {
		return core.DebtView{}, err
	}
	return core.MemberDebts(summary.Transactions, requesterID), nil
}

// CreateGroup persists a new group after validation.
func (s *SettlementService) CreateGroup(ctx context.Context, g core.Group) (core.Group, error) {
	if g.ID == uuid.Nil {
		g.ID = uuid.New()
	}
	if err := g.Validate(); err != nil {
		return core.Group{}, err
	}
	if err := s.store.CreateGroup(ctx, g); err != nil {
		return core.Group{}, fmt.Errorf("create group: %w", err)
	}
	return g, nil
}

// AddExpense records an expense after checking the split-sum invariant and
// that the payer is an active member.
func (s *SettlementService) AddExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}

	group, err := s.store.Group(ctx, e.GroupID)
	if err != nil {
		return core.Expense{}, err
	}
	if !group.IsActiveMember(e.PaidBy) {
		return core.Expense{}, core.ErrNotMember
	}

	if err := s.store.AddExpense(ctx, e); err != nil {
		return core.Expense{}, fmt.Errorf("add expense: %w", err)
	}
	return e, nil
}

// RemoveExpense soft-deletes an expense; balances drop it on the next
// recompute.
func (s *SettlementService) RemoveExpense(ctx context.Context, groupID, expenseID, requesterID uuid.UUID) error {
	if err := s.requireActiveMember(ctx, groupID, requesterID); err != nil {
		return err
	}
	return s.store.RemoveExpense(ctx, groupID, expenseID)
}

func (s *SettlementService) requireActiveMember(ctx context.Context, groupID, memberID uuid.UUID) error {
	group, err := s.store.Group(ctx, groupID)
	if err != nil {
		return err
	}
	if !group.IsActiveMember(memberID) {
		return core.ErrNotMember
	}
	return nil
}

// publishEvent notifies the worker queue. Failures are logged and swallowed:
// the settlement is already persisted and notifications are best effort.
func (s *SettlementService) publishEvent(ctx context.Context, event string, st core.Settlement) {
	if s.amqpClient == nil {
		return
	}
	if err := s.amqpClient.PublishSettlementEvent(ctx, event, st.ID, st.GroupID); err != nil {
		slog.ErrorContext(ctx, "Failed to publish settlement event",
			"event", event,
			"settlement_id", st.ID,
			"error", err)
	}
}

// Close releases storage and AMQP resources.
func (s *SettlementService) Close() error {
	var errs []error

	if s.store != nil {
		if err := s.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}
	if s.amqpClient != nil {
		if err := s.amqpClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close settlement service: %v", errs)
	}
	return nil
}
