package services

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/CyberRaas/WealthWise-sub002/internal/core"
	"github.com/CyberRaas/WealthWise-sub002/internal/storage"
)

var (
	alice = uuid.MustParse("aaaaaaaa-0000-0000-0000-000000000001")
	bob   = uuid.MustParse("aaaaaaaa-0000-0000-0000-000000000002")
	carol = uuid.MustParse("aaaaaaaa-0000-0000-0000-000000000003")
	dave  = uuid.MustParse("aaaaaaaa-0000-0000-0000-000000000004")
)

func newService(t *testing.T) (*SettlementService, core.Group) {
	t.Helper()
	svc := NewSettlementService(storage.NewMemoryStore(), nil)

	g, err := svc.CreateGroup(context.Background(), core.Group{
		Name: "flat share",
		Members: []core.Member{
			{ID: alice, Name: "alice", Status: core.MemberActive},
			{ID: bob, Name: "bob", Status: core.MemberActive},
			{ID: carol, Name: "carol", Status: core.MemberInactive},
		},
	})
	if err != nil {
		t.Fatalf("create group: %v", err)
	}
	return svc, g
}

func propose(t *testing.T, svc *SettlementService, groupID uuid.UUID, from, to uuid.UUID, cents int64) core.Settlement {
	t.Helper()
	st, err := svc.ProposeSettlement(context.Background(), from, ProposeSettlementInput{
		GroupID: groupID,
		From:    from,
		To:      to,
		Amount:  core.Money{Cents: cents},
	})
	if err != nil {
		t.Fatalf("propose settlement: %v", err)
	}
	return st
}

func TestProposeSettlement(t *testing.T) {
	svc, g := newService(t)
	ctx := context.Background()

	st := propose(t, svc, g.ID, bob, alice, 5000)
	if st.Status != core.SettlementPending {
		t.Fatalf("new settlement status = %s, want pending", st.Status)
	}

	list, err := svc.GetSettlements(ctx, g.ID, alice)
	if err != nil {
		t.Fatalf("get settlements: %v", err)
	}
	if len(list) != 1 || list[0].ID != st.ID {
		t.Fatalf("unexpected settlement list: %+v", list)
	}
}

func TestProposeSettlementValidation(t *testing.T) {
	svc, g := newService(t)
	ctx := context.Background()

	cases := []struct {
		name      string
		requester uuid.UUID
		in        ProposeSettlementInput
		want      error
	}{
		{
			name:      "proposer must be the payer",
			requester: alice,
			in:        ProposeSettlementInput{GroupID: g.ID, From: bob, To: alice, Amount: core.Money{Cents: 100}},
			want:      core.ErrNotMember,
		},
		{
			name:      "zero amount",
			requester: bob,
			in:        ProposeSettlementInput{GroupID: g.ID, From: bob, To: alice, Amount: core.Money{Cents: 0}},
			want:      core.ErrInvalidAmount,
		},
		{
			name:      "negative amount",
			requester: bob,
			in:        ProposeSettlementInput{GroupID: g.ID, From: bob, To: alice, Amount: core.Money{Cents: -500}},
			want:      core.ErrInvalidAmount,
		},
		{
			name:      "self settlement",
			requester: bob,
			in:        ProposeSettlementInput{GroupID: g.ID, From: bob, To: bob, Amount: core.Money{Cents: 100}},
			want:      core.ErrSelfSettlement,
		},
		{
			name:      "recipient not active",
			requester: bob,
			in:        ProposeSettlementInput{GroupID: g.ID, From: bob, To: carol, Amount: core.Money{Cents: 100}},
			want:      core.ErrNotMember,
		},
		{
			name:      "recipient not in group",
			requester: bob,
			in:        ProposeSettlementInput{GroupID: g.ID, From: bob, To: dave, Amount: core.Money{Cents: 100}},
			want:      core.ErrNotMember,
		},
		{
			name:      "unknown group",
			requester: bob,
			in:        ProposeSettlementInput{GroupID: uuid.New(), From: bob, To: alice, Amount: core.Money{Cents: 100}},
			want:      core.ErrGroupNotFound,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.ProposeSettlement(ctx, tc.requester, tc.in); !errors.Is(err, tc.want) {
				t.Fatalf("got %v, want %v", err, tc.want)
			}
		})
	}
}

func TestRespondToSettlement(t *testing.T) {
	svc, g := newService(t)
	ctx := context.Background()

	st := propose(t, svc, g.ID, bob, alice, 5000)

	// Only the recipient can respond.
	if _, err := svc.RespondToSettlement(ctx, st.ID, bob, true); !errors.Is(err, core.ErrNotRecipient) {
		t.Fatalf("payer response: got %v, want ErrNotRecipient", err)
	}

	updated, err := svc.RespondToSettlement(ctx, st.ID, alice, true)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if updated.Status != core.SettlementConfirmed || updated.ConfirmedAt == nil {
		t.Fatalf("confirmation not recorded: %+v", updated)
	}

	// Second response loses, whatever the direction.
	if _, err := svc.RespondToSettlement(ctx, st.ID, alice, false); !errors.Is(err, core.ErrNotPending) {
		t.Fatalf("second response: got %v, want ErrNotPending", err)
	}

	if _, err := svc.RespondToSettlement(ctx, uuid.New(), alice, true); !errors.Is(err, core.ErrSettlementNotFound) {
		t.Fatalf("unknown settlement: got %v, want ErrSettlementNotFound", err)
	}
}

func TestRejectedSettlementDoesNotMoveBalances(t *testing.T) {
	svc, g := newService(t)
	ctx := context.Background()

	if _, err := svc.AddExpense(ctx, core.Expense{
		GroupID:     g.ID,
		Description: "groceries",
		Amount:      core.Money{Cents: 10000},
		PaidBy:      alice,
		Splits: []core.Split{
			{MemberID: alice, Amount: core.Money{Cents: 5000}},
			{MemberID: bob, Amount: core.Money{Cents: 5000}},
		},
	}); err != nil {
		t.Fatalf("add expense: %v", err)
	}

	st := propose(t, svc, g.ID, bob, alice, 5000)
	if _, err := svc.RespondToSettlement(ctx, st.ID, alice, false); err != nil {
		t.Fatalf("reject: %v", err)
	}

	summary, err := svc.BalanceSummary(ctx, g.ID, alice)
	if err != nil {
		t.Fatalf("balance summary: %v", err)
	}
	if summary.Stats.TotalSettled.Cents != 0 {
		t.Fatalf("rejected settlement counted as settled: %+v", summary.Stats)
	}
	if summary.Stats.IsSettled {
		t.Fatalf("group should still owe after rejection")
	}
}

func TestBalanceSummaryLifecycle(t *testing.T) {
	svc, g := newService(t)
	ctx := context.Background()

	if _, err := svc.AddExpense(ctx, core.Expense{
		GroupID:     g.ID,
		Description: "rent",
		Amount:      core.Money{Cents: 20000},
		PaidBy:      alice,
		Splits: []core.Split{
			{MemberID: alice, Amount: core.Money{Cents: 10000}},
			{MemberID: bob, Amount: core.Money{Cents: 10000}},
		},
	}); err != nil {
		t.Fatalf("add expense: %v", err)
	}

	summary, err := svc.BalanceSummary(ctx, g.ID, bob)
	if err != nil {
		t.Fatalf("balance summary: %v", err)
	}
	if len(summary.Transactions) != 1 || summary.Transactions[0].From != bob || summary.Transactions[0].Amount.Cents != 10000 {
		t.Fatalf("expected bob to owe 100.00, got %+v", summary.Transactions)
	}

	debts, err := svc.MemberDebts(ctx, g.ID, bob)
	if err != nil {
		t.Fatalf("member debts: %v", err)
	}
	if debts.TotalOwes.Cents != 10000 || debts.TotalOwed.Cents != 0 {
		t.Fatalf("unexpected debt view: %+v", debts)
	}

	st := propose(t, svc, g.ID, bob, alice, 10000)
	if _, err := svc.RespondToSettlement(ctx, st.ID, alice, true); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	summary, err = svc.BalanceSummary(ctx, g.ID, alice)
	if err != nil {
		t.Fatalf("balance summary after settle: %v", err)
	}
	if !summary.Stats.IsSettled || len(summary.Transactions) != 0 {
		t.Fatalf("group should be settled: %+v", summary.Stats)
	}
}

func TestSettlementOverview(t *testing.T) {
	svc, g := newService(t)
	ctx := context.Background()

	if _, err := svc.AddExpense(ctx, core.Expense{
		GroupID: g.ID,
		Amount:  core.Money{Cents: 10000},
		PaidBy:  alice,
		Splits: []core.Split{
			{MemberID: alice, Amount: core.Money{Cents: 5000}},
			{MemberID: bob, Amount: core.Money{Cents: 5000}},
		},
	}); err != nil {
		t.Fatalf("add expense: %v", err)
	}
	st := propose(t, svc, g.ID, bob, alice, 2000)

	overview, err := svc.SettlementOverview(ctx, g.ID, bob)
	if err != nil {
		t.Fatalf("settlement overview: %v", err)
	}
	if len(overview.Settlements) != 1 || overview.Settlements[0].ID != st.ID {
		t.Fatalf("unexpected history: %+v", overview.Settlements)
	}
	// The proposal is still pending so the full debt remains in the plan.
	if len(overview.Summary.Transactions) != 1 || overview.Summary.Transactions[0].Amount.Cents != 5000 {
		t.Fatalf("unexpected plan: %+v", overview.Summary.Transactions)
	}
	if len(overview.Members) != len(g.Members) {
		t.Fatalf("roster missing from overview: %+v", overview.Members)
	}

	if _, err := svc.SettlementOverview(ctx, g.ID, dave); !errors.Is(err, core.ErrNotMember) {
		t.Fatalf("outsider overview: got %v, want ErrNotMember", err)
	}
}

func TestBalanceSummaryWarnsOnZeroSumViolation(t *testing.T) {
	store := storage.NewMemoryStore()
	svc := NewSettlementService(store, nil)
	ctx := context.Background()

	g := core.Group{
		ID:   uuid.New(),
		Name: "flat share",
		Members: []core.Member{
			{ID: alice, Name: "alice", Status: core.MemberActive},
			{ID: bob, Name: "bob", Status: core.MemberActive},
		},
	}
	if err := store.CreateGroup(ctx, g); err != nil {
		t.Fatalf("create group: %v", err)
	}

	// A drifted log: the splits cover only part of the amount. The store
	// accepts historical data as-is; the summary path must warn but keep
	// serving.
	if err := store.AddExpense(ctx, core.Expense{
		ID:      uuid.New(),
		GroupID: g.ID,
		Amount:  core.Money{Cents: 10000},
		PaidBy:  alice,
		Splits:  []core.Split{{MemberID: bob, Amount: core.Money{Cents: 3000}}},
	}); err != nil {
		t.Fatalf("add expense: %v", err)
	}

	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	defer slog.SetDefault(prev)

	summary, err := svc.BalanceSummary(ctx, g.ID, alice)
	if err != nil {
		t.Fatalf("balance summary: %v", err)
	}
	if len(summary.Balances) != 2 {
		t.Fatalf("summary not served despite drift: %+v", summary.Balances)
	}
	if !strings.Contains(buf.String(), "zero-sum") {
		t.Fatalf("expected integrity warning, log was %q", buf.String())
	}
}

func TestBalanceSummaryRequiresMembership(t *testing.T) {
	svc, g := newService(t)
	ctx := context.Background()

	if _, err := svc.BalanceSummary(ctx, g.ID, dave); !errors.Is(err, core.ErrNotMember) {
		t.Fatalf("outsider: got %v, want ErrNotMember", err)
	}
	if _, err := svc.BalanceSummary(ctx, g.ID, carol); !errors.Is(err, core.ErrNotMember) {
		t.Fatalf("inactive member: got %v, want ErrNotMember", err)
	}
	if _, err := svc.GetSettlements(ctx, g.ID, dave); !errors.Is(err, core.ErrNotMember) {
		t.Fatalf("outsider settlements: got %v, want ErrNotMember", err)
	}
}

func TestAddExpenseValidation(t *testing.T) {
	svc, g := newService(t)
	ctx := context.Background()

	// Splits must sum to the total.
	_, err := svc.AddExpense(ctx, core.Expense{
		GroupID: g.ID,
		Amount:  core.Money{Cents: 10000},
		PaidBy:  alice,
		Splits: []core.Split{
			{MemberID: alice, Amount: core.Money{Cents: 3000}},
			{MemberID: bob, Amount: core.Money{Cents: 3000}},
		},
	})
	if !errors.Is(err, core.ErrSplitMismatch) {
		t.Fatalf("got %v, want ErrSplitMismatch", err)
	}

	// Inactive members cannot pay.
	_, err = svc.AddExpense(ctx, core.Expense{
		GroupID: g.ID,
		Amount:  core.Money{Cents: 10000},
		PaidBy:  carol,
		Splits: []core.Split{
			{MemberID: alice, Amount: core.Money{Cents: 10000}},
		},
	})
	if !errors.Is(err, core.ErrNotMember) {
		t.Fatalf("got %v, want ErrNotMember", err)
	}
}

func TestRemoveExpenseExcludesFromBalances(t *testing.T) {
	svc, g := newService(t)
	ctx := context.Background()

	e, err := svc.AddExpense(ctx, core.Expense{
		GroupID: g.ID,
		Amount:  core.Money{Cents: 10000},
		PaidBy:  alice,
		Splits: []core.Split{
			{MemberID: alice, Amount: core.Money{Cents: 5000}},
			{MemberID: bob, Amount: core.Money{Cents: 5000}},
		},
	})
	if err != nil {
		t.Fatalf("add expense: %v", err)
	}

	if err := svc.RemoveExpense(ctx, g.ID, e.ID, alice); err != nil {
		t.Fatalf("remove expense: %v", err)
	}

	summary, err := svc.BalanceSummary(ctx, g.ID, alice)
	if err != nil {
		t.Fatalf("balance summary: %v", err)
	}
	if summary.Stats.TotalExpenses.Cents != 0 || !summary.Stats.IsSettled {
		t.Fatalf("deleted expense still counted: %+v", summary.Stats)
	}
}
