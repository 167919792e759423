package core

import (
	"testing"

	"github.com/google/uuid"
)

var (
	memberA = uuid.MustParse("aaaaaaaa-0000-0000-0000-000000000001")
	memberB = uuid.MustParse("bbbbbbbb-0000-0000-0000-000000000002")
	memberC = uuid.MustParse("cccccccc-0000-0000-0000-000000000003")
	memberD = uuid.MustParse("dddddddd-0000-0000-0000-000000000004")
)

func activeMembers(ids ...uuid.UUID) []Member {
	members := make([]Member, 0, len(ids))
	for _, id := range ids {
		members = append(members, Member{ID: id, Name: id.String()[:8], Status: MemberActive})
	}
	return members
}

func equalSplitExpense(paidBy uuid.UUID, cents int64, among ...uuid.UUID) Expense {
	n := int64(len(among))
	splits := make([]Split, 0, len(among))
	base, rem := cents/n, cents%n
	for i, id := range among {
		share := base
		if int64(i) < rem {
			share++
		}
		splits = append(splits, Split{MemberID: id, Amount: Money{Cents: share}})
	}
	return Expense{
		ID:     uuid.New(),
		PaidBy: paidBy,
		Amount: Money{Cents: cents},
		Splits: splits,
	}
}

func balanceOf(t *testing.T, balances []Balance, id uuid.UUID) Balance {
	t.Helper()
	for _, b := range balances {
		if b.MemberID == id {
			return b
		}
	}
	t.Fatalf("no balance for member %s", id)
	return Balance{}
}

func TestCalculateBalancesEqualSplit(t *testing.T) {
	// A pays 300.00 split equally across A, B, C.
	members := activeMembers(memberA, memberB, memberC)
	expenses := []Expense{equalSplitExpense(memberA, 30000, memberA, memberB, memberC)}

	balances := CalculateBalances(expenses, members)
	if len(balances) != 3 {
		t.Fatalf("expected 3 balances, got %d", len(balances))
	}

	a := balanceOf(t, balances, memberA)
	if a.Balance.Cents != 20000 || a.Paid.Cents != 30000 || a.Owes.Cents != 10000 {
		t.Fatalf("unexpected balance for payer: %+v", a)
	}
	for _, id := range []uuid.UUID{memberB, memberC} {
		b := balanceOf(t, balances, id)
		if b.Balance.Cents != -10000 || b.Paid.Cents != 0 || b.Owes.Cents != 10000 {
			t.Fatalf("unexpected balance for %s: %+v", id, b)
		}
	}
	if !ValidateBalances(balances) {
		t.Fatalf("zero-sum invariant violated: %+v", balances)
	}
}

func TestCalculateBalancesSkipsDeletedExpenses(t *testing.T) {
	members := activeMembers(memberA, memberB)
	deleted := equalSplitExpense(memberA, 5000, memberA, memberB)
	deleted.IsDeleted = true

	balances := CalculateBalances([]Expense{deleted}, members)
	for _, b := range balances {
		if b.Balance.Cents != 0 || b.Paid.Cents != 0 || b.Owes.Cents != 0 {
			t.Fatalf("deleted expense leaked into balances: %+v", b)
		}
	}
}

func TestCalculateBalancesUninvolvedMemberAtZero(t *testing.T) {
	members := activeMembers(memberA, memberB, memberC)
	expenses := []Expense{equalSplitExpense(memberA, 1000, memberA, memberB)}

	balances := CalculateBalances(expenses, members)
	c := balanceOf(t, balances, memberC)
	if c.Balance.Cents != 0 {
		t.Fatalf("uninvolved member should be zero, got %+v", c)
	}
}

func TestCalculateBalancesToleratesUnknownMemberIDs(t *testing.T) {
	// Expense entry is owned elsewhere; a split referencing a member outside
	// the roster must be a no-op, not a failure.
	members := activeMembers(memberA, memberB)
	e := equalSplitExpense(memberA, 3000, memberA, memberB, memberD)

	balances := CalculateBalances([]Expense{e}, members)
	if len(balances) != 2 {
		t.Fatalf("unknown member should not appear, got %d balances", len(balances))
	}
	a := balanceOf(t, balances, memberA)
	if a.Paid.Cents != 3000 || a.Owes.Cents != 1000 {
		t.Fatalf("unexpected payer aggregates: %+v", a)
	}
}

func TestCalculateBalancesIgnoresInactiveMembers(t *testing.T) {
	members := []Member{
		{ID: memberA, Status: MemberActive},
		{ID: memberB, Status: MemberInactive},
	}
	balances := CalculateBalances(nil, members)
	if len(balances) != 1 || balances[0].MemberID != memberA {
		t.Fatalf("expected only active members, got %+v", balances)
	}
}

func TestCalculateBalancesAbsorbsSplitRounding(t *testing.T) {
	// 100.00 split three ways stored as 33.33 each: one cent of residue must
	// be absorbed, not rejected.
	members := activeMembers(memberA, memberB, memberC)
	e := Expense{
		ID:     uuid.New(),
		PaidBy: memberA,
		Amount: Money{Cents: 10000},
		Splits: []Split{
			{MemberID: memberA, Amount: Money{Cents: 3333}},
			{MemberID: memberB, Amount: Money{Cents: 3333}},
			{MemberID: memberC, Amount: Money{Cents: 3333}},
		},
	}

	balances := CalculateBalances([]Expense{e}, members)
	if !ValidateBalances(balances) {
		t.Fatalf("one cent of split residue must stay within tolerance: %+v", balances)
	}
	if got := SimplifyDebts(ApplySettlements(balances, nil)); len(got) != 2 {
		// B and C still genuinely owe ~33.33 each; only the residue is noise.
		t.Fatalf("expected 2 transactions, got %+v", got)
	}
}

func TestApplySettlementsConfirmedOnly(t *testing.T) {
	members := activeMembers(memberA, memberB, memberC)
	expenses := []Expense{equalSplitExpense(memberA, 30000, memberA, memberB, memberC)}
	base := CalculateBalances(expenses, members)

	confirmedAt := testTime()
	settlements := []Settlement{
		{From: memberB, To: memberA, Amount: Money{Cents: 10000}, Status: SettlementConfirmed, ConfirmedAt: &confirmedAt},
		{From: memberC, To: memberA, Amount: Money{Cents: 5000}, Status: SettlementPending},
		{From: memberC, To: memberA, Amount: Money{Cents: 5000}, Status: SettlementRejected},
	}

	adjusted := ApplySettlements(base, settlements)
	if got := balanceOf(t, adjusted, memberA).Balance.Cents; got != 10000 {
		t.Fatalf("payee balance after confirmation = %d, want 10000", got)
	}
	if got := balanceOf(t, adjusted, memberB).Balance.Cents; got != 0 {
		t.Fatalf("payer balance after confirmation = %d, want 0", got)
	}
	if got := balanceOf(t, adjusted, memberC).Balance.Cents; got != -10000 {
		t.Fatalf("pending/rejected settlements must not move balances, got %d", got)
	}
	if !ValidateBalances(adjusted) {
		t.Fatalf("zero-sum invariant violated after settlements")
	}

	// Input must not be mutated.
	if got := balanceOf(t, base, memberB).Balance.Cents; got != -10000 {
		t.Fatalf("ApplySettlements mutated its input: %d", got)
	}
}

func TestApplySettlementsToleratesUnknownMembers(t *testing.T) {
	members := activeMembers(memberA, memberB)
	base := CalculateBalances([]Expense{equalSplitExpense(memberA, 2000, memberA, memberB)}, members)

	settlements := []Settlement{
		{From: memberD, To: memberA, Amount: Money{Cents: 500}, Status: SettlementConfirmed},
	}
	adjusted := ApplySettlements(base, settlements)
	if got := balanceOf(t, adjusted, memberA).Balance.Cents; got != 500 {
		t.Fatalf("known side should still apply, got %d", got)
	}
}

func TestApplySettlementsReplayIsIdempotent(t *testing.T) {
	members := activeMembers(memberA, memberB)
	expenses := []Expense{equalSplitExpense(memberA, 10000, memberA, memberB)}
	settlements := []Settlement{
		{From: memberB, To: memberA, Amount: Money{Cents: 5000}, Status: SettlementConfirmed},
	}

	first := ApplySettlements(CalculateBalances(expenses, members), settlements)
	second := ApplySettlements(CalculateBalances(expenses, members), settlements)
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("recomputation diverged: %+v vs %+v", first[i], second[i])
		}
	}
}
