package core

import (
	"reflect"
	"testing"

	"github.com/google/uuid"
)

func TestBuildBalanceSummary(t *testing.T) {
	members := activeMembers(memberA, memberB, memberC)
	expenses := []Expense{equalSplitExpense(memberA, 30000, memberA, memberB, memberC)}
	confirmedAt := testTime()
	settlements := []Settlement{
		{From: memberB, To: memberA, Amount: Money{Cents: 10000}, Status: SettlementConfirmed, ConfirmedAt: &confirmedAt},
		{From: memberC, To: memberA, Amount: Money{Cents: 2500}, Status: SettlementRejected},
	}

	summary := BuildBalanceSummary(expenses, settlements, members)

	if got := summary.Stats.TotalExpenses.Cents; got != 30000 {
		t.Fatalf("TotalExpenses = %d, want 30000", got)
	}
	if got := summary.Stats.TotalSettled.Cents; got != 10000 {
		t.Fatalf("TotalSettled = %d, want 10000 (rejected must not count)", got)
	}
	if got := summary.Stats.ConfirmedCount; got != 1 {
		t.Fatalf("ConfirmedCount = %d, want 1", got)
	}
	if got := summary.Stats.TotalOwed.Cents; got != 10000 {
		t.Fatalf("TotalOwed = %d, want 10000", got)
	}
	if summary.Stats.TransactionsNeeded != 1 || summary.Stats.IsSettled {
		t.Fatalf("unexpected plan stats: %+v", summary.Stats)
	}
	if len(summary.Transactions) != 1 || summary.Transactions[0].From != memberC || summary.Transactions[0].To != memberA {
		t.Fatalf("expected single C->A payment, got %+v", summary.Transactions)
	}
}

func TestBuildBalanceSummarySettledGroup(t *testing.T) {
	members := activeMembers(memberA, memberB)
	expenses := []Expense{equalSplitExpense(memberA, 10000, memberA, memberB)}
	settlements := []Settlement{
		{From: memberB, To: memberA, Amount: Money{Cents: 5000}, Status: SettlementConfirmed},
	}

	summary := BuildBalanceSummary(expenses, settlements, members)
	if !summary.Stats.IsSettled || summary.Stats.TransactionsNeeded != 0 {
		t.Fatalf("fully settled group reported as unsettled: %+v", summary.Stats)
	}
	if summary.Stats.TotalOwed.Cents != 0 {
		t.Fatalf("TotalOwed = %d, want 0", summary.Stats.TotalOwed.Cents)
	}
}

func TestBuildBalanceSummaryIdempotent(t *testing.T) {
	members := activeMembers(memberA, memberB, memberC)
	expenses := []Expense{
		equalSplitExpense(memberA, 30000, memberA, memberB, memberC),
		equalSplitExpense(memberB, 9000, memberA, memberB, memberC),
	}
	settlements := []Settlement{
		{From: memberC, To: memberA, Amount: Money{Cents: 4000}, Status: SettlementConfirmed},
	}

	first := BuildBalanceSummary(expenses, settlements, members)
	second := BuildBalanceSummary(expenses, settlements, members)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("summary is not idempotent:\n%+v\n%+v", first, second)
	}
}

func TestMemberDebts(t *testing.T) {
	plan := []Transaction{
		{From: memberB, To: memberA, Amount: Money{Cents: 10000}},
		{From: memberC, To: memberA, Amount: Money{Cents: 5000}},
		{From: memberA, To: memberD, Amount: Money{Cents: 2500}},
	}

	view := MemberDebts(plan, memberA)
	if len(view.Owed) != 2 || view.TotalOwed.Cents != 15000 {
		t.Fatalf("unexpected owed view: %+v", view)
	}
	if len(view.Owes) != 1 || view.TotalOwes.Cents != 2500 {
		t.Fatalf("unexpected owes view: %+v", view)
	}

	outside := MemberDebts(plan, uuid.New())
	if len(outside.Owes) != 0 || len(outside.Owed) != 0 {
		t.Fatalf("member outside the plan should see empty views: %+v", outside)
	}
}

func TestValidateBalances(t *testing.T) {
	ok := []Balance{
		{MemberID: memberA, Balance: Money{Cents: 500}},
		{MemberID: memberB, Balance: Money{Cents: -500}},
	}
	if !ValidateBalances(ok) {
		t.Fatalf("balanced set reported invalid")
	}

	offByOne := []Balance{
		{MemberID: memberA, Balance: Money{Cents: 500}},
		{MemberID: memberB, Balance: Money{Cents: -499}},
	}
	if !ValidateBalances(offByOne) {
		t.Fatalf("one cent of residue must be tolerated")
	}

	broken := []Balance{
		{MemberID: memberA, Balance: Money{Cents: 500}},
		{MemberID: memberB, Balance: Money{Cents: -300}},
	}
	if ValidateBalances(broken) {
		t.Fatalf("drifted set reported valid")
	}
}
