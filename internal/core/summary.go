package core

import "github.com/google/uuid"

// GroupStats is the aggregate view attached to a balance summary.
type GroupStats struct {
	TotalExpenses      Money
	TotalSettled       Money
	TotalOwed          Money // sum of positive balances
	ConfirmedCount     int
	TransactionsNeeded int
	IsSettled          bool
}

// BalanceSummary is the read-only composition of balances, the simplified
// payment plan, and group statistics.
type BalanceSummary struct {
	Balances     []Balance
	Transactions []Transaction
	Stats        GroupStats
}

// BuildBalanceSummary recomputes the whole settlement view from source data:
// expense log -> balances -> confirmed settlements applied -> simplified
// payment plan. Nothing is cached or stored, so calling it twice with the
// same inputs yields identical output.
func BuildBalanceSummary(expenses []Expense, settlements []Settlement, members []Member) BalanceSummary {
	balances := ApplySettlements(CalculateBalances(expenses, members), settlements)
	transactions := SimplifyDebts(balances)

	stats := GroupStats{
		TransactionsNeeded: len(transactions),
		IsSettled:          len(transactions) == 0,
	}
	for _, e := range expenses {
		if !e.IsDeleted {
			stats.TotalExpenses.Cents += e.Amount.Cents
		}
	}
	for _, s := range settlements {
		if s.Status == SettlementConfirmed {
			stats.TotalSettled.Cents += s.Amount.Cents
			stats.ConfirmedCount++
		}
	}
	for _, b := range balances {
		if b.Balance.Cents > 0 {
			stats.TotalOwed.Cents += b.Balance.Cents
		}
	}

	return BalanceSummary{
		Balances:     balances,
		Transactions: transactions,
		Stats:        stats,
	}
}

// DebtView is one member's slice of the simplified plan: payments they must
// make and payments due to them, each with a running total.
type DebtView struct {
	MemberID  uuid.UUID
	Owes      []Transaction
	Owed      []Transaction
	TotalOwes Money
	TotalOwed Money
}

// MemberDebts filters the simplified transaction list down to one member,
// so per-user views don't recompute the whole group.
func MemberDebts(transactions []Transaction, memberID uuid.UUID) DebtView {
	view := DebtView{MemberID: memberID}
	for _, t := range transactions {
		switch memberID {
		case t.From:
			view.Owes = append(view.Owes, t)
			view.TotalOwes.Cents += t.Amount.Cents
		case t.To:
			view.Owed = append(view.Owed, t)
			view.TotalOwed.Cents += t.Amount.Cents
		}
	}
	return view
}
