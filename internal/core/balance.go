package core

import (
	"sort"

	"github.com/google/uuid"
)

// Tolerance constants, all in cents.
//
// splitToleranceCents absorbs rounding residue in expense splits (a 3-way
// split of 100.00 stored as 33.33 each is off by one cent and must not
// throw). settledToleranceCents and minTransferCents implement the noise
// rule: a member whose balance is within one currency unit of zero is
// treated as settled, and the simplifier never emits sub-unit payments.
const (
	splitToleranceCents   = 1
	settledToleranceCents = 99
	minTransferCents      = 100
)

// CalculateBalances derives each member's net position from the raw expense
// log. Soft-deleted expenses are skipped. Every active roster member appears
// in the result, at zero if they never took part in an expense. Expense
// entry is owned by another subsystem, so member ids that are missing from
// the roster are tolerated as no-ops rather than failing the whole view.
//
// Pure and deterministic: the result is sorted by member id.
func CalculateBalances(expenses []Expense, members []Member) []Balance {
	byID := make(map[uuid.UUID]*Balance, len(members))
	for _, m := range members {
		if m.Status != MemberActive {
			continue
		}
		byID[m.ID] = &Balance{MemberID: m.ID}
	}

	for _, e := range expenses {
		if e.IsDeleted {
			continue
		}
		if b, ok := byID[e.PaidBy]; ok {
			b.Paid.Cents += e.Amount.Cents
		}
		for _, s := range e.Splits {
			if b, ok := byID[s.MemberID]; ok {
				b.Owes.Cents += s.Amount.Cents
			}
		}
	}

	balances := make([]Balance, 0, len(byID))
	for _, b := range byID {
		b.Balance.Cents = b.Paid.Cents - b.Owes.Cents
		balances = append(balances, *b)
	}
	sort.Slice(balances, func(i, j int) bool {
		return balances[i].MemberID.String() < balances[j].MemberID.String()
	})
	return balances
}

// ApplySettlements folds confirmed settlements into the calculated balances:
// the payer's balance rises (their debt shrank), the payee's falls (they have
// been paid). Pending and rejected settlements are no-ops, as are settlement
// sides referencing members outside the balance set.
//
// Balances are always re-derived from the full expense and settlement log,
// never patched incrementally, so replaying the same confirmed set is
// idempotent by construction. The input slice is not mutated.
func ApplySettlements(balances []Balance, settlements []Settlement) []Balance {
	out := make([]Balance, len(balances))
	copy(out, balances)

	idx := make(map[uuid.UUID]int, len(out))
	for i, b := range out {
		idx[b.MemberID] = i
	}

	for _, s := range settlements {
		if s.Status != SettlementConfirmed {
			continue
		}
		if i, ok := idx[s.From]; ok {
			out[i].Balance.Cents += s.Amount.Cents
		}
		if i, ok := idx[s.To]; ok {
			out[i].Balance.Cents -= s.Amount.Cents
		}
	}
	return out
}

// ValidateBalances asserts the zero-sum invariant: over any set of expenses
// and confirmed settlements the net positions must cancel out. A violation
// is a data-integrity bug, not a user error; callers log it and keep
// serving. Exposed as a consistency hook for tests and the summary path.
func ValidateBalances(balances []Balance) bool {
	var sum int64
	for _, b := range balances {
		sum += b.Balance.Cents
	}
	if sum < 0 {
		sum = -sum
	}
	return sum <= splitToleranceCents
}
