package core

import "sort"

// SimplifyDebts reduces a net-balance snapshot to a small set of payments
// that would zero every balance.
//
// Members within settledToleranceCents of zero are dropped as noise before
// matching, and payments under minTransferCents are never emitted; this is
// what keeps rounding residue from generating endless micro-transactions.
// The remaining creditors and debtors are sorted by size and matched
// greedily, largest debtor against largest creditor, each payment taking
// min(debtor remaining, creditor remaining).
//
// Greedy largest-to-largest is a heuristic, not an exact minimum-transaction
// solver: it is bounded by len(creditors)+len(debtors)-1 payments, which is
// accepted here (exact minimisation is a set-partition problem).
func SimplifyDebts(balances []Balance) []Transaction {
	type side struct {
		member    Balance
		remaining int64
	}

	var creditors, debtors []side
	for _, b := range balances {
		switch {
		case b.Balance.Cents > settledToleranceCents:
			creditors = append(creditors, side{member: b, remaining: b.Balance.Cents})
		case b.Balance.Cents < -settledToleranceCents:
			debtors = append(debtors, side{member: b, remaining: -b.Balance.Cents})
		}
	}

	// Largest first; ties broken by member id so output is deterministic.
	byAmount := func(s []side) func(i, j int) bool {
		return func(i, j int) bool {
			if s[i].remaining != s[j].remaining {
				return s[i].remaining > s[j].remaining
			}
			return s[i].member.MemberID.String() < s[j].member.MemberID.String()
		}
	}
	sort.Slice(creditors, byAmount(creditors))
	sort.Slice(debtors, byAmount(debtors))

	var transactions []Transaction
	i, j := 0, 0
	for i < len(debtors) && j < len(creditors) {
		amount := debtors[i].remaining
		if creditors[j].remaining < amount {
			amount = creditors[j].remaining
		}

		if amount >= minTransferCents {
			transactions = append(transactions, Transaction{
				From:   debtors[i].member.MemberID,
				To:     creditors[j].member.MemberID,
				Amount: Money{Cents: amount},
			})
		}

		debtors[i].remaining -= amount
		creditors[j].remaining -= amount

		if debtors[i].remaining <= settledToleranceCents {
			i++
		}
		if creditors[j].remaining <= settledToleranceCents {
			j++
		}
	}

	return transactions
}
