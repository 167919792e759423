package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/CyberRaas/WealthWise-sub002/internal/core"
)

// SQLiteStore implements Store on a single sqlite database file.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	// sqlite allows one writer at a time; serialising through the pool
	// turns would-be SQLITE_BUSY errors into queueing.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *SQLiteStore) Group(ctx context.Context, groupID uuid.UUID) (core.Group, error) {
	var (
		g       core.Group
		idStr   string
		settled int64
	)
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, total_settled_cents, settled_count, created_at
		 FROM groups WHERE id = ?`, groupID.String())
	if err := row.Scan(&idStr, &g.Name, &settled, &g.SettledCount, &g.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Group{}, core.ErrGroupNotFound
		}
		return core.Group{}, fmt.Errorf("get group: %w", err)
	}
	g.ID = groupID
	g.TotalSettled = core.Money{Cents: settled}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, status FROM members WHERE group_id = ? ORDER BY id`, groupID.String())
	if err != nil {
		return core.Group{}, fmt.Errorf("get members: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			m      core.Member
			mid    string
			status string
		)
		if err := rows.Scan(&mid, &m.Name, &status); err != nil {
			return core.Group{}, fmt.Errorf("scan member: %w", err)
		}
		m.ID, err = uuid.Parse(mid)
		if err != nil {
			return core.Group{}, fmt.Errorf("parse member id %q: %w", mid, err)
		}
		m.Status = core.MemberStatus(status)
		g.Members = append(g.Members, m)
	}
	if err := rows.Err(); err != nil {
		return core.Group{}, fmt.Errorf("iterate members: %w", err)
	}

	return g, nil
}

func (s *SQLiteStore) CreateGroup(ctx context.Context, g core.Group) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	createdAt := g.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO groups (id, name, total_settled_cents, settled_count, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		g.ID.String(), g.Name, g.TotalSettled.Cents, g.SettledCount, createdAt)
	if err != nil {
		return fmt.Errorf("insert group: %w", err)
	}

	for _, m := range g.Members {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO members (group_id, id, name, status) VALUES (?, ?, ?, ?)`,
			g.ID.String(), m.ID.String(), m.Name, string(m.Status))
		if err != nil {
			return fmt.Errorf("insert member: %w", err)
		}
	}

	return tx.Commit()
}

func (s *SQLiteStore) Expenses(ctx context.Context, groupID uuid.UUID) ([]core.Expense, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, description, amount_cents, paid_by, is_deleted, created_at
		 FROM expenses WHERE group_id = ? ORDER BY created_at, id`, groupID.String())
	if err != nil {
		return nil, fmt.Errorf("get expenses: %w", err)
	}
	defer rows.Close()

	var expenses []core.Expense
	for rows.Next() {
		var (
			e       core.Expense
			idStr   string
			paidBy  string
			cents   int64
			deleted int64
		)
		if err := rows.Scan(&idStr, &e.Description, &cents, &paidBy, &deleted, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		if e.ID, err = uuid.Parse(idStr); err != nil {
			return nil, fmt.Errorf("parse expense id %q: %w", idStr, err)
		}
		if e.PaidBy, err = uuid.Parse(paidBy); err != nil {
			return nil, fmt.Errorf("parse payer id %q: %w", paidBy, err)
		}
		e.GroupID = groupID
		e.Amount = core.Money{Cents: cents}
		e.IsDeleted = deleted != 0
		expenses = append(expenses, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expenses: %w", err)
	}

	for i := range expenses {
		splits, err := s.expenseSplits(ctx, expenses[i].ID)
		if err != nil {
			return nil, err
		}
		expenses[i].Splits = splits
	}

	return expenses, nil
}

func (s *SQLiteStore) expenseSplits(ctx context.Context, expenseID uuid.UUID) ([]core.Split, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT member_id, amount_cents FROM expense_splits WHERE expense_id = ? ORDER BY member_id`,
		expenseID.String())
	if err != nil {
		return nil, fmt.Errorf("get splits: %w", err)
	}
	defer rows.Close()

	var splits []core.Split
	for rows.Next() {
		var (
			mid   string
			cents int64
		)
		if err := rows.Scan(&mid, &cents); err != nil {
			return nil, fmt.Errorf("scan split: %w", err)
		}
		memberID, err := uuid.Parse(mid)
		if err != nil {
			return nil, fmt.Errorf("parse split member id %q: %w", mid, err)
		}
		splits = append(splits, core.Split{MemberID: memberID, Amount: core.Money{Cents: cents}})
	}
	return splits, rows.Err()
}

func (s *SQLiteStore) AddExpense(ctx context.Context, e core.Expense) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	createdAt := e.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO expenses (id, group_id, description, amount_cents, paid_by, is_deleted, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID.String(), e.GroupID.String(), e.Description, e.Amount.Cents,
		e.PaidBy.String(), boolToInt(e.IsDeleted), createdAt)
	if err != nil {
		return fmt.Errorf("insert expense: %w", err)
	}

	for _, split := range e.Splits {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO expense_splits (expense_id, member_id, amount_cents) VALUES (?, ?, ?)`,
			e.ID.String(), split.MemberID.String(), split.Amount.Cents)
		if err != nil {
			return fmt.Errorf("insert split: %w", err)
		}
	}

	return tx.Commit()
}

func (s *SQLiteStore) RemoveExpense(ctx context.Context, groupID, expenseID uuid.UUID) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE expenses SET is_deleted = 1 WHERE id = ? AND group_id = ?`,
		expenseID.String(), groupID.String())
	if err != nil {
		return fmt.Errorf("soft delete expense: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("expense %s not found in group %s", expenseID, groupID)
	}
	return nil
}

func (s *SQLiteStore) Settlements(ctx context.Context, groupID uuid.UUID) ([]core.Settlement, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, from_member, to_member, amount_cents, payment_method, notes, status, settled_at, confirmed_at
		 FROM settlements WHERE group_id = ? ORDER BY settled_at DESC, id`, groupID.String())
	if err != nil {
		return nil, fmt.Errorf("get settlements: %w", err)
	}
	defer rows.Close()

	var settlements []core.Settlement
	for rows.Next() {
		st, err := scanSettlement(rows)
		if err != nil {
			return nil, err
		}
		st.GroupID = groupID
		settlements = append(settlements, st)
	}
	return settlements, rows.Err()
}

func (s *SQLiteStore) Settlement(ctx context.Context, settlementID uuid.UUID) (core.Settlement, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, from_member, to_member, amount_cents, payment_method, notes, status, settled_at, confirmed_at, group_id
		 FROM settlements WHERE id = ?`, settlementID.String())
	return scanSettlementWithGroup(row)
}

func (s *SQLiteStore) CreateSettlement(ctx context.Context, st core.Settlement) error {
	settledAt := st.SettledAt
	if settledAt.IsZero() {
		settledAt = time.Now().UTC()
	}
	status := st.Status
	if status == "" {
		status = core.SettlementPending
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO settlements (id, group_id, from_member, to_member, amount_cents, payment_method, notes, status, settled_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		st.ID.String(), st.GroupID.String(), st.From.String(), st.To.String(),
		st.Amount.Cents, st.PaymentMethod, st.Notes, string(status), settledAt)
	if err != nil {
		return fmt.Errorf("insert settlement: %w", err)
	}
	return nil
}

// TransitionSettlement is compare-and-swap on status=pending. The status
// guard in the WHERE clause decides races: whichever responder commits
// first wins, everyone else sees zero affected rows and gets ErrNotPending.
func (s *SQLiteStore) TransitionSettlement(ctx context.Context, settlementID uuid.UUID, to core.SettlementStatus, at time.Time) (core.Settlement, error) {
	if to != core.SettlementConfirmed && to != core.SettlementRejected {
		return core.Settlement{}, fmt.Errorf("invalid target status %q", to)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Settlement{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var confirmedAt any
	if to == core.SettlementConfirmed {
		confirmedAt = at
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE settlements SET status = ?, confirmed_at = ? WHERE id = ? AND status = 'pending'`,
		string(to), confirmedAt, settlementID.String())
	if err != nil {
		return core.Settlement{}, fmt.Errorf("transition settlement: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return core.Settlement{}, fmt.Errorf("rows affected: %w", err)
	}
	if rows == 0 {
		var status string
		err := tx.QueryRowContext(ctx,
			`SELECT status FROM settlements WHERE id = ?`, settlementID.String()).Scan(&status)
		if errors.Is(err, sql.ErrNoRows) {
			return core.Settlement{}, core.ErrSettlementNotFound
		}
		if err != nil {
			return core.Settlement{}, fmt.Errorf("check settlement status: %w", err)
		}
		return core.Settlement{}, core.ErrNotPending
	}

	row := tx.QueryRowContext(ctx,
		`SELECT id, from_member, to_member, amount_cents, payment_method, notes, status, settled_at, confirmed_at, group_id
		 FROM settlements WHERE id = ?`, settlementID.String())
	st, err := scanSettlementWithGroup(row)
	if err != nil {
		return core.Settlement{}, err
	}

	if to == core.SettlementConfirmed {
		_, err = tx.ExecContext(ctx,
			`UPDATE groups SET total_settled_cents = total_settled_cents + ?, settled_count = settled_count + 1
			 WHERE id = ?`,
			st.Amount.Cents, st.GroupID.String())
		if err != nil {
			return core.Settlement{}, fmt.Errorf("bump group totals: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return core.Settlement{}, fmt.Errorf("commit transition: %w", err)
	}
	return st, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSettlement(r rowScanner) (core.Settlement, error) {
	var (
		st          core.Settlement
		idStr       string
		fromStr     string
		toStr       string
		cents       int64
		status      string
		confirmedAt sql.NullTime
	)
	if err := r.Scan(&idStr, &fromStr, &toStr, &cents, &st.PaymentMethod, &st.Notes, &status, &st.SettledAt, &confirmedAt); err != nil {
		return core.Settlement{}, fmt.Errorf("scan settlement: %w", err)
	}
	return fillSettlement(st, idStr, fromStr, toStr, cents, status, confirmedAt)
}

func scanSettlementWithGroup(r rowScanner) (core.Settlement, error) {
	var (
		st          core.Settlement
		idStr       string
		fromStr     string
		toStr       string
		groupStr    string
		cents       int64
		status      string
		confirmedAt sql.NullTime
	)
	err := r.Scan(&idStr, &fromStr, &toStr, &cents, &st.PaymentMethod, &st.Notes, &status, &st.SettledAt, &confirmedAt, &groupStr)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Settlement{}, core.ErrSettlementNotFound
	}
	if err != nil {
		return core.Settlement{}, fmt.Errorf("scan settlement: %w", err)
	}
	st, err = fillSettlement(st, idStr, fromStr, toStr, cents, status, confirmedAt)
	if err != nil {
		return core.Settlement{}, err
	}
	if st.GroupID, err = uuid.Parse(groupStr); err != nil {
		return core.Settlement{}, fmt.Errorf("parse group id %q: %w", groupStr, err)
	}
	return st, nil
}

func fillSettlement(st core.Settlement, idStr, fromStr, toStr string, cents int64, status string, confirmedAt sql.NullTime) (core.Settlement, error) {
	var err error
	if st.ID, err = uuid.Parse(idStr); err != nil {
		return core.Settlement{}, fmt.Errorf("parse settlement id %q: %w", idStr, err)
	}
	if st.From, err = uuid.Parse(fromStr); err != nil {
		return core.Settlement{}, fmt.Errorf("parse from id %q: %w", fromStr, err)
	}
	if st.To, err = uuid.Parse(toStr); err != nil {
		return core.Settlement{}, fmt.Errorf("parse to id %q: %w", toStr, err)
	}
	st.Amount = core.Money{Cents: cents}
	st.Status = core.SettlementStatus(status)
	if confirmedAt.Valid {
		t := confirmedAt.Time
		st.ConfirmedAt = &t
	}
	return st, nil
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
