// Package sqlite is the embedded-file storage backend, built on the pure-Go
// driver so the binary stays cgo-free. Schema is managed by embedded
// migrations applied at open time.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"

	"github.com/ojeda-dev/fintrack/internal/errs"
	"github.com/ojeda-dev/fintrack/internal/finance"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store wraps the sqlite database handle. Create with Open; the schema is
// migrated before Open returns.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database file at path and applies
// pending migrations.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}
	// modernc sqlite serializes writes; a single connection avoids
	// SQLITE_BUSY under concurrent handlers.
	db.SetMaxOpenConns(1)

	if err := migrateUp(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func migrateUp(db *sql.DB) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("loading migrations: %w", err)
	}
	driver, err := migratesqlite.WithInstance(db, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("preparing migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("initializing migrations: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("applying migrations: %w", err)
	}
	return nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Ready(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *Store) Transactions() *TransactionTable { return &TransactionTable{db: s.db} }

func (s *Store) Categories() *CategoryTable { return &CategoryTable{db: s.db} }

func (s *Store) Subscriptions() *SubscriptionTable { return &SubscriptionTable{db: s.db} }

// ptr returns the dereferenced value or nil, for COALESCE-style partial
// updates where a NULL bind means "keep the current value".
func ptr[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}

// TransactionTable implements transaction CRUD, filtered listing and stats
// over sqlite.
type TransactionTable struct {
	db *sql.DB
}

const txColumns = "id, amount, type, category_id, description, date, currency, created_at, updated_at"

func scanTransaction(row interface{ Scan(...any) error }) (finance.Transaction, error) {
	var t finance.Transaction
	err := row.Scan(&t.ID, &t.Amount, &t.Type, &t.CategoryID, &t.Description, &t.Date, &t.Currency, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

func (t *TransactionTable) List(ctx context.Context) ([]finance.Transaction, error) {
	return t.ListFiltered(ctx, finance.TransactionFilter{})
}

func (t *TransactionTable) ListFiltered(ctx context.Context, f finance.TransactionFilter) ([]finance.Transaction, error) {
	query := "SELECT " + txColumns + " FROM transactions WHERE 1=1"
	var args []any
	if f.Type != "" {
		query += " AND type = ?"
		args = append(args, f.Type)
	}
	if f.CategoryID != 0 {
		query += " AND category_id = ?"
		args = append(args, f.CategoryID)
	}
	if !f.From.IsZero() {
		query += " AND date >= ?"
		args = append(args, f.From)
	}
	if !f.To.IsZero() {
		query += " AND date <= ?"
		args = append(args, f.To)
	}
	query += " ORDER BY date DESC, id DESC"

	rows, err := t.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &errs.DatabaseError{Op: "listing transactions", Cause: err}
	}
	defer rows.Close()

	var out []finance.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, &errs.DatabaseError{Op: "scanning transaction", Cause: err}
		}
		out = append(out, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, &errs.DatabaseError{Op: "listing transactions", Cause: err}
	}
	return out, nil
}

func (t *TransactionTable) Get(ctx context.Context, id int64) (finance.Transaction, error) {
	row := t.db.QueryRowContext(ctx, "SELECT "+txColumns+" FROM transactions WHERE id = ?", id)
	tx, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return finance.Transaction{}, errs.ErrNotFound
	}
	if err != nil {
		return finance.Transaction{}, &errs.DatabaseError{Op: "fetching transaction", Cause: err}
	}
	return tx, nil
}

func (t *TransactionTable) Insert(ctx context.Context, in finance.TransactionCreate, now time.Time) (finance.Transaction, error) {
	res, err := t.db.ExecContext(ctx,
		`INSERT INTO transactions (amount, type, category_id, description, date, currency, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		in.Amount, in.Type, in.CategoryID, in.Description, in.Date, in.Currency, now, now)
	if err != nil {
		return finance.Transaction{}, &errs.DatabaseError{Op: "inserting transaction", Cause: err}
	}
	id, err := res.LastInsertId()
	if err != nil {
		return finance.Transaction{}, &errs.DatabaseError{Op: "inserting transaction", Cause: err}
	}
	return t.Get(ctx, id)
}

func (t *TransactionTable) Update(ctx context.Context, id int64, patch finance.TransactionPatch, now time.Time) (finance.Transaction, error) {
	res, err := t.db.ExecContext(ctx,
		`UPDATE transactions SET
		    amount      = COALESCE(?, amount),
		    type        = COALESCE(?, type),
		    category_id = COALESCE(?, category_id),
		    description = COALESCE(?, description),
		    date        = COALESCE(?, date),
		    currency    = COALESCE(?, currency),
		    updated_at  = ?
		 WHERE id = ?`,
		ptr(patch.Amount), ptr(patch.Type), ptr(patch.CategoryID), ptr(patch.Description),
		ptr(patch.Date), ptr(patch.Currency), now, id)
	if err != nil {
		return finance.Transaction{}, &errs.DatabaseError{Op: "updating transaction", Cause: err}
	}
	if n, err := res.RowsAffected(); err != nil {
		return finance.Transaction{}, &errs.DatabaseError{Op: "updating transaction", Cause: err}
	} else if n == 0 {
		return finance.Transaction{}, errs.ErrNotFound
	}
	return t.Get(ctx, id)
}

func (t *TransactionTable) Delete(ctx context.Context, id int64) error {
	res, err := t.db.ExecContext(ctx, "DELETE FROM transactions WHERE id = ?", id)
	if err != nil {
		return &errs.DatabaseError{Op: "deleting transaction", Cause: err}
	}
	if n, err := res.RowsAffected(); err != nil {
		return &errs.DatabaseError{Op: "deleting transaction", Cause: err}
	} else if n == 0 {
		return errs.ErrNotFound
	}
	return nil
}

func (t *TransactionTable) Stats(ctx context.Context, f finance.TransactionFilter) (finance.Stats, error) {
	where := " WHERE 1=1"
	var args []any
	if f.Type != "" {
		where += " AND t.type = ?"
		args = append(args, f.Type)
	}
	if f.CategoryID != 0 {
		where += " AND t.category_id = ?"
		args = append(args, f.CategoryID)
	}
	if !f.From.IsZero() {
		where += " AND t.date >= ?"
		args = append(args, f.From)
	}
	if !f.To.IsZero() {
		where += " AND t.date <= ?"
		args = append(args, f.To)
	}

	stats := finance.Stats{ByCategory: []finance.CategoryTotal{}}
	row := t.db.QueryRowContext(ctx,
		`SELECT COUNT(*),
		        COALESCE(SUM(CASE WHEN t.type = 'income' THEN t.amount ELSE 0 END), 0),
		        COALESCE(SUM(CASE WHEN t.type = 'expense' THEN t.amount ELSE 0 END), 0)
		 FROM transactions t`+where, args...)
	if err := row.Scan(&stats.Count, &stats.Income, &stats.Expense); err != nil {
		return finance.Stats{}, &errs.DatabaseError{Op: "computing stats", Cause: err}
	}
	stats.Net = stats.Income - stats.Expense

	rows, err := t.db.QueryContext(ctx,
		`SELECT t.category_id, COALESCE(c.name, ''), t.type, SUM(t.amount)
		 FROM transactions t
		 LEFT JOIN categories c ON c.id = t.category_id`+where+`
		 GROUP BY t.category_id, t.type
		 ORDER BY t.category_id`, args...)
	if err != nil {
		return finance.Stats{}, &errs.DatabaseError{Op: "computing stats", Cause: err}
	}
	defer rows.Close()
	for rows.Next() {
		var ct finance.CategoryTotal
		if err := rows.Scan(&ct.CategoryID, &ct.CategoryName, &ct.Type, &ct.Total); err != nil {
			return finance.Stats{}, &errs.DatabaseError{Op: "computing stats", Cause: err}
		}
		stats.ByCategory = append(stats.ByCategory, ct)
	}
	if err := rows.Err(); err != nil {
		return finance.Stats{}, &errs.DatabaseError{Op: "computing stats", Cause: err}
	}
	return stats, nil
}

// CategoryTable implements category CRUD over sqlite.
type CategoryTable struct {
	db *sql.DB
}

const catColumns = "id, name, type, color, created_at, updated_at"

func scanCategory(row interface{ Scan(...any) error }) (finance.Category, error) {
	var c finance.Category
	err := row.Scan(&c.ID, &c.Name, &c.Type, &c.Color, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func (t *CategoryTable) List(ctx context.Context) ([]finance.Category, error) {
	rows, err := t.db.QueryContext(ctx, "SELECT "+catColumns+" FROM categories ORDER BY id")
	if err != nil {
		return nil, &errs.DatabaseError{Op: "listing categories", Cause: err}
	}
	defer rows.Close()

	var out []finance.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, &errs.DatabaseError{Op: "scanning category", Cause: err}
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, &errs.DatabaseError{Op: "listing categories", Cause: err}
	}
	return out, nil
}

func (t *CategoryTable) Get(ctx context.Context, id int64) (finance.Category, error) {
	row := t.db.QueryRowContext(ctx, "SELECT "+catColumns+" FROM categories WHERE id = ?", id)
	c, err := scanCategory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return finance.Category{}, errs.ErrNotFound
	}
	if err != nil {
		return finance.Category{}, &errs.DatabaseError{Op: "fetching category", Cause: err}
	}
	return c, nil
}

// nameTaken reports whether a category other than selfID already uses name.
func (t *CategoryTable) nameTaken(ctx context.Context, name string, selfID int64) (bool, error) {
	var n int
	err := t.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM categories WHERE LOWER(name) = LOWER(?) AND id <> ?",
		name, selfID).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (t *CategoryTable) Insert(ctx context.Context, in finance.CategoryCreate, now time.Time) (finance.Category, error) {
	taken, err := t.nameTaken(ctx, in.Name, 0)
	if err != nil {
		return finance.Category{}, &errs.DatabaseError{Op: "inserting category", Cause: err}
	}
	if taken {
		return finance.Category{}, &errs.ConflictError{Resource: "Category"}
	}
	res, err := t.db.ExecContext(ctx,
		"INSERT INTO categories (name, type, color, created_at, updated_at) VALUES (?, ?, ?, ?, ?)",
		in.Name, in.Type, in.Color, now, now)
	if err != nil {
		return finance.Category{}, &errs.DatabaseError{Op: "inserting category", Cause: err}
	}
	id, err := res.LastInsertId()
	if err != nil {
		return finance.Category{}, &errs.DatabaseError{Op: "inserting category", Cause: err}
	}
	return t.Get(ctx, id)
}

func (t *CategoryTable) Update(ctx context.Context, id int64, patch finance.CategoryPatch, now time.Time) (finance.Category, error) {
	if patch.Name != nil {
		taken, err := t.nameTaken(ctx, *patch.Name, id)
		if err != nil {
			return finance.Category{}, &errs.DatabaseError{Op: "updating category", Cause: err}
		}
		if taken {
			return finance.Category{}, &errs.ConflictError{Resource: "Category"}
		}
	}
	res, err := t.db.ExecContext(ctx,
		`UPDATE categories SET
		    name       = COALESCE(?, name),
		    type       = COALESCE(?, type),
		    color      = COALESCE(?, color),
		    updated_at = ?
		 WHERE id = ?`,
		ptr(patch.Name), ptr(patch.Type), ptr(patch.Color), now, id)
	if err != nil {
		return finance.Category{}, &errs.DatabaseError{Op: "updating category", Cause: err}
	}
	if n, err := res.RowsAffected(); err != nil {
		return finance.Category{}, &errs.DatabaseError{Op: "updating category", Cause: err}
	} else if n == 0 {
		return finance.Category{}, errs.ErrNotFound
	}
	return t.Get(ctx, id)
}

func (t *CategoryTable) Delete(ctx context.Context, id int64) error {
	res, err := t.db.ExecContext(ctx, "DELETE FROM categories WHERE id = ?", id)
	if err != nil {
		return &errs.DatabaseError{Op: "deleting category", Cause: err}
	}
	if n, err := res.RowsAffected(); err != nil {
		return &errs.DatabaseError{Op: "deleting category", Cause: err}
	} else if n == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// SubscriptionTable implements subscription CRUD and the due listing over
// sqlite.
type SubscriptionTable struct {
	db *sql.DB
}

const subColumns = "id, name, amount, category_id, frequency, next_billing_date, currency, active, created_at, updated_at"

func scanSubscription(row interface{ Scan(...any) error }) (finance.Subscription, error) {
	var s finance.Subscription
	err := row.Scan(&s.ID, &s.Name, &s.Amount, &s.CategoryID, &s.Frequency, &s.NextBillingDate, &s.Currency, &s.Active, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}

func (t *SubscriptionTable) List(ctx context.Context) ([]finance.Subscription, error) {
	return t.list(ctx, "SELECT "+subColumns+" FROM subscriptions ORDER BY id")
}

func (t *SubscriptionTable) ListDue(ctx context.Context, today finance.Date) ([]finance.Subscription, error) {
	return t.list(ctx,
		"SELECT "+subColumns+" FROM subscriptions WHERE active = 1 AND next_billing_date <= ? ORDER BY id",
		today)
}

func (t *SubscriptionTable) list(ctx context.Context, query string, args ...any) ([]finance.Subscription, error) {
	rows, err := t.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &errs.DatabaseError{Op: "listing subscriptions", Cause: err}
	}
	defer rows.Close()

	var out []finance.Subscription
	for rows.Next() {
		s, err := scanSubscription(rows)
		if err != nil {
			return nil, &errs.DatabaseError{Op: "scanning subscription", Cause: err}
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, &errs.DatabaseError{Op: "listing subscriptions", Cause: err}
	}
	return out, nil
}

func (t *SubscriptionTable) Get(ctx context.Context, id int64) (finance.Subscription, error) {
	row := t.db.QueryRowContext(ctx, "SELECT "+subColumns+" FROM subscriptions WHERE id = ?", id)
	s, err := scanSubscription(row)
	if errors.Is(err, sql.ErrNoRows) {
		return finance.Subscription{}, errs.ErrNotFound
	}
	if err != nil {
		return finance.Subscription{}, &errs.DatabaseError{Op: "fetching subscription", Cause: err}
	}
	return s, nil
}

func (t *SubscriptionTable) Insert(ctx context.Context, in finance.SubscriptionCreate, now time.Time) (finance.Subscription, error) {
	res, err := t.db.ExecContext(ctx,
		`INSERT INTO subscriptions (name, amount, category_id, frequency, next_billing_date, currency, active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		in.Name, in.Amount, in.CategoryID, in.Frequency, in.NextBillingDate, in.Currency, in.Active, now, now)
	if err != nil {
		return finance.Subscription{}, &errs.DatabaseError{Op: "inserting subscription", Cause: err}
	}
	id, err := res.LastInsertId()
	if err != nil {
		return finance.Subscription{}, &errs.DatabaseError{Op: "inserting subscription", Cause: err}
	}
	return t.Get(ctx, id)
}

func (t *SubscriptionTable) Update(ctx context.Context, id int64, patch finance.SubscriptionPatch, now time.Time) (finance.Subscription, error) {
	res, err := t.db.ExecContext(ctx,
		`UPDATE subscriptions SET
		    name              = COALESCE(?, name),
		    amount            = COALESCE(?, amount),
		    category_id       = COALESCE(?, category_id),
		    frequency         = COALESCE(?, frequency),
		    next_billing_date = COALESCE(?, next_billing_date),
		    currency          = COALESCE(?, currency),
		    active            = COALESCE(?, active),
		    updated_at        = ?
		 WHERE id = ?`,
		ptr(patch.Name), ptr(patch.Amount), ptr(patch.CategoryID), ptr(patch.Frequency),
		ptr(patch.NextBillingDate), ptr(patch.Currency), ptr(patch.Active), now, id)
	if err != nil {
		return finance.Subscription{}, &errs.DatabaseError{Op: "updating subscription", Cause: err}
	}
	if n, err := res.RowsAffected(); err != nil {
		return finance.Subscription{}, &errs.DatabaseError{Op: "updating subscription", Cause: err}
	} else if n == 0 {
		return finance.Subscription{}, errs.ErrNotFound
	}
	return t.Get(ctx, id)
}

func (t *SubscriptionTable) Delete(ctx context.Context, id int64) error {
	res, err := t.db.ExecContext(ctx, "DELETE FROM subscriptions WHERE id = ?", id)
	if err != nil {
		return &errs.DatabaseError{Op: "deleting subscription", Cause: err}
	}
	if n, err := res.RowsAffected(); err != nil {
		return &errs.DatabaseError{Op: "deleting subscription", Cause: err}
	} else if n == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// BalanceTotals aggregates income and expense per currency.
func (s *Store) BalanceTotals(ctx context.Context) ([]finance.CurrencyTotal, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT currency,
		        COALESCE(SUM(CASE WHEN type = 'income' THEN amount ELSE 0 END), 0),
		        COALESCE(SUM(CASE WHEN type = 'expense' THEN amount ELSE 0 END), 0)
		 FROM transactions
		 GROUP BY currency
		 ORDER BY currency`)
	if err != nil {
		return nil, &errs.DatabaseError{Op: "computing balance", Cause: err}
	}
	defer rows.Close()

	var out []finance.CurrencyTotal
	for rows.Next() {
		var ct finance.CurrencyTotal
		if err := rows.Scan(&ct.Currency, &ct.Income, &ct.Expense); err != nil {
			return nil, &errs.DatabaseError{Op: "computing balance", Cause: err}
		}
		out = append(out, ct)
	}
	if err := rows.Err(); err != nil {
		return nil, &errs.DatabaseError{Op: "computing balance", Cause: err}
	}
	return out, nil
}

// MonthlyReport returns twelve rows for the given year, months with no
// activity included.
func (s *Store) MonthlyReport(ctx context.Context, year int) ([]finance.MonthlyRow, error) {
	out := make([]finance.MonthlyRow, 12)
	for i := range out {
		out[i].Month = i + 1
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT CAST(strftime('%m', date) AS INTEGER),
		        COALESCE(SUM(CASE WHEN type = 'income' THEN amount ELSE 0 END), 0),
		        COALESCE(SUM(CASE WHEN type = 'expense' THEN amount ELSE 0 END), 0)
		 FROM transactions
		 WHERE strftime('%Y', date) = ?
		 GROUP BY 1`, fmt.Sprintf("%04d", year))
	if err != nil {
		return nil, &errs.DatabaseError{Op: "computing monthly report", Cause: err}
	}
	defer rows.Close()

	for rows.Next() {
		var month int
		var income, expense int64
		if err := rows.Scan(&month, &income, &expense); err != nil {
			return nil, &errs.DatabaseError{Op: "computing monthly report", Cause: err}
		}
		if month >= 1 && month <= 12 {
			out[month-1].Income = income
			out[month-1].Expense = expense
		}
	}
	if err := rows.Err(); err != nil {
		return nil, &errs.DatabaseError{Op: "computing monthly report", Cause: err}
	}
	for i := range out {
		out[i].Net = out[i].Income - out[i].Expense
	}
	return out, nil
}
