// Package postgres is the production storage backend. Schema lives under
// db/migrations and is applied out of band; the store only assumes the
// tables exist.
package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ojeda-dev/fintrack/internal/errs"
	"github.com/ojeda-dev/fintrack/internal/finance"
)

// Store wraps a pgx connection pool. Create with New; Close releases the
// pool.
type Store struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, &errs.DatabaseError{Op: "connecting to postgres", Cause: err}
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, &errs.DatabaseError{Op: "pinging postgres", Cause: err}
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() { s.pool.Close() }

func (s *Store) Ready(ctx context.Context) error { return s.pool.Ping(ctx) }

func (s *Store) Transactions() *TransactionTable { return &TransactionTable{pool: s.pool} }

func (s *Store) Categories() *CategoryTable { return &CategoryTable{pool: s.pool} }

func (s *Store) Subscriptions() *SubscriptionTable { return &SubscriptionTable{pool: s.pool} }

func ptr[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}

// TransactionTable implements transaction CRUD, filtered listing and stats
// over postgres.
type TransactionTable struct {
	pool *pgxpool.Pool
}

const txColumns = "id, amount, type, category_id, description, date, currency, created_at, updated_at"

func scanTransaction(row pgx.Row) (finance.Transaction, error) {
	var t finance.Transaction
	err := row.Scan(&t.ID, &t.Amount, &t.Type, &t.CategoryID, &t.Description, &t.Date, &t.Currency, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

func (t *TransactionTable) List(ctx context.Context) ([]finance.Transaction, error) {
	return t.ListFiltered(ctx, finance.TransactionFilter{})
}

func (t *TransactionTable) ListFiltered(ctx context.Context, f finance.TransactionFilter) ([]finance.Transaction, error) {
	// NULL filter arguments disable their clause, so one statement covers
	// every filter combination.
	query := `SELECT ` + txColumns + ` FROM transactions
	          WHERE ($1::text IS NULL OR type = $1)
	            AND ($2::bigint IS NULL OR category_id = $2)
	            AND ($3::date IS NULL OR date >= $3)
	            AND ($4::date IS NULL OR date <= $4)
	          ORDER BY date DESC, id DESC`

	var typeArg, catArg, fromArg, toArg any
	if f.Type != "" {
		typeArg = string(f.Type)
	}
	if f.CategoryID != 0 {
		catArg = f.CategoryID
	}
	if !f.From.IsZero() {
		fromArg = f.From
	}
	if !f.To.IsZero() {
		toArg = f.To
	}

	rows, err := t.pool.Query(ctx, query, typeArg, catArg, fromArg, toArg)
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
	row := t.pool.QueryRow(ctx, "SELECT "+txColumns+" FROM transactions WHERE id = $1", id)
	tx, err := scanTransaction(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return finance.Transaction{}, errs.ErrNotFound
	}
	if err != nil {
		return finance.Transaction{}, &errs.DatabaseError{Op: "fetching transaction", Cause: err}
	}
	return tx, nil
}

func (t *TransactionTable) Insert(ctx context.Context, in finance.TransactionCreate, now time.Time) (finance.Transaction, error) {
	row := t.pool.QueryRow(ctx,
		`INSERT INTO transactions (amount, type, category_id, description, date, currency, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING `+txColumns,
		in.Amount, in.Type, in.CategoryID, in.Description, in.Date, in.Currency, now, now)
	tx, err := scanTransaction(row)
	if err != nil {
		return finance.Transaction{}, &errs.DatabaseError{Op: "inserting transaction", Cause: err}
	}
	return tx, nil
}

func (t *TransactionTable) Update(ctx context.Context, id int64, patch finance.TransactionPatch, now time.Time) (finance.Transaction, error) {
	row := t.pool.QueryRow(ctx,
		`UPDATE transactions SET
		    amount      = COALESCE($1, amount),
		    type        = COALESCE($2, type),
		    category_id = COALESCE($3, category_id),
		    description = COALESCE($4, description),
		    date        = COALESCE($5, date),
		    currency    = COALESCE($6, currency),
		    updated_at  = $7
		 WHERE id = $8
		 RETURNING `+txColumns,
		ptr(patch.Amount), ptr(patch.Type), ptr(patch.CategoryID), ptr(patch.Description),
		ptr(patch.Date), ptr(patch.Currency), now, id)
	tx, err := scanTransaction(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return finance.Transaction{}, errs.ErrNotFound
	}
	if err != nil {
		return finance.Transaction{}, &errs.DatabaseError{Op: "updating transaction", Cause: err}
	}
	return tx, nil
}

func (t *TransactionTable) Delete(ctx context.Context, id int64) error {
	tag, err := t.pool.Exec(ctx, "DELETE FROM transactions WHERE id = $1", id)
	if err != nil {
		return &errs.DatabaseError{Op: "deleting transaction", Cause: err}
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

func (t *TransactionTable) Stats(ctx context.Context, f finance.TransactionFilter) (finance.Stats, error) {
	var typeArg, catArg, fromArg, toArg any
	if f.Type != "" {
		typeArg = string(f.Type)
	}
	if f.CategoryID != 0 {
		catArg = f.CategoryID
	}
	if !f.From.IsZero() {
		fromArg = f.From
	}
	if !f.To.IsZero() {
		toArg = f.To
	}
	where := ` WHERE ($1::text IS NULL OR t.type = $1)
	             AND ($2::bigint IS NULL OR t.category_id = $2)
	             AND ($3::date IS NULL OR t.date >= $3)
	             AND ($4::date IS NULL OR t.date <= $4)`

	stats := finance.Stats{ByCategory: []finance.CategoryTotal{}}
	row := t.pool.QueryRow(ctx,
		`SELECT COUNT(*),
		        COALESCE(SUM(amount) FILTER (WHERE t.type = 'income'), 0),
		        COALESCE(SUM(amount) FILTER (WHERE t.type = 'expense'), 0)
		 FROM transactions t`+where, typeArg, catArg, fromArg, toArg)
	if err := row.Scan(&stats.Count, &stats.Income, &stats.Expense); err != nil {
		return finance.Stats{}, &errs.DatabaseError{Op: "computing stats", Cause: err}
	}
	stats.Net = stats.Income - stats.Expense

	rows, err := t.pool.Query(ctx,
		`SELECT t.category_id, COALESCE(c.name, ''), t.type, SUM(t.amount)
		 FROM transactions t
		 LEFT JOIN categories c ON c.id = t.category_id`+where+`
		 GROUP BY t.category_id, c.name, t.type
		 ORDER BY t.category_id`, typeArg, catArg, fromArg, toArg)
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

// CategoryTable implements category CRUD over postgres.
type CategoryTable struct {
	pool *pgxpool.Pool
}

const catColumns = "id, name, type, color, created_at, updated_at"

func scanCategory(row pgx.Row) (finance.Category, error) {
	var c finance.Category
	err := row.Scan(&c.ID, &c.Name, &c.Type, &c.Color, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func (t *CategoryTable) List(ctx context.Context) ([]finance.Category, error) {
	rows, err := t.pool.Query(ctx, "SELECT "+catColumns+" FROM categories ORDER BY id")
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
	row := t.pool.QueryRow(ctx, "SELECT "+catColumns+" FROM categories WHERE id = $1", id)
	c, err := scanCategory(row)
	if errors.Is(err, pgx.ErrNoRows) {
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
	err := t.pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM categories WHERE LOWER(name) = LOWER($1) AND id <> $2",
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
	row := t.pool.QueryRow(ctx,
		`INSERT INTO categories (name, type, color, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING `+catColumns,
		in.Name, in.Type, in.Color, now, now)
	c, err := scanCategory(row)
	if err != nil {
		return finance.Category{}, &errs.DatabaseError{Op: "inserting category", Cause: err}
	}
	return c, nil
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
	row := t.pool.QueryRow(ctx,
		`UPDATE categories SET
		    name       = COALESCE($1, name),
		    type       = COALESCE($2, type),
		    color      = COALESCE($3, color),
		    updated_at = $4
		 WHERE id = $5
		 RETURNING `+catColumns,
		ptr(patch.Name), ptr(patch.Type), ptr(patch.Color), now, id)
	c, err := scanCategory(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return finance.Category{}, errs.ErrNotFound
	}
	if err != nil {
		return finance.Category{}, &errs.DatabaseError{Op: "updating category", Cause: err}
	}
	return c, nil
}

func (t *CategoryTable) Delete(ctx context.Context, id int64) error {
	tag, err := t.pool.Exec(ctx, "DELETE FROM categories WHERE id = $1", id)
	if err != nil {
		return &errs.DatabaseError{Op: "deleting category", Cause: err}
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// SubscriptionTable implements subscription CRUD and the due listing over
// postgres.
type SubscriptionTable struct {
	pool *pgxpool.Pool
}

const subColumns = "id, name, amount, category_id, frequency, next_billing_date, currency, active, created_at, updated_at"

func scanSubscription(row pgx.Row) (finance.Subscription, error) {
	var s finance.Subscription
	err := row.Scan(&s.ID, &s.Name, &s.Amount, &s.CategoryID, &s.Frequency, &s.NextBillingDate, &s.Currency, &s.Active, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}

func (t *SubscriptionTable) List(ctx context.Context) ([]finance.Subscription, error) {
	return t.list(ctx, "SELECT "+subColumns+" FROM subscriptions ORDER BY id")
}

func (t *SubscriptionTable) ListDue(ctx context.Context, today finance.Date) ([]finance.Subscription, error) {
	return t.list(ctx,
		"SELECT "+subColumns+" FROM subscriptions WHERE active AND next_billing_date <= $1 ORDER BY id",
		today)
}

func (t *SubscriptionTable) list(ctx context.Context, query string, args ...any) ([]finance.Subscription, error) {
	rows, err := t.pool.Query(ctx, query, args...)
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
	row := t.pool.QueryRow(ctx, "SELECT "+subColumns+" FROM subscriptions WHERE id = $1", id)
	s, err := scanSubscription(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return finance.Subscription{}, errs.ErrNotFound
	}
	if err != nil {
		return finance.Subscription{}, &errs.DatabaseError{Op: "fetching subscription", Cause: err}
	}
	return s, nil
}

func (t *SubscriptionTable) Insert(ctx context.Context, in finance.SubscriptionCreate, now time.Time) (finance.Subscription, error) {
	row := t.pool.QueryRow(ctx,
		`INSERT INTO subscriptions (name, amount, category_id, frequency, next_billing_date, currency, active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING `+subColumns,
		in.Name, in.Amount, in.CategoryID, in.Frequency, in.NextBillingDate, in.Currency, in.Active, now, now)
	s, err := scanSubscription(row)
	if err != nil {
		return finance.Subscription{}, &errs.DatabaseError{Op: "inserting subscription", Cause: err}
	}
	return s, nil
}

func (t *SubscriptionTable) Update(ctx context.Context, id int64, patch finance.SubscriptionPatch, now time.Time) (finance.Subscription, error) {
	row := t.pool.QueryRow(ctx,
		`UPDATE subscriptions SET
		    name              = COALESCE($1, name),
		    amount            = COALESCE($2, amount),
		    category_id       = COALESCE($3, category_id),
		    frequency         = COALESCE($4, frequency),
		    next_billing_date = COALESCE($5, next_billing_date),
		    currency          = COALESCE($6, currency),
		    active            = COALESCE($7, active),
		    updated_at        = $8
		 WHERE id = $9
		 RETURNING `+subColumns,
		ptr(patch.Name), ptr(patch.Amount), ptr(patch.CategoryID), ptr(patch.Frequency),
		ptr(patch.NextBillingDate), ptr(patch.Currency), ptr(patch.Active), now, id)
	s, err := scanSubscription(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return finance.Subscription{}, errs.ErrNotFound
	}
	if err != nil {
		return finance.Subscription{}, &errs.DatabaseError{Op: "updating subscription", Cause: err}
	}
	return s, nil
}

func (t *SubscriptionTable) Delete(ctx context.Context, id int64) error {
	tag, err := t.pool.Exec(ctx, "DELETE FROM subscriptions WHERE id = $1", id)
	if err != nil {
		return &errs.DatabaseError{Op: "deleting subscription", Cause: err}
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// BalanceTotals aggregates income and expense per currency.
func (s *Store) BalanceTotals(ctx context.Context) ([]finance.CurrencyTotal, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT currency,
		        COALESCE(SUM(amount) FILTER (WHERE type = 'income'), 0),
		        COALESCE(SUM(amount) FILTER (WHERE type = 'expense'), 0)
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

	rows, err := s.pool.Query(ctx,
		`SELECT EXTRACT(MONTH FROM date)::int,
		        COALESCE(SUM(amount) FILTER (WHERE type = 'income'), 0),
		        COALESCE(SUM(amount) FILTER (WHERE type = 'expense'), 0)
		 FROM transactions
		 WHERE EXTRACT(YEAR FROM date)::int = $1
		 GROUP BY 1`, year)
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
