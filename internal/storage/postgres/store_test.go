package postgres

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/ojeda-dev/fintrack/internal/errs"
	"github.com/ojeda-dev/fintrack/internal/finance"
)

func getTestDSN(t *testing.T) string {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set; skipping Postgres store tests")
	}
	return dsn
}

func mustOpen(t *testing.T, dsn string) *Store {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s, err := New(ctx, dsn)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(s.Close)
	return s
}

func applyInitSQL(t *testing.T, s *Store) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	// Resolve init SQL path relative to this test file so CWD doesn't matter
	_, thisFile, _, _ := runtime.Caller(0)
	repoRoot := filepath.Clean(filepath.Join(filepath.Dir(thisFile), "../../../"))
	path := filepath.Join(repoRoot, "db", "migrations", "0001_init.sql")
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read init sql: %v", err)
	}
	if _, err := s.pool.Exec(ctx, string(b)); err != nil {
		t.Fatalf("apply init sql: %v", err)
	}
}

func truncateAll(t *testing.T, s *Store) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := s.pool.Exec(ctx, "TRUNCATE transactions, subscriptions, categories RESTART IDENTITY"); err != nil {
		t.Fatalf("truncate: %v", err)
	}
}

func setup(t *testing.T) *Store {
	t.Helper()
	s := mustOpen(t, getTestDSN(t))
	applyInitSQL(t, s)
	truncateAll(t, s)
	return s
}

func testDate(t *testing.T, v string) finance.Date {
	t.Helper()
	d, err := finance.ParseDate(v)
	if err != nil {
		t.Fatalf("ParseDate(%q): %v", v, err)
	}
	return d
}

func TestTransactionRoundTrip(t *testing.T) {
	s := setup(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	cat, err := s.Categories().Insert(ctx, finance.CategoryCreate{Name: "Groceries", Type: finance.TypeExpense, Color: "#ef6c00"}, now)
	if err != nil {
		t.Fatalf("insert category: %v", err)
	}

	tx, err := s.Transactions().Insert(ctx, finance.TransactionCreate{
		Amount:      3500,
		Type:        finance.TypeExpense,
		CategoryID:  cat.ID,
		Description: "weekly shop",
		Date:        testDate(t, "2025-06-14"),
		Currency:    "EUR",
	}, now)
	if err != nil {
		t.Fatalf("insert transaction: %v", err)
	}
	if tx.ID == 0 {
		t.Fatal("no id assigned")
	}

	got, err := s.Transactions().Get(ctx, tx.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Amount != 3500 || got.Description != "weekly shop" || got.Date.String() != "2025-06-14" {
		t.Errorf("round trip = %+v", got)
	}

	amount := int64(4200)
	updated, err := s.Transactions().Update(ctx, tx.ID, finance.TransactionPatch{Amount: &amount}, now.Add(time.Minute))
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Amount != 4200 || updated.Description != "weekly shop" {
		t.Errorf("partial update = %+v", updated)
	}

	if err := s.Transactions().Delete(ctx, tx.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.Transactions().Get(ctx, tx.ID); !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("get after delete err = %v, want ErrNotFound", err)
	}
}

func TestNotFoundNormalization(t *testing.T) {
	s := setup(t)
	ctx := context.Background()
	now := time.Now().UTC()

	if _, err := s.Transactions().Get(ctx, 424242); !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("Get err = %v, want ErrNotFound", err)
	}
	amount := int64(1)
	if _, err := s.Transactions().Update(ctx, 424242, finance.TransactionPatch{Amount: &amount}, now); !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("Update err = %v, want ErrNotFound", err)
	}
	if err := s.Transactions().Delete(ctx, 424242); !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("Delete err = %v, want ErrNotFound", err)
	}
}

func TestFilteredListAndStats(t *testing.T) {
	s := setup(t)
	ctx := context.Background()
	now := time.Now().UTC()

	cat, err := s.Categories().Insert(ctx, finance.CategoryCreate{Name: "Groceries", Type: finance.TypeExpense}, now)
	if err != nil {
		t.Fatalf("insert category: %v", err)
	}
	seed := func(amount int64, typ finance.TransactionType, day string) {
		t.Helper()
		if _, err := s.Transactions().Insert(ctx, finance.TransactionCreate{
			Amount: amount, Type: typ, CategoryID: cat.ID, Description: "seed", Date: testDate(t, day), Currency: "EUR",
		}, now); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}
	seed(500000, finance.TypeIncome, "2025-06-01")
	seed(3500, finance.TypeExpense, "2025-06-10")
	seed(6500, finance.TypeExpense, "2025-05-20")

	expenses, err := s.Transactions().ListFiltered(ctx, finance.TransactionFilter{Type: finance.TypeExpense})
	if err != nil {
		t.Fatalf("ListFiltered: %v", err)
	}
	if len(expenses) != 2 {
		t.Errorf("expenses = %d", len(expenses))
	}

	june, err := s.Transactions().ListFiltered(ctx, finance.TransactionFilter{From: testDate(t, "2025-06-01"), To: testDate(t, "2025-06-30")})
	if err != nil {
		t.Fatalf("ListFiltered: %v", err)
	}
	if len(june) != 2 {
		t.Errorf("june = %d", len(june))
	}

	stats, err := s.Transactions().Stats(ctx, finance.TransactionFilter{})
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Count != 3 || stats.Income != 500000 || stats.Expense != 10000 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestSubscriptionsAndReports(t *testing.T) {
	s := setup(t)
	ctx := context.Background()
	now := time.Now().UTC()

	sub, err := s.Subscriptions().Insert(ctx, finance.SubscriptionCreate{
		Name:            "Netflix",
		Amount:          1299,
		CategoryID:      1,
		Frequency:       finance.FreqMonthly,
		NextBillingDate: testDate(t, "2025-06-01"),
		Currency:        "EUR",
		Active:          true,
	}, now)
	if err != nil {
		t.Fatalf("insert subscription: %v", err)
	}

	due, err := s.Subscriptions().ListDue(ctx, testDate(t, "2025-06-15"))
	if err != nil {
		t.Fatalf("ListDue: %v", err)
	}
	if len(due) != 1 || due[0].ID != sub.ID {
		t.Errorf("due = %+v", due)
	}

	active := false
	if _, err := s.Subscriptions().Update(ctx, sub.ID, finance.SubscriptionPatch{Active: &active}, now); err != nil {
		t.Fatalf("update: %v", err)
	}
	due, err = s.Subscriptions().ListDue(ctx, testDate(t, "2025-06-15"))
	if err != nil {
		t.Fatalf("ListDue: %v", err)
	}
	if len(due) != 0 {
		t.Errorf("inactive subscription still due: %+v", due)
	}

	if _, err := s.Transactions().Insert(ctx, finance.TransactionCreate{
		Amount: 100000, Type: finance.TypeIncome, CategoryID: 1, Description: "pay", Date: testDate(t, "2025-06-01"), Currency: "EUR",
	}, now); err != nil {
		t.Fatalf("insert: %v", err)
	}
	totals, err := s.BalanceTotals(ctx)
	if err != nil {
		t.Fatalf("BalanceTotals: %v", err)
	}
	if len(totals) != 1 || totals[0].Income != 100000 {
		t.Errorf("totals = %+v", totals)
	}

	rows, err := s.MonthlyReport(ctx, 2025)
	if err != nil {
		t.Fatalf("MonthlyReport: %v", err)
	}
	if len(rows) != 12 || rows[5].Income != 100000 {
		t.Errorf("rows[5] = %+v", rows[5])
	}
}
