package httpapi

import (
	"context"
	"time"

	"github.com/ojeda-dev/fintrack/internal/finance"
)

// Store is the persistence surface the CRUD factory operates against. T is
// the record, C the validated create input, P the partial patch. Adapters
// normalize driver-specific signals: a missing row is errs.ErrNotFound (or
// errs.NotFoundError), never a zero value, and insert/update always return
// the full resulting record. The caller supplies now so the server clock
// stays in one place.
type Store[T, C, P any] interface {
	List(ctx context.Context) ([]T, error)
	Get(ctx context.Context, id int64) (T, error)
	Insert(ctx context.Context, in C, now time.Time) (T, error)
	Update(ctx context.Context, id int64, patch P, now time.Time) (T, error)
	Delete(ctx context.Context, id int64) error
}

// TransactionStore adds filtered reads and aggregation on top of plain CRUD.
type TransactionStore interface {
	Store[finance.Transaction, finance.TransactionCreate, finance.TransactionPatch]
	ListFiltered(ctx context.Context, f finance.TransactionFilter) ([]finance.Transaction, error)
	Stats(ctx context.Context, f finance.TransactionFilter) (finance.Stats, error)
}

// CategoryStore is plain CRUD over categories.
type CategoryStore interface {
	Store[finance.Category, finance.CategoryCreate, finance.CategoryPatch]
}

// SubscriptionStore adds due-date queries on top of plain CRUD.
type SubscriptionStore interface {
	Store[finance.Subscription, finance.SubscriptionCreate, finance.SubscriptionPatch]
	ListDue(ctx context.Context, today finance.Date) ([]finance.Subscription, error)
}

// ReportStore provides the cross-resource aggregations behind /balance and
// /reports.
type ReportStore interface {
	BalanceTotals(ctx context.Context) ([]finance.CurrencyTotal, error)
	MonthlyReport(ctx context.Context, year int) ([]finance.MonthlyRow, error)
}

// ReadyChecker is optionally implemented by stores to indicate readiness.
type ReadyChecker interface {
	Ready(ctx context.Context) error
}
