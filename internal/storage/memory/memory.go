// Package memory is the in-memory storage backend. It is the default for
// development and the substrate for the HTTP tests: one mutex, three maps,
// auto-incremented ids.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ojeda-dev/fintrack/internal/errs"
	"github.com/ojeda-dev/fintrack/internal/finance"
)

// Store holds every resource behind a single RWMutex. Zero value is not
// usable; create with New.
type Store struct {
	mu            sync.RWMutex
	transactions  map[int64]finance.Transaction
	categories    map[int64]finance.Category
	subscriptions map[int64]finance.Subscription
	nextTxID      int64
	nextCatID     int64
	nextSubID     int64
}

func New() *Store {
	return &Store{
		transactions:  make(map[int64]finance.Transaction),
		categories:    make(map[int64]finance.Category),
		subscriptions: make(map[int64]finance.Subscription),
		nextTxID:      1,
		nextCatID:     1,
		nextSubID:     1,
	}
}

// SeedDefaults installs the standard category set. Intended for fresh
// stores; it does not check for duplicates.
func (s *Store) SeedDefaults(now time.Time) {
	for _, c := range finance.DefaultCategories() {
		_, _ = s.Categories().Insert(context.Background(), c, now)
	}
}

// Ready always succeeds; there is nothing behind the maps to probe.
func (s *Store) Ready(ctx context.Context) error { return nil }

// Transactions returns the transaction table view over the shared state.
func (s *Store) Transactions() *TransactionTable { return &TransactionTable{s: s} }

// Categories returns the category table view over the shared state.
func (s *Store) Categories() *CategoryTable { return &CategoryTable{s: s} }

// Subscriptions returns the subscription table view over the shared state.
func (s *Store) Subscriptions() *SubscriptionTable { return &SubscriptionTable{s: s} }

// TransactionTable implements transaction CRUD, filtered listing and stats.
type TransactionTable struct {
	s *Store
}

func (t *TransactionTable) List(ctx context.Context) ([]finance.Transaction, error) {
	return t.ListFiltered(ctx, finance.TransactionFilter{})
}

func (t *TransactionTable) ListFiltered(ctx context.Context, f finance.TransactionFilter) ([]finance.Transaction, error) {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()

	out := make([]finance.Transaction, 0, len(t.s.transactions))
	for _, tx := range t.s.transactions {
		if f.Matches(tx) {
			out = append(out, tx)
		}
	}
	// Newest first, id as tiebreaker so ordering is stable.
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date.Time) {
			return out[j].Date.Before(out[i].Date)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (t *TransactionTable) Get(ctx context.Context, id int64) (finance.Transaction, error) {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()

	tx, ok := t.s.transactions[id]
	if !ok {
		return finance.Transaction{}, errs.ErrNotFound
	}
	return tx, nil
}

func (t *TransactionTable) Insert(ctx context.Context, in finance.TransactionCreate, now time.Time) (finance.Transaction, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	tx := finance.Transaction{
		ID:          t.s.nextTxID,
		Amount:      in.Amount,
		Type:        in.Type,
		CategoryID:  in.CategoryID,
		Description: in.Description,
		Date:        in.Date,
		Currency:    in.Currency,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	t.s.nextTxID++
	t.s.transactions[tx.ID] = tx
	return tx, nil
}

func (t *TransactionTable) Update(ctx context.Context, id int64, patch finance.TransactionPatch, now time.Time) (finance.Transaction, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	tx, ok := t.s.transactions[id]
	if !ok {
		return finance.Transaction{}, errs.ErrNotFound
	}
	if patch.Amount != nil {
		tx.Amount = *patch.Amount
	}
	if patch.Type != nil {
		tx.Type = *patch.Type
	}
	if patch.CategoryID != nil {
		tx.CategoryID = *patch.CategoryID
	}
	if patch.Description != nil {
		tx.Description = *patch.Description
	}
	if patch.Date != nil {
		tx.Date = *patch.Date
	}
	if patch.Currency != nil {
		tx.Currency = *patch.Currency
	}
	tx.UpdatedAt = now
	t.s.transactions[id] = tx
	return tx, nil
}

func (t *TransactionTable) Delete(ctx context.Context, id int64) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	if _, ok := t.s.transactions[id]; !ok {
		return errs.ErrNotFound
	}
	delete(t.s.transactions, id)
	return nil
}

func (t *TransactionTable) Stats(ctx context.Context, f finance.TransactionFilter) (finance.Stats, error) {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()

	stats := finance.Stats{ByCategory: []finance.CategoryTotal{}}
	byCat := make(map[int64]*finance.CategoryTotal)
	for _, tx := range t.s.transactions {
		if !f.Matches(tx) {
			continue
		}
		stats.Count++
		switch tx.Type {
		case finance.TypeIncome:
			stats.Income += tx.Amount
		case finance.TypeExpense:
			stats.Expense += tx.Amount
		}
		ct, ok := byCat[tx.CategoryID]
		if !ok {
			ct = &finance.CategoryTotal{CategoryID: tx.CategoryID, Type: tx.Type}
			if c, found := t.s.categories[tx.CategoryID]; found {
				ct.CategoryName = c.Name
			}
			byCat[tx.CategoryID] = ct
		}
		ct.Total += tx.Amount
	}
	stats.Net = stats.Income - stats.Expense

	for _, ct := range byCat {
		stats.ByCategory = append(stats.ByCategory, *ct)
	}
	sort.Slice(stats.ByCategory, func(i, j int) bool {
		return stats.ByCategory[i].CategoryID < stats.ByCategory[j].CategoryID
	})
	return stats, nil
}

// CategoryTable implements category CRUD.
type CategoryTable struct {
	s *Store
}

func (t *CategoryTable) List(ctx context.Context) ([]finance.Category, error) {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()

	out := make([]finance.Category, 0, len(t.s.categories))
	for _, c := range t.s.categories {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *CategoryTable) Get(ctx context.Context, id int64) (finance.Category, error) {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()

	c, ok := t.s.categories[id]
	if !ok {
		return finance.Category{}, errs.ErrNotFound
	}
	return c, nil
}

func (t *CategoryTable) Insert(ctx context.Context, in finance.CategoryCreate, now time.Time) (finance.Category, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	if t.nameTaken(in.Name, 0) {
		return finance.Category{}, &errs.ConflictError{Resource: "Category"}
	}
	c := finance.Category{
		ID:        t.s.nextCatID,
		Name:      in.Name,
		Type:      in.Type,
		Color:     in.Color,
		CreatedAt: now,
		UpdatedAt: now,
	}
	t.s.nextCatID++
	t.s.categories[c.ID] = c
	return c, nil
}

// nameTaken reports whether another category already uses name. Caller holds
// the lock.
func (t *CategoryTable) nameTaken(name string, selfID int64) bool {
	for _, c := range t.s.categories {
		if c.ID != selfID && strings.EqualFold(c.Name, name) {
			return true
		}
	}
	return false
}

func (t *CategoryTable) Update(ctx context.Context, id int64, patch finance.CategoryPatch, now time.Time) (finance.Category, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	c, ok := t.s.categories[id]
	if !ok {
		return finance.Category{}, errs.ErrNotFound
	}
	if patch.Name != nil {
		if t.nameTaken(*patch.Name, id) {
			return finance.Category{}, &errs.ConflictError{Resource: "Category"}
		}
		c.Name = *patch.Name
	}
	if patch.Type != nil {
		c.Type = *patch.Type
	}
	if patch.Color != nil {
		c.Color = *patch.Color
	}
	c.UpdatedAt = now
	t.s.categories[id] = c
	return c, nil
}

func (t *CategoryTable) Delete(ctx context.Context, id int64) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	if _, ok := t.s.categories[id]; !ok {
		return errs.ErrNotFound
	}
	delete(t.s.categories, id)
	return nil
}

// SubscriptionTable implements subscription CRUD and the due listing.
type SubscriptionTable struct {
	s *Store
}

func (t *SubscriptionTable) List(ctx context.Context) ([]finance.Subscription, error) {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()

	out := make([]finance.Subscription, 0, len(t.s.subscriptions))
	for _, sub := range t.s.subscriptions {
		out = append(out, sub)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *SubscriptionTable) ListDue(ctx context.Context, today finance.Date) ([]finance.Subscription, error) {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()

	out := make([]finance.Subscription, 0)
	for _, sub := range t.s.subscriptions {
		if sub.Active && finance.Due(sub.NextBillingDate, today) {
			out = append(out, sub)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *SubscriptionTable) Get(ctx context.Context, id int64) (finance.Subscription, error) {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()

	sub, ok := t.s.subscriptions[id]
	if !ok {
		return finance.Subscription{}, errs.ErrNotFound
	}
	return sub, nil
}

func (t *SubscriptionTable) Insert(ctx context.Context, in finance.SubscriptionCreate, now time.Time) (finance.Subscription, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	sub := finance.Subscription{
		ID:              t.s.nextSubID,
		Name:            in.Name,
		Amount:          in.Amount,
		CategoryID:      in.CategoryID,
		Frequency:       in.Frequency,
		NextBillingDate: in.NextBillingDate,
		Currency:        in.Currency,
		Active:          in.Active,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	t.s.nextSubID++
	t.s.subscriptions[sub.ID] = sub
	return sub, nil
}

func (t *SubscriptionTable) Update(ctx context.Context, id int64, patch finance.SubscriptionPatch, now time.Time) (finance.Subscription, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	sub, ok := t.s.subscriptions[id]
	if !ok {
		return finance.Subscription{}, errs.ErrNotFound
	}
	if patch.Name != nil {
		sub.Name = *patch.Name
	}
	if patch.Amount != nil {
		sub.Amount = *patch.Amount
	}
	if patch.CategoryID != nil {
		sub.CategoryID = *patch.CategoryID
	}
	if patch.Frequency != nil {
		sub.Frequency = *patch.Frequency
	}
	if patch.NextBillingDate != nil {
		sub.NextBillingDate = *patch.NextBillingDate
	}
	if patch.Currency != nil {
		sub.Currency = *patch.Currency
	}
	if patch.Active != nil {
		sub.Active = *patch.Active
	}
	sub.UpdatedAt = now
	t.s.subscriptions[id] = sub
	return sub, nil
}

func (t *SubscriptionTable) Delete(ctx context.Context, id int64) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	if _, ok := t.s.subscriptions[id]; !ok {
		return errs.ErrNotFound
	}
	delete(t.s.subscriptions, id)
	return nil
}

// BalanceTotals aggregates income and expense per currency across all
// transactions.
func (s *Store) BalanceTotals(ctx context.Context) ([]finance.CurrencyTotal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byCur := make(map[string]*finance.CurrencyTotal)
	for _, tx := range s.transactions {
		ct, ok := byCur[tx.Currency]
		if !ok {
			ct = &finance.CurrencyTotal{Currency: tx.Currency}
			byCur[tx.Currency] = ct
		}
		switch tx.Type {
		case finance.TypeIncome:
			ct.Income += tx.Amount
		case finance.TypeExpense:
			ct.Expense += tx.Amount
		}
	}

	out := make([]finance.CurrencyTotal, 0, len(byCur))
	for _, ct := range byCur {
		out = append(out, *ct)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Currency < out[j].Currency })
	return out, nil
}

// MonthlyReport returns twelve rows for the given year, including months
// with no activity.
func (s *Store) MonthlyReport(ctx context.Context, year int) ([]finance.MonthlyRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := make([]finance.MonthlyRow, 12)
	for i := range rows {
		rows[i].Month = i + 1
	}
	for _, tx := range s.transactions {
		if tx.Date.Year() != year {
			continue
		}
		row := &rows[int(tx.Date.Month())-1]
		switch tx.Type {
		case finance.TypeIncome:
			row.Income += tx.Amount
		case finance.TypeExpense:
			row.Expense += tx.Amount
		}
	}
	for i := range rows {
		rows[i].Net = rows[i].Income - rows[i].Expense
	}
	return rows, nil
}
