// Transaction routes: generic CRUD plus filtered listing and date-range
// stats, which sit outside the factory.
package httpapi

import (
	"context"
	"net/http"

	chi "github.com/go-chi/chi/v5"

	"github.com/ojeda-dev/fintrack/internal/errs"
	"github.com/ojeda-dev/fintrack/internal/finance"
	"github.com/ojeda-dev/fintrack/internal/oplog"
	"github.com/ojeda-dev/fintrack/internal/validate"
)

// transactionRoutes mounts /transactions. The list route supports optional
// type/categoryId/from/to query filters; without them it matches the
// factory's plain list behavior.
func (s *Server) transactionRoutes(r chi.Router) {
	crud := NewCrud(CrudConfig[finance.Transaction, finance.TransactionCreate, finance.TransactionPatch]{
		Store:          s.tx,
		Resource:       "transactions",
		Display:        "Transaction",
		ValidateCreate: validate.TransactionCreate,
		ValidateUpdate: validate.TransactionPatch,
		Transform:      s.attachCategories,
		Events:         s.events,
		Log:            s.log,
		Now:            s.now,
	})

	r.Get("/", s.listTransactions(crud))
	r.Get("/stats", s.transactionStats)
	r.Post("/", crud.Create)
	r.Get("/{id}", crud.Get)
	r.Put("/{id}", crud.Update)
	r.Delete("/{id}", crud.Delete)
}

// parseTransactionFilter reads the optional query filters. A second return
// of non-nil field errors means the filter was present but malformed.
func parseTransactionFilter(r *http.Request) (finance.TransactionFilter, []errs.FieldError) {
	var f finance.TransactionFilter
	var ferrs []errs.FieldError
	q := r.URL.Query()

	if v := q.Get("type"); v != "" {
		t := finance.TransactionType(v)
		if !t.Valid() {
			ferrs = append(ferrs, errs.FieldError{Field: "type", Message: "type must be income or expense", Type: "invalid"})
		} else {
			f.Type = t
		}
	}
	if v := q.Get("categoryId"); v != "" {
		id, idErrs := validate.ID(v)
		if len(idErrs) > 0 {
			ferrs = append(ferrs, errs.FieldError{Field: "categoryId", Message: "categoryId must be a positive number", Type: "invalid"})
		} else {
			f.CategoryID = id
		}
	}
	if v := q.Get("from"); v != "" {
		d, err := finance.ParseDate(v)
		if err != nil {
			ferrs = append(ferrs, errs.FieldError{Field: "from", Message: "from must be formatted YYYY-MM-DD", Type: "invalid"})
		} else {
			f.From = d
		}
	}
	if v := q.Get("to"); v != "" {
		d, err := finance.ParseDate(v)
		if err != nil {
			ferrs = append(ferrs, errs.FieldError{Field: "to", Message: "to must be formatted YYYY-MM-DD", Type: "invalid"})
		} else {
			f.To = d
		}
	}
	return f, ferrs
}

// listTransactions handles GET /transactions. It falls through to the
// factory's list when no filters are present so the generic contract stays
// intact.
func (s *Server) listTransactions(crud *Crud[finance.Transaction, finance.TransactionCreate, finance.TransactionPatch]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f, ferrs := parseTransactionFilter(r)
		if len(ferrs) > 0 {
			toJSON(w, http.StatusBadRequest, errorResponse{Error: ferrs[0].Message, Details: ferrs})
			return
		}
		if f == (finance.TransactionFilter{}) {
			crud.List(w, r)
			return
		}

		op := oplog.Start(r.Context(), s.log, "transactions", "findMany", oplog.KindRead)
		items, err := s.tx.ListFiltered(r.Context(), f)
		if err != nil {
			op.Error(err)
			toJSON(w, http.StatusInternalServerError, errorResponse{Error: "Failed to fetch transactions"})
			return
		}
		items = s.attachCategories(r.Context(), items)
		if items == nil {
			items = []finance.Transaction{}
		}
		op.Success("count", len(items))
		toJSON(w, http.StatusOK, items)
	}
}

// transactionStats handles GET /transactions/stats.
func (s *Server) transactionStats(w http.ResponseWriter, r *http.Request) {
	f, ferrs := parseTransactionFilter(r)
	if len(ferrs) > 0 {
		toJSON(w, http.StatusBadRequest, errorResponse{Error: ferrs[0].Message, Details: ferrs})
		return
	}
	stats, err := oplog.Timed(r.Context(), s.log, "transactions", "stats", oplog.KindRead,
		func(ctx context.Context) (finance.Stats, error) {
			return s.tx.Stats(ctx, f)
		})
	if err != nil {
		toJSON(w, http.StatusInternalServerError, errorResponse{Error: "Failed to fetch transactions"})
		return
	}
	if stats.ByCategory == nil {
		stats.ByCategory = []finance.CategoryTotal{}
	}
	toJSON(w, http.StatusOK, stats)
}

// attachCategories denormalizes category records onto transactions. Lookup
// failures leave the slice untouched; denormalization is never worth
// failing a read for.
func (s *Server) attachCategories(ctx context.Context, items []finance.Transaction) []finance.Transaction {
	if len(items) == 0 {
		return items
	}
	cats, err := s.cats.List(ctx)
	if err != nil {
		s.log.Warn("category lookup failed during transform", "error", err.Error())
		return items
	}
	byID := make(map[int64]finance.Category, len(cats))
	for _, c := range cats {
		byID[c.ID] = c
	}
	out := make([]finance.Transaction, len(items))
	for i, t := range items {
		if c, ok := byID[t.CategoryID]; ok {
			cc := c
			t.Category = &cc
		}
		out[i] = t
	}
	return out
}
