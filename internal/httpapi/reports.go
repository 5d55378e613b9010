package httpapi

import (
	"context"
	"net/http"
	"strconv"

	"github.com/govalues/money"

	"github.com/ojeda-dev/fintrack/internal/errs"
	"github.com/ojeda-dev/fintrack/internal/finance"
	"github.com/ojeda-dev/fintrack/internal/oplog"
)

// balanceEntry is one currency's position in the balance summary. Raw
// figures are minor units; the formatted block is produced with exact
// decimal arithmetic so totals never drift.
type balanceEntry struct {
	Currency  string           `json:"currency"`
	Income    int64            `json:"income"`
	Expense   int64            `json:"expense"`
	Net       int64            `json:"net"`
	Formatted balanceFormatted `json:"formatted"`
}

type balanceFormatted struct {
	Income  string `json:"income"`
	Expense string `json:"expense"`
	Net     string `json:"net"`
}

// balance handles GET /balance: income, expense and net per currency across
// all transactions.
func (s *Server) balance(w http.ResponseWriter, r *http.Request) {
	totals, err := oplog.Timed(r.Context(), s.log, "balance", "getAll", oplog.KindRead,
		func(ctx context.Context) ([]finance.CurrencyTotal, error) {
			return s.reports.BalanceTotals(ctx)
		})
	if err != nil {
		toJSON(w, http.StatusInternalServerError, errorResponse{Error: "Failed to fetch balance"})
		return
	}

	out := make([]balanceEntry, 0, len(totals))
	for _, t := range totals {
		entry, err := formatBalance(t)
		if err != nil {
			s.log.Error("balance formatting failed", "currency", t.Currency, "error", err.Error())
			toJSON(w, http.StatusInternalServerError, errorResponse{Error: "Failed to fetch balance"})
			return
		}
		out = append(out, entry)
	}
	toJSON(w, http.StatusOK, out)
}

func formatBalance(t finance.CurrencyTotal) (balanceEntry, error) {
	income, err := money.NewAmountFromMinorUnits(t.Currency, t.Income)
	if err != nil {
		return balanceEntry{}, err
	}
	expense, err := money.NewAmountFromMinorUnits(t.Currency, t.Expense)
	if err != nil {
		return balanceEntry{}, err
	}
	net, err := income.Sub(expense)
	if err != nil {
		return balanceEntry{}, err
	}
	return balanceEntry{
		Currency: t.Currency,
		Income:   t.Income,
		Expense:  t.Expense,
		Net:      t.Income - t.Expense,
		Formatted: balanceFormatted{
			Income:  income.String(),
			Expense: expense.String(),
			Net:     net.String(),
		},
	}, nil
}

// monthlyReport handles GET /reports/monthly?year=YYYY: twelve rows of
// income, expense and net for the given year.
func (s *Server) monthlyReport(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("year")
	year, err := strconv.Atoi(raw)
	if err != nil || year < 1 || year > 9999 {
		ferr := errs.FieldError{Field: "year", Message: "year must be a four-digit number", Type: "invalid"}
		toJSON(w, http.StatusBadRequest, errorResponse{Error: ferr.Message, Details: []errs.FieldError{ferr}})
		return
	}

	rows, err := oplog.Timed(r.Context(), s.log, "reports", "findMonthly", oplog.KindRead,
		func(ctx context.Context) ([]finance.MonthlyRow, error) {
			return s.reports.MonthlyReport(ctx, year)
		})
	if err != nil {
		toJSON(w, http.StatusInternalServerError, errorResponse{Error: "Failed to fetch reports"})
		return
	}
	if rows == nil {
		rows = []finance.MonthlyRow{}
	}
	toJSON(w, http.StatusOK, rows)
}
