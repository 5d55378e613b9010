// Subscription routes: generic CRUD plus the due listing and the manual
// billing-cycle advance used by the background processor and the API.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	chi "github.com/go-chi/chi/v5"

	"github.com/ojeda-dev/fintrack/internal/errs"
	"github.com/ojeda-dev/fintrack/internal/events"
	"github.com/ojeda-dev/fintrack/internal/finance"
	"github.com/ojeda-dev/fintrack/internal/oplog"
	"github.com/ojeda-dev/fintrack/internal/validate"
)

func (s *Server) subscriptionRoutes(r chi.Router) {
	crud := NewCrud(CrudConfig[finance.Subscription, finance.SubscriptionCreate, finance.SubscriptionPatch]{
		Store:          s.subs,
		Resource:       "subscriptions",
		Display:        "Subscription",
		ValidateCreate: validate.SubscriptionCreate,
		ValidateUpdate: validate.SubscriptionPatch,
		Events:         s.events,
		Log:            s.log,
		Now:            s.now,
	})

	r.Get("/", crud.List)
	r.Get("/due", s.listDueSubscriptions)
	r.Post("/", crud.Create)
	r.Get("/{id}", crud.Get)
	r.Put("/{id}", crud.Update)
	r.Delete("/{id}", crud.Delete)
	r.Post("/{id}/advance", s.advanceSubscription)
}

// listDueSubscriptions handles GET /subscriptions/due: active subscriptions
// whose next billing date is today or earlier.
func (s *Server) listDueSubscriptions(w http.ResponseWriter, r *http.Request) {
	today := finance.DateOf(s.now().UTC())
	items, err := oplog.Timed(r.Context(), s.log, "subscriptions", "findDue", oplog.KindRead,
		func(ctx context.Context) ([]finance.Subscription, error) {
			return s.subs.ListDue(ctx, today)
		})
	if err != nil {
		toJSON(w, http.StatusInternalServerError, errorResponse{Error: "Failed to fetch subscriptions"})
		return
	}
	if items == nil {
		items = []finance.Subscription{}
	}
	toJSON(w, http.StatusOK, items)
}

// advanceSubscription handles POST /subscriptions/{id}/advance: roll the
// subscription forward one cycle and record the expense for the cycle just
// closed.
func (s *Server) advanceSubscription(w http.ResponseWriter, r *http.Request) {
	id, ferrs := validate.ID(chi.URLParam(r, "id"))
	if len(ferrs) > 0 {
		toJSON(w, http.StatusBadRequest, errorResponse{Error: ferrs[0].Message, Details: ferrs})
		return
	}

	op := oplog.Start(r.Context(), s.log, "subscriptions", "advance", oplog.KindWrite)
	updated, err := s.advance(r.Context(), id)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			op.Warn("subscription not found", "id", id)
			toJSON(w, http.StatusNotFound, errorResponse{Error: "Subscription not found"})
			return
		}
		var bad *errs.BadRequestError
		if errors.As(err, &bad) {
			op.Warn(bad.Message, "id", id)
			toJSON(w, http.StatusBadRequest, errorResponse{Error: bad.Message})
			return
		}
		op.Error(err)
		toJSON(w, http.StatusInternalServerError, errorResponse{Error: "Failed to update subscription"})
		return
	}
	op.Success("id", updated.ID, "next_billing_date", updated.NextBillingDate.String())
	toJSON(w, http.StatusOK, updated)
}

// advance performs one billing cycle for a subscription: move the next
// billing date forward, then insert the expense for the cycle just closed.
// The date rolls first so a retry after a partial failure can never charge
// the same cycle twice; if the charge insert fails, the roll is undone so
// the cycle is picked up again on the next pass. Shared by the HTTP handler
// and the background billing processor.
func (s *Server) advance(ctx context.Context, id int64) (finance.Subscription, error) {
	sub, err := s.subs.Get(ctx, id)
	if err != nil {
		return finance.Subscription{}, err
	}
	if !sub.Active {
		return finance.Subscription{}, &errs.BadRequestError{Message: "Subscription is not active"}
	}

	now := s.now().UTC()
	next := finance.NextBillingDate(sub.NextBillingDate, sub.Frequency, sub.NextBillingDate)
	updated, err := s.subs.Update(ctx, id, finance.SubscriptionPatch{NextBillingDate: &next}, now)
	if err != nil {
		return finance.Subscription{}, fmt.Errorf("rolling billing date: %w", err)
	}

	_, err = s.tx.Insert(ctx, finance.TransactionCreate{
		Amount:      sub.Amount,
		Type:        finance.TypeExpense,
		CategoryID:  sub.CategoryID,
		Description: fmt.Sprintf("Subscription: %s", sub.Name),
		Date:        sub.NextBillingDate,
		Currency:    sub.Currency,
	}, now)
	if err != nil {
		prev := sub.NextBillingDate
		if _, rerr := s.subs.Update(ctx, id, finance.SubscriptionPatch{NextBillingDate: &prev}, now); rerr != nil {
			s.log.Error("failed to restore billing date after charge failure",
				"resource", "subscriptions", "id", id, "error", rerr.Error())
		}
		return finance.Subscription{}, fmt.Errorf("recording subscription charge: %w", err)
	}

	if err := s.events.ResourceChanged(ctx, "subscriptions", events.ActionUpdated, updated.ID); err != nil {
		s.log.Warn("event publish failed", "resource", "subscriptions", "id", updated.ID, "error", err.Error())
	}
	return updated, nil
}
