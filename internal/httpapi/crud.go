package httpapi

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	chi "github.com/go-chi/chi/v5"

	"github.com/ojeda-dev/fintrack/internal/errs"
	"github.com/ojeda-dev/fintrack/internal/events"
	"github.com/ojeda-dev/fintrack/internal/oplog"
	"github.com/ojeda-dev/fintrack/internal/validate"
)

// maxBodyBytes caps request bodies accepted by the CRUD handlers.
const maxBodyBytes = 1 << 20

// CrudConfig wires one resource into the generic handler set. Store,
// Resource, Display and the validators are required; Transform, Events and
// Now are optional.
type CrudConfig[T, C, P any] struct {
	Store    Store[T, C, P]
	Resource string // plural, lowercase: "transactions"
	Display  string // capitalized singular: "Transaction"

	ValidateCreate func(body []byte) (C, []errs.FieldError)
	ValidateUpdate func(body []byte) (P, []errs.FieldError)
	// ValidateID defaults to validate.ID (positive integer).
	ValidateID func(raw string) (int64, []errs.FieldError)

	// Transform reshapes records before they are written to the response,
	// e.g. to attach denormalized category data. It must tolerate any slice
	// it is given and never fail the request.
	Transform func(ctx context.Context, items []T) []T

	// Events receives a best-effort notification after each successful
	// mutation.
	Events events.Publisher

	Log *slog.Logger
	Now func() time.Time
}

// Crud holds the five generic handlers for one resource. All handlers share
// one failure and logging discipline: validation failures answer 400 with
// the first message plus full details, missing rows answer 404 with
// "<Display> not found", and persistence failures answer 500 with a fixed
// per-verb message while the cause goes to the log.
type Crud[T, C, P any] struct {
	store     Store[T, C, P]
	resource  string
	display   string
	singular  string
	vCreate   func([]byte) (C, []errs.FieldError)
	vUpdate   func([]byte) (P, []errs.FieldError)
	vID       func(string) (int64, []errs.FieldError)
	transform func(context.Context, []T) []T
	events    events.Publisher
	log       *slog.Logger
	now       func() time.Time
}

// NewCrud builds the handler set from cfg, filling in defaults.
func NewCrud[T, C, P any](cfg CrudConfig[T, C, P]) *Crud[T, C, P] {
	c := &Crud[T, C, P]{
		store:     cfg.Store,
		resource:  cfg.Resource,
		display:   cfg.Display,
		singular:  strings.ToLower(cfg.Display),
		vCreate:   cfg.ValidateCreate,
		vUpdate:   cfg.ValidateUpdate,
		vID:       cfg.ValidateID,
		transform: cfg.Transform,
		events:    cfg.Events,
		log:       cfg.Log,
		now:       cfg.Now,
	}
	if c.vID == nil {
		c.vID = validate.ID
	}
	if c.events == nil {
		c.events = events.Nop{}
	}
	if c.log == nil {
		c.log = slog.Default()
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c
}

// Mount registers the five routes on r relative to the resource root.
func (c *Crud[T, C, P]) Mount(r chi.Router) {
	r.Get("/", c.List)
	r.Post("/", c.Create)
	r.Get("/{id}", c.Get)
	r.Put("/{id}", c.Update)
	r.Delete("/{id}", c.Delete)
}

func (c *Crud[T, C, P]) List(w http.ResponseWriter, r *http.Request) {
	op := oplog.Start(r.Context(), c.log, c.resource, "getAll", oplog.KindRead)
	items, err := c.store.List(r.Context())
	if err != nil {
		op.Error(err)
		toJSON(w, http.StatusInternalServerError, errorResponse{Error: "Failed to fetch " + c.singular})
		return
	}
	if c.transform != nil {
		items = c.transform(r.Context(), items)
	}
	if items == nil {
		items = []T{}
	}
	op.Success("count", len(items))
	toJSON(w, http.StatusOK, items)
}

func (c *Crud[T, C, P]) Get(w http.ResponseWriter, r *http.Request) {
	op := oplog.Start(r.Context(), c.log, c.resource, "getById", oplog.KindRead)
	id, ferrs := c.vID(chi.URLParam(r, "id"))
	if len(ferrs) > 0 {
		op.Warn("invalid id", "error", ferrs[0].Message)
		toJSON(w, http.StatusBadRequest, errorResponse{Error: ferrs[0].Message, Details: ferrs})
		return
	}
	item, err := c.store.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			op.Warn(c.singular+" not found", "id", id)
			toJSON(w, http.StatusNotFound, errorResponse{Error: c.display + " not found"})
			return
		}
		op.Error(err)
		toJSON(w, http.StatusInternalServerError, errorResponse{Error: "Failed to fetch " + c.singular})
		return
	}
	if c.transform != nil {
		if out := c.transform(r.Context(), []T{item}); len(out) == 1 {
			item = out[0]
		}
	}
	op.Success("id", id)
	toJSON(w, http.StatusOK, item)
}

func (c *Crud[T, C, P]) Create(w http.ResponseWriter, r *http.Request) {
	op := oplog.Start(r.Context(), c.log, c.resource, "create", oplog.KindWrite)
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		op.Warn("unreadable body", "error", err.Error())
		toJSON(w, http.StatusBadRequest, errorResponse{Error: "could not read request body"})
		return
	}
	in, ferrs := c.vCreate(body)
	if len(ferrs) > 0 {
		op.Warn("validation failed", "errors", len(ferrs))
		toJSON(w, http.StatusBadRequest, errorResponse{Error: ferrs[0].Message, Details: ferrs})
		return
	}
	item, err := c.store.Insert(r.Context(), in, c.now().UTC())
	if err != nil {
		if errors.Is(err, errs.ErrConflict) {
			op.Warn(c.singular+" already exists", "error", err.Error())
			toJSON(w, http.StatusConflict, errorResponse{Error: c.display + " already exists"})
			return
		}
		op.Error(err)
		toJSON(w, http.StatusInternalServerError, errorResponse{Error: "Failed to create " + c.singular})
		return
	}
	c.notify(r.Context(), op, events.ActionCreated, recordID(item))
	op.Success("id", recordID(item))
	toJSON(w, http.StatusCreated, item)
}

func (c *Crud[T, C, P]) Update(w http.ResponseWriter, r *http.Request) {
	op := oplog.Start(r.Context(), c.log, c.resource, "update", oplog.KindWrite)
	id, ferrs := c.vID(chi.URLParam(r, "id"))
	if len(ferrs) > 0 {
		op.Warn("invalid id", "error", ferrs[0].Message)
		toJSON(w, http.StatusBadRequest, errorResponse{Error: ferrs[0].Message, Details: ferrs})
		return
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		op.Warn("unreadable body", "error", err.Error())
		toJSON(w, http.StatusBadRequest, errorResponse{Error: "could not read request body"})
		return
	}
	patch, ferrs := c.vUpdate(body)
	if len(ferrs) > 0 {
		op.Warn("validation failed", "errors", len(ferrs))
		toJSON(w, http.StatusBadRequest, errorResponse{Error: ferrs[0].Message, Details: ferrs})
		return
	}
	item, err := c.store.Update(r.Context(), id, patch, c.now().UTC())
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			op.Warn(c.singular+" not found", "id", id)
			toJSON(w, http.StatusNotFound, errorResponse{Error: c.display + " not found"})
			return
		}
		if errors.Is(err, errs.ErrConflict) {
			op.Warn(c.singular+" already exists", "id", id, "error", err.Error())
			toJSON(w, http.StatusConflict, errorResponse{Error: c.display + " already exists"})
			return
		}
		op.Error(err)
		toJSON(w, http.StatusInternalServerError, errorResponse{Error: "Failed to update " + c.singular})
		return
	}
	c.notify(r.Context(), op, events.ActionUpdated, id)
	op.Success("id", id)
	toJSON(w, http.StatusOK, item)
}

func (c *Crud[T, C, P]) Delete(w http.ResponseWriter, r *http.Request) {
	op := oplog.Start(r.Context(), c.log, c.resource, "delete", oplog.KindDelete)
	id, ferrs := c.vID(chi.URLParam(r, "id"))
	if len(ferrs) > 0 {
		op.Warn("invalid id", "error", ferrs[0].Message)
		toJSON(w, http.StatusBadRequest, errorResponse{Error: ferrs[0].Message, Details: ferrs})
		return
	}
	if err := c.store.Delete(r.Context(), id); err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			op.Warn(c.singular+" not found", "id", id)
			toJSON(w, http.StatusNotFound, errorResponse{Error: c.display + " not found"})
			return
		}
		op.Error(err)
		toJSON(w, http.StatusInternalServerError, errorResponse{Error: "Failed to delete " + c.singular})
		return
	}
	c.notify(r.Context(), op, events.ActionDeleted, id)
	op.Success("id", id)
	w.WriteHeader(http.StatusNoContent)
}

// notify publishes a mutation event; failures are logged, never surfaced.
func (c *Crud[T, C, P]) notify(ctx context.Context, op *oplog.Op, action string, id int64) {
	if err := c.events.ResourceChanged(ctx, c.resource, action, id); err != nil {
		op.Warn("event publish failed", "action", action, "error", err.Error())
	}
}

// recordID pulls the store-assigned id off a record, zero when the record
// type does not expose one.
func recordID(v any) int64 {
	if r, ok := v.(interface{ RecordID() int64 }); ok {
		return r.RecordID()
	}
	return 0
}
