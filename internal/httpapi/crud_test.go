package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	chi "github.com/go-chi/chi/v5"

	"github.com/ojeda-dev/fintrack/internal/errs"
	"github.com/ojeda-dev/fintrack/internal/finance"
)

// spyStore records calls and returns canned results, so the factory's
// behavior can be asserted independently of any real backend.
type spyStore struct {
	calls []string

	listResult   []finance.Category
	listErr      error
	getResult    finance.Category
	getErr       error
	insertResult finance.Category
	insertErr    error
	updateResult finance.Category
	updateErr    error
	deleteErr    error
}

func (s *spyStore) List(ctx context.Context) ([]finance.Category, error) {
	s.calls = append(s.calls, "list")
	return s.listResult, s.listErr
}

func (s *spyStore) Get(ctx context.Context, id int64) (finance.Category, error) {
	s.calls = append(s.calls, "get")
	return s.getResult, s.getErr
}

func (s *spyStore) Insert(ctx context.Context, in finance.CategoryCreate, now time.Time) (finance.Category, error) {
	s.calls = append(s.calls, "insert")
	return s.insertResult, s.insertErr
}

func (s *spyStore) Update(ctx context.Context, id int64, patch finance.CategoryPatch, now time.Time) (finance.Category, error) {
	s.calls = append(s.calls, "update")
	return s.updateResult, s.updateErr
}

func (s *spyStore) Delete(ctx context.Context, id int64) error {
	s.calls = append(s.calls, "delete")
	return s.deleteErr
}

type spyPublisher struct {
	published []string
	err       error
}

func (p *spyPublisher) ResourceChanged(ctx context.Context, resource, action string, id int64) error {
	p.published = append(p.published, resource+"/"+action)
	return p.err
}

func (p *spyPublisher) Close() error { return nil }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newCrudServer(store *spyStore, pub *spyPublisher) http.Handler {
	crud := NewCrud(CrudConfig[finance.Category, finance.CategoryCreate, finance.CategoryPatch]{
		Store:    store,
		Resource: "categories",
		Display:  "Category",
		ValidateCreate: func(body []byte) (finance.CategoryCreate, []errs.FieldError) {
			var in finance.CategoryCreate
			if err := json.Unmarshal(body, &in); err != nil {
				return in, []errs.FieldError{{Message: "invalid JSON", Type: "invalid"}}
			}
			if in.Name == "" {
				return in, []errs.FieldError{{Field: "name", Message: "name is required", Type: "required"}}
			}
			return in, nil
		},
		ValidateUpdate: func(body []byte) (finance.CategoryPatch, []errs.FieldError) {
			var patch finance.CategoryPatch
			if err := json.Unmarshal(body, &patch); err != nil {
				return patch, []errs.FieldError{{Message: "invalid JSON", Type: "invalid"}}
			}
			return patch, nil
		},
		Events: pub,
		Log:    discardLogger(),
	})
	r := chi.NewRouter()
	crud.Mount(r)
	return r
}

func doRequest(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeErrorBody(t *testing.T, rec *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var resp errorResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding error body %q: %v", rec.Body.String(), err)
	}
	return resp
}

func TestCrudListEmptyIsArray(t *testing.T) {
	store := &spyStore{}
	h := newCrudServer(store, &spyPublisher{})

	rec := doRequest(t, h, http.MethodGet, "/", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != "[]" {
		t.Errorf("body = %q, want []", got)
	}
}

func TestCrudListStoreFailure(t *testing.T) {
	store := &spyStore{listErr: errors.New("disk on fire")}
	h := newCrudServer(store, &spyPublisher{})

	rec := doRequest(t, h, http.MethodGet, "/", "")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	resp := decodeErrorBody(t, rec)
	if resp.Error != "Failed to fetch category" {
		t.Errorf("error = %q", resp.Error)
	}
	if strings.Contains(rec.Body.String(), "disk on fire") {
		t.Error("store failure detail leaked to the client")
	}
}

func TestCrudCreateValidationShortCircuits(t *testing.T) {
	store := &spyStore{}
	h := newCrudServer(store, &spyPublisher{})

	rec := doRequest(t, h, http.MethodPost, "/", `{"type":"expense"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	resp := decodeErrorBody(t, rec)
	if resp.Error != "name is required" {
		t.Errorf("error = %q, want first validation message", resp.Error)
	}
	if len(resp.Details) != 1 || resp.Details[0].Field != "name" {
		t.Errorf("details = %+v", resp.Details)
	}
	if len(store.calls) != 0 {
		t.Errorf("store should not be touched on validation failure, got calls %v", store.calls)
	}
}

func TestCrudCreatePublishesEvent(t *testing.T) {
	store := &spyStore{insertResult: finance.Category{ID: 7, Name: "Books"}}
	pub := &spyPublisher{}
	h := newCrudServer(store, pub)

	rec := doRequest(t, h, http.MethodPost, "/", `{"Name":"Books","Type":"expense"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if len(pub.published) != 1 || pub.published[0] != "categories/created" {
		t.Errorf("published = %v", pub.published)
	}
}

func TestCrudCreateEventFailureIsBestEffort(t *testing.T) {
	store := &spyStore{insertResult: finance.Category{ID: 7, Name: "Books"}}
	pub := &spyPublisher{err: errors.New("broker gone")}
	h := newCrudServer(store, pub)

	rec := doRequest(t, h, http.MethodPost, "/", `{"Name":"Books","Type":"expense"}`)
	if rec.Code != http.StatusCreated {
		t.Errorf("publish failure must not fail the request, status = %d", rec.Code)
	}
}

func TestCrudGetInvalidID(t *testing.T) {
	store := &spyStore{}
	h := newCrudServer(store, &spyPublisher{})

	for _, path := range []string{"/abc", "/0", "/-1"} {
		rec := doRequest(t, h, http.MethodGet, path, "")
		if rec.Code != http.StatusBadRequest {
			t.Errorf("GET %s status = %d, want 400", path, rec.Code)
		}
	}
	if len(store.calls) != 0 {
		t.Errorf("store should not be touched for invalid ids, got %v", store.calls)
	}
}

func TestCrudGetNotFound(t *testing.T) {
	store := &spyStore{getErr: errs.ErrNotFound}
	h := newCrudServer(store, &spyPublisher{})

	rec := doRequest(t, h, http.MethodGet, "/99999", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
	resp := decodeErrorBody(t, rec)
	if resp.Error != "Category not found" {
		t.Errorf("error = %q", resp.Error)
	}
}

func TestCrudGetWrappedNotFound(t *testing.T) {
	store := &spyStore{getErr: &errs.NotFoundError{Resource: "Category"}}
	h := newCrudServer(store, &spyPublisher{})

	rec := doRequest(t, h, http.MethodGet, "/5", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("typed not-found should map to 404, got %d", rec.Code)
	}
}

func TestCrudUpdateNotFound(t *testing.T) {
	store := &spyStore{updateErr: errs.ErrNotFound}
	h := newCrudServer(store, &spyPublisher{})

	rec := doRequest(t, h, http.MethodPut, "/3", `{}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
	resp := decodeErrorBody(t, rec)
	if resp.Error != "Category not found" {
		t.Errorf("error = %q", resp.Error)
	}
}

func TestCrudDelete(t *testing.T) {
	store := &spyStore{}
	pub := &spyPublisher{}
	h := newCrudServer(store, pub)

	rec := doRequest(t, h, http.MethodDelete, "/3", "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec.Body.Len() != 0 {
		t.Errorf("204 must have no body, got %q", rec.Body.String())
	}
	if len(pub.published) != 1 || pub.published[0] != "categories/deleted" {
		t.Errorf("published = %v", pub.published)
	}
}

func TestCrudDeleteStoreFailure(t *testing.T) {
	store := &spyStore{deleteErr: errors.New("timeout")}
	h := newCrudServer(store, &spyPublisher{})

	rec := doRequest(t, h, http.MethodDelete, "/3", "")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	resp := decodeErrorBody(t, rec)
	if resp.Error != "Failed to delete category" {
		t.Errorf("error = %q", resp.Error)
	}
}

func TestCrudTransformApplied(t *testing.T) {
	store := &spyStore{listResult: []finance.Category{{ID: 1, Name: "raw"}}}
	crud := NewCrud(CrudConfig[finance.Category, finance.CategoryCreate, finance.CategoryPatch]{
		Store:    store,
		Resource: "categories",
		Display:  "Category",
		ValidateCreate: func([]byte) (finance.CategoryCreate, []errs.FieldError) {
			return finance.CategoryCreate{}, nil
		},
		ValidateUpdate: func([]byte) (finance.CategoryPatch, []errs.FieldError) {
			return finance.CategoryPatch{}, nil
		},
		Transform: func(ctx context.Context, items []finance.Category) []finance.Category {
			out := make([]finance.Category, len(items))
			for i, c := range items {
				c.Name = strings.ToUpper(c.Name)
				out[i] = c
			}
			return out
		},
		Log: discardLogger(),
	})
	r := chi.NewRouter()
	crud.Mount(r)

	rec := doRequest(t, r, http.MethodGet, "/", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var got []finance.Category
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 1 || got[0].Name != "RAW" {
		t.Errorf("transform not applied: %+v", got)
	}
}

func TestCrudCreateStampsServerTime(t *testing.T) {
	fixed := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	var stamped time.Time
	store := &stampStore{spyStore: &spyStore{insertResult: finance.Category{ID: 1}}, onInsert: func(now time.Time) { stamped = now }}
	crud := NewCrud(CrudConfig[finance.Category, finance.CategoryCreate, finance.CategoryPatch]{
		Store:    store,
		Resource: "categories",
		Display:  "Category",
		ValidateCreate: func([]byte) (finance.CategoryCreate, []errs.FieldError) {
			return finance.CategoryCreate{}, nil
		},
		ValidateUpdate: func([]byte) (finance.CategoryPatch, []errs.FieldError) {
			return finance.CategoryPatch{}, nil
		},
		Log: discardLogger(),
		Now: func() time.Time { return fixed },
	})
	r := chi.NewRouter()
	crud.Mount(r)

	rec := doRequest(t, r, http.MethodPost, "/", `{}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d", rec.Code)
	}
	if !stamped.Equal(fixed) {
		t.Errorf("insert now = %v, want the injected clock %v", stamped, fixed)
	}
}

type stampStore struct {
	*spyStore
	onInsert func(now time.Time)
}

func (s *stampStore) Insert(ctx context.Context, in finance.CategoryCreate, now time.Time) (finance.Category, error) {
	s.onInsert(now)
	return s.spyStore.Insert(ctx, in, now)
}
