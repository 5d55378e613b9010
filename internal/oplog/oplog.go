// Package oplog provides request-scoped operation logging: one "starting"
// line when the operation begins and exactly one "succeeded"/"failed"/warn
// line when it resolves, all tagged with resource, operation, request id and
// the operation kind.
package oplog

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"
	"unicode"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

// Kind tags an operation for log filtering and metrics.
type Kind string

const (
	KindUnknown Kind = ""
	KindRead    Kind = "read"
	KindWrite   Kind = "write"
	KindDelete  Kind = "delete"
)

var (
	readOps   = []string{"list", "getAll", "get", "find", "findMany", "findOne", "count", "stats"}
	deleteOps = []string{"delete", "remove", "destroy"}
)

// Classify derives a Kind from an operation name using word-boundary prefix
// matching, so "updateMany" is a write even though it contains "a". Callers
// should pass an explicit Kind to Start; this exists for call sites that
// only have a name.
func Classify(operation string) Kind {
	for _, w := range readOps {
		if hasWordPrefix(operation, w) {
			return KindRead
		}
	}
	for _, w := range deleteOps {
		if hasWordPrefix(operation, w) {
			return KindDelete
		}
	}
	return KindWrite
}

// hasWordPrefix reports whether op starts with word followed by a word
// boundary (end of string, an upper-case letter, or a non-letter).
func hasWordPrefix(op, word string) bool {
	if !strings.HasPrefix(op, word) {
		return false
	}
	if len(op) == len(word) {
		return true
	}
	next := rune(op[len(word)])
	return unicode.IsUpper(next) || !unicode.IsLetter(next)
}

// Op is a single in-flight operation. Create with Start; finish with
// exactly one of Success or Error.
type Op struct {
	log       *slog.Logger
	resource  string
	operation string
	requestID string
	kind      Kind
	start     time.Time
}

// Start emits the "operation starting" line and returns the Op. An empty
// kind falls back to Classify(operation). The request id is taken from
// chi's RequestID middleware when present, otherwise generated.
func Start(ctx context.Context, log *slog.Logger, resource, operation string, kind Kind) *Op {
	if kind == KindUnknown {
		kind = Classify(operation)
	}
	reqID := chimw.GetReqID(ctx)
	if reqID == "" {
		reqID = uuid.NewString()
	}
	o := &Op{
		log:       log,
		resource:  resource,
		operation: operation,
		requestID: reqID,
		kind:      kind,
		start:     time.Now(),
	}
	o.log.Info("operation starting", o.attrs()...)
	return o
}

func (o *Op) attrs(extra ...any) []any {
	base := []any{
		"resource", o.resource,
		"operation", o.operation,
		"request_id", o.requestID,
		"op_kind", string(o.kind),
	}
	return append(base, extra...)
}

// Success emits the completion line with any extra attributes.
func (o *Op) Success(extra ...any) {
	o.log.Info("operation succeeded", o.attrs(extra...)...)
}

// Warn emits a warning in the operation's context.
func (o *Op) Warn(msg string, extra ...any) {
	o.log.Warn(msg, o.attrs(extra...)...)
}

// Error emits the failure line carrying the underlying error message.
func (o *Op) Error(err error) {
	o.log.Error("operation failed", o.attrs("error", Message(err))...)
}

// ErrorValue is Error for recovered panic values and other non-error
// failures.
func (o *Op) ErrorValue(v any) {
	o.log.Error("operation failed", o.attrs("error", messageOf(v))...)
}

// Message extracts a loggable message from an error, tolerating nil.
func Message(err error) string {
	if err == nil {
		return "<nil>"
	}
	return err.Error()
}

// messageOf renders an arbitrary value: errors and strings verbatim, other
// values via JSON, with a fixed placeholder when serialization fails.
func messageOf(v any) string {
	switch t := v.(type) {
	case nil:
		return "<nil>"
	case error:
		return t.Error()
	case string:
		return t
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "unserializable error value"
	}
	return string(b)
}

// Timed wraps a persistence call with start/finish logs and a duration
// measured on the monotonic clock. Unlike the HTTP error mapper it never
// swallows the error; instrumentation only.
func Timed[T any](ctx context.Context, log *slog.Logger, resource, operation string, kind Kind, fn func(context.Context) (T, error)) (T, error) {
	op := Start(ctx, log, resource, operation, kind)
	out, err := fn(ctx)
	elapsed := time.Since(op.start)
	if err != nil {
		log.Error("operation failed", op.attrs("error", Message(err), "duration_ms", elapsed.Milliseconds())...)
		return out, err
	}
	op.Success("duration_ms", elapsed.Milliseconds())
	return out, nil
}
