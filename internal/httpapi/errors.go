package httpapi

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/ojeda-dev/fintrack/internal/errs"
)

// errorResponse is the standard error payload for the API. Details is
// present only for validation failures.
type errorResponse struct {
	Error   string            `json:"error"`
	Details []errs.FieldError `json:"details,omitempty"`
}

// unexpectedMessage is the fixed client-facing body for errors outside the
// taxonomy; the real message goes to the log only.
const unexpectedMessage = "An unexpected error occurred"

// writeError maps any error to a response and an appropriately leveled log
// entry. First match wins; anything unrecognized becomes a 500 with a fixed
// message so internals never leak.
func writeError(w http.ResponseWriter, log *slog.Logger, err error) {
	var ve *errs.ValidationError
	if errors.As(err, &ve) {
		toJSON(w, http.StatusBadRequest, errorResponse{Error: ve.Error(), Details: ve.Fields})
		return
	}
	var nf *errs.NotFoundError
	if errors.As(err, &nf) {
		log.Warn("resource not found", "error", nf.Error())
		toJSON(w, http.StatusNotFound, errorResponse{Error: nf.Error()})
		return
	}
	var cf *errs.ConflictError
	if errors.As(err, &cf) {
		log.Warn("resource conflict", "error", cf.Error())
		toJSON(w, http.StatusConflict, errorResponse{Error: cf.Error()})
		return
	}
	var br *errs.BadRequestError
	if errors.As(err, &br) {
		log.Warn("bad request", "error", br.Error())
		toJSON(w, http.StatusBadRequest, errorResponse{Error: br.Error()})
		return
	}
	var de *errs.DatabaseError
	if errors.As(err, &de) {
		cause := de.Error()
		if de.Cause != nil {
			cause = de.Cause.Error()
		}
		log.Error("database error", "op", de.Op, "error", cause)
		toJSON(w, http.StatusInternalServerError, errorResponse{Error: unexpectedMessage})
		return
	}
	var ge *errs.Error
	if errors.As(err, &ge) {
		status := ge.StatusCode()
		if status < http.StatusInternalServerError {
			log.Warn("request failed", "status", status, "error", ge.Error())
		} else {
			log.Error("request failed", "status", status, "error", ge.Error())
		}
		toJSON(w, status, errorResponse{Error: ge.Error()})
		return
	}
	log.Error("unexpected error", "error", err.Error())
	toJSON(w, http.StatusInternalServerError, errorResponse{Error: unexpectedMessage})
}
