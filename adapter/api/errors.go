package api

import (
	"errors"
	"net/http"

	identityDomain "github.com/felixgeelhaar/lakron/internal/identity/domain"
	"github.com/felixgeelhaar/lakron/internal/schedule/application/queries"
	"github.com/felixgeelhaar/lakron/internal/schedule/application/reconcile"
	"github.com/felixgeelhaar/lakron/internal/schedule/domain"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

var (
	badRequest = []error{
		domain.ErrEmptyTitle,
		domain.ErrInvalidDate,
		domain.ErrInvalidTime,
		domain.ErrInvalidPriority,
		domain.ErrInvalidKind,
		domain.ErrMissingRule,
		domain.ErrNotDue,
	}
	notFound = []error{
		domain.ErrNotFound,
		reconcile.ErrTaskNotFound,
		queries.ErrTaskNotFound,
	}
	conflict = []error{
		reconcile.ErrNoProfile,
		reconcile.ErrNotReady,
		identityDomain.ErrNoSession,
	}
)

// statusFor maps an application error onto an HTTP status.
func statusFor(err error) int {
	switch {
	case isAny(err, badRequest):
		return http.StatusBadRequest
	case isAny(err, notFound):
		return http.StatusNotFound
	case isAny(err, conflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func isAny(err error, targets []error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
