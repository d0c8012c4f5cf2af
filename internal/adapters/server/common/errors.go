package common

import (
	"errors"
	"net/http"

	"github.com/hylla/shopfloor/internal/app"
	"github.com/hylla/shopfloor/internal/auth"
	"github.com/hylla/shopfloor/internal/domain"
)

// ErrorClass is the transport-visible classification of one error.
type ErrorClass struct {
	Status int
	Code   string
	Hint   string
}

// Classify maps service errors onto stable codes and HTTP statuses.
func Classify(err error) ErrorClass {
	switch {
	case err == nil:
		return ErrorClass{Status: http.StatusInternalServerError, Code: "internal_error"}
	case errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, auth.ErrUnauthorized):
		return ErrorClass{Status: http.StatusUnauthorized, Code: "unauthorized"}
	case errors.Is(err, ErrForbidden):
		return ErrorClass{Status: http.StatusForbidden, Code: "forbidden"}
	case errors.Is(err, domain.ErrNotFound):
		return ErrorClass{Status: http.StatusNotFound, Code: "not_found"}
	case errors.Is(err, domain.ErrCrossRunMove):
		return ErrorClass{Status: http.StatusConflict, Code: "cross_run_move", Hint: "Cards can only move between lanes of their own run item."}
	case errors.Is(err, domain.ErrInvalidState):
		return ErrorClass{Status: http.StatusConflict, Code: "invalid_state"}
	case errors.Is(err, domain.ErrInUse):
		return ErrorClass{Status: http.StatusConflict, Code: "in_use", Hint: "Delete or archive the referencing records first."}
	case errors.Is(err, auth.ErrEmailTaken):
		return ErrorClass{Status: http.StatusConflict, Code: "conflict"}
	case errors.Is(err, ErrInvalidRequest), errors.Is(err, app.ErrInvalidKey), errors.Is(err, app.ErrUnknownStage),
		errors.Is(err, auth.ErrProtectedUser):
		return ErrorClass{Status: http.StatusBadRequest, Code: "invalid_request"}
	case isValidation(err):
		return ErrorClass{Status: http.StatusUnprocessableEntity, Code: "validation"}
	default:
		return ErrorClass{Status: http.StatusInternalServerError, Code: "internal_error"}
	}
}

func isValidation(err error) bool {
	for _, target := range []error{
		domain.ErrValidation,
		domain.ErrInvalidID,
		domain.ErrInvalidName,
		domain.ErrInvalidText,
		domain.ErrInvalidKind,
		domain.ErrInvalidStatus,
		domain.ErrInvalidQuantity,
		domain.ErrInvalidEmail,
		domain.ErrInvalidRole,
		auth.ErrWeakPassword,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
