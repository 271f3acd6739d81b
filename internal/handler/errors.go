package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/mel-roster/internal/document"
	"github.com/iliyamo/mel-roster/internal/member"
	"github.com/iliyamo/mel-roster/internal/model"
	"github.com/iliyamo/mel-roster/internal/repository"
	"github.com/iliyamo/mel-roster/internal/review"
	"github.com/iliyamo/mel-roster/internal/rosterclient"
	"github.com/iliyamo/mel-roster/internal/seniorrater"
	"github.com/iliyamo/mel-roster/internal/workflow"
)

// badRequest lists the validation errors raised before any remote call.
var badRequest = []error{
	workflow.ErrEmptyFile,
	workflow.ErrCycleRequired,
	model.ErrUnknownKind,
	model.ErrUnknownCategory,
	model.ErrUnknownCycle,
	model.ErrUnknownGrade,
	model.ErrUnknownField,
	model.ErrYearOutOfRange,
	member.ErrAddReasonRequired,
	member.ErrDeleteReasonRequired,
	member.ErrMissingFields,
	member.ErrCategoryNotAddable,
	member.ErrConfirmationRequired,
	seniorrater.ErrUnknownPascode,
	seniorrater.ErrSmallUnitNotNeeded,
	seniorrater.ErrIncomplete,
	review.ErrInvalidPage,
	review.ErrInvalidPageSize,
	rosterclient.ErrLogoEmpty,
	rosterclient.ErrLogoTooLarge,
	rosterclient.ErrLogoType,
	rosterclient.ErrEmptyMemberID,
}

var conflict = []error{
	workflow.ErrInvalidStep,
	workflow.ErrBusy,
	workflow.ErrSuperseded,
	workflow.ErrSessionMissing,
	review.ErrNotLoaded,
}

var notFound = []error{
	workflow.ErrNotFound,
	workflow.ErrNoDocument,
	member.ErrMemberNotFound,
	document.ErrNotFound,
}

func isAny(err error, targets []error) bool {
	for _, t := range targets {
		if errors.Is(err, t) {
			return true
		}
	}
	return false
}

// statusOf maps an error to its HTTP status and user facing message.
func statusOf(err error) (int, string) {
	var se *rosterclient.ServiceError
	switch {
	case errors.As(err, &se):
		return http.StatusBadGateway, se.Message()
	case errors.Is(err, document.ErrEmptyDocument):
		return http.StatusBadGateway, err.Error()
	case isAny(err, badRequest):
		return http.StatusBadRequest, err.Error()
	case isAny(err, conflict):
		return http.StatusConflict, err.Error()
	case isAny(err, notFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, document.ErrInvalidToken):
		return http.StatusUnauthorized, err.Error()
	case errors.Is(err, repository.ErrUnavailable):
		return http.StatusServiceUnavailable, err.Error()
	}
	return http.StatusInternalServerError, "internal error"
}

// writeError responds with {"error": message}.  Unexpected errors are
// logged since their text never reaches the client.
func writeError(c echo.Context, err error) error {
	status, msg := statusOf(err)
	if status == http.StatusInternalServerError {
		log.Printf("handler: %s %s: %v", c.Request().Method, c.Path(), err)
	}
	return c.JSON(status, echo.Map{"error": msg})
}
