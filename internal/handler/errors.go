package handler

import (
	"encoding/json"
	"errors"

	"github.com/go-playground/validator/v10"

	"github.com/jwalitptl/clinic-schedule/internal/repository"
	"github.com/jwalitptl/clinic-schedule/internal/service/calendar"
	"github.com/jwalitptl/clinic-schedule/internal/service/emergency"
	"github.com/jwalitptl/clinic-schedule/internal/service/grid"
	"github.com/jwalitptl/clinic-schedule/internal/service/schedule"
	"github.com/jwalitptl/clinic-schedule/internal/service/sloteditor"
	apperrors "github.com/jwalitptl/clinic-schedule/pkg/errors"
	schedvalidator "github.com/jwalitptl/clinic-schedule/pkg/validator"
)

var badRequest = []error{
	schedule.ErrInvalidWeekday,
	schedule.ErrInvalidStatus,
	schedule.ErrNotDoctor,
	schedule.ErrNoClinic,
	sloteditor.ErrDeleteNotAllowed,
	emergency.ErrInvalidMode,
	emergency.ErrUnknownDay,
	calendar.ErrOutsideGrid,
	calendar.ErrInvalidWeekStart,
	grid.ErrNoEditorGiven,
}

var conflict = []error{
	schedule.ErrEmptyClipboard,
	schedule.ErrStoreClosed,
	grid.ErrDayNotOpen,
	calendar.ErrDragInProgress,
}

var notFound = []error{
	repository.ErrNotFound,
	grid.ErrSlotNotFound,
	emergency.ErrSlotNotFound,
	calendar.ErrUnknownAppointment,
}

// MapError turns service errors into the AppError the client sees.
func MapError(err error) *apperrors.AppError {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	var slotErrs sloteditor.ValidationErrors
	if errors.As(err, &slotErrs) {
		return apperrors.NewValidation(slotErrs)
	}
	var bindErrs validator.ValidationErrors
	if errors.As(err, &bindErrs) {
		return apperrors.NewValidation(schedvalidator.Translate(bindErrs))
	}
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return apperrors.BadRequest("malformed request body", err)
	}

	for _, target := range badRequest {
		if errors.Is(err, target) {
			return apperrors.BadRequest(err.Error(), err)
		}
	}
	for _, target := range conflict {
		if errors.Is(err, target) {
			return apperrors.NewConflict(err.Error(), err)
		}
	}
	for _, target := range notFound {
		if errors.Is(err, target) {
			return &apperrors.AppError{Code: apperrors.ErrNotFound, Message: err.Error(), Err: err}
		}
	}
	return apperrors.Internal(err)
}
