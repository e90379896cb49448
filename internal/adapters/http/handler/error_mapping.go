package handler

import (
	"errors"
	"net/http"

	"github.com/ogurasousui/staffing-ledger/internal/core/assignment"
	"github.com/ogurasousui/staffing-ledger/internal/core/client"
	"github.com/ogurasousui/staffing-ledger/internal/core/employee"
)

// httpError はエラーレスポンスのステータスと本文です。
type httpError struct {
	Status  int
	Code    string
	Message string
}

const internalErrorMessage = "internal error"

func toHTTPError(err error) httpError {
	switch kind := assignment.KindOf(err); kind {
	case assignment.KindValidation:
		return httpError{Status: http.StatusBadRequest, Code: kind.String(), Message: err.Error()}
	case assignment.KindDuplicate:
		return httpError{Status: http.StatusConflict, Code: kind.String(), Message: err.Error()}
	case assignment.KindNoActive, assignment.KindNotFound:
		return httpError{Status: http.StatusNotFound, Code: kind.String(), Message: err.Error()}
	case assignment.KindDatastore:
		return httpError{Status: http.StatusInternalServerError, Code: kind.String(), Message: internalErrorMessage}
	}

	switch {
	case errors.Is(err, errInvalidRequest),
		errors.Is(err, client.ErrInvalidName),
		errors.Is(err, client.ErrInvalidStatus),
		errors.Is(err, client.ErrInvalidEmail),
		errors.Is(err, client.ErrInvalidRequestedPosition),
		errors.Is(err, client.ErrInvalidID),
		errors.Is(err, client.ErrNoFieldsToUpdate),
		errors.Is(err, client.ErrInvalidPageSize),
		errors.Is(err, client.ErrInvalidPageToken),
		errors.Is(err, employee.ErrInvalidID),
		errors.Is(err, employee.ErrInvalidName),
		errors.Is(err, employee.ErrInvalidLocation),
		errors.Is(err, employee.ErrInvalidHierarchy),
		errors.Is(err, employee.ErrInvalidSkill),
		errors.Is(err, employee.ErrNoFieldsToUpdate),
		errors.Is(err, employee.ErrInvalidPageSize),
		errors.Is(err, employee.ErrInvalidPageToken):
		return httpError{Status: http.StatusBadRequest, Code: "validation", Message: err.Error()}
	case errors.Is(err, client.ErrNameAlreadyExists),
		errors.Is(err, client.ErrClientHasAssignments),
		errors.Is(err, employee.ErrEmployeeHasAssignments):
		return httpError{Status: http.StatusConflict, Code: "conflict", Message: err.Error()}
	case errors.Is(err, client.ErrClientNotFound), errors.Is(err, employee.ErrEmployeeNotFound):
		return httpError{Status: http.StatusNotFound, Code: "not_found", Message: err.Error()}
	default:
		return httpError{Status: http.StatusInternalServerError, Code: "internal", Message: internalErrorMessage}
	}
}
