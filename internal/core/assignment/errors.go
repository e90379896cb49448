package assignment

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidEmployeeID         = errors.New("assignment: invalid employee id")
	ErrInvalidClientID           = errors.New("assignment: invalid client id")
	ErrInvalidProjectName        = errors.New("assignment: invalid project name")
	ErrFutureStartDate           = errors.New("assignment: start date is in the future")
	ErrInvalidEndDate            = errors.New("assignment: end date precedes start date")
	ErrDuplicateActiveAssignment = errors.New("assignment: employee is already actively assigned to this client")
	ErrNoActiveAssignment        = errors.New("assignment: no active assignment for this employee and client")
	ErrAssignmentAlreadyEnded    = errors.New("assignment: already ended")
	ErrAssignmentNotFound        = errors.New("assignment: not found")
	ErrClientNotFound            = errors.New("assignment: client not found")
	ErrEmployeeNotFound          = errors.New("assignment: employee not found")
)

// Kind は呼び出し側がステータスへ変換するためのエラー種別です。
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindDuplicate
	KindNoActive
	KindNotFound
	KindDatastore
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindDuplicate:
		return "duplicate_active_assignment"
	case KindNoActive:
		return "no_active_assignment"
	case KindNotFound:
		return "not_found"
	case KindDatastore:
		return "datastore"
	default:
		return "unknown"
	}
}

// DatastoreError は永続化層の障害（接続断、制約違反、タイムアウト）を表します。
type DatastoreError struct {
	Op  string
	Err error
}

func (e *DatastoreError) Error() string {
	return fmt.Sprintf("assignment: %s: datastore: %v", e.Op, e.Err)
}

func (e *DatastoreError) Unwrap() error {
	return e.Err
}

// KindOf は err を種別に分類します。
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindUnknown
	case errors.Is(err, ErrInvalidEmployeeID),
		errors.Is(err, ErrInvalidClientID),
		errors.Is(err, ErrInvalidProjectName),
		errors.Is(err, ErrFutureStartDate),
		errors.Is(err, ErrInvalidEndDate):
		return KindValidation
	case errors.Is(err, ErrDuplicateActiveAssignment):
		return KindDuplicate
	case errors.Is(err, ErrNoActiveAssignment), errors.Is(err, ErrAssignmentAlreadyEnded):
		return KindNoActive
	case errors.Is(err, ErrAssignmentNotFound),
		errors.Is(err, ErrClientNotFound),
		errors.Is(err, ErrEmployeeNotFound):
		return KindNotFound
	}

	var dsErr *DatastoreError
	if errors.As(err, &dsErr) {
		return KindDatastore
	}
	return KindUnknown
}

// wrapDatastore はドメインエラー以外（タイムアウトを含む）を DatastoreError で包みます。
func wrapDatastore(op string, err error) error {
	if err == nil {
		return nil
	}
	if kind := KindOf(err); kind != KindUnknown {
		return err
	}
	return &DatastoreError{Op: op, Err: err}
}
