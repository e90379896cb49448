package employee

import "errors"

var (
	ErrInvalidID              = errors.New("employee: invalid id")
	ErrInvalidName            = errors.New("employee: invalid name")
	ErrInvalidLocation        = errors.New("employee: invalid location")
	ErrInvalidHierarchy       = errors.New("employee: invalid hierarchy")
	ErrInvalidSkill           = errors.New("employee: invalid skill")
	ErrInvalidPageSize        = errors.New("employee: invalid page size")
	ErrInvalidPageToken       = errors.New("employee: invalid page token")
	ErrNoFieldsToUpdate       = errors.New("employee: no fields provided to update")
	ErrEmployeeNotFound       = errors.New("employee: not found")
	ErrEmployeeHasAssignments = errors.New("employee: referenced by assignment history")
)
