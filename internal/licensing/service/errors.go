package service

import (
	"errors"
	"fmt"
)

// Error kinds surfaced to callers. Services wrap them with a human readable
// detail, so match with errors.Is.
var (
	ErrUnauthenticated  = errors.New("unauthenticated")
	ErrPermissionDenied = errors.New("permission denied")
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrNotFound         = errors.New("not found")
	ErrAlreadyExists    = errors.New("already exists")
	ErrInternal         = errors.New("internal error")
)

func invalidArgument(detail string) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, detail)
}

func permissionDenied(detail string) error {
	return fmt.Errorf("%w: %s", ErrPermissionDenied, detail)
}

func notFound(detail string) error {
	return fmt.Errorf("%w: %s", ErrNotFound, detail)
}

// internal hides the cause from callers while keeping it for logs.
func internal(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrInternal, op, err)
}
