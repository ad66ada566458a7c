package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/ds124wfegd/tablebooker/internal/entity"
	"github.com/lib/pq"
)

// Postgres error codes that mean another transaction got there first
const (
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeUniqueViolation      = "23505"
)

// classify maps a driver error to ErrConcurrentConflict or ErrPersistenceFailure.
func classify(op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("failed to %s: %w", op, err)
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case codeSerializationFailure, codeDeadlockDetected, codeUniqueViolation:
			return fmt.Errorf("%w: %s: %v", entity.ErrConcurrentConflict, op, pqErr.Message)
		}
	}

	return fmt.Errorf("%w: failed to %s: %v", entity.ErrPersistenceFailure, op, err)
}
