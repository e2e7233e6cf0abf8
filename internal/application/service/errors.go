package service

import (
	"errors"
	"fmt"

	appwf "github.com/garyjia/routine-ops/internal/application/workflow"
	domainwf "github.com/garyjia/routine-ops/internal/domain/workflow"
)

var (
	// ErrInvalidInput marks malformed requests, e.g. an unparseable date
	ErrInvalidInput = errors.New("invalid input")

	// ErrValidation marks well-formed requests missing a required value,
	// e.g. a cancellation without a reason
	ErrValidation = errors.New("validation failed")

	// ErrNotFound marks a missing task
	ErrNotFound = errors.New("not found")

	// ErrCollaboratorRead aborts a run when a leaf source cannot be read
	ErrCollaboratorRead = errors.New("collaborator read failed")

	// ErrConflict marks a write lost to a concurrent one
	ErrConflict = errors.New("conflict")

	// ErrInvalidTransition marks a trigger the current state does not permit
	ErrInvalidTransition = domainwf.ErrInvalidTransition
)

// translateTransitionErr maps workflow errors onto service sentinels
func translateTransitionErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, appwf.ErrStaleStatus):
		return fmt.Errorf("%w: %v", ErrConflict, err)
	case errors.Is(err, domainwf.ErrGuardFailed):
		return fmt.Errorf("%w: %v", ErrInvalidTransition, err)
	default:
		return err
	}
}
