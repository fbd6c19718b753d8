// Package domain contains the cluster model shared by the scheduler core and
// the simulation host, plus the sentinel errors crossing that boundary.
package domain

import "errors"

// Common domain errors
var (
	// ErrNotFound is returned when a requested machine, VM, or task is not known
	// to the host. Hitting it with an identifier the registry minted is a
	// programming error, not a runtime condition to recover from.
	ErrNotFound = errors.New("resource not found")

	// ErrAlreadyExists is returned when trying to create a resource that already exists.
	ErrAlreadyExists = errors.New("resource already exists")

	// ErrInvalidArgument is returned when an invalid argument is provided.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrInfeasible is returned by a placement policy when no host satisfies a
	// task's constraints. It is an expected outcome, handled locally by the
	// scheduler facade, never surfaced to the host.
	ErrInfeasible = errors.New("no feasible host")

	// ErrOperationFailed is returned when a host command fails.
	ErrOperationFailed = errors.New("operation failed")
)
