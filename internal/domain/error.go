package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrAlreadyExists      = errors.New("entity already exists")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrInvalidExecContext = errors.New("invalid execution context")

	// Contest errors
	ErrNoTeam        = errors.New("user is not a member of any team")
	ErrNotRegistered = errors.New("user has not completed registration")

	// Conversation errors
	ErrUnregisteredState = errors.New("transition produced an unregistered state")
	ErrHandlerPanic      = errors.New("step handler panicked")

	// Collaborator errors
	ErrMailDelivery = errors.New("mail delivery failed")
)
