package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Authentication errors
	ErrAuthFailed              = fmt.Errorf("authentication failed")
	ErrNotAuthenticated        = fmt.Errorf("not authenticated")
	ErrSessionExpired          = fmt.Errorf("session expired")
	ErrReconciliationDiscarded = fmt.Errorf("reconciliation discarded after sign-out")
	ErrFederatedCanceled       = fmt.Errorf("federated sign-in canceled")
	ErrTimeout                 = fmt.Errorf("operation timed out")

	// Provider errors
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrTransport          = fmt.Errorf("transport failure")

	// Storage errors
	ErrStorageIO           = fmt.Errorf("storage I/O failure")
	ErrEmptyInput          = fmt.Errorf("empty input")
	ErrUnknownCollection   = fmt.Errorf("unknown collection kind")
	ErrNoMigrations        = fmt.Errorf("no migrations to rollback")
	ErrIncompleteMigration = fmt.Errorf("incomplete migration")

	// Input validation errors
	ErrValidation      = fmt.Errorf("validation failed")
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)
