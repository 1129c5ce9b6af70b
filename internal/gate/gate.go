// Package gate runs the backend checks that guard leaving the parse phase.
package gate

import (
	"context"
	"errors"
	"fmt"

	"fieldingest/internal/jobapi"
	"fieldingest/internal/services"
)

var (
	// ErrPathTooLong blocks the transition outright.
	ErrPathTooLong = fmt.Errorf("output paths exceed the backend limit: %w", services.ErrValidation)
	// ErrCollisionDeclined means the operator refused to overwrite existing output.
	ErrCollisionDeclined = errors.New("existing output files were not confirmed for overwrite")
)

// Validator is the subset of the backend the gate calls.
type Validator interface {
	ValidatePathLengths(ctx context.Context, req jobapi.ValidationRequest) (bool, error)
	ValidateNonExistence(ctx context.Context, req jobapi.ValidationRequest) ([]string, error)
}

// Confirmer asks the operator whether to proceed despite existing files.
type Confirmer func(ctx context.Context, existing []string) (bool, error)

// Check validates req. The collision check runs only when rename rules are
// in effect; without rules the output names are the backend's own.
func Check(ctx context.Context, v Validator, req jobapi.ValidationRequest, rulesCount int, confirm Confirmer) error {
	tooLong, err := v.ValidatePathLengths(ctx, req)
	if err != nil {
		return services.Wrap(services.ErrTransient, "gate", "validate path lengths", "Path length check failed", err)
	}
	if tooLong {
		return ErrPathTooLong
	}
	if rulesCount == 0 {
		return nil
	}

	existing, err := v.ValidateNonExistence(ctx, req)
	if err != nil {
		return services.Wrap(services.ErrTransient, "gate", "validate non-existence", "Existing file check failed", err)
	}
	if len(existing) == 0 {
		return nil
	}
	if confirm == nil {
		return fmt.Errorf("%w: %d files", ErrCollisionDeclined, len(existing))
	}
	ok, err := confirm(ctx, existing)
	if err != nil {
		return fmt.Errorf("confirm overwrite: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: %d files", ErrCollisionDeclined, len(existing))
	}
	return nil
}
