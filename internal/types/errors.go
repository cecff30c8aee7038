package types

import (
	"errors"
	"fmt"
)

// Failure classes shared across the pipeline. Callers wrap these with
// context via fmt.Errorf("...: %w", Err...) and the CLI maps them to
// exit codes with errors.Is.
var (
	// ErrInputSchema marks event batches with missing or malformed
	// required fields.
	ErrInputSchema = errors.New("input schema violation")

	// ErrCatalogUnavailable marks a vulnerability catalog that cannot
	// be opened or queried.
	ErrCatalogUnavailable = errors.New("vulnerability catalog unavailable")

	// ErrEmptySession marks a session passed to an analyzer with zero
	// events.
	ErrEmptySession = errors.New("session contains no events")

	// ErrLedgerIntegrity marks a governance ledger whose hash chain
	// failed verification.
	ErrLedgerIntegrity = errors.New("ledger integrity check failed")

	// ErrConfigurationConflict marks governance state violations such
	// as zero or multiple active model versions.
	ErrConfigurationConflict = errors.New("model configuration conflict")

	// ErrBoundaryViolation marks artifacts that would be written
	// outside the configured output root.
	ErrBoundaryViolation = errors.New("artifact path escapes output root")
)

// SchemaError builds an ErrInputSchema describing the offending record
// and field.
func SchemaError(record int, field string) error {
	return fmt.Errorf("record %d: missing required field %q: %w", record, field, ErrInputSchema)
}
