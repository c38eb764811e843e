package engram

import "fmt"

// InvalidArgumentError names the offending field so callers can surface a
// precise message without parsing error text.
type InvalidArgumentError struct {
	Field  string
	Reason string
}

func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("engram: invalid argument %q: %s", e.Field, e.Reason)
}

func invalidArgument(field, reason string) error {
	return &InvalidArgumentError{Field: field, Reason: reason}
}

// StorageUnavailableError wraps a fatal failure to open or migrate the store.
type StorageUnavailableError struct {
	Op  string
	Err error
}

func (e *StorageUnavailableError) Error() string {
	return fmt.Sprintf("engram: storage unavailable (%s): %v", e.Op, e.Err)
}

func (e *StorageUnavailableError) Unwrap() error { return e.Err }

func storageUnavailable(op string, err error) error {
	return &StorageUnavailableError{Op: op, Err: err}
}

// EmbeddingFailureError wraps an inference failure from the Embedding Service.
// The write it occurred during is not attempted.
type EmbeddingFailureError struct {
	Err error
}

func (e *EmbeddingFailureError) Error() string {
	return fmt.Sprintf("engram: embedding failure: %v", e.Err)
}

func (e *EmbeddingFailureError) Unwrap() error { return e.Err }

func embeddingFailure(err error) error {
	return &EmbeddingFailureError{Err: err}
}

// validateMemoryType rejects unknown types before any mutation.
func validateMemoryType(t MemoryType) error {
	if !validMemoryTypes[t] {
		return invalidArgument("type", fmt.Sprintf("unknown memory type %q", t))
	}
	return nil
}

// validateLinkRelation rejects unknown relations before any mutation.
func validateLinkRelation(r LinkRelation) error {
	if !validLinkRelations[r] {
		return invalidArgument("relation", fmt.Sprintf("unknown link relation %q", r))
	}
	return nil
}

// validateImportance rejects out-of-range importance before any mutation.
func validateImportance(v float64) error {
	if v < 0 || v > 1 {
		return invalidArgument("importance", fmt.Sprintf("%.4f outside [0,1]", v))
	}
	return nil
}
