package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ============================================================================
// Feature Errors
// ============================================================================

var ErrValidation = errors.New("invalid diamond payload")

// ValidationError lists the offending fields of a diamond payload.
// It matches ErrValidation with errors.Is.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s: %s", name, e.Fields[name]))
	}
	return fmt.Sprintf("%s: %s", ErrValidation.Error(), strings.Join(parts, "; "))
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// ============================================================================
// Training Errors
// ============================================================================

var (
	ErrDataSource   = errors.New("data source error")
	ErrEmptyDataset = errors.New("no rows left for training after cleaning")
)

// ============================================================================
// Registry Errors
// ============================================================================

var (
	ErrRegistryCorrupted = errors.New("model registry is corrupted")
	ErrNoActiveModel     = errors.New("model registry has no active model")
)
