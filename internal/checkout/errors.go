package checkout

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrRequestInProgress means an Idempotency-Key is known but its order cannot
// be read yet.
var ErrRequestInProgress = errors.New("request with this idempotency key is in progress")

// ValidationError carries field-level reasons an input was rejected.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s %s", k, e.Fields[k]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func fieldError(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: msg}}
}
