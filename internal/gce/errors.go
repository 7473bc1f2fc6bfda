package gce

import (
	"errors"
	"fmt"
	"strings"

	compute "google.golang.org/api/compute/v1"
)

var (
	// ErrInstanceNotFound means the API reports no such instance where one
	// was expected to exist.
	ErrInstanceNotFound = errors.New("instance does not exist")

	// ErrTooManyInstances means the zone already holds more instances than
	// the configured hard cap allows.
	ErrTooManyInstances = errors.New("too many instances running in this project")

	// ErrNoInstancesReported means an instance was created but the list
	// endpoint reports none at all. This is fatal and should never happen.
	ErrNoInstancesReported = errors.New("instance created but API reports no instances")
)

// ResourceExhaustedError means the zone has no capacity left for the
// requested machine shape. Callers may retry elsewhere; this tool does not.
type ResourceExhaustedError struct {
	Message string
}

func (e *ResourceExhaustedError) Error() string {
	return fmt.Sprintf("zone resource pool exhausted: %s", e.Message)
}

// OperationError carries the structured errors of a failed operation.
type OperationError struct {
	Errors []*compute.OperationErrorErrors
}

func (e *OperationError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("operation failed: %s", e.Errors[0].Message)
	}
	messages := make([]string, 0, len(e.Errors))
	for _, opErr := range e.Errors {
		messages = append(messages, fmt.Sprintf("%s: %s", opErr.Code, opErr.Message))
	}
	return fmt.Sprintf("operation failed with %d errors: %s", len(e.Errors), strings.Join(messages, "; "))
}
