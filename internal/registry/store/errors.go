package store

import "fmt"

// NotFoundError reports a missing project, story, story group, branch or response.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Resource, e.ID)
}

// ValidationError reports a malformed method argument. Field uses the JSON
// name of the offending property.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// ConflictError reports a write that collides with an existing document.
// Code is a stable machine-readable identifier such as "duplicate_story".
type ConflictError struct {
	Message string
	Code    string
}

func (e *ConflictError) Error() string {
	return e.Message
}

// ForbiddenError reports a caller that may not perform Action.
type ForbiddenError struct {
	Action string
}

func (e *ForbiddenError) Error() string {
	if e.Action == "" {
		return "forbidden"
	}
	return "forbidden: " + e.Action
}
