package submission

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors of the parse/transform contract. Both are wrapped with
// detail at the point of failure; match with errors.Is.
var (
	// ErrMalformedPayload marks a payload whose required structure is
	// missing or mis-shaped. This is a hard parse failure, not a
	// validation violation; the boundary maps it to a generic bad request.
	ErrMalformedPayload = errors.New("mottak: malformed submission payload")

	// ErrIncompleteTransform marks an outgoing conversion attempted before
	// every attachment role was replaced with URLs and the submission id
	// was set.
	ErrIncompleteTransform = errors.New("mottak: submission transform incomplete")
)

func malformedf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformedPayload, fmt.Sprintf(format, args...))
}

func errIncomplete(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrIncompleteTransform, fmt.Sprintf(format, args...))
}

// ValidationError carries the full violation set of a rejected submission.
// The boundary renders it as a structured 400 body.
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	fields := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		fields = append(fields, v.Field)
	}
	return fmt.Sprintf("mottak: submission failed validation on %s", strings.Join(fields, ", "))
}
