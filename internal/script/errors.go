package script

import (
	"fmt"
	"strings"

	"doodlecast/internal/services"
)

// ValidationError reports a malformed or missing script field. SceneID is zero
// for script-level problems.
type ValidationError struct {
	SceneID int
	Field   string
	Reason  string
	// Source is the document the value came from, when known.
	Source string
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	if e.Source != "" {
		b.WriteString(e.Source)
		b.WriteString(": ")
	}
	if e.SceneID > 0 {
		fmt.Fprintf(&b, "scene %d: ", e.SceneID)
	}
	if e.Field != "" {
		b.WriteString(e.Field)
		b.WriteString(": ")
	}
	b.WriteString(e.Reason)
	return b.String()
}

// Is lets callers match any validation failure with errors.Is(err, services.ErrValidation).
func (e *ValidationError) Is(target error) bool {
	return target == services.ErrValidation
}

func invalid(sceneID int, field, format string, args ...any) *ValidationError {
	return &ValidationError{SceneID: sceneID, Field: field, Reason: fmt.Sprintf(format, args...)}
}
