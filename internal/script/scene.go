package script

import (
	"maps"
	"strings"
)

// Scene is one narrated, illustrated unit of a script.
type Scene struct {
	ID                int
	Narration         string
	VisualDescription string
	Duration          Duration
	// ReferenceImage is an absolute path, or empty when the scene has none.
	ReferenceImage string
	Metadata       map[string]any
}

// SceneInput carries raw field values for NewScene. A nil text pointer means
// the field was absent from the source document.
type SceneInput struct {
	ID                int
	Narration         *string
	VisualDescription *string
	// Duration accepts anything ParseDuration does.
	Duration       any
	ReferenceImage string
	Metadata       map[string]any
}

// Text returns a pointer to s for building SceneInput literals.
func Text(s string) *string { return &s }

// NewScene validates in and returns an immutable Scene. Checks run in order:
// required fields, non-empty text, duration, then the numeric id.
func NewScene(in SceneInput) (Scene, error) {
	if in.Narration == nil {
		return Scene{}, invalid(in.ID, "narration", "is required")
	}
	if in.VisualDescription == nil {
		return Scene{}, invalid(in.ID, "visual_description", "is required")
	}

	narration := strings.TrimSpace(*in.Narration)
	if narration == "" {
		return Scene{}, invalid(in.ID, "narration", "cannot be empty")
	}
	visual := strings.TrimSpace(*in.VisualDescription)
	if visual == "" {
		return Scene{}, invalid(in.ID, "visual_description", "cannot be empty")
	}

	duration, err := ParseDuration(in.Duration)
	if err != nil {
		return Scene{}, invalid(in.ID, "duration", "%s", err.Error())
	}

	if in.ID <= 0 {
		return Scene{}, invalid(in.ID, "id", "must be a positive integer, got %d", in.ID)
	}

	return Scene{
		ID:                in.ID,
		Narration:         narration,
		VisualDescription: visual,
		Duration:          duration,
		ReferenceImage:    strings.TrimSpace(in.ReferenceImage),
		Metadata:          cloneMetadata(in.Metadata),
	}, nil
}

// WordCount returns the number of whitespace separated words in the narration.
func (s Scene) WordCount() int {
	return len(strings.Fields(s.Narration))
}

// HasReference reports whether the scene names a reference image.
func (s Scene) HasReference() bool {
	return s.ReferenceImage != ""
}

func cloneMetadata(in map[string]any) map[string]any {
	if len(in) == 0 {
		return map[string]any{}
	}
	return maps.Clone(in)
}
