package imagegen

import "strings"

const (
	styleSuffix = "simple line drawing, hand-drawn sketch, whiteboard doodle, " +
		"black and white lineart, minimalist illustration, educational diagram style"

	// NegativePrompt is sent with every request.
	NegativePrompt = "photo, photograph, realistic, detailed shading, complex background, " +
		"3d render, colorful, painting, watercolor"
)

// Prompt appends the doodle style to a visual description.
func Prompt(visual string) string {
	return strings.TrimSpace(visual) + ", " + styleSuffix
}
