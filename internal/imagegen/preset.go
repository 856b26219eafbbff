package imagegen

import (
	"fmt"
	"strings"
)

const defaultConditioningScale = 1.0

// Preset is the full parameter set selected by a quality name.
type Preset struct {
	Name              string
	Steps             int
	GuidanceScale     float64
	Width             int
	Height            int
	Scheduler         string
	Quantized         bool
	ConditioningScale float64
}

var presets = map[string]Preset{
	"fast": {
		Name:              "fast",
		Steps:             4,
		GuidanceScale:     1.0,
		Width:             512,
		Height:            512,
		Scheduler:         "lcm",
		ConditioningScale: defaultConditioningScale,
	},
	"balanced": {
		Name:              "balanced",
		Steps:             20,
		GuidanceScale:     7.5,
		Width:             512,
		Height:            512,
		Scheduler:         "unipc",
		Quantized:         true,
		ConditioningScale: defaultConditioningScale,
	},
	"high": {
		Name:              "high",
		Steps:             50,
		GuidanceScale:     7.5,
		Width:             768,
		Height:            768,
		Scheduler:         "unipc",
		ConditioningScale: defaultConditioningScale,
	},
}

// PresetFor resolves a quality name. Empty selects balanced.
func PresetFor(quality string) (Preset, error) {
	name := strings.ToLower(strings.TrimSpace(quality))
	if name == "" {
		name = "balanced"
	}
	preset, ok := presets[name]
	if !ok {
		return Preset{}, fmt.Errorf("unknown quality preset %q (want fast, balanced, or high)", quality)
	}
	return preset, nil
}
