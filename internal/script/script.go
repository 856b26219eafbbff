package script

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// DefaultVoice is used when a script does not name one.
const DefaultVoice = "female_us"

// Script is a validated script with scenes sorted by ascending id.
type Script struct {
	Title    string
	Language string
	Voice    string
	Scenes   []Scene
	Metadata map[string]any
	// Source is the document the script was loaded from, if any.
	Source string
	// Warnings lists non-fatal problems found while validating, such as an
	// unsupported language code.
	Warnings []string
}

// ScriptInput carries raw values for NewScript.
type ScriptInput struct {
	Title    string
	Language string
	Voice    string
	Scenes   []Scene
	Metadata map[string]any
	Source   string
}

// NewScript validates in, checks scene id uniqueness, and stably sorts scenes
// by id. Unknown language codes are accepted and reported in Warnings.
func NewScript(in ScriptInput) (*Script, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, withSource(invalid(0, "title", "cannot be empty"), in.Source)
	}
	lang := strings.TrimSpace(in.Language)
	if lang == "" {
		return nil, withSource(invalid(0, "language", "cannot be empty"), in.Source)
	}
	if len(in.Scenes) == 0 {
		return nil, withSource(invalid(0, "scenes", "script must contain at least one scene"), in.Source)
	}

	seen := make(map[int]struct{}, len(in.Scenes))
	for _, scene := range in.Scenes {
		if _, dup := seen[scene.ID]; dup {
			return nil, withSource(invalid(scene.ID, "id", "scene ids must be unique"), in.Source)
		}
		seen[scene.ID] = struct{}{}
	}

	scenes := slices.Clone(in.Scenes)
	slices.SortStableFunc(scenes, func(a, b Scene) int { return a.ID - b.ID })

	voice := strings.ToLower(strings.TrimSpace(in.Voice))
	if voice == "" {
		voice = DefaultVoice
	}

	s := &Script{
		Title:    title,
		Language: lang,
		Voice:    voice,
		Scenes:   scenes,
		Metadata: cloneMetadata(in.Metadata),
		Source:   in.Source,
	}
	if !IsSupportedLanguage(lang) {
		s.Warnings = append(s.Warnings, fmt.Sprintf(
			"language %q is not in the supported list (%s); speech may fall back to a default voice",
			lang, strings.Join(SupportedLanguages(), ", ")))
	}
	return s, nil
}

func withSource(err *ValidationError, source string) *ValidationError {
	err.Source = source
	return err
}

// SceneByID returns the scene with the given id.
func (s *Script) SceneByID(id int) (Scene, bool) {
	idx, found := slices.BinarySearchFunc(s.Scenes, id, func(scene Scene, target int) int {
		return scene.ID - target
	})
	if !found {
		return Scene{}, false
	}
	return s.Scenes[idx], true
}

// TotalScenes returns the number of scenes.
func (s *Script) TotalScenes() int {
	return len(s.Scenes)
}

// MetadataCopy returns a copy of the script metadata.
func (s *Script) MetadataCopy() map[string]any {
	return maps.Clone(s.Metadata)
}
