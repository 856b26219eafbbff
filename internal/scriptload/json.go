package scriptload

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"doodlecast/internal/script"
)

var reservedSceneKeys = map[string]struct{}{
	"id":                 {},
	"narration":          {},
	"visual_description": {},
	"duration":           {},
	"reference_image":    {},
}

// ParseJSON parses a structured script. baseDir anchors relative reference
// image paths; source labels errors.
func ParseJSON(data []byte, baseDir, source string) (*script.Script, error) {
	doc, err := decodeJSON(data, source)
	if err != nil {
		return nil, err
	}
	if err := validateSchema(doc, source); err != nil {
		return nil, err
	}

	// Schema validation guarantees the shapes asserted below.
	root := doc.(map[string]any)
	rawScenes := root["scenes"].([]any)
	scenes := make([]script.Scene, 0, len(rawScenes))
	for _, raw := range rawScenes {
		fields := raw.(map[string]any)
		id, err := fields["id"].(json.Number).Int64()
		if err != nil {
			return nil, &SchemaError{Source: source, Path: "/scenes", Message: fmt.Sprintf("scene id %s is not an integer", fields["id"])}
		}
		in := script.SceneInput{
			ID:                int(id),
			Narration:         stringField(fields, "narration"),
			VisualDescription: stringField(fields, "visual_description"),
			Duration:          fields["duration"],
			Metadata:          map[string]any{},
		}
		if ref := stringField(fields, "reference_image"); ref != nil {
			in.ReferenceImage = resolveReference(baseDir, *ref)
		}
		for key, value := range fields {
			if _, reserved := reservedSceneKeys[key]; !reserved {
				in.Metadata[key] = value
			}
		}
		scene, err := script.NewScene(in)
		if err != nil {
			return nil, attachSource(err, source)
		}
		scenes = append(scenes, scene)
	}

	in := script.ScriptInput{
		Title:    *stringField(root, "title"),
		Language: *stringField(root, "language"),
		Scenes:   scenes,
		Source:   source,
	}
	if voice := stringField(root, "voice"); voice != nil {
		in.Voice = *voice
	}
	if meta, ok := root["metadata"].(map[string]any); ok {
		in.Metadata = meta
	}
	return script.NewScript(in)
}

func decodeJSON(data []byte, source string) (any, error) {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	var doc any
	if err := decoder.Decode(&doc); err != nil {
		return nil, jsonParseError(data, source, err)
	}
	if _, err := decoder.Token(); !errors.Is(err, io.EOF) {
		line, col := lineColumn(data, decoder.InputOffset())
		return nil, &ParseError{Source: source, Line: line, Column: col, Err: errors.New("unexpected data after top-level value")}
	}
	return doc, nil
}

func jsonParseError(data []byte, source string, err error) error {
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		line, col := lineColumn(data, syntaxErr.Offset)
		return &ParseError{Source: source, Line: line, Column: col, Err: err}
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		line, col := lineColumn(data, int64(len(data)))
		return &ParseError{Source: source, Line: line, Column: col, Err: errors.New("unexpected end of document")}
	}
	return &ParseError{Source: source, Err: err}
}

func stringField(fields map[string]any, key string) *string {
	value, ok := fields[key].(string)
	if !ok {
		return nil
	}
	return &value
}

func attachSource(err error, source string) error {
	var verr *script.ValidationError
	if errors.As(err, &verr) && verr.Source == "" {
		verr.Source = source
	}
	return err
}
