package scriptload

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"doodlecast/internal/script"
)

const (
	frontMatterDelimiter = "---"
	sceneMarker          = "## Scene"
)

var (
	narrationAliases = []string{"narration", "narration text", "text"}
	visualAliases    = []string{"visual", "visual_description", "visual description", "description"}
	referenceAliases = []string{"reference", "reference_image", "reference image", "image"}

	requiredHeaderKeys = []string{"title", "language"}
	yamlLinePattern    = regexp.MustCompile(`line (\d+)`)
)

// DroppedBlock describes a markup scene section skipped because it lacked
// narration or a visual description.
type DroppedBlock struct {
	// Ordinal is the id the block would have received.
	Ordinal int
	Line    int
	Missing []string
}

type markupBlock struct {
	ordinal   int
	line      int
	narration *string
	visual    *string
	duration  any
	reference string
	extra     map[string]any
}

// ParseMarkdown parses a markup script. Scene ids follow encounter order
// starting at 1, including blocks that are later dropped.
func ParseMarkdown(data []byte, baseDir, source string) (*script.Script, []DroppedBlock, error) {
	header, body, bodyLine, err := splitFrontMatter(data, source)
	if err != nil {
		return nil, nil, err
	}

	var missing []string
	for _, key := range requiredHeaderKeys {
		if _, ok := header[key]; !ok {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return nil, nil, &script.ValidationError{
			Source: source,
			Field:  strings.Join(missing, ", "),
			Reason: "missing required metadata: " + strings.Join(missing, ", "),
		}
	}

	blocks := parseBlocks(body, bodyLine)
	scenes := make([]script.Scene, 0, len(blocks))
	var dropped []DroppedBlock
	for _, block := range blocks {
		if block.narration == nil || block.visual == nil {
			drop := DroppedBlock{Ordinal: block.ordinal, Line: block.line}
			if block.narration == nil {
				drop.Missing = append(drop.Missing, "narration")
			}
			if block.visual == nil {
				drop.Missing = append(drop.Missing, "visual_description")
			}
			dropped = append(dropped, drop)
			continue
		}
		in := script.SceneInput{
			ID:                block.ordinal,
			Narration:         block.narration,
			VisualDescription: block.visual,
			Duration:          block.duration,
			Metadata:          block.extra,
		}
		if block.reference != "" {
			in.ReferenceImage = resolveReference(baseDir, block.reference)
		}
		scene, err := script.NewScene(in)
		if err != nil {
			return nil, nil, attachSource(err, source)
		}
		scenes = append(scenes, scene)
	}
	if len(scenes) == 0 {
		return nil, dropped, &script.ValidationError{Source: source, Field: "scenes", Reason: "no scenes found"}
	}

	meta := make(map[string]any, len(header))
	for key, value := range header {
		switch key {
		case "title", "language", "voice":
		default:
			meta[key] = value
		}
	}
	s, err := script.NewScript(script.ScriptInput{
		Title:    scalarString(header["title"]),
		Language: scalarString(header["language"]),
		Voice:    scalarString(header["voice"]),
		Scenes:   scenes,
		Metadata: meta,
		Source:   source,
	})
	if err != nil {
		return nil, dropped, err
	}
	return s, dropped, nil
}

// splitFrontMatter separates the YAML header from the body lines. bodyLine is
// the 1-based line number where the body starts.
func splitFrontMatter(data []byte, source string) (map[string]any, []string, int, error) {
	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	lines := strings.Split(text, "\n")

	start := 0
	for start < len(lines) && strings.TrimSpace(lines[start]) == "" {
		start++
	}
	if start >= len(lines) || strings.TrimSpace(lines[start]) != frontMatterDelimiter {
		return nil, nil, 0, &script.ValidationError{
			Source: source,
			Field:  "metadata",
			Reason: "missing metadata header; markup scripts must start with a --- delimited YAML block",
		}
	}
	end := -1
	for i := start + 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == frontMatterDelimiter {
			end = i
			break
		}
	}
	if end < 0 {
		return nil, nil, 0, &ParseError{Source: source, Line: start + 1, Err: errors.New("metadata header is not closed with ---")}
	}

	raw := strings.Join(lines[start+1:end], "\n")
	header := map[string]any{}
	if err := yaml.Unmarshal([]byte(raw), &header); err != nil {
		line := 0
		if m := yamlLinePattern.FindStringSubmatch(err.Error()); m != nil {
			if n, convErr := strconv.Atoi(m[1]); convErr == nil {
				line = start + 1 + n
			}
		}
		return nil, nil, 0, &ParseError{Source: source, Line: line, Err: fmt.Errorf("invalid metadata header: %w", err)}
	}
	if len(header) == 0 {
		return nil, nil, 0, &script.ValidationError{Source: source, Field: "metadata", Reason: "metadata header is empty"}
	}
	return header, lines[end+1:], end + 2, nil
}

func parseBlocks(body []string, firstLine int) []markupBlock {
	var (
		blocks  []markupBlock
		current *markupBlock
		ordinal int
	)
	for i, raw := range body {
		lineNo := firstLine + i
		line := strings.TrimSpace(raw)
		if strings.HasPrefix(line, sceneMarker) {
			if current != nil {
				blocks = append(blocks, *current)
			}
			ordinal++
			current = &markupBlock{ordinal: ordinal, line: lineNo, extra: map[string]any{}}
			continue
		}
		if current == nil || !strings.HasPrefix(line, "**") {
			continue
		}
		name, value, ok := splitLabeledField(line)
		if !ok {
			continue
		}
		switch {
		case matches(name, narrationAliases):
			current.narration = &value
		case matches(name, visualAliases):
			current.visual = &value
		case name == "duration":
			current.duration = value
		case matches(name, referenceAliases):
			current.reference = value
		default:
			current.extra[strings.ReplaceAll(name, " ", "_")] = value
		}
	}
	if current != nil {
		blocks = append(blocks, *current)
	}
	return blocks
}

// splitLabeledField parses "**Name:** value" and "**Name**: value".
func splitLabeledField(line string) (string, string, bool) {
	if !strings.Contains(line, ":**") && !strings.Contains(line, "**:") {
		return "", "", false
	}
	name, value, found := strings.Cut(line, ":")
	if !found {
		return "", "", false
	}
	name = strings.ToLower(strings.TrimSpace(strings.ReplaceAll(name, "**", "")))
	value = strings.TrimSpace(strings.ReplaceAll(value, "**", ""))
	return name, value, name != ""
}

func matches(name string, aliases []string) bool {
	for _, alias := range aliases {
		if name == alias {
			return true
		}
	}
	return false
}

func scalarString(v any) string {
	switch value := v.(type) {
	case nil:
		return ""
	case string:
		return value
	default:
		return fmt.Sprint(value)
	}
}
