package scriptload

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"doodlecast/internal/logging"
	"doodlecast/internal/script"
)

// Format identifies a script document form.
type Format string

const (
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
)

var supportedReferenceExtensions = []string{".jpg", ".jpeg", ".png", ".webp"}

// Report summarizes a load beyond the script itself.
type Report struct {
	Format Format
	// Dropped lists markup scene blocks skipped for missing fields.
	Dropped []DroppedBlock
}

// Loader reads script documents and logs non-fatal findings.
type Loader struct {
	logger *slog.Logger
}

// New constructs a Loader. A nil logger discards output.
func New(logger *slog.Logger) *Loader {
	return &Loader{logger: logging.NewComponentLogger(logger, "scriptload")}
}

// DetectFormat maps a file extension onto a Format.
func DetectFormat(path string) (Format, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		return FormatJSON, nil
	case ".md", ".markdown":
		return FormatMarkdown, nil
	default:
		return "", &script.ValidationError{
			Source: path,
			Field:  "extension",
			Reason: fmt.Sprintf("unsupported file extension %q; supported formats: .json, .md, .markdown", ext),
		}
	}
}

// LoadFile reads, parses, and validates the script at path. Either the whole
// script loads or an error is returned.
func (l *Loader) LoadFile(ctx context.Context, path string) (*script.Script, Report, error) {
	logger := logging.WithContext(ctx, l.logger)

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, Report{}, fmt.Errorf("resolve script path: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, Report{}, &NotFoundError{Path: abs}
		}
		return nil, Report{}, fmt.Errorf("stat script: %w", err)
	}
	if info.IsDir() {
		return nil, Report{}, &script.ValidationError{Source: abs, Field: "path", Reason: "is a directory"}
	}

	format, err := DetectFormat(abs)
	if err != nil {
		return nil, Report{}, err
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, Report{}, fmt.Errorf("read script: %w", err)
	}
	data = trimBOM(data)
	if !utf8.Valid(data) {
		return nil, Report{}, &script.ValidationError{Source: abs, Field: "encoding", Reason: "file must be UTF-8 encoded"}
	}

	logger.Debug("parsing script", logging.String("path", abs), logging.String("format", string(format)))

	report := Report{Format: format}
	baseDir := filepath.Dir(abs)
	var s *script.Script
	switch format {
	case FormatJSON:
		s, err = ParseJSON(data, baseDir, abs)
	case FormatMarkdown:
		s, report.Dropped, err = ParseMarkdown(data, baseDir, abs)
	}
	for _, drop := range report.Dropped {
		logging.WarnWithContext(logger, "scene block dropped", "scene_block_dropped",
			logging.String("path", abs),
			logging.Int("block", drop.Ordinal),
			logging.Int("line", drop.Line),
			logging.String("missing", strings.Join(drop.Missing, ", ")),
			logging.String(logging.FieldErrorHint, "add **Narration:** and **Visual:** lines to the scene"),
			logging.String(logging.FieldImpact, "scene will not be generated"),
		)
	}
	if err != nil {
		return nil, report, err
	}

	for _, warning := range s.Warnings {
		logging.WarnWithContext(logger, "script warning", "script_warning",
			logging.String("path", abs),
			logging.String("detail", warning),
			logging.String(logging.FieldErrorHint, "use one of: "+strings.Join(script.SupportedLanguages(), ", ")),
			logging.String(logging.FieldImpact, "narration may use an untuned voice"),
		)
	}
	logger.Info("script loaded",
		logging.String("title", s.Title),
		logging.Int("scenes", s.TotalScenes()),
		logging.Int("dropped_blocks", len(report.Dropped)),
		logging.String(logging.FieldEventType, "script_loaded"),
	)
	return s, report, nil
}

// LoadFile loads path with a discarding logger.
func LoadFile(path string) (*script.Script, Report, error) {
	return New(nil).LoadFile(context.Background(), path)
}

// ValidateReferenceImages returns one human-readable problem per scene whose
// reference image is missing, not a regular file, or of an unsupported type.
func ValidateReferenceImages(s *script.Script) []string {
	var problems []string
	for _, scene := range s.Scenes {
		if !scene.HasReference() {
			continue
		}
		info, err := os.Stat(scene.ReferenceImage)
		switch {
		case err != nil:
			problems = append(problems, fmt.Sprintf("Scene %d: reference image not found: %s", scene.ID, scene.ReferenceImage))
		case !info.Mode().IsRegular():
			problems = append(problems, fmt.Sprintf("Scene %d: reference image is not a file: %s", scene.ID, scene.ReferenceImage))
		case !SupportedReference(scene.ReferenceImage):
			problems = append(problems, fmt.Sprintf("Scene %d: unsupported image format %q; supported: %s",
				scene.ID, filepath.Ext(scene.ReferenceImage), strings.Join(supportedReferenceExtensions, ", ")))
		}
	}
	return problems
}

// SupportedReference reports whether path has a supported image extension.
func SupportedReference(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, supported := range supportedReferenceExtensions {
		if ext == supported {
			return true
		}
	}
	return false
}

func resolveReference(baseDir, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	if filepath.IsAbs(ref) {
		return filepath.Clean(ref)
	}
	return filepath.Join(baseDir, ref)
}

func trimBOM(data []byte) []byte {
	if len(data) >= 3 && data[0] == 0xEF && data[1] == 0xBB && data[2] == 0xBF {
		return data[3:]
	}
	return data
}
