package scriptload

import (
	"fmt"

	"doodlecast/internal/services"
)

// SchemaError reports a structured document that violates the script schema.
// Path is a JSON pointer such as "/scenes/0/duration".
type SchemaError struct {
	Source  string
	Path    string
	Message string
}

func (e *SchemaError) Error() string {
	path := e.Path
	if path == "" {
		path = "/"
	}
	if e.Source != "" {
		return fmt.Sprintf("%s: schema violation at %s: %s", e.Source, path, e.Message)
	}
	return fmt.Sprintf("schema violation at %s: %s", path, e.Message)
}

func (e *SchemaError) Is(target error) bool {
	return target == services.ErrValidation
}

// ParseError reports malformed document syntax. Line and Column are 1-based
// and zero when unknown.
type ParseError struct {
	Source string
	Line   int
	Column int
	Err    error
}

func (e *ParseError) Error() string {
	loc := e.Source
	if loc == "" {
		loc = "document"
	}
	if e.Line > 0 {
		loc = fmt.Sprintf("%s:%d", loc, e.Line)
		if e.Column > 0 {
			loc = fmt.Sprintf("%s:%d", loc, e.Column)
		}
	}
	return fmt.Sprintf("%s: parse error: %v", loc, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

func (e *ParseError) Is(target error) bool {
	return target == services.ErrValidation
}

// NotFoundError reports a missing script or reference file.
type NotFoundError struct {
	Path string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("script file not found: %s", e.Path)
}

func (e *NotFoundError) Is(target error) bool {
	return target == services.ErrNotFound
}

// lineColumn converts a byte offset into a 1-based line and column.
func lineColumn(data []byte, offset int64) (int, int) {
	if offset < 0 {
		return 0, 0
	}
	if offset > int64(len(data)) {
		offset = int64(len(data))
	}
	line, col := 1, 1
	for _, b := range data[:offset] {
		if b == '\n' {
			line++
			col = 1
			continue
		}
		col++
	}
	return line, col
}
