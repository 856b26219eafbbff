package logging

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"
)

// infoAttrLimit caps how many fields an INFO line prints before collapsing the
// remainder into a "+N more" marker. DEBUG lines print everything.
const infoAttrLimit = 6

var infoHighlightKeys = []string{
	FieldEventType,
	FieldDecisionType,
	FieldDecisionResult,
	FieldProducer,
	FieldFingerprint,
	FieldErrorHint,
	FieldImpact,
	"error",
	"path",
}

// subjectKeys are lifted into the line header instead of printed as fields.
var subjectKeys = []string{FieldComponent, FieldRunID, FieldSceneID, FieldAssetKind}

type field struct {
	key   string
	value slog.Value
}

// consoleHandler writes a header line per record followed by indented fields:
//
//	12:04:05.123 WARN [speech] Run 0123abcd · Scene #2 (audio) - producer failed
//	    producer: melotts
type consoleHandler struct {
	mu        *sync.Mutex
	writer    io.Writer
	level     *slog.LevelVar
	attrs     []slog.Attr
	prefix    string
	addSource bool
}

func newPrettyHandler(w io.Writer, lvl *slog.LevelVar, addSource bool) slog.Handler {
	return &consoleHandler{mu: &sync.Mutex{}, writer: w, level: lvl, addSource: addSource}
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *consoleHandler) Handle(_ context.Context, record slog.Record) error {
	if !h.Enabled(context.Background(), record.Level) {
		return nil
	}
	ts := record.Time
	if ts.IsZero() {
		ts = time.Now()
	}

	fields := make([]field, 0, record.NumAttrs()+len(h.attrs))
	for _, attr := range h.attrs {
		fields = appendField(fields, "", attr)
	}
	record.Attrs(func(attr slog.Attr) bool {
		fields = appendField(fields, h.prefix, attr)
		return true
	})
	fields = lastWins(fields)

	subject := make(map[string]string, len(subjectKeys))
	body := fields[:0:0]
	for _, f := range fields {
		if slices.Contains(subjectKeys, f.key) {
			subject[f.key] = attrString(f.value)
			continue
		}
		body = append(body, f)
	}

	var buf bytes.Buffer
	buf.WriteString(formatTimestamp(ts))
	buf.WriteByte(' ')
	buf.WriteString(levelLabel(record.Level))
	if c := subject[FieldComponent]; c != "" {
		buf.WriteString(" [" + c + "]")
	}
	if s := formatSubject(subject[FieldRunID], subject[FieldSceneID], subject[FieldAssetKind]); s != "" {
		buf.WriteString(" " + s)
	}
	msg := strings.TrimSpace(record.Message)
	if msg == "" {
		msg = "(no message)"
	}
	buf.WriteString(" - " + msg)
	if h.addSource {
		if src := record.Source(); src != nil {
			buf.WriteString(" [" + filepath.Base(src.File) + ":" + strconv.Itoa(src.Line) + "]")
		}
	}
	buf.WriteByte('\n')

	hidden := 0
	if record.Level == slog.LevelInfo {
		body, hidden = selectInfoFields(body)
	}
	for _, f := range body {
		buf.WriteString("    " + f.key + ": " + formatValue(f.value) + "\n")
	}
	switch {
	case hidden == 1:
		buf.WriteString("    + 1 more field hidden\n")
	case hidden > 1:
		buf.WriteString("    + " + strconv.Itoa(hidden) + " more fields hidden\n")
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.writer.Write(buf.Bytes())
	return err
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = slices.Clone(h.attrs)
	for _, attr := range attrs {
		if h.prefix != "" {
			attr.Key = h.prefix + attr.Key
		}
		clone.attrs = append(clone.attrs, attr)
	}
	return &clone
}

func (h *consoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.prefix = h.prefix + name + "."
	return &clone
}

// selectInfoFields orders highlighted keys first and trims to infoAttrLimit.
func selectInfoFields(fields []field) ([]field, int) {
	if len(fields) <= infoAttrLimit {
		return fields, 0
	}
	rank := func(f field) int {
		if i := slices.Index(infoHighlightKeys, f.key); i >= 0 {
			return i
		}
		return len(infoHighlightKeys)
	}
	ordered := slices.Clone(fields)
	slices.SortStableFunc(ordered, func(a, b field) int { return rank(a) - rank(b) })
	return ordered[:infoAttrLimit], len(fields) - infoAttrLimit
}

func formatSubject(runID, sceneID, kind string) string {
	var parts []string
	if runID = strings.TrimSpace(runID); runID != "" {
		if len(runID) > 8 {
			runID = runID[:8]
		}
		parts = append(parts, "Run "+runID)
	}
	sceneID = strings.TrimSpace(sceneID)
	kind = strings.TrimSpace(kind)
	switch {
	case sceneID != "" && kind != "":
		parts = append(parts, "Scene #"+sceneID+" ("+kind+")")
	case sceneID != "":
		parts = append(parts, "Scene #"+sceneID)
	case kind != "":
		parts = append(parts, kind)
	}
	return strings.Join(parts, " · ")
}

// appendField flattens groups into dotted keys.
func appendField(dst []field, prefix string, attr slog.Attr) []field {
	if attr.Equal(slog.Attr{}) {
		return dst
	}
	value := attr.Value.Resolve()
	if value.Kind() == slog.KindGroup {
		next := prefix
		if attr.Key != "" {
			next = prefix + attr.Key + "."
		}
		for _, child := range value.Group() {
			dst = appendField(dst, next, child)
		}
		return dst
	}
	key := prefix + attr.Key
	if attr.Key == "" {
		key = strings.TrimSuffix(prefix, ".")
	}
	if key == "" {
		return dst
	}
	return append(dst, field{key: key, value: value})
}

// lastWins keeps the first position of each key with its latest value.
func lastWins(fields []field) []field {
	index := make(map[string]int, len(fields))
	out := make([]field, 0, len(fields))
	for _, f := range fields {
		if i, ok := index[f.key]; ok {
			out[i].value = f.value
			continue
		}
		index[f.key] = len(out)
		out = append(out, f)
	}
	return out
}

func levelLabel(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "ERROR"
	case level >= slog.LevelWarn:
		return "WARN"
	case level >= slog.LevelInfo:
		return "INFO"
	default:
		return "DEBUG"
	}
}
