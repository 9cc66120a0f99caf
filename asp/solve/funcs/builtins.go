package funcs

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// wrapWidth is the fixed line width used by the wrap built-in.
const wrapWidth = 27

// Builtins returns a registry preloaded with the standard handlers:
// concatenate, daysSince, today and wrap.
func Builtins() *Registry {
	r := NewRegistry()
	r.Register("concatenate", concatenate)
	r.RegisterDateDependent("daysSince", daysSince)
	r.RegisterDateDependent("today", today)
	r.Register("wrap", wrap)
	return r
}

// concatenate joins any number of arguments into one string. Strings
// are appended as-is, numbers in decimal.
func concatenate(args []Value) ([]Value, error) {
	var sb strings.Builder
	for _, arg := range args {
		switch arg.Kind {
		case KindString:
			sb.WriteString(arg.Str)
		case KindNumber:
			sb.WriteString(strconv.FormatInt(arg.Num, 10))
		case KindFloat:
			sb.WriteString(strconv.FormatFloat(arg.Float, 'f', -1, 64))
		}
	}
	return []Value{StringValue(sb.String())}, nil
}

// daysSince returns the whole days elapsed since an ISO 8601 date
// string, truncated toward zero. Unparseable or non-string input
// yields zero rather than an error.
func daysSince(args []Value) ([]Value, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("daysSince expects exactly one argument, got %d", len(args))
	}
	if args[0].Kind != KindString {
		return []Value{NumberValue(0)}, nil
	}
	parsed, ok := parseISODate(args[0].Str)
	if !ok {
		return []Value{NumberValue(0)}, nil
	}
	days := int64(time.Since(parsed) / (24 * time.Hour))
	return []Value{NumberValue(days)}, nil
}

// today returns the current local date as YYYY-MM-DD.
func today(args []Value) ([]Value, error) {
	if len(args) != 0 {
		return nil, fmt.Errorf("today expects no arguments, got %d", len(args))
	}
	return []Value{StringValue(time.Now().Format("2006-01-02"))}, nil
}

// wrap word-wraps a string to 27 columns, escapes markup characters in
// each line and joins the lines with <br/>. Numeric input wraps as the
// empty string.
func wrap(args []Value) ([]Value, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("wrap expects exactly one argument, got %d", len(args))
	}

	var text string
	if args[0].Kind == KindString {
		text = args[0].Str
	}

	lines := wrapText(text, wrapWidth)
	escaped := make([]string, len(lines))
	for i, line := range lines {
		escaped[i] = markupEscaper.Replace(line)
	}
	return []Value{StringValue(strings.Join(escaped, "<br/>"))}, nil
}

var markupEscaper = strings.NewReplacer(
	"&", "&amp;",
	`"`, "&quot;",
	"'", "&apos;",
	"<", "&lt;",
	">", "&gt;",
)

// wrapText splits text on whitespace and greedily packs words into
// lines of at most width characters. Words longer than width get a line
// of their own and are never split.
func wrapText(text string, width int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	lines := make([]string, 0, 4)
	line := words[0]
	for _, word := range words[1:] {
		if len(line)+1+len(word) <= width {
			line += " " + word
		} else {
			lines = append(lines, line)
			line = word
		}
	}
	return append(lines, line)
}

// parseISODate accepts the ISO 8601 shapes the legacy surface accepted:
// date only, date with minute or second precision, and the compact time
// form, each with an optional trailing Z. Timestamps are interpreted in
// local time.
func parseISODate(s string) (time.Time, bool) {
	s = strings.TrimSuffix(s, "Z")

	var layout string
	switch {
	case !strings.Contains(s, "T"):
		layout = "2006-01-02"
	case strings.Count(s, ":") >= 2:
		layout = "2006-01-02T15:04:05"
	case strings.Count(s, ":") == 1:
		layout = "2006-01-02T15:04"
	default:
		layout = "2006-01-02T150405"
	}

	parsed, err := time.ParseInLocation(layout, s, time.Local)
	if err != nil {
		return time.Time{}, false
	}
	return parsed, true
}
