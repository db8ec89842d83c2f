package element

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap/zapcore"

	"github.com/Deltares-research/DHYDROGUI-sub021/pkg/gwsw/report"
)

// DateLayout is the GWSW date format.
const DateLayout = "20060102"

// Accessor reads typed values from elements. Missing values fall back to the
// caller's default; malformed values are logged with their full context.
type Accessor struct {
	Sink report.Sink
}

func (a Accessor) log(e report.Entry) {
	if a.Sink != nil {
		a.Sink.Log(e)
	}
}

// raw returns the trimmed value of key. Absent, unmapped and blank values
// report !ok and log msg as a warning.
func (a Accessor) raw(el *Element, key string, msg []string) (string, Attribute, bool) {
	attr, ok := el.Attribute(key)
	v := strings.TrimSpace(attr.Value)
	if !ok || v == "" {
		if len(msg) > 0 && msg[0] != "" && el != nil {
			a.log(report.Entry{
				Level:   zapcore.WarnLevel,
				Message: msg[0],
				File:    el.File,
				Line:    el.Line,
				Element: el.TypeName,
				Key:     key,
			})
		}
		return "", attr, false
	}
	return v, attr, true
}

func (a Accessor) parseFailed(el *Element, attr Attribute, key, value, target string) {
	line := el.Line
	if attr.Line > 0 {
		line = attr.Line
	}
	a.log(report.Entry{
		Level:   zapcore.ErrorLevel,
		Message: fmt.Sprintf("could not parse attribute '%s' of %s as %s", key, el.TypeName, target),
		File:    el.File,
		Line:    line,
		Element: el.TypeName,
		Key:     key,
		Value:   value,
	})
}

// Has reports whether key holds a non-blank value.
func (a Accessor) Has(el *Element, key string) bool {
	_, _, ok := a.raw(el, key, nil)
	return ok
}

// String returns the trimmed value of key, or def.
func (a Accessor) String(el *Element, key, def string, msg ...string) string {
	v, _, ok := a.raw(el, key, msg)
	if !ok {
		return def
	}
	return v
}

func normalizeNumber(s string) string {
	return strings.ReplaceAll(s, ",", ".")
}

// Float returns key as a float64, or def.
func (a Accessor) Float(el *Element, key string, def float64, msg ...string) float64 {
	v, ok := a.OptionalFloat(el, key, msg...)
	if !ok {
		return def
	}
	return v
}

// OptionalFloat returns key as a float64 and whether a valid value was present.
func (a Accessor) OptionalFloat(el *Element, key string, msg ...string) (float64, bool) {
	v, attr, ok := a.raw(el, key, msg)
	if !ok {
		return 0, false
	}
	f, err := strconv.ParseFloat(normalizeNumber(v), 64)
	if err != nil {
		a.parseFailed(el, attr, key, v, "double")
		return 0, false
	}
	return f, true
}

// Int returns key as an int, or def. Integral decimals such as "12.0" are
// accepted.
func (a Accessor) Int(el *Element, key string, def int, msg ...string) int {
	v, attr, ok := a.raw(el, key, msg)
	if !ok {
		return def
	}
	n := normalizeNumber(v)
	if i, err := strconv.Atoi(n); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(n, 64); err == nil && f == float64(int(f)) {
		return int(f)
	}
	a.parseFailed(el, attr, key, v, "int")
	return def
}

// Date returns key parsed with DateLayout, or def.
func (a Accessor) Date(el *Element, key string, def time.Time, msg ...string) time.Time {
	v, attr, ok := a.raw(el, key, msg)
	if !ok {
		return def
	}
	for _, layout := range []string{DateLayout, "2006-01-02"} {
		if t, err := time.Parse(layout, v); err == nil {
			return t
		}
	}
	a.parseFailed(el, attr, key, v, "date")
	return def
}

// Enum resolves key through table. A blank value returns def; an unknown code
// logs a warning and returns the zero value.
func Enum[T comparable](a Accessor, el *Element, key string, table *EnumTable[T], def T, msg ...string) T {
	v, attr, ok := a.raw(el, key, msg)
	if !ok {
		return def
	}
	if val, found := table.Lookup(v); found {
		return val
	}
	line := el.Line
	if attr.Line > 0 {
		line = attr.Line
	}
	a.log(report.Entry{
		Level:   zapcore.WarnLevel,
		Message: fmt.Sprintf("Unknown %s code '%s' for attribute '%s'", table.Name(), v, key),
		File:    el.File,
		Line:    line,
		Element: el.TypeName,
		Key:     key,
		Value:   v,
	})
	var zero T
	return zero
}
