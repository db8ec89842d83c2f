package element

import (
	"fmt"
	"strings"
)

// EnumPair binds a GWSW code to a value.
type EnumPair[T comparable] struct {
	Code  string
	Value T
}

// EnumTable is a bidirectional code table. Lookups are case-insensitive and
// trimmed. Several codes may map to one value; Code returns the first.
type EnumTable[T comparable] struct {
	name    string
	toValue map[string]T
	toCode  map[T]string
	codes   []string
}

// NewEnumTable builds a table. Tables are built at package init, so a
// duplicate code panics.
func NewEnumTable[T comparable](name string, pairs ...EnumPair[T]) *EnumTable[T] {
	t := &EnumTable[T]{
		name:    name,
		toValue: make(map[string]T, len(pairs)),
		toCode:  make(map[T]string, len(pairs)),
	}
	for _, p := range pairs {
		code := NormalizeCode(p.Code)
		if _, dup := t.toValue[code]; dup {
			panic(fmt.Sprintf("enum table %s: duplicate code %q", name, p.Code))
		}
		t.toValue[code] = p.Value
		if _, ok := t.toCode[p.Value]; !ok {
			t.toCode[p.Value] = p.Code
		}
		t.codes = append(t.codes, p.Code)
	}
	return t
}

// NormalizeCode trims and upper-cases a GWSW code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Name returns the table name.
func (t *EnumTable[T]) Name() string {
	return t.name
}

// Lookup resolves code.
func (t *EnumTable[T]) Lookup(code string) (T, bool) {
	v, ok := t.toValue[NormalizeCode(code)]
	return v, ok
}

// Code returns the first code mapped to v.
func (t *EnumTable[T]) Code(v T) (string, bool) {
	c, ok := t.toCode[v]
	return c, ok
}

// Codes returns the codes in declaration order.
func (t *EnumTable[T]) Codes() []string {
	out := make([]string, len(t.codes))
	copy(out, t.codes)
	return out
}
