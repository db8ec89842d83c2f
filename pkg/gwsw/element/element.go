// Package element holds decoded GWSW rows and the typed accessors generators
// use to read them.
package element

import (
	"strings"

	"github.com/Deltares-research/DHYDROGUI-sub021/pkg/gwsw/schema"
)

// Element type names as declared in the attribute tables.
const (
	TypeNode         = "Node"
	TypeConnection   = "Connection"
	TypeStructure    = "Structure"
	TypeCrosssection = "Crosssection"
	TypeSurface      = "Surface"
	TypeRunoff       = "Runoff"
	TypeDistribution = "Distribution"
	TypeDischarge    = "Discharge"
	TypeMeta         = "Meta"
)

// Attribute is one cell of a decoded row. A nil Definition marks a column the
// schema does not know.
type Attribute struct {
	Definition *schema.AttributeDefinition
	Value      string
	Line       int
}

// Key returns the semantic key, or "" for an unrecognised column.
func (a Attribute) Key() string {
	if a.Definition == nil {
		return ""
	}
	return a.Definition.Key
}

// Element is one decoded row. It is read-only after New.
type Element struct {
	TypeName   string
	File       string
	Line       int
	Attributes []Attribute

	index map[string]int
}

// New builds an element. Attributes keep their header order; when a key
// appears twice the first column wins.
func New(typeName, file string, line int, attrs []Attribute) *Element {
	el := &Element{
		TypeName:   typeName,
		File:       file,
		Line:       line,
		Attributes: attrs,
		index:      make(map[string]int, len(attrs)),
	}
	for i, a := range attrs {
		k := a.Key()
		if k == "" {
			continue
		}
		if _, ok := el.index[k]; !ok {
			el.index[k] = i
		}
	}
	return el
}

// Attribute returns the recognised attribute stored under key.
func (e *Element) Attribute(key string) (Attribute, bool) {
	if e == nil {
		return Attribute{}, false
	}
	i, ok := e.index[strings.ToUpper(key)]
	if !ok {
		return Attribute{}, false
	}
	return e.Attributes[i], true
}

// Value returns the trimmed raw value of key, or "".
func (e *Element) Value(key string) string {
	a, ok := e.Attribute(key)
	if !ok {
		return ""
	}
	return strings.TrimSpace(a.Value)
}

// Unmapped returns the attributes without a schema definition.
func (e *Element) Unmapped() []Attribute {
	var out []Attribute
	for _, a := range e.Attributes {
		if a.Definition == nil {
			out = append(out, a)
		}
	}
	return out
}

var identityKeys = []string{"UNIQUE_ID", "CROSS_SECTION_ID", "DISTRIBUTION_ID", "SURFACE_ID"}

// Identity returns the first non-blank identifying value, used in messages.
func (e *Element) Identity() string {
	for _, k := range identityKeys {
		if v := e.Value(k); v != "" {
			return v
		}
	}
	return ""
}

// Equal reports whether two elements carry the same type, line and values.
func (e *Element) Equal(o *Element) bool {
	if e == nil || o == nil {
		return e == o
	}
	if e.TypeName != o.TypeName || e.File != o.File || e.Line != o.Line || len(e.Attributes) != len(o.Attributes) {
		return false
	}
	for i := range e.Attributes {
		a, b := e.Attributes[i], o.Attributes[i]
		if a.Definition != b.Definition || a.Value != b.Value {
			return false
		}
	}
	return true
}
