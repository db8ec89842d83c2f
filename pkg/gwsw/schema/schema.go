// Package schema maps GWSW-Hyd file columns to typed attribute definitions.
//
// The mapping is read from an embedded definition table, one per supported
// GWSW revision. Each table row declares the owning file, the element type,
// the short column code used in the file header (the local key) and the
// international code used by the generators (the key).
package schema

import (
	"embed"
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/Deltares-research/DHYDROGUI-sub021/pkg/errors"
	"github.com/Deltares-research/DHYDROGUI-sub021/pkg/gwsw/report"
)

//go:embed definitions/*.csv
var definitions embed.FS

// Supported GWSW revisions.
const (
	Version14 = "1.4"
	Version15 = "1.5"
)

var tables = map[string]string{
	Version14: "definitions/gwsw_1.4.csv",
	Version15: "definitions/gwsw_1.5.csv",
}

// Versions returns the supported revisions, oldest first.
func Versions() []string {
	return []string{Version14, Version15}
}

var tableHeader = []string{
	"FileName", "ElementName", "ColumnName", "Code", "CodeInternational",
	"Definition", "Type", "Unit", "Mandatory", "DefaultValue", "Remarks",
}

const (
	colFileName = iota
	colElementName
	colColumnName
	colCode
	colCodeInternational
	colDefinition
	colType
	colUnit
	colMandatory
	colDefaultValue
	colRemarks
)

// AttributeType is the value type of a column.
type AttributeType int

const (
	TypeString AttributeType = iota
	TypeDouble
	TypeInt
	TypeDate
)

func (t AttributeType) String() string {
	switch t {
	case TypeDouble:
		return "double"
	case TypeInt:
		return "int"
	case TypeDate:
		return "date"
	default:
		return "string"
	}
}

// ParseAttributeType accepts the English and Dutch type names used in
// definition tables.
func ParseAttributeType(s string) (AttributeType, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "string", "tekst", "text", "":
		return TypeString, true
	case "double", "getal", "decimal", "float":
		return TypeDouble, true
	case "int", "integer", "geheel getal":
		return TypeInt, true
	case "date", "datum":
		return TypeDate, true
	}
	return TypeString, false
}

// AttributeDefinition describes one column of one GWSW file.
type AttributeDefinition struct {
	ElementType string        `json:"element_type" yaml:"element_type"`
	Key         string        `json:"key" yaml:"key"`
	LocalKey    string        `json:"local_key" yaml:"local_key"`
	Name        string        `json:"name" yaml:"name"`
	Type        AttributeType `json:"-" yaml:"-"`
	Default     string        `json:"default,omitempty" yaml:"default,omitempty"`
	FileName    string        `json:"file" yaml:"file"`
	Unit        string        `json:"unit,omitempty" yaml:"unit,omitempty"`
	Mandatory   bool          `json:"mandatory" yaml:"mandatory"`
	Definition  string        `json:"definition,omitempty" yaml:"definition,omitempty"`
	Remarks     string        `json:"remarks,omitempty" yaml:"remarks,omitempty"`
}

// Schema is the immutable column mapping of one revision. It is safe for
// concurrent reads.
type Schema struct {
	version     string
	defs        []*AttributeDefinition
	files       []string
	byFile      map[string][]*AttributeDefinition
	fileElement map[string]string
	byLocal     map[string]map[string]*AttributeDefinition
	byKey       map[string]map[string]*AttributeDefinition
}

func fold(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// Embedded parses the embedded table of version.
func Embedded(version string, sink report.Sink) (*Schema, error) {
	path, ok := tables[version]
	if !ok {
		return nil, errors.Newf(errors.ErrorTypeSchema, "unsupported GWSW version %q", version).
			WithDetail("supported", Versions())
	}
	f, err := definitions.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeSchema, "definition table not found").
			WithDetail("version", version)
	}
	defer f.Close()
	return Parse(f, version, sink)
}

// Parse builds a schema from a ';'-separated definition table.
func Parse(r io.Reader, version string, sink report.Sink) (*Schema, error) {
	if sink == nil {
		sink = report.NewCollector(nil)
	}

	cr := csv.NewReader(r)
	cr.Comma = ';'
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeSchema, "failed to read definition table").
			WithDetail("version", version)
	}
	if len(rows) > 0 && isHeader(rows[0]) {
		rows = rows[1:]
	}

	s := &Schema{
		version:     version,
		byFile:      make(map[string][]*AttributeDefinition),
		fileElement: make(map[string]string),
		byLocal:     make(map[string]map[string]*AttributeDefinition),
		byKey:       make(map[string]map[string]*AttributeDefinition),
	}
	elementFile := make(map[string]string)

	for i, row := range rows {
		if len(row) <= colCodeInternational || strings.TrimSpace(row[colFileName]) == "" {
			continue
		}
		def := newDefinition(row)
		if _, ok := ParseAttributeType(field(row, colType)); !ok {
			sink.Warnf("Unknown attribute type '%s' for '%s' in schema row %d, reading it as text",
				field(row, colType), def.LocalKey, i+2)
		}

		fileKey := fold(def.FileName)
		if _, ok := s.byFile[fileKey]; !ok {
			s.files = append(s.files, def.FileName)
			s.fileElement[fileKey] = def.ElementType
		}
		if owner, ok := elementFile[def.ElementType]; ok && fold(owner) != fileKey {
			sink.Warnf("Schema inconsistency: element type '%s' is declared in both '%s' and '%s'",
				def.ElementType, owner, def.FileName)
		} else if !ok {
			elementFile[def.ElementType] = def.FileName
		}

		s.defs = append(s.defs, def)
		s.byFile[fileKey] = append(s.byFile[fileKey], def)

		if s.byLocal[def.ElementType] == nil {
			s.byLocal[def.ElementType] = make(map[string]*AttributeDefinition)
			s.byKey[def.ElementType] = make(map[string]*AttributeDefinition)
		}
		if _, ok := s.byLocal[def.ElementType][fold(def.LocalKey)]; !ok {
			s.byLocal[def.ElementType][fold(def.LocalKey)] = def
		}
		if first, ok := s.byKey[def.ElementType][def.Key]; ok {
			sink.Warnf("Schema inconsistency: key '%s' of element type '%s' is declared for both '%s' and '%s', using '%s'",
				def.Key, def.ElementType, first.LocalKey, def.LocalKey, first.LocalKey)
			continue
		}
		s.byKey[def.ElementType][def.Key] = def
	}

	if len(s.defs) == 0 {
		return nil, errors.New(errors.ErrorTypeSchema, "definition table contains no attribute definitions").
			WithDetail("version", version)
	}
	return s, nil
}

func isHeader(row []string) bool {
	return len(row) > colCode && strings.EqualFold(strings.TrimSpace(row[colFileName]), tableHeader[colFileName]) &&
		strings.EqualFold(strings.TrimSpace(row[colCode]), tableHeader[colCode])
}

func field(row []string, i int) string {
	if i < len(row) {
		return strings.TrimSpace(row[i])
	}
	return ""
}

func newDefinition(row []string) *AttributeDefinition {
	typ, _ := ParseAttributeType(field(row, colType))
	mandatory := strings.ToUpper(field(row, colMandatory))
	return &AttributeDefinition{
		FileName:    field(row, colFileName),
		ElementType: field(row, colElementName),
		Name:        field(row, colColumnName),
		LocalKey:    field(row, colCode),
		Key:         fold(field(row, colCodeInternational)),
		Definition:  field(row, colDefinition),
		Type:        typ,
		Unit:        field(row, colUnit),
		Mandatory:   mandatory == "J" || mandatory == "Y" || mandatory == "TRUE",
		Default:     field(row, colDefaultValue),
		Remarks:     field(row, colRemarks),
	}
}

// Version returns the GWSW revision of the schema.
func (s *Schema) Version() string {
	return s.version
}

// Files returns the file names in table order.
func (s *Schema) Files() []string {
	out := make([]string, len(s.files))
	copy(out, s.files)
	return out
}

// Definitions returns every definition in table order.
func (s *Schema) Definitions() []*AttributeDefinition {
	out := make([]*AttributeDefinition, len(s.defs))
	copy(out, s.defs)
	return out
}

// FileName returns the canonical spelling of file, matched case-insensitively.
func (s *Schema) FileName(file string) (string, bool) {
	defs, ok := s.byFile[fold(file)]
	if !ok || len(defs) == 0 {
		return "", false
	}
	return defs[0].FileName, true
}

// ElementTypeForFile returns the element type owned by file.
func (s *Schema) ElementTypeForFile(file string) (string, bool) {
	et, ok := s.fileElement[fold(file)]
	return et, ok
}

// Columns returns the ordered local keys declared for file.
func (s *Schema) Columns(file string) []string {
	defs := s.byFile[fold(file)]
	out := make([]string, len(defs))
	for i, d := range defs {
		out[i] = d.LocalKey
	}
	return out
}

// ColumnDefinitions returns the ordered definitions declared for file.
func (s *Schema) ColumnDefinitions(file string) []*AttributeDefinition {
	defs := s.byFile[fold(file)]
	out := make([]*AttributeDefinition, len(defs))
	copy(out, defs)
	return out
}

// Lookup resolves a header column of elementType.
func (s *Schema) Lookup(elementType, localKey string) *AttributeDefinition {
	return s.byLocal[elementType][fold(localKey)]
}

// Definition resolves a semantic key of elementType.
func (s *Schema) Definition(elementType, key string) *AttributeDefinition {
	return s.byKey[elementType][fold(key)]
}

// ElementTypes returns the element types in table order.
func (s *Schema) ElementTypes() []string {
	seen := make(map[string]bool)
	var out []string
	for _, d := range s.defs {
		if !seen[d.ElementType] {
			seen[d.ElementType] = true
			out = append(out, d.ElementType)
		}
	}
	return out
}

// Summary returns the number of columns per file, sorted by file name.
func (s *Schema) Summary() []string {
	out := make([]string, 0, len(s.files))
	for _, f := range s.files {
		out = append(out, fmt.Sprintf("%s (%s): %d columns", f, s.fileElement[fold(f)], len(s.byFile[fold(f)])))
	}
	sort.Strings(out)
	return out
}

// Fields returns zap fields describing the schema.
func (s *Schema) Fields() []zap.Field {
	return []zap.Field{
		zap.String("schema_version", s.version),
		zap.Int("files", len(s.files)),
		zap.Int("definitions", len(s.defs)),
	}
}
