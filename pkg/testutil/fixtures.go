package testutil

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Deltares-research/DHYDROGUI-sub021/pkg/gwsw/element"
	"github.com/Deltares-research/DHYDROGUI-sub021/pkg/gwsw/schema"
	"github.com/Deltares-research/DHYDROGUI-sub021/pkg/source"
)

// Row holds cell values by semantic key, e.g. {"UNIQUE_ID": "put1"}.
type Row map[string]string

// FileSet builds schema-conformant GWSW files.
type FileSet struct {
	t      *testing.T
	Schema *schema.Schema
	files  map[string][]Row
	order  []string
}

// NewFileSet creates an empty file set for the embedded schema of version.
func NewFileSet(t *testing.T, version string) *FileSet {
	t.Helper()
	s, err := schema.Embedded(version, nil)
	require.NoError(t, err)
	return &FileSet{t: t, Schema: s, files: make(map[string][]Row)}
}

// Add appends rows to file. Files without rows still get a header.
func (fs *FileSet) Add(file string, rows ...Row) *FileSet {
	fs.t.Helper()
	if _, ok := fs.files[file]; !ok {
		_, known := fs.Schema.ElementTypeForFile(file)
		require.True(fs.t, known, "unknown GWSW file %s", file)
		fs.order = append(fs.order, file)
	}
	fs.files[file] = append(fs.files[file], rows...)
	return fs
}

// Content renders file as ';'-separated text.
func (fs *FileSet) Content(file string) []byte {
	defs := fs.Schema.ColumnDefinitions(file)
	var sb strings.Builder
	for i, d := range defs {
		if i > 0 {
			sb.WriteByte(';')
		}
		sb.WriteString(d.LocalKey)
	}
	sb.WriteByte('\n')
	for _, row := range fs.files[file] {
		for i, d := range defs {
			if i > 0 {
				sb.WriteByte(';')
			}
			sb.WriteString(row[d.Key])
		}
		sb.WriteByte('\n')
	}
	return []byte(sb.String())
}

// Files returns the file names in insertion order.
func (fs *FileSet) Files() []string {
	out := make([]string, len(fs.order))
	copy(out, fs.order)
	return out
}

// Memory returns the file set as an in-memory source.
func (fs *FileSet) Memory() *source.Memory {
	files := make(map[string][]byte, len(fs.files))
	for name := range fs.files {
		files[name] = fs.Content(name)
	}
	return source.NewMemory(files)
}

// WriteDir writes the file set into a new temporary directory.
func (fs *FileSet) WriteDir() string {
	fs.t.Helper()
	dir := fs.t.TempDir()
	names := fs.Files()
	sort.Strings(names)
	for _, name := range names {
		require.NoError(fs.t, os.WriteFile(filepath.Join(dir, name), fs.Content(name), 0o644))
	}
	return dir
}

// Element builds one element of elementType from semantic key values.
func Element(t *testing.T, s *schema.Schema, elementType string, line int, values Row) *element.Element {
	t.Helper()
	var file string
	for _, f := range s.Files() {
		if et, _ := s.ElementTypeForFile(f); et == elementType {
			file = f
			break
		}
	}
	require.NotEmpty(t, file, "no file for element type %s", elementType)

	defs := s.ColumnDefinitions(file)
	attrs := make([]element.Attribute, len(defs))
	for i, d := range defs {
		attrs[i] = element.Attribute{Definition: d, Value: values[d.Key], Line: line}
	}
	for k := range values {
		require.NotNil(t, s.Definition(elementType, k), "unknown key %s for %s", k, elementType)
	}
	return element.New(elementType, file, line, attrs)
}
