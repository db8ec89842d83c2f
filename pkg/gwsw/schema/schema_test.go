package schema

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/Deltares-research/DHYDROGUI-sub021/pkg/errors"
	"github.com/Deltares-research/DHYDROGUI-sub021/pkg/gwsw/report"
	"github.com/Deltares-research/DHYDROGUI-sub021/pkg/source"
)

func TestEmbeddedRevisions(t *testing.T) {
	for _, v := range Versions() {
		t.Run(v, func(t *testing.T) {
			s, err := Embedded(v, nil)
			require.NoError(t, err)
			assert.Equal(t, v, s.Version())

			files := s.Files()
			assert.Contains(t, files, "Knooppunt.csv")
			assert.Contains(t, files, "Verbinding.csv")
			assert.Contains(t, files, "Debiet.csv")

			et, ok := s.ElementTypeForFile("knooppunt.CSV")
			require.True(t, ok)
			assert.Equal(t, "Node", et)

			def := s.Lookup("Node", "uni_ide")
			require.NotNil(t, def)
			assert.Equal(t, "UNIQUE_ID", def.Key)
			assert.True(t, def.Mandatory)
			assert.Same(t, def, s.Definition("Node", "UNIQUE_ID"))

			width := s.Definition("Crosssection", "WIDTH")
			require.NotNil(t, width)
			assert.Equal(t, TypeDouble, width.Type)
			assert.Equal(t, "mm", width.Unit)
		})
	}
}

func TestRevisionDifferences(t *testing.T) {
	v14, err := Embedded(Version14, nil)
	require.NoError(t, err)
	v15, err := Embedded(Version15, nil)
	require.NoError(t, err)

	assert.NotContains(t, v14.Columns("Knooppunt.csv"), MarkerColumn)
	assert.Contains(t, v15.Columns("Knooppunt.csv"), MarkerColumn)
	assert.Nil(t, v14.Definition("Discharge", "DISTRIBUTION_ID"))
	assert.NotNil(t, v15.Definition("Discharge", "DISTRIBUTION_ID"))
}

func TestUnknownVersion(t *testing.T) {
	_, err := Embedded("2.0", nil)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeSchema))

	_, err = Load(context.Background(), source.NewMemory(nil), WithVersion("0.9"))
	require.Error(t, err)
	assert.True(t, errors.IsFatal(err))
}

func TestParseEmptyTable(t *testing.T) {
	_, err := Parse(strings.NewReader(strings.Join(tableHeader, ";")+"\n"), "test", nil)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeSchema))
}

func TestParseInconsistencies(t *testing.T) {
	table := strings.Join(tableHeader, ";") + "\n" +
		"Knooppunt.csv;Node;Id;UNI_IDE;UNIQUE_ID;;string;;J;;\n" +
		"Knooppunt.csv;Node;Id2;UNI_ID2;UNIQUE_ID;;string;;N;;\n" +
		"Put.csv;Node;Level;MVD_NIV;SURFACE_LEVEL;;getal;m;N;;\n"

	sink := report.NewCollector(nil)
	s, err := Parse(strings.NewReader(table), "test", sink)
	require.NoError(t, err)

	assert.Equal(t, "UNI_IDE", s.Definition("Node", "UNIQUE_ID").LocalKey)
	assert.Equal(t, []string{"UNI_IDE", "UNI_ID2"}, s.Columns("Knooppunt.csv"))
	assert.Equal(t, TypeDouble, s.Definition("Node", "SURFACE_LEVEL").Type)

	r := sink.Drain()
	assert.Equal(t, 2, r.Count(zapcore.WarnLevel))
}

func TestDetect(t *testing.T) {
	tests := []struct {
		name  string
		files map[string][]byte
		want  string
	}{
		{"marker present", map[string][]byte{"Knooppunt.csv": []byte("\ufeffUNI_IDE;RST_IDE;ITO_IDE;ALG_TOE\n")}, Version15},
		{"marker absent", map[string][]byte{"Knooppunt.csv": []byte("UNI_IDE;RST_IDE;ALG_TOE\n")}, Version14},
		{"no node file", map[string][]byte{"Verbinding.csv": []byte("UNI_IDE\n")}, Version14},
		{"empty node file", map[string][]byte{"Knooppunt.csv": nil}, Version14},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := report.NewCollector(nil)
			got := Detect(context.Background(), source.NewMemory(tt.files), ';', sink)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoadForcedVersion(t *testing.T) {
	src := source.NewMemory(map[string][]byte{"Knooppunt.csv": []byte("UNI_IDE;ITO_IDE\n")})

	s, err := Load(context.Background(), src, WithVersion(Version14))
	require.NoError(t, err)
	assert.Equal(t, Version14, s.Version())

	s, err = Load(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, Version15, s.Version())
}

func TestParseAttributeType(t *testing.T) {
	tests := []struct {
		in   string
		want AttributeType
		ok   bool
	}{
		{"string", TypeString, true},
		{"Getal", TypeDouble, true},
		{"geheel getal", TypeInt, true},
		{"Datum", TypeDate, true},
		{"blob", TypeString, false},
	}
	for _, tt := range tests {
		got, ok := ParseAttributeType(tt.in)
		assert.Equal(t, tt.want, got, tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
	}
}
