package decoder

import (
	"bytes"
	"context"
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/Deltares-research/DHYDROGUI-sub021/pkg/compression"
	"github.com/Deltares-research/DHYDROGUI-sub021/pkg/errors"
	"github.com/Deltares-research/DHYDROGUI-sub021/pkg/gwsw/element"
	"github.com/Deltares-research/DHYDROGUI-sub021/pkg/gwsw/report"
	"github.com/Deltares-research/DHYDROGUI-sub021/pkg/gwsw/schema"
	"github.com/Deltares-research/DHYDROGUI-sub021/pkg/source"
	"github.com/Deltares-research/DHYDROGUI-sub021/pkg/testutil"
)

func nodeRows(n int) []testutil.Row {
	rows := make([]testutil.Row, n)
	for i := range rows {
		rows[i] = testutil.Row{
			"UNIQUE_ID":     fmt.Sprintf("put%d", i),
			"NODE_XCOORD":   fmt.Sprintf("%d,5", 1000+i),
			"NODE_YCOORD":   "400000",
			"SURFACE_LEVEL": "1.25",
			"NODE_TYPE":     "INS",
		}
	}
	return rows
}

func TestDecodeRoundTrip(t *testing.T) {
	fs := testutil.NewFileSet(t, schema.Version15).Add("Knooppunt.csv", nodeRows(3)...)
	sink := report.NewCollector(nil)
	d := New(fs.Schema, WithSink(sink), WithWorkers(2))

	res, err := d.Decode(context.Background(), "Knooppunt.csv", bytes.NewReader(fs.Content("Knooppunt.csv")))
	require.NoError(t, err)

	assert.Equal(t, "Node", res.ElementType)
	assert.Equal(t, 3, res.Rows)
	require.Len(t, res.Elements, 3)

	acc := element.Accessor{Sink: sink}
	for i, el := range res.Elements {
		assert.Equal(t, "Node", el.TypeName)
		assert.Equal(t, i+2, el.Line)
		assert.Len(t, el.Attributes, len(fs.Schema.Columns("Knooppunt.csv")))
		assert.Equal(t, fmt.Sprintf("put%d", i), acc.String(el, "UNIQUE_ID", ""))
		assert.InDelta(t, 1000.5+float64(i), acc.Float(el, "NODE_XCOORD", 0), 1e-9)
		assert.Equal(t, "", el.Value("MANHOLE_ID"))
	}
	assert.Equal(t, 0, sink.Len())
}

func TestDecodeHeaderMismatch(t *testing.T) {
	s, err := schema.Embedded(schema.Version14, nil)
	require.NoError(t, err)
	cols := s.Columns("Verbinding.csv")

	tests := []struct {
		name   string
		header []string
		want   string
	}{
		{"renamed column", append([]string{"UNIQUE"}, cols[1:]...), "expected 'UNI_IDE', found 'UNIQUE'"},
		{"swapped columns", append([]string{cols[1], cols[0]}, cols[2:]...), "at column 1"},
		{"too short", cols[:3], "expects"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			content := strings.Join(tt.header, ";") + "\nlei1;put1;put2\n"
			res, err := New(s).Decode(context.Background(), "Verbinding.csv", strings.NewReader(content))
			require.Error(t, err)
			assert.Nil(t, res)
			assert.True(t, errors.IsType(err, errors.ErrorTypeFile))
			assert.False(t, errors.IsFatal(err))
			assert.Contains(t, err.Error(), "Verbinding.csv")
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestDecodeUnknownFile(t *testing.T) {
	s, err := schema.Embedded(schema.Version15, nil)
	require.NoError(t, err)

	_, err = New(s).Decode(context.Background(), "Gemaal.csv", strings.NewReader("A;B\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "will not be mapped")
	assert.True(t, errors.IsType(err, errors.ErrorTypeFile))
}

func TestDecodeIndependentOfRowOrder(t *testing.T) {
	rows := nodeRows(40)
	fs := testutil.NewFileSet(t, schema.Version15).Add("Knooppunt.csv", rows...)

	shuffled := make([]testutil.Row, len(rows))
	copy(shuffled, rows)
	rand.New(rand.NewSource(42)).Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
	fsShuffled := testutil.NewFileSet(t, schema.Version15).Add("Knooppunt.csv", shuffled...)

	d := New(fs.Schema, WithWorkers(8))
	a, err := d.Decode(context.Background(), "Knooppunt.csv", bytes.NewReader(fs.Content("Knooppunt.csv")))
	require.NoError(t, err)
	b, err := d.Decode(context.Background(), "Knooppunt.csv", bytes.NewReader(fsShuffled.Content("Knooppunt.csv")))
	require.NoError(t, err)

	assert.Equal(t, valueSet(a.Elements), valueSet(b.Elements))

	// line numbers follow the file, not completion order
	for i, el := range b.Elements {
		assert.Equal(t, i+2, el.Line)
	}
}

func valueSet(els []*element.Element) []string {
	out := make([]string, len(els))
	for i, el := range els {
		vals := make([]string, len(el.Attributes))
		for j, a := range el.Attributes {
			vals[j] = a.Key() + "=" + a.Value
		}
		out[i] = strings.Join(vals, "|")
	}
	sort.Strings(out)
	return out
}

func TestDecodeLenientInput(t *testing.T) {
	s, err := schema.Embedded(schema.Version14, nil)
	require.NoError(t, err)
	header := strings.Join(s.Columns("Profiel.csv"), ";")

	content := "\ufeff" + header + ";EXTRA\r\n" +
		"PRO1;BET;RND;400\r\n" +
		"\r\n" +
		";;;\r\n" +
		"PRO\xff2;PVC;\"EIV\";1000;1500;;;remark \"x\"\r\n"

	sink := report.NewCollector(nil)
	res, err := New(s, WithSink(sink)).Decode(context.Background(), "hydx/profiel.csv", strings.NewReader(content))
	require.NoError(t, err)

	assert.Equal(t, "Profiel.csv", res.File)
	assert.Equal(t, []string{"EXTRA"}, res.Unmapped)
	assert.Equal(t, 1, res.Skipped)
	require.Len(t, res.Elements, 2)

	first := res.Elements[0]
	assert.Equal(t, "PRO1", first.Value("CROSS_SECTION_ID"))
	assert.Equal(t, "", first.Value("HEIGHT"))
	assert.Equal(t, 2, first.Line)

	second := res.Elements[1]
	assert.Equal(t, "PRO\uFFFD2", second.Value("CROSS_SECTION_ID"))
	assert.Equal(t, "EIV", second.Value("CROSS_SECTION_SHAPE"))
	assert.Equal(t, 5, second.Line)
	assert.Len(t, second.Unmapped(), 1)

	r := sink.Drain()
	require.Len(t, r.Entries, 1)
	assert.Equal(t, zapcore.WarnLevel, r.Entries[0].Level)
	assert.Equal(t, "EXTRA", r.Entries[0].Key)
}

func TestDecodeCancelled(t *testing.T) {
	fs := testutil.NewFileSet(t, schema.Version15).Add("Knooppunt.csv", nodeRows(10)...)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := New(fs.Schema).Decode(ctx, "Knooppunt.csv", bytes.NewReader(fs.Content("Knooppunt.csv")))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeCancelled))
	assert.Empty(t, res.Elements)
}

func TestDecodeFileCompressed(t *testing.T) {
	fs := testutil.NewFileSet(t, schema.Version15).Add("Knooppunt.csv", nodeRows(2)...)
	zst, err := compression.Compress(fs.Content("Knooppunt.csv"), compression.Zstd, compression.Default)
	require.NoError(t, err)

	src := source.NewMemory(map[string][]byte{"Knooppunt.csv.zst": zst})
	files, err := source.Files(context.Background(), src)
	require.NoError(t, err)
	require.Len(t, files, 1)

	res, err := New(fs.Schema).DecodeFile(context.Background(), src, files[0])
	require.NoError(t, err)
	assert.Len(t, res.Elements, 2)
}
