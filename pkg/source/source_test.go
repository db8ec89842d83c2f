package source

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Deltares-research/DHYDROGUI-sub021/pkg/compression"
)

func TestParse(t *testing.T) {
	tests := []struct {
		uri    string
		scheme string
		bucket string
		prefix string
	}{
		{"/data/hydx", "", "", "/data/hydx"},
		{"file:///data/hydx", "file", "", "/data/hydx"},
		{"s3://sewer/projects/delft", "s3", "sewer", "projects/delft"},
		{"gs://sewer", "gs", "sewer", ""},
		{`C:\data\hydx`, "", "", `C:\data\hydx`},
	}

	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			scheme, bucket, prefix := Parse(tt.uri)
			assert.Equal(t, tt.scheme, scheme)
			assert.Equal(t, tt.bucket, bucket)
			assert.Equal(t, tt.prefix, prefix)
		})
	}
}

func TestLocalFilesDecompress(t *testing.T) {
	dir := t.TempDir()
	content := "UNI_IDE;KNP_TYP\nput1;UIT\n"

	gz, err := compression.Compress([]byte(content), compression.Gzip, compression.Default)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Knooppunt.csv.gz"), gz, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Profiel.csv"), []byte("PRO_IDE\n"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "archive"), 0o755))

	src, err := New(context.Background(), dir, Options{})
	require.NoError(t, err)
	defer src.Close()

	files, err := Files(context.Background(), src)
	require.NoError(t, err)
	require.Len(t, files, 2)

	f, ok := Find(files, "knooppunt.csv")
	require.True(t, ok)
	assert.Equal(t, compression.Gzip, f.Algorithm)

	r, err := OpenFile(context.Background(), src, f)
	require.NoError(t, err)
	defer r.Close()
	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, content, string(got))
}

func TestLocalUpload(t *testing.T) {
	dir := t.TempDir()
	l, err := NewLocal(dir)
	require.NoError(t, err)

	require.NoError(t, l.Upload(context.Background(), "out/network.json", strings.NewReader("{}")))
	data, err := os.ReadFile(filepath.Join(dir, "out", "network.json"))
	require.NoError(t, err)
	assert.Equal(t, "{}", string(data))
}

func TestNewErrors(t *testing.T) {
	_, err := New(context.Background(), "", Options{})
	assert.Error(t, err)

	_, err = New(context.Background(), "ftp://host/dir", Options{})
	assert.Error(t, err)

	_, err = New(context.Background(), filepath.Join(t.TempDir(), "missing"), Options{})
	assert.Error(t, err)
}

func TestMemoryOpenMissing(t *testing.T) {
	m := NewMemory(map[string][]byte{"Debiet.csv": []byte("x")})
	_, err := m.Open(context.Background(), "Verloop.csv")
	assert.ErrorIs(t, err, os.ErrNotExist)
}
