// Package source lists and opens GWSW file sets from a local directory, an S3
// prefix or a GCS prefix.
package source

import (
	"context"
	"io"
	"net/url"
	"sort"
	"strings"

	"github.com/Deltares-research/DHYDROGUI-sub021/pkg/compression"
	"github.com/Deltares-research/DHYDROGUI-sub021/pkg/errors"
)

// Source is a flat set of named files.
type Source interface {
	// List returns the object names, relative to the source root.
	List(ctx context.Context) ([]string, error)
	// Open opens the raw (possibly compressed) object.
	Open(ctx context.Context, name string) (io.ReadCloser, error)
	// Close releases client resources.
	Close() error
	String() string
}

// Uploader is implemented by sources that can receive export files.
type Uploader interface {
	Upload(ctx context.Context, name string, r io.Reader) error
}

// Options configures remote backends.
type Options struct {
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	PathStyle       bool   `yaml:"path_style"`
	CredentialsFile string `yaml:"credentials_file"`
}

// New opens the source addressed by uri: a bare path or file:// URI for a
// local directory, s3://bucket/prefix or gs://bucket/prefix.
func New(ctx context.Context, uri string, opts Options) (Source, error) {
	if uri == "" {
		return nil, errors.New(errors.ErrorTypeValidation, "source location is empty")
	}
	scheme, bucket, prefix := Parse(uri)
	switch scheme {
	case "", "file":
		return NewLocal(prefix)
	case "s3":
		return NewS3(ctx, bucket, prefix, opts)
	case "gs", "gcs":
		return NewGCS(ctx, bucket, prefix, opts)
	}
	return nil, errors.Newf(errors.ErrorTypeValidation, "unsupported source scheme %q", scheme).
		WithDetail("uri", uri)
}

// Parse splits uri into scheme, bucket and prefix. For local paths the
// bucket is empty and prefix is the directory.
func Parse(uri string) (scheme, bucket, prefix string) {
	u, err := url.Parse(uri)
	if err != nil || u.Scheme == "" || len(u.Scheme) == 1 {
		// no scheme, or a Windows drive letter
		return "", "", uri
	}
	switch u.Scheme {
	case "file":
		return "file", "", u.Path
	default:
		return u.Scheme, u.Host, strings.TrimPrefix(u.Path, "/")
	}
}

// File is one listed object with its compression resolved.
type File struct {
	Name      string                `json:"name"`
	Logical   string                `json:"logical"`
	Algorithm compression.Algorithm `json:"algorithm"`
}

// Files lists src and resolves compression extensions, sorted by logical name.
func Files(ctx context.Context, src Source) ([]File, error) {
	names, err := src.List(ctx)
	if err != nil {
		return nil, err
	}
	files := make([]File, 0, len(names))
	for _, n := range names {
		alg, logical := compression.Detect(n)
		files = append(files, File{Name: n, Logical: logical, Algorithm: alg})
	}
	sort.Slice(files, func(i, j int) bool {
		if files[i].Logical != files[j].Logical {
			return files[i].Logical < files[j].Logical
		}
		return files[i].Name < files[j].Name
	})
	return files, nil
}

// Find returns the file whose logical name matches, case-insensitively.
func Find(files []File, logical string) (File, bool) {
	for _, f := range files {
		if strings.EqualFold(baseName(f.Logical), logical) {
			return f, true
		}
	}
	return File{}, false
}

func baseName(name string) string {
	if i := strings.LastIndexAny(name, "/\\"); i >= 0 {
		return name[i+1:]
	}
	return name
}

// BaseName returns the logical file name without any directory part.
func (f File) BaseName() string {
	return baseName(f.Logical)
}

// OpenFile opens f and wraps it in its decompressor.
func OpenFile(ctx context.Context, src Source, f File) (io.ReadCloser, error) {
	raw, err := src.Open(ctx, f.Name)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to open file").
			WithDetail("file", f.Name).
			WithDetail("source", src.String())
	}
	if f.Algorithm == compression.None {
		return raw, nil
	}
	dec, err := compression.NewReader(raw, f.Algorithm)
	if err != nil {
		raw.Close()
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to open compressed file").
			WithDetail("file", f.Name).
			WithDetail("algorithm", string(f.Algorithm))
	}
	return &decoded{ReadCloser: dec, raw: raw}, nil
}

type decoded struct {
	io.ReadCloser
	raw io.Closer
}

func (d *decoded) Close() error {
	err := d.ReadCloser.Close()
	if rerr := d.raw.Close(); err == nil {
		err = rerr
	}
	return err
}
