package source

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/Deltares-research/DHYDROGUI-sub021/pkg/errors"
)

// Local reads a directory on disk. Subdirectories are ignored.
type Local struct {
	dir string
}

// NewLocal opens dir.
func NewLocal(dir string) (*Local, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "source directory not accessible").
			WithDetail("dir", dir)
	}
	if !info.IsDir() {
		return nil, errors.New(errors.ErrorTypeValidation, "source is not a directory").
			WithDetail("dir", dir)
	}
	return &Local{dir: dir}, nil
}

// List implements Source.
func (l *Local) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to list directory").
			WithDetail("dir", l.dir)
	}
	var names []string
	for _, e := range entries {
		if e.Type().IsRegular() {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

// Open implements Source.
func (l *Local) Open(_ context.Context, name string) (io.ReadCloser, error) {
	return os.Open(filepath.Join(l.dir, filepath.Base(name)))
}

// Upload writes r to name inside the directory.
func (l *Local) Upload(ctx context.Context, name string, r io.Reader) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path := filepath.Join(l.dir, filepath.Clean("/" + name))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Close implements Source.
func (l *Local) Close() error { return nil }

func (l *Local) String() string {
	return "file://" + l.dir
}
