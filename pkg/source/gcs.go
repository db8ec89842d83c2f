package source

import (
	"context"
	"io"
	"path"
	"strings"

	"cloud.google.com/go/storage"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/Deltares-research/DHYDROGUI-sub021/pkg/errors"
	"github.com/Deltares-research/DHYDROGUI-sub021/pkg/logger"
)

// GCS reads objects below a Cloud Storage bucket prefix.
type GCS struct {
	bucket string
	prefix string
	client *storage.Client
	handle *storage.BucketHandle
	logger *zap.Logger
}

// NewGCS creates a storage client, using opts.CredentialsFile when set.
func NewGCS(ctx context.Context, bucket, prefix string, opts Options) (*GCS, error) {
	if bucket == "" {
		return nil, errors.New(errors.ErrorTypeValidation, "gcs bucket is empty")
	}

	var clientOpts []option.ClientOption
	if opts.CredentialsFile != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(opts.CredentialsFile))
	}
	if opts.Endpoint != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(opts.Endpoint))
	}

	client, err := storage.NewClient(ctx, clientOpts...)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "failed to create GCS client")
	}

	return &GCS{
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
		client: client,
		handle: client.Bucket(bucket),
		logger: logger.With(zap.String("component", "gcs_source"), zap.String("bucket", bucket)),
	}, nil
}

func (g *GCS) object(name string) string {
	if g.prefix == "" {
		return name
	}
	return path.Join(g.prefix, name)
}

// List implements Source. Only direct children of the prefix are returned.
func (g *GCS) List(ctx context.Context) ([]string, error) {
	query := &storage.Query{Delimiter: "/"}
	if g.prefix != "" {
		query.Prefix = g.prefix + "/"
	}

	var names []string
	it := g.handle.Objects(ctx, query)
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeConnection, "failed to list objects").
				WithDetail("bucket", g.bucket).
				WithDetail("prefix", g.prefix)
		}
		// synthetic directory entries carry only a prefix
		if attrs.Name == "" {
			continue
		}
		names = append(names, strings.TrimPrefix(attrs.Name, query.Prefix))
	}
	g.logger.Debug("listed objects", zap.String("prefix", g.prefix), zap.Int("count", len(names)))
	return names, nil
}

// Open implements Source.
func (g *GCS) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	r, err := g.handle.Object(g.object(name)).NewReader(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "failed to open object").
			WithDetail("bucket", g.bucket).
			WithDetail("object", g.object(name))
	}
	return r, nil
}

// Upload implements Uploader.
func (g *GCS) Upload(ctx context.Context, name string, r io.Reader) error {
	w := g.handle.Object(g.object(name)).NewWriter(ctx)
	if _, err := io.Copy(w, r); err != nil {
		w.Close()
		return errors.Wrap(err, errors.ErrorTypeConnection, "failed to write object").
			WithDetail("object", g.object(name))
	}
	if err := w.Close(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeConnection, "failed to finalize object").
			WithDetail("object", g.object(name))
	}
	return nil
}

// Close implements Source.
func (g *GCS) Close() error {
	return g.client.Close()
}

func (g *GCS) String() string {
	return "gs://" + path.Join(g.bucket, g.prefix)
}
