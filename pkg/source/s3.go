package source

import (
	"bytes"
	"context"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	"github.com/Deltares-research/DHYDROGUI-sub021/pkg/errors"
	"github.com/Deltares-research/DHYDROGUI-sub021/pkg/logger"
)

// S3 reads objects below a bucket prefix.
type S3 struct {
	bucket     string
	prefix     string
	client     *s3.Client
	downloader *manager.Downloader
	uploader   *manager.Uploader
	logger     *zap.Logger
}

// NewS3 loads the default AWS configuration and creates the clients.
func NewS3(ctx context.Context, bucket, prefix string, opts Options) (*S3, error) {
	if bucket == "" {
		return nil, errors.New(errors.ErrorTypeValidation, "s3 bucket is empty")
	}

	var loadOpts []func(*awsconfig.LoadOptions) error
	if opts.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(opts.Region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "failed to load AWS configuration")
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
		o.UsePathStyle = opts.PathStyle
	})

	return &S3{
		bucket:     bucket,
		prefix:     strings.Trim(prefix, "/"),
		client:     client,
		downloader: manager.NewDownloader(client),
		uploader:   manager.NewUploader(client),
		logger:     logger.With(zap.String("component", "s3_source"), zap.String("bucket", bucket)),
	}, nil
}

func (s *S3) key(name string) string {
	if s.prefix == "" {
		return name
	}
	return path.Join(s.prefix, name)
}

// List implements Source. Only direct children of the prefix are returned.
func (s *S3) List(ctx context.Context) ([]string, error) {
	input := &s3.ListObjectsV2Input{
		Bucket:    aws.String(s.bucket),
		Delimiter: aws.String("/"),
	}
	if s.prefix != "" {
		input.Prefix = aws.String(s.prefix + "/")
	}

	var names []string
	paginator := s3.NewListObjectsV2Paginator(s.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeConnection, "failed to list objects").
				WithDetail("bucket", s.bucket).
				WithDetail("prefix", s.prefix)
		}
		for _, obj := range page.Contents {
			name := strings.TrimPrefix(aws.ToString(obj.Key), aws.ToString(input.Prefix))
			if name != "" {
				names = append(names, name)
			}
		}
	}
	s.logger.Debug("listed objects", zap.String("prefix", s.prefix), zap.Int("count", len(names)))
	return names, nil
}

// Open downloads the object into memory. GWSW files are small enough that a
// concurrent ranged download beats streaming the body.
func (s *S3) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	buf := manager.NewWriteAtBuffer(nil)
	n, err := s.downloader.Download(ctx, buf, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(name)),
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "failed to download object").
			WithDetail("bucket", s.bucket).
			WithDetail("key", s.key(name))
	}
	s.logger.Debug("downloaded object", zap.String("key", s.key(name)), zap.Int64("bytes", n))
	return io.NopCloser(bytes.NewReader(buf.Bytes())), nil
}

// Upload implements Uploader.
func (s *S3) Upload(ctx context.Context, name string, r io.Reader) error {
	_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(name)),
		Body:   r,
	})
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeConnection, "failed to upload object").
			WithDetail("bucket", s.bucket).
			WithDetail("key", s.key(name))
	}
	return nil
}

// Close implements Source.
func (s *S3) Close() error { return nil }

func (s *S3) String() string {
	return "s3://" + path.Join(s.bucket, s.prefix)
}
