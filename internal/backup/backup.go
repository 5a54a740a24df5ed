// Package backup opens the destinations object store dumps are written to:
// standard output, a local file, or an S3 object.
package backup

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"
)

// ErrBadTarget is returned for destinations that cannot be parsed.
var ErrBadTarget = errors.New("bad backup target")

// Kind is the type of a destination.
type Kind int

// Destination kinds.
const (
	KindStdout Kind = iota
	KindFile
	KindS3
)

func (k Kind) String() string {
	switch k {
	case KindStdout:
		return "stdout"
	case KindFile:
		return "file"
	case KindS3:
		return "s3"
	default:
		return "unknown"
	}
}

// Target is a parsed destination.
type Target struct {
	Kind   Kind
	Path   string
	Bucket string
	Key    string
}

func (t Target) String() string {
	switch t.Kind {
	case KindFile:
		return t.Path
	case KindS3:
		return "s3://" + t.Bucket + "/" + t.Key
	default:
		return "-"
	}
}

// ParseTarget parses "", "-", a file path or s3://bucket/key.
func ParseTarget(s string) (Target, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "-" {
		return Target{Kind: KindStdout}, nil
	}
	if !strings.HasPrefix(strings.ToLower(s), "s3://") {
		return Target{Kind: KindFile, Path: s}, nil
	}
	u, err := url.Parse(s)
	if err != nil {
		return Target{}, fmt.Errorf("%w: %v", ErrBadTarget, err)
	}
	key := strings.TrimPrefix(u.Path, "/")
	if u.Host == "" || key == "" || strings.HasSuffix(key, "/") {
		return Target{}, fmt.Errorf("%w: %q needs a bucket and an object key", ErrBadTarget, s)
	}
	return Target{Kind: KindS3, Bucket: u.Host, Key: key}, nil
}

// Config holds the S3 connection settings. Empty fields fall back to the
// AWS shared configuration and environment.
type Config struct {
	Region       string `koanf:"region"`
	Endpoint     string `koanf:"endpoint"`
	AccessKey    string `koanf:"access_key"`
	SecretKey    string `koanf:"secret_key"`
	UsePathStyle bool   `koanf:"use_path_style"`
}

// PutObjectAPI is the part of the S3 client a sink needs.
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// NewS3Client builds an S3 client from cfg.
func NewS3Client(ctx context.Context, cfg Config) (*s3.Client, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}
	if cfg.Endpoint != "" {
		opts = append(opts, awsconfig.WithBaseEndpoint(cfg.Endpoint))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
	}), nil
}

type options struct {
	stdout io.Writer
	client PutObjectAPI
	logger *zap.Logger
}

// Option configures Open.
type Option func(*options)

// WithStdout sets the writer used for the stdout target.
func WithStdout(w io.Writer) Option {
	return func(o *options) { o.stdout = w }
}

// WithS3Client sets the client used for S3 targets instead of one built
// from the configuration.
func WithS3Client(c PutObjectAPI) Option {
	return func(o *options) { o.client = c }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// Open returns a writer for target. Data written to an S3 target is
// uploaded when the writer is closed; nothing is uploaded if Close is never
// called.
func Open(ctx context.Context, target string, cfg Config, opts ...Option) (io.WriteCloser, error) {
	o := options{stdout: os.Stdout, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	t, err := ParseTarget(target)
	if err != nil {
		return nil, err
	}

	switch t.Kind {
	case KindStdout:
		return nopCloser{o.stdout}, nil
	case KindFile:
		if dir := filepath.Dir(t.Path); dir != "." {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return nil, fmt.Errorf("create backup directory: %w", err)
			}
		}
		f, err := os.Create(t.Path)
		if err != nil {
			return nil, fmt.Errorf("create backup file: %w", err)
		}
		o.logger.Debug("writing backup", zap.String("path", t.Path))
		return f, nil
	case KindS3:
		client := o.client
		if client == nil {
			c, err := NewS3Client(ctx, cfg)
			if err != nil {
				return nil, err
			}
			client = c
		}
		return &s3Writer{ctx: ctx, client: client, target: t, logger: o.logger}, nil
	default:
		panic(fmt.Sprintf("backup: unhandled target kind %v", t.Kind))
	}
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

// s3Writer buffers the dump and uploads it as one object.
type s3Writer struct {
	ctx    context.Context
	client PutObjectAPI
	target Target
	logger *zap.Logger
	buf    bytes.Buffer
	closed bool
}

func (w *s3Writer) Write(p []byte) (int, error) {
	if w.closed {
		return 0, os.ErrClosed
	}
	return w.buf.Write(p)
}

func (w *s3Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	_, err := w.client.PutObject(w.ctx, &s3.PutObjectInput{
		Bucket:      aws.String(w.target.Bucket),
		Key:         aws.String(w.target.Key),
		Body:        bytes.NewReader(w.buf.Bytes()),
		ContentType: aws.String("text/csv"),
	})
	if err != nil {
		return fmt.Errorf("s3 upload %s: %w", w.target, err)
	}
	w.logger.Info("backup uploaded",
		zap.String("target", w.target.String()),
		zap.Int("bytes", w.buf.Len()))
	return nil
}
