package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/oklog/ulid/v2"
)

const defaultContentType = "application/octet-stream"

// Uploaded file
type File struct {
	// Original file name, only extension is kept
	Name        string
	ContentType string
	Size        int64

	// Has to be seekable: request is signed over the body
	Body io.ReadSeeker
}

// Stored asset
type Asset struct {
	URL string
	Key string
}

type Uploader interface {
	Upload(ctx context.Context, file File) (Asset, error)
}

// Adapter to use plain function as Uploader
type UploaderFunc func(ctx context.Context, file File) (Asset, error)

func (f UploaderFunc) Upload(ctx context.Context, file File) (Asset, error) {
	return f(ctx, file)
}

type Config struct {
	// S3 compatible endpoint, e.g. http://localhost:9000 for minio
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string

	// Base URL assets are served from. If empty '{Endpoint}/{Bucket}' is used
	PublicURL string

	// Key prefix, e.g. 'users'
	Prefix string
}

// Uploader to S3 compatible object storage
type S3Uploader struct {
	client    *s3.Client
	bucket    string
	prefix    string
	publicURL string
}

func NewS3Uploader(ctx context.Context, cfg Config) (*S3Uploader, error) {
	if cfg.Endpoint == "" || cfg.Bucket == "" {
		return nil, errors.New("media endpoint and bucket must be set")
	}
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("media config error: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.Endpoint)
		o.UsePathStyle = true
		// Most S3 compatible hosts don't support default CRC checksums
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
	})

	publicURL := cfg.PublicURL
	if publicURL == "" {
		publicURL = strings.TrimSuffix(cfg.Endpoint, "/") + "/" + cfg.Bucket
	}

	return &S3Uploader{
		client:    client,
		bucket:    cfg.Bucket,
		prefix:    strings.Trim(cfg.Prefix, "/"),
		publicURL: strings.TrimSuffix(publicURL, "/"),
	}, nil
}

// Put file under new unique key
func (u *S3Uploader) Upload(ctx context.Context, file File) (Asset, error) {
	var asset Asset

	if file.Body == nil {
		return asset, errors.New("file body is empty")
	}

	ext := strings.ToLower(filepath.Ext(file.Name))
	key := path.Join(u.prefix, ulid.Make().String()+ext)

	contentType := file.ContentType
	if contentType == "" {
		contentType = mime.TypeByExtension(ext)
	}
	if contentType == "" {
		contentType = defaultContentType
	}

	input := &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		Body:        file.Body,
		ContentType: aws.String(contentType),
	}
	if file.Size > 0 {
		input.ContentLength = aws.Int64(file.Size)
	}

	_, err := u.client.PutObject(ctx, input)
	if err != nil {
		return asset, fmt.Errorf("media upload error: %w", err)
	}

	return Asset{URL: u.publicURL + "/" + key, Key: key}, nil
}
