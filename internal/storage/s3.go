package storage

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"reelfactory/internal/config"
	"reelfactory/internal/services"
)

// ObjectPutter is the slice of the S3 API the store uses.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3 writes objects to an S3-compatible bucket.
type S3 struct {
	client    ObjectPutter
	bucket    string
	publicURL string
}

// NewS3 builds an S3 store. A custom endpoint (R2, MinIO) is used when set.
func NewS3(ctx context.Context, cfg config.Storage) (*S3, error) {
	if cfg.Bucket == "" || cfg.AccessKeyID == "" || cfg.SecretAccessKey == "" {
		return nil, services.Wrap(services.ErrConfiguration, "storage", "open s3",
			"storage.bucket, access_key_id and secret_access_key are required", nil)
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)),
		awsconfig.WithRegion(cfg.Region),
	}
	if endpoint := strings.TrimSpace(cfg.Endpoint); endpoint != "" {
		resolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
			return aws.Endpoint{URL: endpoint, HostnameImmutable: true}, nil
		})
		opts = append(opts, awsconfig.WithEndpointResolverWithOptions(resolver))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "storage", "open s3", "load AWS config", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.Endpoint != ""
	})
	return NewS3WithClient(client, cfg.Bucket, publicURL(cfg)), nil
}

// NewS3WithClient wires an existing client, mainly for tests.
func NewS3WithClient(client ObjectPutter, bucket, publicBaseURL string) *S3 {
	return &S3{client: client, bucket: bucket, publicURL: strings.TrimSpace(publicBaseURL)}
}

func publicURL(cfg config.Storage) string {
	if cfg.PublicBaseURL != "" {
		return cfg.PublicBaseURL
	}
	if cfg.Endpoint != "" {
		return joinURL(cfg.Endpoint, cfg.Bucket)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
}

// Backend implements Store.
func (s *S3) Backend() string { return "s3" }

// Put uploads data and returns its public URL.
func (s *S3) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	input := &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if _, err := s.client.PutObject(ctx, input); err != nil {
		return "", services.Wrap(services.ErrExternal, "storage", "put", "upload to bucket "+s.bucket, err)
	}
	return joinURL(s.publicURL, key), nil
}
