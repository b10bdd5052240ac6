package aws

import (
	"context"
	"fmt"
	"io"
	"time"

	appconfig "collision-site/internal/common/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3API is the part of the S3 API the resume store needs.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Presigner signs time-limited download links.
type Presigner interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*PresignedRequest, error)
}

// PresignedRequest mirrors the fields of the SDK's presigned request the
// store uses.
type PresignedRequest struct {
	URL string
}

type presignAdapter struct {
	client *s3.PresignClient
}

func (p presignAdapter) PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*PresignedRequest, error) {
	req, err := p.client.PresignGetObject(ctx, params, optFns...)
	if err != nil {
		return nil, err
	}
	return &PresignedRequest{URL: req.URL}, nil
}

// ObjectStore keeps uploaded resumes in a single bucket.
type ObjectStore struct {
	client     S3API
	presigner  Presigner
	bucket     string
	presignTTL time.Duration
}

// NewObjectStore connects to S3 or an S3-compatible endpoint.
func NewObjectStore(ctx context.Context, cfg appconfig.StorageConfig) (*ObjectStore, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	return NewObjectStoreWithClient(client, presignAdapter{client: s3.NewPresignClient(client)},
		cfg.Bucket, appconfig.GetSeconds(cfg.PresignTTL)), nil
}

func NewObjectStoreWithClient(client S3API, presigner Presigner, bucket string, presignTTL time.Duration) *ObjectStore {
	return &ObjectStore{
		client:     client,
		presigner:  presigner,
		bucket:     bucket,
		presignTTL: presignTTL,
	}
}

// Bucket names the bucket uploads are written to.
func (o *ObjectStore) Bucket() string {
	return o.bucket
}

// Put stores body under key and returns the key.
func (o *ObjectStore) Put(ctx context.Context, key, contentType string, body io.Reader) (string, error) {
	input := &s3.PutObjectInput{
		Bucket: aws.String(o.bucket),
		Key:    aws.String(key),
		Body:   body,
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	if _, err := o.client.PutObject(ctx, input); err != nil {
		return "", fmt.Errorf("put %s/%s: %w", o.bucket, key, err)
	}
	return key, nil
}

// LinkFor returns a presigned download URL for key.
func (o *ObjectStore) LinkFor(ctx context.Context, key string) (string, error) {
	if o.presigner == nil {
		return "", fmt.Errorf("presigning not configured")
	}
	req, err := o.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(o.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(o.presignTTL))
	if err != nil {
		return "", fmt.Errorf("presign %s/%s: %w", o.bucket, key, err)
	}
	return req.URL, nil
}
