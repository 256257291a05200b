package media

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Config selects the bucket and endpoint for the S3 store. Endpoint is
// only set for S3-compatible services (MinIO, Hetzner); empty means AWS
// proper. Credentials fall back to the SDK default chain when the static
// pair is empty.
type S3Config struct {
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
	// BaseURL overrides the rendered URL prefix, e.g. a CDN in front of
	// the bucket. Empty derives the virtual-hosted AWS form.
	BaseURL string
}

// S3Store keeps blobs in an S3-compatible bucket.
type S3Store struct {
	client   *s3.Client
	uploader *manager.Uploader
	cfg      S3Config
	baseURL  string
}

// NewS3Store builds the S3 client and multipart uploader from cfg.
func NewS3Store(ctx context.Context, cfg S3Config) (*S3Store, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}
	if cfg.Endpoint != "" {
		opts = append(opts, awsconfig.WithEndpointResolverWithOptions(aws.EndpointResolverWithOptionsFunc(
			func(service, region string, options ...interface{}) (aws.Endpoint, error) {
				return aws.Endpoint{
					URL:               cfg.Endpoint,
					SigningRegion:     region,
					HostnameImmutable: true, // important for MinIO
				}, nil
			})))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		// required for MinIO and friends
		o.UsePathStyle = cfg.Endpoint != ""
	})
	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		if cfg.Endpoint != "" {
			baseURL = strings.TrimSuffix(cfg.Endpoint, "/") + "/" + cfg.Bucket
		} else {
			baseURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
		}
	}
	return &S3Store{
		client:   client,
		uploader: manager.NewUploader(client),
		cfg:      cfg,
		baseURL:  baseURL,
	}, nil
}

func (s *S3Store) Save(ctx context.Context, key string, content []byte) error {
	_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(content),
	})
	if err != nil {
		return fmt.Errorf("upload media blob %s: %w", key, err)
	}
	return nil
}

func (s *S3Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete media blob %s: %w", key, err)
	}
	return nil
}

func (s *S3Store) URL(key string) string {
	return s.baseURL + "/" + key
}
