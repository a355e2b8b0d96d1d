package delivery

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// Archiver keeps a copy of every delivered document.
type Archiver interface {
	Archive(ctx context.Context, mac string, at time.Time, doc []byte) error
}

// S3Config selects the archive bucket.
type S3Config struct {
	Bucket    string
	Region    string
	Endpoint  string // optional, for S3-compatible stores
	PathStyle bool
}

type objectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Archiver writes delivered documents to an S3 bucket under
// meals/<mac>/<unix>-<id>.json.
type S3Archiver struct {
	client objectPutter
	bucket string
	newID  func() string
}

// NewS3Archiver creates an archiver using the default AWS credential chain.
func NewS3Archiver(ctx context.Context, cfg S3Config) (*S3Archiver, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("archive bucket required")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.PathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return newS3Archiver(client, cfg.Bucket, uuid.NewString), nil
}

func newS3Archiver(client objectPutter, bucket string, newID func() string) *S3Archiver {
	return &S3Archiver{client: client, bucket: bucket, newID: newID}
}

// Key returns the object key for a document.
func (a *S3Archiver) Key(mac string, at time.Time) string {
	return fmt.Sprintf("meals/%s/%d-%s.json", mac, at.Unix(), a.newID())
}

// Archive uploads doc.
func (a *S3Archiver) Archive(ctx context.Context, mac string, at time.Time, doc []byte) error {
	key := a.Key(mac, at)
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(doc),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("archive %s: %w", key, err)
	}
	return nil
}
