package archive

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3Service stores exports in Amazon S3 (or compatible APIs).
type S3Service struct {
	client   *s3.Client
	uploader *manager.Uploader
	presign  *s3.PresignClient
}

func NewS3Service(client *s3.Client) *S3Service {
	return &S3Service{
		client:   client,
		uploader: manager.NewUploader(client),
		presign:  s3.NewPresignClient(client),
	}
}

func (s *S3Service) UploadExport(ctx context.Context, key string, data []byte, opts UploadOptions) (Export, error) {
	if opts.Bucket == "" {
		return Export{}, fmt.Errorf("archive bucket is required")
	}
	if strings.TrimSpace(key) == "" {
		return Export{}, fmt.Errorf("export key is required")
	}

	fullKey := strings.Trim(opts.KeyPrefix, "/")
	if fullKey != "" {
		fullKey += "/"
	}
	fullKey += strings.TrimPrefix(key, "/")

	_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(opts.Bucket),
		Key:         aws.String(fullKey),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
		ACL:         types.ObjectCannedACLPrivate,
	})
	if err != nil {
		return Export{}, fmt.Errorf("upload export: %w", err)
	}

	return Export{
		Location: fmt.Sprintf("s3://%s/%s", opts.Bucket, fullKey),
		Key:      fullKey,
	}, nil
}

func (s *S3Service) GetObjectURL(ctx context.Context, bucket, key string, expires time.Duration) (string, error) {
	if bucket == "" {
		return "", fmt.Errorf("archive bucket is required")
	}

	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(expires))
	if err != nil {
		return "", fmt.Errorf("presign export url: %w", err)
	}
	return req.URL, nil
}

var _ Service = (*S3Service)(nil)
