// Package archive exports a user's message history to remote object storage.
package archive

import (
	"context"
	"time"
)

// UploadOptions conveys the export destination.
type UploadOptions struct {
	Bucket    string
	KeyPrefix string
}

// Export describes a stored export object.
type Export struct {
	Location string
	Key      string
}

// Service stores message exports in remote object storage and hands out
// time-limited download URLs for them.
type Service interface {
	UploadExport(ctx context.Context, key string, data []byte, opts UploadOptions) (Export, error)
	GetObjectURL(ctx context.Context, bucket, key string, expires time.Duration) (string, error)
}
