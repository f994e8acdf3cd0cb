package s3

import (
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
)

// UploadConfig configures the S3 uploader.
type UploadConfig struct {
	// PartSize is the minimum part size for multipart uploads.
	// Default: 8MB
	PartSize int64

	// Concurrency is the number of concurrent part uploads.
	// Default: 5 (matches SDK default)
	Concurrency int

	// LeavePartsOnError controls whether failed multipart uploads
	// are left in place instead of aborted.
	LeavePartsOnError bool
}

// UploadOption configures an UploadConfig.
type UploadOption func(*UploadConfig)

// WithPartSize sets the multipart part size.
func WithPartSize(n int64) UploadOption {
	return func(c *UploadConfig) {
		if n >= manager.MinUploadPartSize {
			c.PartSize = n
		}
	}
}

// WithConcurrency sets the number of concurrent part uploads.
func WithConcurrency(n int) UploadOption {
	return func(c *UploadConfig) {
		if n > 0 {
			c.Concurrency = n
		}
	}
}

// DefaultUploadConfig returns the upload settings used by NewStore.
func DefaultUploadConfig() UploadConfig {
	return UploadConfig{
		PartSize:    8 * 1024 * 1024,
		Concurrency: 5,
	}
}

func newUploader(client manager.UploadAPIClient, cfg UploadConfig) *manager.Uploader {
	return manager.NewUploader(client, func(u *manager.Uploader) {
		u.PartSize = cfg.PartSize
		u.Concurrency = cfg.Concurrency
		u.LeavePartsOnError = cfg.LeavePartsOnError
	})
}
