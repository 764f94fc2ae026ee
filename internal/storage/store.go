package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/localnerve/bizflow/internal/config"
)

// MediaStore persists an uploaded file and returns the URL it is served from
type MediaStore interface {
	Save(ctx context.Context, folder, filename string, r io.Reader) (string, error)
}

// Open returns the media store selected by STORAGE_DRIVER
func Open(ctx context.Context, cfg *config.Config) (MediaStore, error) {
	switch cfg.StorageDriver {
	case config.StorageS3:
		return NewS3StoreFromRegion(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.S3PublicURL)
	case config.StorageDisk, "":
		return NewDiskStore(cfg.UploadDir, UploadsPath)
	default:
		return nil, fmt.Errorf("unsupported storage driver: %s", cfg.StorageDriver)
	}
}
