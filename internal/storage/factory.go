package storage

import (
	"context"
	"fmt"

	"filevault/internal/config"
)

// DiskMount is the router path that serves disk presigned links.
const DiskMount = "/blobs"

// New builds the configured backend, already bounded by the storage timeout.
// The raw backend is returned too so callers can mount Disk.ServeHTTP.
func New(ctx context.Context, cfg *config.Config) (ObjectStore, ObjectStore, error) {
	var raw ObjectStore
	switch cfg.StorageBackend {
	case "disk":
		d, err := NewDisk(cfg.DiskRoot, cfg.PublicURL+DiskMount, []byte(cfg.SessionSecret))
		if err != nil {
			return nil, nil, err
		}
		raw = d
	case "s3":
		s, err := NewS3(ctx, S3Options{
			Region:    cfg.S3.Region,
			Bucket:    cfg.S3.Bucket,
			Endpoint:  cfg.S3.Endpoint,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
		})
		if err != nil {
			return nil, nil, err
		}
		raw = s
	case "minio":
		m, err := NewMinio(MinioOptions{
			Endpoint:  cfg.S3.Endpoint,
			Region:    cfg.S3.Region,
			Bucket:    cfg.S3.Bucket,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			UseSSL:    cfg.S3.UseSSL,
		})
		if err != nil {
			return nil, nil, err
		}
		if err := m.EnsureBucket(ctx, cfg.S3.Region); err != nil {
			return nil, nil, fmt.Errorf("ensure bucket: %w", err)
		}
		raw = m
	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
	return WithTimeout(raw, cfg.StorageTimeout), raw, nil
}
