package storage

import (
	"context"
	"fmt"
	"time"

	"AviaxMusic/config"
	"AviaxMusic/logger"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Archive stores downloaded audio objects keyed by video ID so popular
// tracks survive local cleanup. A nil Archive is a valid no-op.
type Archive struct {
	client *minio.Client
	bucket string
}

// NewArchive connects to MinIO and ensures the bucket exists. Returns nil
// (not an error) when no endpoint is configured; archiving is optional.
func NewArchive(cfg *config.Config) (*Archive, error) {
	if cfg.MinioEndpoint == "" {
		return nil, nil
	}

	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
		Region: cfg.MinioRegion,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	exists, err := client.BucketExists(ctx, cfg.MinioBucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket: %w", err)
	}
	if !exists {
		err = client.MakeBucket(ctx, cfg.MinioBucket, minio.MakeBucketOptions{Region: cfg.MinioRegion})
		if err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
		logger.Info("created archive bucket", logger.String("bucket", cfg.MinioBucket))
	}

	return &Archive{client: client, bucket: cfg.MinioBucket}, nil
}

func objectName(vidID string) string {
	return "audio/" + vidID
}

// Put uploads a downloaded file under the video's ID.
func (a *Archive) Put(ctx context.Context, vidID, path string) error {
	if a == nil {
		return nil
	}
	_, err := a.client.FPutObject(ctx, a.bucket, objectName(vidID), path, minio.PutObjectOptions{
		ContentType: "application/octet-stream",
	})
	if err != nil {
		return fmt.Errorf("failed to archive %s: %w", vidID, err)
	}
	logger.Debug("archived download", logger.String("vidid", vidID))
	return nil
}

// Fetch downloads an archived object to dest. Returns false when the
// archive has no copy.
func (a *Archive) Fetch(ctx context.Context, vidID, dest string) (bool, error) {
	if a == nil {
		return false, nil
	}
	err := a.client.FGetObject(ctx, a.bucket, objectName(vidID), dest, minio.GetObjectOptions{})
	if err != nil {
		resp := minio.ToErrorResponse(err)
		if resp.Code == "NoSuchKey" {
			return false, nil
		}
		return false, fmt.Errorf("failed to fetch %s from archive: %w", vidID, err)
	}
	return true, nil
}

// Exists reports whether the archive holds a copy of the video.
func (a *Archive) Exists(ctx context.Context, vidID string) (bool, error) {
	if a == nil {
		return false, nil
	}
	_, err := a.client.StatObject(ctx, a.bucket, objectName(vidID), minio.StatObjectOptions{})
	if err != nil {
		resp := minio.ToErrorResponse(err)
		if resp.Code == "NoSuchKey" {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
