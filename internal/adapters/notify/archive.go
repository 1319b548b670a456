package notify

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"path"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/okian/vibrapulse/internal/domain/model"
)

// ObjectPutter is the subset of *minio.Client used by Archiver.
type ObjectPutter interface {
	PutObject(ctx context.Context, bucket, object string, r io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// ArchiveConfig addresses an S3 compatible object store.
type ArchiveConfig struct {
	Endpoint  string
	Bucket    string
	AccessKey string
	SecretKey string
	UseSSL    bool
}

// NewMinioClient connects to the object store and makes sure the bucket exists.
func NewMinioClient(ctx context.Context, cfg ArchiveConfig) (*minio.Client, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create s3 client: %w", err)
	}
	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", cfg.Bucket, err)
		}
	}
	return client, nil
}

// Archiver stores every raw upload for later retraining and audits.
type Archiver struct {
	client ObjectPutter
	bucket string
}

// NewArchiver writes uploads to bucket through client.
func NewArchiver(client ObjectPutter, bucket string) *Archiver {
	return &Archiver{client: client, bucket: bucket}
}

func (a *Archiver) Name() string { return "archive" }

// ObjectKey returns uploads/YYYY/MM/DD/<report id>.csv for n.
func ObjectKey(n model.Notification) string { //nolint:gocritic // sink signature
	return path.Join("uploads", n.CreatedAt.UTC().Format("2006/01/02"), n.ReportID+".csv")
}

func (a *Archiver) Deliver(ctx context.Context, n model.Notification) error { //nolint:gocritic // sink signature
	if len(n.Upload) == 0 {
		return nil
	}
	key := ObjectKey(n)
	_, err := a.client.PutObject(ctx, a.bucket, key, bytes.NewReader(n.Upload), int64(len(n.Upload)), minio.PutObjectOptions{
		ContentType: "text/csv",
		UserMetadata: map[string]string{
			"file-name": url.QueryEscape(n.FileName),
			"digest":    n.Digest,
			"severity":  n.Severity.String(),
		},
	})
	if err != nil {
		return fmt.Errorf("archive %s: %w", key, err)
	}
	return nil
}
