// Package archive uploads final scan reports to S3-compatible storage.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	minio "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/shipsafe/shipsafe/internal/report"
)

// DefaultPrefix is used when no prefix is configured.
const DefaultPrefix = "reports"

type putter interface {
	PutObject(ctx context.Context, bucket, key string, r io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// Uploader stores reports as JSON objects.
type Uploader struct {
	mc     putter
	Bucket string
	Prefix string
}

// New connects to endpoint with static credentials.
func New(endpoint, accessKey, secretKey string, useSSL bool, bucket, prefix string) (*Uploader, error) {
	mc, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("s3 client: %w", err)
	}
	return &Uploader{mc: mc, Bucket: bucket, Prefix: prefix}, nil
}

// Key is the object key for a scan finished at t:
// <prefix>/YYYY/MM/DD/<scanID>.json.
func Key(prefix, scanID string, t time.Time) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		prefix = DefaultPrefix
	}
	t = t.UTC()
	return path.Join(prefix, t.Format("2006"), t.Format("01"), t.Format("02"), scanID+".json")
}

// Upload writes f and returns its object key.
func (u *Uploader) Upload(ctx context.Context, f report.Final) (string, error) {
	var buf bytes.Buffer
	if err := report.WriteJSON(&buf, f); err != nil {
		return "", err
	}
	key := Key(u.Prefix, f.Metadata.ScanID, time.Now())
	_, err := u.mc.PutObject(ctx, u.Bucket, key, bytes.NewReader(buf.Bytes()), int64(buf.Len()),
		minio.PutObjectOptions{ContentType: "application/json"})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}
	return key, nil
}
