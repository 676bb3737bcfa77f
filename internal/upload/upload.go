// Package upload publishes a finished run's output directory to an S3
// compatible object store.
package upload

import (
	"context"
	"fmt"
	"mime"
	"net"
	"net/http"
	"path"
	"path/filepath"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/vk/roofline/internal/config"
	"github.com/vk/roofline/internal/ctxlog"
	"github.com/vk/roofline/internal/fsutil"
)

// Publisher uploads every file of an output directory to a bucket.
type Publisher struct {
	client *minio.Client
	bucket string
	region string
	prefix string
}

// New creates a Publisher for the given upload settings.
func New(cfg config.Upload) (*Publisher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:     credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure:    cfg.UseSSL,
		Region:    cfg.Region,
		Transport: newTransport(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create object store client for %s: %w", cfg.Endpoint, err)
	}

	return &Publisher{client: client, bucket: cfg.Bucket, region: cfg.Region, prefix: cfg.Prefix}, nil
}

// Publish uploads all regular files below dir. Objects are keyed by
// ObjectName. It returns the number of uploaded files.
func (p *Publisher) Publish(ctx context.Context, dir string) (int, error) {
	logger := ctxlog.FromContext(ctx).With("bucket", p.bucket)

	if err := p.ensureBucket(ctx); err != nil {
		return 0, err
	}

	files, err := fsutil.FindFiles(dir, "")
	if err != nil {
		return 0, fmt.Errorf("failed to list results in %s: %w", dir, err)
	}

	runName := filepath.Base(dir)
	for i, rel := range files {
		object := ObjectName(p.prefix, runName, rel)
		contentType := mime.TypeByExtension(path.Ext(rel))
		if contentType == "" {
			contentType = "application/octet-stream"
		}

		info, err := p.client.FPutObject(ctx, p.bucket, object, filepath.Join(dir, filepath.FromSlash(rel)), minio.PutObjectOptions{
			ContentType: contentType,
		})
		if err != nil {
			return i, fmt.Errorf("failed to upload %s to %s/%s: %w", rel, p.bucket, object, err)
		}
		logger.Debug("Uploaded result file.", "object", object, "size", info.Size)
	}

	logger.Info("☁️ Results published.", "files", len(files), "prefix", ObjectName(p.prefix, runName, ""))
	return len(files), nil
}

func (p *Publisher) ensureBucket(ctx context.Context) error {
	exists, err := p.client.BucketExists(ctx, p.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket %s: %w", p.bucket, err)
	}
	if exists {
		return nil
	}
	if err := p.client.MakeBucket(ctx, p.bucket, minio.MakeBucketOptions{Region: p.region}); err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", p.bucket, err)
	}
	return nil
}

// ObjectName builds the object key <prefix>/<run>/<rel>, skipping empty parts.
func ObjectName(prefix, runName, rel string) string {
	var parts []string
	for _, part := range []string{prefix, runName, rel} {
		if part != "" {
			parts = append(parts, part)
		}
	}
	return path.Clean(path.Join(parts...))
}

func newTransport() *http.Transport {
	dialer := &net.Dialer{
		Timeout:   5 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          16,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
}
