package sink

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioConfig holds the connection info for an S3-compatible endpoint.
type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Region    string
	UseSSL    bool
}

type minioAPI interface {
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// MinioSink writes through minio-go, for MinIO and other S3-compatible stores.
type MinioSink struct {
	client minioAPI
	prefix string
}

// NewMinioClient builds a minio client from cfg. The endpoint may carry a
// scheme; it then overrides UseSSL.
func NewMinioClient(cfg MinioConfig) (*minio.Client, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("minio endpoint must be provided")
	}
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, fmt.Errorf("minio credentials must be provided")
	}

	secure := cfg.UseSSL
	switch {
	case strings.HasPrefix(endpoint, "https://"):
		secure = true
		endpoint = strings.TrimPrefix(endpoint, "https://")
	case strings.HasPrefix(endpoint, "http://"):
		secure = false
		endpoint = strings.TrimPrefix(endpoint, "http://")
	}

	client, err := minio.New(strings.TrimSuffix(endpoint, "/"), &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: secure,
		Region: strings.TrimSpace(cfg.Region),
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}
	return client, nil
}

func NewMinio(client minioAPI, prefix string) *MinioSink {
	if client == nil {
		panic("minio client is required")
	}
	return &MinioSink{
		client: client,
		prefix: strings.Trim(prefix, "/"),
	}
}

func (s *MinioSink) Write(ctx context.Context, req WriteRequest) error {
	if err := req.validate(); err != nil {
		return err
	}

	key := joinKey(s.prefix, strings.TrimLeft(req.Key, "/"))
	opts := minio.PutObjectOptions{ContentType: req.ContentType}

	_, err := s.client.PutObject(ctx, req.Bucket, key, bytes.NewReader(req.Data), int64(len(req.Data)), opts)
	if err != nil {
		return fmt.Errorf("put minio object bucket=%q key=%q: %w", req.Bucket, key, err)
	}
	return nil
}
