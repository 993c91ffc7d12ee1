package sink

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type s3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type S3Sink struct {
	client s3API
	prefix string
}

func NewS3(client s3API, prefix string) *S3Sink {
	if client == nil {
		panic("s3 client is required")
	}
	return &S3Sink{
		client: client,
		prefix: strings.Trim(prefix, "/"),
	}
}

func (s *S3Sink) Write(ctx context.Context, req WriteRequest) error {
	if err := req.validate(); err != nil {
		return err
	}

	bucket := req.Bucket
	key := joinKey(s.prefix, strings.TrimLeft(req.Key, "/"))
	cl := int64(len(req.Data))

	input := s3.PutObjectInput{
		Bucket:        &bucket,
		Key:           &key,
		Body:          bytes.NewReader(req.Data),
		ContentLength: &cl,
	}
	if req.ContentType != "" {
		ct := req.ContentType
		input.ContentType = &ct
	}

	if _, err := s.client.PutObject(ctx, &input); err != nil {
		return fmt.Errorf("put s3 object bucket=%q key=%q: %w", bucket, key, err)
	}
	return nil
}
