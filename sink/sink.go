package sink

import (
	"context"
	"errors"
)

var (
	ErrEmptyKey    = errors.New("empty key")
	ErrEmptyBucket = errors.New("empty bucket")
)

// WriteRequest describes one object PUT. The bucket travels with the request
// because it is resolved per invocation, not when the sink is built.
type WriteRequest struct {
	Bucket      string
	Key         string
	Data        []byte
	ContentType string
}

type Sinkr interface {
	Write(ctx context.Context, req WriteRequest) error
}

func (r WriteRequest) validate() error {
	if r.Bucket == "" {
		return ErrEmptyBucket
	}
	if r.Key == "" {
		return ErrEmptyKey
	}
	return nil
}

// joinKey keeps S3 semantics (no path cleaning).
func joinKey(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "/" + key
}
