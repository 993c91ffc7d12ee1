package ingestor

import (
	"errors"
	"net/http"

	"github.com/aws/smithy-go"
	"github.com/minio/minio-go/v7"

	"github.com/baldanca/gtfs-ingestor/source"
)

// storageRetryCodes are backend error codes worth another attempt.
var storageRetryCodes = map[string]struct{}{
	"InternalServerError": {},
}

var httpRetryStatuses = map[int]struct{}{
	http.StatusTooManyRequests:     {},
	http.StatusInternalServerError: {},
	http.StatusNotImplemented:      {},
	http.StatusBadGateway:          {},
	http.StatusServiceUnavailable:  {},
	http.StatusGatewayTimeout:      {},
}

// IsRetryable reports whether err is a transient upstream failure.
//
// Storage errors (AWS API errors and minio error responses) are retryable
// when their code is InternalServerError; HTTP status errors when the status
// is 429 or 500-504. Anything else is permanent.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		_, ok := storageRetryCodes[apiErr.ErrorCode()]
		return ok
	}

	var minioErr minio.ErrorResponse
	if errors.As(err, &minioErr) {
		_, ok := storageRetryCodes[minioErr.Code]
		return ok
	}

	var httpErr *source.HTTPError
	if errors.As(err, &httpErr) {
		_, ok := httpRetryStatuses[httpErr.StatusCode]
		return ok
	}

	return false
}
