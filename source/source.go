package source

import (
	"context"
	"fmt"
	"net/http"
)

// DefaultArchiveURL is the CTA GTFS feed.
const DefaultArchiveURL = "https://www.transitchicago.com/downloads/sch_data/google_transit.zip"

// Archive is the raw payload downloaded from a Fetcher.
//
// Data holds the whole compressed archive; nothing is streamed.
type Archive struct {
	URL        string
	StatusCode int
	Data       []byte
}

// Fetcher downloads one archive per call.
//
// Implementations must not retry on their own; retries are decided by the
// caller from the returned error.
type Fetcher interface {
	Fetch(ctx context.Context) (Archive, error)
}

// HTTPError is returned when the upstream answers with a non-2xx status.
type HTTPError struct {
	URL        string
	StatusCode int
	Status     string
}

func (e *HTTPError) Error() string {
	status := e.Status
	if status == "" {
		status = fmt.Sprintf("%d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("http get %s: %s", e.URL, status)
}
