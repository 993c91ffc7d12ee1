package encoder

import (
	"context"

	"github.com/baldanca/gtfs-ingestor/transformer"
)

// Encoder turns an extracted member into the object body we store.
//
// Implementations must be safe for concurrent use unless documented otherwise.
type Encoder interface {
	Encode(ctx context.Context, m transformer.Member) (data []byte, err error)
	// ContentType may be empty, meaning the store picks its default.
	ContentType() string
}
