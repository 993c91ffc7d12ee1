package encoder

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/baldanca/gtfs-ingestor/transformer"
)

var ErrInvalidUTF8 = errors.New("member is not valid utf-8")

// TextEncoder passes the member through as UTF-8 text.
//
// Bytes are stored unchanged (a leading BOM is kept); invalid UTF-8 is
// rejected instead of being replaced.
type TextEncoder struct {
	// Type is sent as the object content type when non-empty.
	Type string
}

func (e TextEncoder) ContentType() string { return e.Type }

func (e TextEncoder) Encode(ctx context.Context, m transformer.Member) ([]byte, error) {
	if ctx != nil {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
	}

	if !utf8.Valid(m.Data) {
		return nil, fmt.Errorf("decode %q at byte %d: %w", m.Name, invalidAt(m.Data), ErrInvalidUTF8)
	}
	return m.Data, nil
}

func invalidAt(b []byte) int {
	for i := 0; i < len(b); {
		r, size := utf8.DecodeRune(b[i:])
		if r == utf8.RuneError && size <= 1 {
			return i
		}
		i += size
	}
	return -1
}
