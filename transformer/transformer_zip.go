package transformer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/zip"

	"github.com/baldanca/gtfs-ingestor/source"
)

// DefaultMemberName is the GTFS file we extract.
const DefaultMemberName = "stops.txt"

// Header sizes are untrusted; never preallocate more than this.
const maxPrealloc = 64 << 20

// ZipMember picks a single member out of a ZIP archive held in memory.
type ZipMember struct {
	// Name must match the member name exactly (no path cleaning, case-sensitive).
	Name string
}

func NewZipMember(name string) ZipMember {
	if strings.TrimSpace(name) == "" {
		panic("member name is required")
	}
	return ZipMember{Name: name}
}

func (t ZipMember) Transform(ctx context.Context, in source.Archive) (Member, error) {
	if err := ctx.Err(); err != nil {
		return Member{}, err
	}

	r, err := zip.NewReader(bytes.NewReader(in.Data), int64(len(in.Data)))
	if err != nil {
		return Member{}, fmt.Errorf("open zip archive url=%q: %w", in.URL, err)
	}

	names := Names(r)

	for _, f := range r.File {
		if f.Name != t.Name {
			continue
		}
		data, err := readFile(f)
		if err != nil {
			return Member{}, fmt.Errorf("read zip member %q: %w", f.Name, err)
		}
		return Member{Name: f.Name, Data: data, Listing: names}, nil
	}

	return Member{}, &MemberNotFoundError{Name: t.Name, Members: names}
}

// Names lists the member names of r in archive order.
func Names(r *zip.Reader) []string {
	names := make([]string, 0, len(r.File))
	for _, f := range r.File {
		names = append(names, f.Name)
	}
	return names
}

func readFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	var buf bytes.Buffer
	if f.UncompressedSize64 > 0 && f.UncompressedSize64 < maxPrealloc {
		buf.Grow(int(f.UncompressedSize64))
	}
	if _, err := io.Copy(&buf, rc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
