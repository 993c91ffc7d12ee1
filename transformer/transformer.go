package transformer

import (
	"context"
	"errors"
	"fmt"

	"github.com/baldanca/gtfs-ingestor/source"
)

// ErrMemberNotFound matches any MemberNotFoundError via errors.Is.
var ErrMemberNotFound = errors.New("archive member not found")

// Member is one named entry extracted from an archive.
type Member struct {
	Name string
	Data []byte

	// Listing holds every member name seen in the archive, in order.
	Listing []string
}

// Transformer converts a downloaded archive into the member we persist.
type Transformer interface {
	Transform(ctx context.Context, in source.Archive) (Member, error)
}

// MemberNotFoundError reports that the archive does not contain the target.
// It is a data problem, not a transient one.
type MemberNotFoundError struct {
	Name    string
	Members []string
}

func (e *MemberNotFoundError) Error() string {
	return fmt.Sprintf("Did not find %s file", e.Name)
}

func (e *MemberNotFoundError) Is(target error) bool {
	return target == ErrMemberNotFound
}
