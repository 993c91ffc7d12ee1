package sink

import (
	"context"
	"sync"
)

// MemorySink keeps objects in a map keyed by bucket and key.
// Useful for local runs and tests.
type MemorySink struct {
	mu      sync.Mutex
	objects map[string]map[string]Object
	writes  int
}

// Object is a stored copy of a WriteRequest.
type Object struct {
	Data        []byte
	ContentType string
}

func NewMemory() *MemorySink {
	return &MemorySink{objects: make(map[string]map[string]Object)}
}

func (s *MemorySink) Write(ctx context.Context, req WriteRequest) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := req.validate(); err != nil {
		return err
	}

	data := append([]byte(nil), req.Data...)

	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.objects[req.Bucket]
	if !ok {
		b = make(map[string]Object)
		s.objects[req.Bucket] = b
	}
	b[req.Key] = Object{Data: data, ContentType: req.ContentType}
	s.writes++
	return nil
}

// Get returns the object stored at bucket/key.
func (s *MemorySink) Get(bucket, key string) (Object, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.objects[bucket][key]
	return o, ok
}

// Writes reports how many successful writes were made.
func (s *MemorySink) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}
