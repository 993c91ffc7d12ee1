package sink

import (
	"context"
	"errors"
	"testing"
)

func TestMemorySink_WriteAndOverwrite(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	data := []byte("v1")
	if err := s.Write(ctx, WriteRequest{Bucket: "b", Key: "stops.txt", Data: data}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	data[0] = 'X' // stored copy must not alias the caller's slice

	o, ok := s.Get("b", "stops.txt")
	if !ok || string(o.Data) != "v1" {
		t.Fatalf("got %q ok=%v", o.Data, ok)
	}

	if err := s.Write(ctx, WriteRequest{Bucket: "b", Key: "stops.txt", Data: []byte("v2"), ContentType: "text/plain"}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	o, _ = s.Get("b", "stops.txt")
	if string(o.Data) != "v2" || o.ContentType != "text/plain" {
		t.Fatalf("overwrite: %+v", o)
	}
	if s.Writes() != 2 {
		t.Fatalf("writes=%d", s.Writes())
	}
	if _, ok := s.Get("other", "stops.txt"); ok {
		t.Fatalf("unexpected object in other bucket")
	}
}

func TestMemorySink_RejectsCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := NewMemory()
	if err := s.Write(ctx, WriteRequest{Bucket: "b", Key: "k"}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if s.Writes() != 0 {
		t.Fatalf("writes=%d", s.Writes())
	}
}
