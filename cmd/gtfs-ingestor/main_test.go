package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/klauspost/compress/zip"

	"github.com/baldanca/gtfs-ingestor/config"
	"github.com/baldanca/gtfs-ingestor/ingestor"
	"github.com/baldanca/gtfs-ingestor/sink"
	"github.com/baldanca/gtfs-ingestor/transformer"
)

func zipWith(t *testing.T, name, content string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create(name)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := w.Write([]byte(content)); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	return buf.Bytes()
}

// testEnv points the handler at a local upstream and an in-memory store.
func testEnv(t *testing.T, archive []byte, statuses ...int) (*handler, *sink.MemorySink, *int32, *bytes.Buffer) {
	t.Helper()
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := int(atomic.AddInt32(&hits, 1))
		if n <= len(statuses) {
			w.WriteHeader(statuses[n-1])
			return
		}
		_, _ = w.Write(archive)
	}))
	t.Cleanup(srv.Close)

	for _, k := range []string{"S3_BUCKET", "S3_PREFIX", "STORAGE_BACKEND", "GTFS_TARGET_MEMBER", "RETRY_MAX_ATTEMPTS", "LOG_LEVEL", "LOG_FORMAT"} {
		t.Setenv(k, "")
	}
	t.Setenv("GTFS_ARCHIVE_URL", srv.URL+"/google_transit.zip")
	t.Setenv("RETRY_BASE_DELAY", "1ms")
	t.Setenv("RETRY_MAX_DELAY", "1ms")

	mem := sink.NewMemory()
	var logs bytes.Buffer
	h := newHandler()
	h.httpClient = srv.Client()
	h.logOut = &logs
	h.newSink = func(ctx context.Context, cfg config.StorageConfig) (sink.Sinkr, error) {
		return mem, nil
	}
	return h, mem, &hits, &logs
}

func TestHandleLambda_Success(t *testing.T) {
	h, mem, hits, logs := testEnv(t, zipWith(t, "stops.txt", "mock content"))
	t.Setenv("S3_BUCKET", "test-bucket")

	lambdacontext.FunctionName = "test-function-name"
	lambdacontext.FunctionVersion = "test-function-version"
	ctx := lambdacontext.NewContext(context.Background(), &lambdacontext.LambdaContext{AwsRequestID: "test-request-id"})

	res, err := h.handleLambda(ctx, json.RawMessage(`{"eventType":"test-event"}`))
	if err != nil {
		t.Fatalf("handleLambda: %v", err)
	}
	if res.StatusCode != 200 || res.Body != ingestor.SuccessBody {
		t.Fatalf("result=%+v", res)
	}
	o, ok := mem.Get("test-bucket", "stops.txt")
	if !ok || string(o.Data) != "mock content" {
		t.Fatalf("object=%q ok=%v", o.Data, ok)
	}
	if *hits != 1 {
		t.Fatalf("hits=%d", *hits)
	}
	if !bytes.Contains(logs.Bytes(), []byte(`"request_id":"test-request-id"`)) {
		t.Fatalf("request id not logged: %s", logs.String())
	}
	if !bytes.Contains(logs.Bytes(), []byte(`"function_version":"test-function-version"`)) {
		t.Fatalf("function version not logged: %s", logs.String())
	}
}

func TestHandleLambda_MissingBucket(t *testing.T) {
	h, mem, hits, _ := testEnv(t, zipWith(t, "stops.txt", "mock content"))

	_, err := h.handleLambda(context.Background(), json.RawMessage(`{}`))
	if !errors.Is(err, config.ErrMissingBucket) {
		t.Fatalf("expected ErrMissingBucket, got %v", err)
	}
	if *hits != 0 || mem.Writes() != 0 {
		t.Fatalf("hits=%d writes=%d", *hits, mem.Writes())
	}
}

func TestHandleLambda_MissingMember(t *testing.T) {
	h, mem, _, _ := testEnv(t, zipWith(t, "agency.txt", "mock agency"))
	t.Setenv("S3_BUCKET", "test-bucket")

	_, err := h.handleLambda(context.Background(), json.RawMessage(`{}`))
	if err == nil || err.Error() != "Did not find stops.txt file" {
		t.Fatalf("err=%v", err)
	}
	if !errors.Is(err, transformer.ErrMemberNotFound) {
		t.Fatalf("expected ErrMemberNotFound")
	}
	if mem.Writes() != 0 {
		t.Fatalf("writes=%d", mem.Writes())
	}
}

func TestHandleLambda_RetriesFromEnvConfig(t *testing.T) {
	h, _, hits, _ := testEnv(t, zipWith(t, "stops.txt", "x"), 503, 503, 503, 503)
	t.Setenv("S3_BUCKET", "test-bucket")
	t.Setenv("RETRY_MAX_ATTEMPTS", "4")

	if _, err := h.handleLambda(context.Background(), nil); err == nil {
		t.Fatalf("expected error")
	}
	if *hits != 4 {
		t.Fatalf("hits=%d want=4", *hits)
	}
}

func TestRunCommand_PrintsResult(t *testing.T) {
	h, mem, _, _ := testEnv(t, zipWith(t, "trips.txt", "mock trips"))

	var out bytes.Buffer
	app := newApp(h, &out)
	err := app.Run([]string{"gtfs-ingestor", "run", "--bucket", "cli-bucket", "--member", "trips.txt", "--request-id", "r-1"})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	var res ingestor.Result
	if err := json.Unmarshal(out.Bytes(), &res); err != nil {
		t.Fatalf("output is not json: %q", out.String())
	}
	if res.StatusCode != 200 || res.Body != ingestor.SuccessBody {
		t.Fatalf("result=%+v", res)
	}
	if o, ok := mem.Get("cli-bucket", "trips.txt"); !ok || string(o.Data) != "mock trips" {
		t.Fatalf("object=%q ok=%v", o.Data, ok)
	}
	if !bytes.Contains(out.Bytes(), []byte(`"statusCode":200`)) {
		t.Fatalf("output=%s", out.String())
	}
}

func TestRunCommand_RejectsInvalidEvent(t *testing.T) {
	h, _, hits, _ := testEnv(t, nil)
	app := newApp(h, &bytes.Buffer{})
	err := app.Run([]string{"gtfs-ingestor", "run", "--bucket", "b", "--event", "{not json"})
	if err == nil {
		t.Fatalf("expected error")
	}
	if *hits != 0 {
		t.Fatalf("hits=%d", *hits)
	}
}

func TestStorageSink_Minio(t *testing.T) {
	h := newHandler()
	sk, err := h.storageSink(context.Background(), config.StorageConfig{
		Backend:        config.BackendMinio,
		MinioEndpoint:  "localhost:9000",
		MinioAccessKey: "a",
		MinioSecretKey: "b",
	})
	if err != nil {
		t.Fatalf("storageSink: %v", err)
	}
	if _, ok := sk.(*sink.MinioSink); !ok {
		t.Fatalf("sink=%T want *sink.MinioSink", sk)
	}

	if _, err := h.storageSink(context.Background(), config.StorageConfig{Backend: config.BackendMinio, MinioEndpoint: "localhost:9000"}); err == nil {
		t.Fatalf("expected credentials error")
	}
}
