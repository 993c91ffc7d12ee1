package ingestor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/baldanca/gtfs-ingestor/encoder"
	"github.com/baldanca/gtfs-ingestor/sink"
	"github.com/baldanca/gtfs-ingestor/source"
	"github.com/baldanca/gtfs-ingestor/transformer"
)

// SuccessBody is the body of the result returned after a successful run.
const SuccessBody = "Download and save to S3 successful."

// ErrNoBucket is returned when Run is called without a destination bucket.
var ErrNoBucket = errors.New("destination bucket is required")

// Invocation identifies one trigger. It is only used for logging.
type Invocation struct {
	Event           json.RawMessage
	RequestID       string
	FunctionName    string
	FunctionVersion string
}

// Result is what a successful run hands back to the caller.
type Result struct {
	StatusCode int    `json:"statusCode"`
	Body       string `json:"body"`
}

// Ingestor runs fetch -> extract -> encode -> store once per call.
// It keeps no state between calls.
type Ingestor struct {
	source      source.Fetcher
	transformer transformer.Transformer
	encoder     encoder.Encoder
	sink        sink.Sinkr

	// retry wraps the fetch only; the final write is attempted once.
	retry RetryPolicy

	log zerolog.Logger
}

func NewIngestor(
	source source.Fetcher,
	transformer transformer.Transformer,
	encoder encoder.Encoder,
	sink sink.Sinkr,
) (*Ingestor, error) {
	if source == nil {
		return nil, fmt.Errorf("source is nil")
	}
	if transformer == nil {
		return nil, fmt.Errorf("transformer is nil")
	}
	if encoder == nil {
		return nil, fmt.Errorf("encoder is nil")
	}
	if sink == nil {
		return nil, fmt.Errorf("sink is nil")
	}

	return &Ingestor{
		source:      source,
		transformer: transformer,
		encoder:     encoder,
		sink:        sink,
		retry:       DefaultFetchRetry,
		log:         zerolog.Nop(),
	}, nil
}

// NewDefaultIngestor extracts stops.txt and stores it as text.
func NewDefaultIngestor(source source.Fetcher, sink sink.Sinkr) (*Ingestor, error) {
	return NewIngestor(source, transformer.NewZipMember(transformer.DefaultMemberName), encoder.TextEncoder{}, sink)
}

func (i *Ingestor) SetRetryPolicy(p RetryPolicy) {
	if p == nil {
		i.retry = nopRetry{}
		return
	}
	i.retry = p
}

func (i *Ingestor) SetLogger(l zerolog.Logger) {
	i.log = l
}

// Run performs one invocation. bucket is resolved by the caller at call time.
//
// Errors from the fetch step are returned exactly as the retry policy gave
// them up; nothing is written unless extraction and decoding succeeded.
func (i *Ingestor) Run(ctx context.Context, inv Invocation, bucket string) (Result, error) {
	log := i.log.With().Str("request_id", inv.RequestID).Logger()
	logInvocation(log, inv)

	if bucket == "" {
		log.Error().Err(ErrNoBucket).Msg("missing destination bucket")
		return Result{}, ErrNoBucket
	}

	log.Info().Msg("fetching gtfs archive")
	archive, err := i.fetch(ctx, log)
	if err != nil {
		log.Error().Err(err).Msg("fetch failed")
		return Result{}, err
	}
	log.Info().Str("url", archive.URL).Int("bytes", len(archive.Data)).Msg("retrieved gtfs archive")

	member, err := i.transformer.Transform(ctx, archive)
	if err != nil {
		var nf *transformer.MemberNotFoundError
		if errors.As(err, &nf) {
			log.Info().Strs("members", nf.Members).Msg("files in downloaded archive")
		}
		log.Error().Err(err).Msg("extract failed")
		return Result{}, err
	}
	log.Info().Strs("members", member.Listing).Msg("files in downloaded archive")
	log.Info().Str("member", member.Name).Msg("found target member")

	data, err := i.encoder.Encode(ctx, member)
	if err != nil {
		log.Error().Err(err).Str("member", member.Name).Msg("decode failed")
		return Result{}, err
	}

	req := sink.WriteRequest{
		Bucket:      bucket,
		Key:         member.Name,
		Data:        data,
		ContentType: i.encoder.ContentType(),
	}
	if err := i.sink.Write(ctx, req); err != nil {
		log.Error().Err(err).Str("bucket", bucket).Str("key", req.Key).Msg("write failed")
		return Result{}, err
	}
	log.Info().Str("bucket", bucket).Str("key", req.Key).Int("bytes", len(data)).Msg("wrote member to object store")

	return Result{StatusCode: http.StatusOK, Body: SuccessBody}, nil
}

func (i *Ingestor) fetch(ctx context.Context, log zerolog.Logger) (source.Archive, error) {
	policy := i.retry
	if sr, ok := policy.(SimpleRetry); ok && sr.Observer == nil {
		sr.Observer = retryLogger{log: log}
		policy = sr
	}

	var archive source.Archive
	err := policy.Do(ctx, func(ctx context.Context) error {
		a, err := i.source.Fetch(ctx)
		if err != nil {
			return err
		}
		archive = a
		return nil
	})
	return archive, err
}

func logInvocation(log zerolog.Logger, inv Invocation) {
	log.Info().Msg("begin execution")

	ev := log.Info().
		Str("function_name", inv.FunctionName).
		Str("function_version", inv.FunctionVersion)
	switch {
	case len(inv.Event) == 0:
	case json.Valid(inv.Event):
		ev = ev.RawJSON("event", inv.Event)
	default:
		ev = ev.Bytes("event", inv.Event)
	}
	ev.Msg("invocation context")
}

// retryLogger reports retry decisions on the invocation logger.
type retryLogger struct {
	log zerolog.Logger
}

func (l retryLogger) Backoff(attempt int, delay time.Duration, err error) {
	l.log.Warn().Err(err).Int("tries", attempt).Dur("delay", delay).Msg("backing off")
}

func (l retryLogger) Success(attempts int) {
	l.log.Info().Int("tries", attempts).Msg("fetch succeeded")
}

func (l retryLogger) GiveUp(attempts int, err error) {
	l.log.Error().Err(err).Int("tries", attempts).Msg("giving up")
}
