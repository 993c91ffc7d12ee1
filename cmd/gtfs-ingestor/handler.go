package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"

	"github.com/aws/aws-lambda-go/lambdacontext"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/baldanca/gtfs-ingestor/config"
	"github.com/baldanca/gtfs-ingestor/encoder"
	"github.com/baldanca/gtfs-ingestor/ingestor"
	"github.com/baldanca/gtfs-ingestor/logger"
	"github.com/baldanca/gtfs-ingestor/sink"
	"github.com/baldanca/gtfs-ingestor/source"
	"github.com/baldanca/gtfs-ingestor/transformer"
)

// handler builds a fresh pipeline from the environment on every invocation.
// Only the storage clients are reused across warm invocations.
type handler struct {
	httpClient *http.Client
	logOut     io.Writer

	// newSink is swapped in tests.
	newSink func(ctx context.Context, cfg config.StorageConfig) (sink.Sinkr, error)

	s3Once   sync.Once
	s3Client *s3.Client
	s3Err    error
}

func newHandler() *handler {
	h := &handler{
		httpClient: &http.Client{},
		logOut:     os.Stdout,
	}
	h.newSink = h.storageSink
	return h
}

func (h *handler) storageSink(ctx context.Context, cfg config.StorageConfig) (sink.Sinkr, error) {
	switch cfg.Backend {
	case config.BackendMinio:
		client, err := sink.NewMinioClient(sink.MinioConfig{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Region:    cfg.MinioRegion,
			UseSSL:    cfg.MinioUseSSL,
		})
		if err != nil {
			return nil, err
		}
		return sink.NewMinio(client, cfg.Prefix), nil
	default:
		h.s3Once.Do(func() {
			awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
			if err != nil {
				h.s3Err = fmt.Errorf("load aws config: %w", err)
				return
			}
			h.s3Client = s3.NewFromConfig(awsCfg)
		})
		if h.s3Err != nil {
			return nil, h.s3Err
		}
		return sink.NewS3(h.s3Client, cfg.Prefix), nil
	}
}

// handleLambda is registered with the Lambda runtime.
func (h *handler) handleLambda(ctx context.Context, event json.RawMessage) (ingestor.Result, error) {
	inv := ingestor.Invocation{
		Event:           event,
		FunctionName:    lambdacontext.FunctionName,
		FunctionVersion: lambdacontext.FunctionVersion,
	}
	if lc, ok := lambdacontext.FromContext(ctx); ok {
		inv.RequestID = lc.AwsRequestID
	}
	return h.invoke(ctx, inv)
}

func (h *handler) invoke(ctx context.Context, inv ingestor.Invocation) (ingestor.Result, error) {
	cfg := config.Load()
	log := logger.New(cfg.Log.Level, cfg.Log.Format, h.logOut)

	if err := cfg.Validate(); err != nil {
		log.Error().Err(err).Str("request_id", inv.RequestID).Msg("invalid configuration")
		return ingestor.Result{}, err
	}

	sk, err := h.newSink(ctx, cfg.Storage)
	if err != nil {
		log.Error().Err(err).Str("backend", cfg.Storage.Backend).Msg("storage setup failed")
		return ingestor.Result{}, err
	}

	src := source.NewHTTPWithConfig(h.httpClient, source.SourceHTTPConfig{
		URL:     cfg.Source.ArchiveURL,
		Timeout: cfg.Source.Timeout,
	})

	ing, err := ingestor.NewIngestor(src, transformer.NewZipMember(cfg.Source.TargetMember), encoder.TextEncoder{}, sk)
	if err != nil {
		return ingestor.Result{}, err
	}
	ing.SetLogger(log)
	ing.SetRetryPolicy(ingestor.SimpleRetry{
		Attempts:  cfg.Retry.MaxAttempts,
		BaseDelay: cfg.Retry.BaseDelay,
		MaxDelay:  cfg.Retry.MaxDelay,
		Jitter:    cfg.Retry.Jitter,
		Retryable: ingestor.IsRetryable,
	})

	return ing.Run(ctx, inv, cfg.Storage.Bucket)
}
