package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/baldanca/gtfs-ingestor/ingestor"
)

// flagEnv maps CLI flags onto the environment keys read by config.Load,
// so flags and env vars go through the same path.
var flagEnv = map[string]string{
	"bucket":         "S3_BUCKET",
	"prefix":         "S3_PREFIX",
	"url":            "GTFS_ARCHIVE_URL",
	"member":         "GTFS_TARGET_MEMBER",
	"backend":        "STORAGE_BACKEND",
	"max-attempts":   "RETRY_MAX_ATTEMPTS",
	"log-level":      "LOG_LEVEL",
	"log-format":     "LOG_FORMAT",
	"minio-endpoint": "MINIO_ENDPOINT",
	"minio-use-ssl":  "MINIO_USE_SSL",
	"minio-region":   "MINIO_REGION",
}

func main() {
	if err := newApp(newHandler(), os.Stdout).Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp(h *handler, stdout io.Writer) *cli.App {
	return &cli.App{
		Name:  "gtfs-ingestor",
		Usage: "Download the GTFS feed and store stops.txt in an object store",
		Commands: []*cli.Command{
			{
				Name:  "lambda",
				Usage: "Serve invocations from the AWS Lambda runtime",
				Action: func(c *cli.Context) error {
					lambda.Start(h.handleLambda)
					return nil
				},
			},
			{
				Name:  "run",
				Usage: "Run a single invocation locally and print the result",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "event", Usage: "JSON event payload to log", Value: "{}"},
					&cli.StringFlag{Name: "request-id", Usage: "request id (random when empty)"},
					&cli.StringFlag{Name: "bucket", Usage: "destination bucket"},
					&cli.StringFlag{Name: "prefix", Usage: "object key prefix"},
					&cli.StringFlag{Name: "url", Usage: "archive URL"},
					&cli.StringFlag{Name: "member", Usage: "archive member to extract"},
					&cli.StringFlag{Name: "backend", Usage: "storage backend: s3 or minio"},
					&cli.StringFlag{Name: "max-attempts", Usage: "fetch attempts before giving up"},
					&cli.StringFlag{Name: "log-level", Usage: "debug, info, warn, error"},
					&cli.StringFlag{Name: "log-format", Usage: "json or console"},
					&cli.StringFlag{Name: "minio-endpoint", Usage: "MinIO endpoint (host:port or URL)"},
					&cli.StringFlag{Name: "minio-use-ssl", Usage: "true or false"},
					&cli.StringFlag{Name: "minio-region", Usage: "MinIO region"},
				},
				Before: applyFlagEnv,
				Action: func(c *cli.Context) error {
					return runOnce(c, h, stdout)
				},
			},
		},
	}
}

func applyFlagEnv(c *cli.Context) error {
	for flag, env := range flagEnv {
		if !c.IsSet(flag) {
			continue
		}
		if err := os.Setenv(env, c.String(flag)); err != nil {
			return fmt.Errorf("set %s: %w", env, err)
		}
	}
	return nil
}

func runOnce(c *cli.Context, h *handler, stdout io.Writer) error {
	event := json.RawMessage(c.String("event"))
	if !json.Valid(event) {
		return fmt.Errorf("--event must be valid JSON")
	}

	reqID := c.String("request-id")
	if reqID == "" {
		reqID = uuid.NewString()
	}

	res, err := h.invoke(c.Context, ingestor.Invocation{
		Event:           event,
		RequestID:       reqID,
		FunctionName:    c.App.Name,
		FunctionVersion: "local",
	})
	if err != nil {
		return err
	}

	enc := json.NewEncoder(stdout)
	return enc.Encode(res)
}
