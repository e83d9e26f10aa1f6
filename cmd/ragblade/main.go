package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/flarexio/ragblade"
	"github.com/flarexio/ragblade/ingest"
	"github.com/flarexio/ragblade/persistence"
	"github.com/flarexio/ragblade/provider/builtin"
	"github.com/flarexio/ragblade/vector"
)

func main() {
	cmd := &cli.Command{
		Name:  "ragblade",
		Usage: "RAGBlade retrieval-augmented generation service",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "path",
				Usage: "Path to the RAGBlade working directory",
			},
			&cli.StringFlag{
				Name:    "config",
				Usage:   "Config file (.yaml or .toml), defaults to <path>/config.yaml",
				Sources: cli.EnvVars("RAGBLADE_CONFIG"),
			},
			&cli.BoolFlag{
				Name:  "log-json",
				Usage: "Emit production JSON logs",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "Serve answers over NATS and HTTP",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "nats",
						Usage:   "NATS server URL, NATS transport is disabled when empty",
						Sources: cli.EnvVars("NATS_URL"),
					},
					&cli.StringFlag{
						Name:    "nats-creds",
						Usage:   "NATS user credentials file, defaults to <path>/user.creds",
						Sources: cli.EnvVars("NATS_CREDS"),
					},
					&cli.StringFlag{
						Name:    "edge-id",
						Usage:   "Edge ID used in the NATS topic, defaults to the content of <path>/id",
						Sources: cli.EnvVars("EDGE_ID"),
					},
					&cli.BoolFlag{
						Name:  "http",
						Usage: "Enable HTTP transport",
						Value: true,
					},
					&cli.StringFlag{
						Name:  "http-addr",
						Usage: "HTTP server address",
						Value: ":8080",
					},
				},
				Action: serve,
			},
			{
				Name:      "ingest",
				Usage:     "Ingest a product review CSV file",
				ArgsUsage: "<csv>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "query",
						Usage: "Sample query searched after ingestion",
						Value: ingest.SampleQuery,
					},
				},
				Action: ingestCSV,
			},
			{
				Name:      "ask",
				Usage:     "Answer a single question",
				ArgsUsage: "<query>",
				Action:    ask,
			},
		},
	}

	err := cmd.Run(context.Background(), os.Args)
	if err != nil {
		log.Fatal(err.Error())
	}
}

func workdir(cmd *cli.Command) (string, error) {
	path := cmd.String("path")
	if path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	return filepath.Join(homeDir, ".flarex", "ragblade"), nil
}

func newLogger(cmd *cli.Command) (*zap.Logger, error) {
	if cmd.Bool("log-json") {
		return zap.NewProduction()
	}

	return zap.NewDevelopment()
}

type app struct {
	path string
	cfg  ragblade.Config
	db   vector.VectorDB
	svc  ragblade.Service
	log  *zap.Logger
}

func (a *app) Close() {
	if err := a.svc.Close(); err != nil {
		a.log.Error(err.Error())
	}

	if err := a.db.Close(); err != nil {
		a.log.Error(err.Error())
	}

	a.log.Sync()
}

// setup loads the environment and config, opens the vector store and builds
// the service. Callers own the returned app and must Close it.
func setup(cmd *cli.Command, middlewares ...ragblade.ServiceMiddleware) (*app, error) {
	path, err := workdir(cmd)
	if err != nil {
		return nil, err
	}

	log, err := newLogger(cmd)
	if err != nil {
		return nil, err
	}

	zap.ReplaceGlobals(log)

	for _, env := range []string{filepath.Join(path, ".env"), ".env"} {
		if err := godotenv.Load(env); err == nil {
			log.Debug("environment loaded", zap.String("file", env))
		}
	}

	cfgPath := cmd.String("config")
	if cfgPath == "" {
		cfgPath = filepath.Join(path, "config.yaml")
	}

	cfg, err := ragblade.LoadConfig(cfgPath)
	if err != nil {
		return nil, err
	}

	if cfg.Vector.Persistent && cfg.Vector.Path == "" {
		cfg.Vector.Path = filepath.Join(path, "vectors")
	}

	db, err := persistence.NewVectorDB(cfg.Vector)
	if err != nil {
		return nil, err
	}

	svc, err := ragblade.NewService(cfg, db, builtin.Registry(),
		ragblade.WithStateHook(func(requestID string, from, to ragblade.State) {
			log.Debug("state transition",
				zap.String("request_id", requestID),
				zap.String("from", string(from)),
				zap.String("to", string(to)),
			)
		}),
	)

	if err != nil {
		db.Close()
		return nil, err
	}

	for _, mw := range middlewares {
		svc = mw(svc)
	}

	svc = ragblade.LoggingMiddleware(log)(svc)

	return &app{
		path: path,
		cfg:  cfg,
		db:   db,
		svc:  svc,
		log:  log,
	}, nil
}

func ingestCSV(ctx context.Context, cmd *cli.Command) error {
	csvPath := cmd.Args().First()
	if csvPath == "" {
		return errors.New("csv file is required")
	}

	a, err := setup(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	docs, err := ingest.ReadProductReviewsFile(csvPath)
	if err != nil {
		return err
	}

	count, err := a.svc.IngestBatch(ctx, docs)
	if err != nil {
		return err
	}

	fmt.Printf("ingested %d documents into %q\n", count, a.cfg.CollectionName)

	query := cmd.String("query")
	if query == "" {
		return nil
	}

	result, err := a.svc.Retrieve(ctx, query)
	if err != nil {
		return err
	}

	fmt.Printf("\nquery: %s\n", query)
	for i, hit := range result {
		fmt.Printf("%d. [%.4f] %s\n", i+1, hit.Score, hit.Metadata["product_name"])
	}

	return nil
}

func ask(ctx context.Context, cmd *cli.Command) error {
	query := cmd.Args().First()
	if query == "" {
		return errors.New("query is required")
	}

	a, err := setup(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	answer, err := a.svc.Answer(ctx, query)
	if err != nil {
		return err
	}

	fmt.Println(answer.Response)
	fmt.Printf("\nsources: %v\n", answer.RetrievedIDs)

	if answer.TruncatedCount > 0 {
		fmt.Printf("truncated: %d\n", answer.TruncatedCount)
	}

	return nil
}
