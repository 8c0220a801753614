package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/vanshika/creditscore/internal/config"
	"github.com/vanshika/creditscore/internal/domain"
	"github.com/vanshika/creditscore/internal/generator"
	"github.com/vanshika/creditscore/internal/graph"
	"github.com/vanshika/creditscore/internal/logging"
	"github.com/vanshika/creditscore/internal/repository"
	"github.com/vanshika/creditscore/internal/service"
)

const stdinPath = "-"

var errMissingDataset = errors.New("dataset not found")

type options struct {
	datasetDir string
	applicants string
	workers    int
	dryRun     bool
}

func main() {
	var opts options
	flag.StringVar(&opts.datasetDir, "dataset-dir", "./data", "Directory containing "+generator.ApplicantsFile)
	flag.StringVar(&opts.applicants, "applicants", "", "Path to the applicants file, or - for stdin (overrides dataset-dir)")
	flag.IntVar(&opts.workers, "workers", 4, "Number of concurrent workers for ingestion")
	flag.BoolVar(&opts.dryRun, "dry-run", false, "Validate and summarize the dataset without writing to the graph")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.Logging).With("component", "ingest")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, logger, cfg, opts, os.Stdin); err != nil {
		logger.Error("ingestion failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, cfg config.Config, opts options, stdin io.Reader) error {
	inputs, source, err := loadDataset(opts, stdin)
	if err != nil {
		return err
	}
	if len(inputs) == 0 {
		return fmt.Errorf("applicants dataset empty: %s", source)
	}

	var (
		writer service.ApplicantWriter
		repo   *repository.Repository
	)
	if opts.dryRun {
		writer = &bandTally{}
	} else {
		graphClient, err := buildGraphClient(ctx, logger, cfg)
		if err != nil {
			return fmt.Errorf("create graph client: %w", err)
		}
		defer func() {
			if err := graphClient.Close(context.Background()); err != nil {
				logger.Warn("closing graph client failed", "error", err)
			}
		}()
		repo = repository.New(graphClient)
		writer = repo
	}

	start := time.Now()
	logger.Info("ingesting applicants", "count", len(inputs), "workers", opts.workers, "source", source, "dry_run", opts.dryRun)

	err = service.NewBulkIngestor(writer, opts.workers).IngestApplicants(ctx, inputs)
	var taskErr *service.TaskError
	switch {
	case errors.As(err, &taskErr):
		logger.Warn("some applicants were rejected", "failed", len(taskErr.Errors), "first_error", taskErr.Errors[0])
	case err != nil:
		return err
	}

	done := []any{"duration", time.Since(start).String(), "applicants", len(inputs)}
	if tally, ok := writer.(*bandTally); ok {
		done = append(done, tally.attrs()...)
	}
	if repo != nil {
		total, err := repo.CountApplicants(ctx)
		if err != nil {
			logger.Warn("counting applicants failed", "error", err)
		}
		done = append(done, "graph_total", total)
	}
	logger.Info("ingestion complete", done...)
	return nil
}

func loadDataset(opts options, stdin io.Reader) ([]service.ApplicantInput, string, error) {
	if opts.applicants == stdinPath {
		inputs, err := decodeApplicants(stdin)
		if err != nil {
			return nil, "stdin", fmt.Errorf("decode stdin: %w", err)
		}
		return inputs, "stdin", nil
	}

	path, err := resolveDatasetPath(opts.datasetDir, opts.applicants)
	if err != nil {
		return nil, "", err
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, path, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	inputs, err := decodeApplicants(file)
	if err != nil {
		return nil, path, fmt.Errorf("decode %s: %w", path, err)
	}
	return inputs, path, nil
}

func resolveDatasetPath(baseDir, explicitPath string) (string, error) {
	if explicitPath != "" {
		if _, err := os.Stat(explicitPath); err != nil {
			return "", fmt.Errorf("stat %s: %w", explicitPath, err)
		}
		return explicitPath, nil
	}
	path := filepath.Join(baseDir, generator.ApplicantsFile)
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("%w: %s", errMissingDataset, path)
	}
	return path, nil
}

func decodeApplicants(r io.Reader) ([]service.ApplicantInput, error) {
	var inputs []service.ApplicantInput
	if err := json.NewDecoder(r).Decode(&inputs); err != nil {
		return nil, err
	}
	return inputs, nil
}

// bandTally is the dry-run writer: it counts applicants per score band.
type bandTally struct {
	mu       sync.Mutex
	bands    map[string]int
	noBureau int
}

func (b *bandTally) UpsertApplicant(_ context.Context, a domain.Applicant) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if a.Bureau == nil {
		b.noBureau++
		return nil
	}
	if b.bands == nil {
		b.bands = make(map[string]int)
	}
	b.bands[domain.ScoreBand(a.Bureau.Score)]++
	return nil
}

func (b *bandTally) attrs() []any {
	b.mu.Lock()
	defer b.mu.Unlock()
	bands := make(map[string]int, len(b.bands))
	for k, v := range b.bands {
		bands[k] = v
	}
	return []any{"bands", bands, "no_bureau", b.noBureau}
}

func buildGraphClient(ctx context.Context, logger *slog.Logger, cfg config.Config) (graph.Client, error) {
	if cfg.Graph.URI == "" {
		return nil, graph.ErrMissingURI
	}
	client, err := graph.NewNeo4jClient(ctx, graph.Options{
		URI:            cfg.Graph.URI,
		Database:       cfg.Graph.Database,
		Username:       cfg.Graph.Username,
		Password:       cfg.Graph.Password,
		MaxConnections: cfg.Graph.MaxConnections,
	})
	if err != nil {
		return nil, err
	}
	logger.Info("connected to graph", "uri", cfg.Graph.URI, "database", cfg.Graph.Database)
	return client, nil
}
