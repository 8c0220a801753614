package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/vanshika/creditscore/internal/generator"
)

type options struct {
	cfg         generator.Config
	outputDir   string
	writeStdout bool
	summary     bool
}

func main() {
	opts := parseFlags()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := run(ctx, opts, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "datagen: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags() options {
	def := generator.DefaultConfig()
	var opts options
	flag.IntVar(&opts.cfg.NumApplicants, "applicants", def.NumApplicants, "number of applicants to generate")
	flag.Float64Var(&opts.cfg.BureauCoverage, "bureau-coverage", def.BureauCoverage, "share of applicants with a bureau record")
	flag.Float64Var(&opts.cfg.DelinquencyRate, "delinquency-rate", def.DelinquencyRate, "chance of each additional missed payment")
	flag.Int64Var(&opts.cfg.Seed, "seed", def.Seed, "random seed for deterministic generation")
	flag.StringVar(&opts.outputDir, "output-dir", "data", "directory to write "+generator.ApplicantsFile)
	flag.BoolVar(&opts.writeStdout, "stdout", false, "write the dataset to stdout instead of a file")
	flag.BoolVar(&opts.summary, "summary", true, "print the score band distribution")
	flag.Parse()

	opts.cfg.BureauCoverage = clampProbability(opts.cfg.BureauCoverage)
	opts.cfg.DelinquencyRate = clampProbability(opts.cfg.DelinquencyRate)
	return opts
}

// run generates the dataset and writes it to stdout or the output directory.
// Human-readable output goes to info so a stdout dataset stays valid JSON.
func run(ctx context.Context, opts options, stdout, info io.Writer) error {
	dataset, err := generator.New(opts.cfg).Generate(ctx)
	if err != nil {
		return fmt.Errorf("generate: %w", err)
	}

	if opts.writeStdout {
		if err := json.NewEncoder(stdout).Encode(dataset.Applicants); err != nil {
			return fmt.Errorf("write dataset to stdout: %w", err)
		}
	} else {
		path, err := generator.WriteDataset(dataset, opts.outputDir)
		if err != nil {
			return err
		}
		info = stdout
		fmt.Fprintf(info, "Generated %d applicants into %s\n", len(dataset.Applicants), path)
	}

	if opts.summary {
		return generator.Summarize(dataset).Print(info)
	}
	return nil
}

func clampProbability(value float64) float64 {
	return min(max(value, 0), 1)
}
