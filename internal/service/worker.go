package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vanshika/creditscore/internal/domain"
)

// TaskError accumulates multiple errors produced during bulk ingestion.
type TaskError struct {
	Errors []error
}

func (e *TaskError) Error() string {
	if len(e.Errors) == 0 {
		return "no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	msg := fmt.Sprintf("%d errors:", len(e.Errors))
	for _, err := range e.Errors {
		msg += " " + err.Error() + ";"
	}
	return msg
}

func (e *TaskError) Unwrap() []error {
	return e.Errors
}

// ApplicantWriter persists one applicant.
type ApplicantWriter interface {
	UpsertApplicant(ctx context.Context, applicant domain.Applicant) error
}

// BulkIngestor loads bureau datasets using a bounded worker pool.
type BulkIngestor struct {
	writer  ApplicantWriter
	workers int
	nowFn   func() time.Time
}

// NewBulkIngestor creates a new BulkIngestor instance with the provided concurrency.
func NewBulkIngestor(writer ApplicantWriter, workers int) *BulkIngestor {
	if workers <= 0 {
		workers = 4
	}
	return &BulkIngestor{
		writer:  writer,
		workers: workers,
		nowFn:   time.Now,
	}
}

// IngestApplicants writes every applicant. Per-record failures are collected
// into a *TaskError; cancellation stops the run and is returned as is.
func (bi *BulkIngestor) IngestApplicants(ctx context.Context, applicants []ApplicantInput) error {
	if len(applicants) == 0 {
		return nil
	}
	now := bi.nowFn().UTC()

	var (
		mu      sync.Mutex
		taskErr TaskError
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(bi.workers)

	for i := range applicants {
		if gctx.Err() != nil {
			break
		}
		i, in := i, applicants[i]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			applicant := in.ToDomain(now)
			if applicant.PAN == "" {
				mu.Lock()
				taskErr.Errors = append(taskErr.Errors, fmt.Errorf("record %d: PAN is required", i))
				mu.Unlock()
				return nil
			}
			if err := bi.writer.UpsertApplicant(gctx, applicant); err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return err
				}
				mu.Lock()
				taskErr.Errors = append(taskErr.Errors, fmt.Errorf("record %d: %w", i, err))
				mu.Unlock()
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(taskErr.Errors) > 0 {
		return &taskErr
	}
	return nil
}
