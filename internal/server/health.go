package server

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/vanshika/creditscore/internal/graph"
)

// HealthService defines behaviour for readiness probes.
type HealthService interface {
	Probe(ctx context.Context) error
}

// GraphHealthService verifies graph connectivity as part of health checks.
type GraphHealthService struct {
	Client graph.Client
}

// Probe implements the HealthService interface.
func (s GraphHealthService) Probe(ctx context.Context) error {
	if s.Client == nil {
		return nil
	}
	return s.Client.VerifyConnectivity(ctx)
}

// ApplicantCounter is satisfied by the applicant repository.
type ApplicantCounter interface {
	CountApplicants(ctx context.Context) (int, error)
}

// ApplicantStoreHealth fails when the applicant store cannot answer a query,
// which catches a reachable database with a missing or locked schema.
type ApplicantStoreHealth struct {
	Store ApplicantCounter
}

func (s ApplicantStoreHealth) Probe(ctx context.Context) error {
	if s.Store == nil {
		return nil
	}
	_, err := s.Store.CountApplicants(ctx)
	return err
}

// HealthChecks runs a set of named probes. It is itself a HealthService.
type HealthChecks map[string]HealthService

// Results probes every check in name order and reports "ok" or the failure.
func (h HealthChecks) Results(ctx context.Context) (map[string]string, error) {
	names := make([]string, 0, len(h))
	for name := range h {
		names = append(names, name)
	}
	sort.Strings(names)

	results := make(map[string]string, len(h))
	var errs []error
	for _, name := range names {
		if err := h[name].Probe(ctx); err != nil {
			results[name] = err.Error()
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			continue
		}
		results[name] = "ok"
	}
	return results, errors.Join(errs...)
}

func (h HealthChecks) Probe(ctx context.Context) error {
	_, err := h.Results(ctx)
	return err
}
