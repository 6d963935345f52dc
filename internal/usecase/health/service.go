// Package health probes the components a search request depends on: the
// Postgres store, the catalog snapshot, and the embedding provider.
package health

import "context"

// Status is the aggregated service health.
type Status string

const (
	// Healthy means every checked component answered.
	Healthy Status = "ok"
	// Degraded means the store answers but an auxiliary component does not;
	// filter-only searches still work.
	Degraded Status = "degraded"
	// Unhealthy means the document store is unreachable; no search can run.
	Unhealthy Status = "error"
)

// CheckResult is the outcome of one component probe.
type CheckResult string

const (
	// CheckOK indicates a passing probe.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing probe.
	CheckError CheckResult = "error"
)

// Report aggregates per-component outcomes.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates component probes.
type Service struct {
	store     StorePinger
	catalog   CatalogReader
	embedding EmbeddingChecker
}

// New creates a Service. catalog and embedding may be nil; their probes are
// then skipped.
func New(store StorePinger, catalog CatalogReader, embedding EmbeddingChecker) *Service {
	return &Service{store: store, catalog: catalog, embedding: embedding}
}

// Check probes every wired component. A store failure fails every request,
// so it reports Unhealthy; catalog and embedding failures only degrade.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)
	status := Healthy

	if err := s.store.Ping(ctx); err != nil {
		checks["database"] = CheckError
		status = Unhealthy
	} else {
		checks["database"] = CheckOK
	}

	if s.catalog != nil {
		if _, err := s.catalog.Tables(ctx); err != nil {
			checks["catalog"] = CheckError
		} else {
			checks["catalog"] = CheckOK
		}
	}

	if s.embedding != nil {
		if err := s.embedding.HealthCheck(ctx); err != nil {
			checks["embedding"] = CheckError
		} else {
			checks["embedding"] = CheckOK
		}
	}

	if status == Healthy {
		for _, v := range checks {
			if v == CheckError {
				status = Degraded
				break
			}
		}
	}

	return Report{Status: status, Checks: checks}
}
