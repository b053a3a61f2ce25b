// Package service implements the correlation dispatcher, the identity
// resolver, and the per-category evidence handlers.
package service

import (
	"context"
	"log/slog"

	"comply/internal/audit"
	corrmetrics "comply/internal/correlation/metrics"
	"comply/internal/correlation/store"
)

// Stores groups the persistence interfaces the correlation service writes.
// One backing implementation (store.Memory, store.Postgres) satisfies all
// of them.
type Stores struct {
	Employees store.EmployeeStore
	Checks    store.BackgroundCheckStore
	Training  store.TrainingStore
	Assets    store.AssetStore
	Access    store.AccessStore
	Security  store.SecurityScoreStore
}

// AuditEmitter is the side-effect sink for sync audit events. Emission is
// fire-and-forget; failures never surface to the sync caller.
type AuditEmitter interface {
	Emit(ctx context.Context, event audit.Event)
}

// Service routes evidence batches to category handlers and owns identity
// resolution. It holds no state beyond its dependencies; all mutable state
// lives in the stores.
type Service struct {
	stores  Stores
	logger  *slog.Logger
	metrics *corrmetrics.Metrics
	audit   AuditEmitter
}

func New(stores Stores, logger *slog.Logger, metrics *corrmetrics.Metrics, auditEmitter AuditEmitter) *Service {
	return &Service{
		stores:  stores,
		logger:  logger,
		metrics: metrics,
		audit:   auditEmitter,
	}
}
