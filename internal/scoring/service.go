package scoring

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"comply/internal/audit"
	"comply/internal/correlation/models"
	"comply/internal/platform/config"
	scoremetrics "comply/internal/scoring/metrics"
	id "comply/pkg/domain"
	dErrors "comply/pkg/domain-errors"
	"comply/pkg/platform/sentinel"
	"comply/pkg/requestcontext"
)

// Consumer-side interfaces over the correlation stores. The calculator
// reads evidence and writes exactly one thing: the cached score.

type EmployeeStore interface {
	FindByID(ctx context.Context, employeeID id.EmployeeID) (*models.CorrelatedEmployee, error)
	UpdateScore(ctx context.Context, employeeID id.EmployeeID, score int, issues []models.ComplianceIssue, now time.Time) error
	PageByID(ctx context.Context, orgID id.OrgID, afterID id.EmployeeID, limit int) ([]*models.CorrelatedEmployee, error)
}

type CheckReader interface {
	LatestCheckByEmployee(ctx context.Context, employeeID id.EmployeeID) (*models.BackgroundCheck, error)
}

type TrainingReader interface {
	ListTrainingByEmployee(ctx context.Context, employeeID id.EmployeeID) ([]*models.TrainingRecord, error)
}

type AttestationReader interface {
	ListAttestationsByEmployee(ctx context.Context, employeeID id.EmployeeID) ([]*models.Attestation, error)
}

type AccessReader interface {
	LatestAccessByEmployee(ctx context.Context, employeeID id.EmployeeID) (*models.AccessRecord, error)
}

type AssetReader interface {
	ListAssignmentsByEmployee(ctx context.Context, employeeID id.EmployeeID) ([]*models.AssetAssignment, error)
}

// Stores groups the evidence readers and the score writer.
type Stores struct {
	Employees    EmployeeStore
	Checks       CheckReader
	Training     TrainingReader
	Attestations AttestationReader
	Access       AccessReader
	Assets       AssetReader
}

// AuditEmitter is the fire-and-forget audit sink.
type AuditEmitter interface {
	Emit(ctx context.Context, event audit.Event)
}

// Service is the score calculator and batch recalculation job.
type Service struct {
	stores   Stores
	weights  config.Weights
	pageSize int
	logger   *slog.Logger
	metrics  *scoremetrics.Metrics
	audit    AuditEmitter
	lease    Lease
}

// Option configures optional Service collaborators.
type Option func(*Service)

// WithLease guards organization-wide recalculation with a single-flight
// lease. Without it concurrent runs are merely wasteful, not incorrect.
func WithLease(lease Lease) Option {
	return func(s *Service) { s.lease = lease }
}

// WithAudit wires the audit emitter.
func WithAudit(emitter AuditEmitter) Option {
	return func(s *Service) { s.audit = emitter }
}

func New(stores Stores, weights config.Weights, pageSize int, logger *slog.Logger, metrics *scoremetrics.Metrics, opts ...Option) *Service {
	if pageSize <= 0 {
		pageSize = 500
	}
	s := &Service{
		stores:   stores,
		weights:  weights,
		pageSize: pageSize,
		logger:   logger,
		metrics:  metrics,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Calculate computes the four-component breakdown for one employee. It
// performs no writes. A missing employee yields an all-zero breakdown with
// a critical issue rather than an error, so batch callers never need
// per-item error handling.
func (s *Service) Calculate(ctx context.Context, employeeID id.EmployeeID) (*Breakdown, error) {
	start := time.Now()
	defer s.metrics.ObserveCalculate(start)

	emp, err := s.stores.Employees.FindByID(ctx, employeeID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return &Breakdown{Issues: []models.ComplianceIssue{{
				Type:     models.IssueEmployee,
				Severity: models.SeverityCritical,
				Message:  "employee not found",
			}}}, nil
		}
		return nil, fmt.Errorf("find employee %s: %w", employeeID, err)
	}

	ev, err := s.gatherEvidence(ctx, emp.ID)
	if err != nil {
		return nil, fmt.Errorf("gather evidence for %s: %w", employeeID, err)
	}
	return buildBreakdown(ev, s.weights), nil
}

// UpdateEmployeeScore computes and persists one employee's score. This is
// the write wrapper around Calculate; the persisted score is a derived
// cache, eventually consistent with the latest sync.
func (s *Service) UpdateEmployeeScore(ctx context.Context, employeeID id.EmployeeID) (*Breakdown, error) {
	breakdown, err := s.Calculate(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)
	if err := s.stores.Employees.UpdateScore(ctx, employeeID, breakdown.Total, breakdown.Issues, now); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "employee not found")
		}
		return nil, fmt.Errorf("persist score for %s: %w", employeeID, err)
	}
	if s.audit != nil {
		s.audit.Emit(ctx, audit.Event{
			Action:  audit.ActionScoreUpdated,
			Subject: employeeID.String(),
			Detail:  map[string]any{"total": breakdown.Total, "issues": len(breakdown.Issues)},
		})
	}
	return breakdown, nil
}
