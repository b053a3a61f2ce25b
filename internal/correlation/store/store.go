// Package store persists the canonical employee identity and its
// per-category sub-records. Stores are interface-driven to keep the domain
// logic testable and to allow swapping in-memory and PostgreSQL
// implementations without rewiring business code. Stores are pure I/O;
// normalization and scoring rules live in the services.
package store

import (
	"context"
	"time"

	"comply/internal/correlation/models"
	id "comply/pkg/domain"
)

// ListFilter narrows an employee listing. Zero values mean "no filter".
type ListFilter struct {
	Search           string
	Department       string
	EmploymentStatus string
	Bucket           id.ComplianceBucket
	Limit            int
	Offset           int
}

type EmployeeStore interface {
	// ResolveIdentity finds or creates the canonical employee for an
	// organization+email pair and returns its id. The create path must be
	// an atomic upsert: two handlers may resolve the same new employee from
	// overlapping batches concurrently. Email must already be normalized.
	ResolveIdentity(ctx context.Context, orgID id.OrgID, email string, now time.Time) (id.EmployeeID, error)

	// UpsertRoster writes the full identity attribute set keyed on
	// (OrgID, Email). Only the roster handler calls this; the cached score
	// and issues are never touched here.
	UpsertRoster(ctx context.Context, emp *models.CorrelatedEmployee) (id.EmployeeID, error)

	FindByID(ctx context.Context, employeeID id.EmployeeID) (*models.CorrelatedEmployee, error)

	// UpdateScore persists the calculator output, replacing the issue list
	// in full.
	UpdateScore(ctx context.Context, employeeID id.EmployeeID, score int, issues []models.ComplianceIssue, now time.Time) error

	// PageByID returns up to limit employees of an organization with
	// id > afterID, ordered by id ascending. Cursor pagination keeps the
	// recalculation job stable under concurrent inserts.
	PageByID(ctx context.Context, orgID id.OrgID, afterID id.EmployeeID, limit int) ([]*models.CorrelatedEmployee, error)

	// List returns a filtered page plus the total match count.
	List(ctx context.Context, orgID id.OrgID, filter ListFilter) ([]*models.CorrelatedEmployee, int, error)

	// ActiveScoreSummaries projects persisted scores and issues for all
	// active employees of an organization.
	ActiveScoreSummaries(ctx context.Context, orgID id.OrgID) ([]models.ScoreSummary, error)
}

// Sub-record method names stay distinct across interfaces so one backing
// store (Memory, Postgres) can satisfy all of them.

type BackgroundCheckStore interface {
	UpsertCheck(ctx context.Context, check *models.BackgroundCheck) error
	// LatestCheckByEmployee returns the most recently completed check, or
	// sentinel.ErrNotFound when none exist.
	LatestCheckByEmployee(ctx context.Context, employeeID id.EmployeeID) (*models.BackgroundCheck, error)
	ListChecksByEmployee(ctx context.Context, employeeID id.EmployeeID) ([]*models.BackgroundCheck, error)
}

type TrainingStore interface {
	InsertTraining(ctx context.Context, rec *models.TrainingRecord) error
	ListTrainingByEmployee(ctx context.Context, employeeID id.EmployeeID) ([]*models.TrainingRecord, error)
}

type AssetStore interface {
	UpsertAssignment(ctx context.Context, assignment *models.AssetAssignment) error
	ListAssignmentsByEmployee(ctx context.Context, employeeID id.EmployeeID) ([]*models.AssetAssignment, error)
	// FindAssetBySerial resolves an inventory asset by serial number, or
	// sentinel.ErrNotFound when the serial is not inventoried.
	FindAssetBySerial(ctx context.Context, orgID id.OrgID, serialNumber string) (*models.Asset, error)
}

type AccessStore interface {
	// ReplaceAccess upserts the single row for (EmployeeID, IntegrationID);
	// latest state replaces the prior row entirely.
	ReplaceAccess(ctx context.Context, rec *models.AccessRecord) error
	LatestAccessByEmployee(ctx context.Context, employeeID id.EmployeeID) (*models.AccessRecord, error)
	ListAccessByEmployee(ctx context.Context, employeeID id.EmployeeID) ([]*models.AccessRecord, error)
}

type SecurityScoreStore interface {
	InsertSecurityScore(ctx context.Context, score *models.SecurityScore) error
	ListSecurityScoresByEmployee(ctx context.Context, employeeID id.EmployeeID) ([]*models.SecurityScore, error)
}

// AttestationStore is a read-only view over attestations owned by the
// policy subsystem.
type AttestationStore interface {
	ListAttestationsByEmployee(ctx context.Context, employeeID id.EmployeeID) ([]*models.Attestation, error)
}
