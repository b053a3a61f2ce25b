// Package models defines the canonical employee record and the per-category
// sub-records the correlation engine maintains.
package models

import (
	"encoding/json"
	"time"

	id "comply/pkg/domain"
)

// Employment status values written by the roster handler.
const (
	EmploymentActive     = "active"
	EmploymentOnboarding = "onboarding"
	EmploymentOffboarded = "offboarded"
	EmploymentTerminated = "terminated"
)

// CorrelatedEmployee is the canonical per-organization identity produced by
// merging evidence from multiple sources. Identity is keyed on
// (OrgID, Email); Email is normalized (lower-cased, trimmed) before any
// write or lookup and is immutable once set.
type CorrelatedEmployee struct {
	ID                  id.EmployeeID    `json:"id"`
	OrgID               id.OrgID         `json:"organizationId"`
	Email               string           `json:"email"`
	ExternalID          string           `json:"externalId,omitempty"`
	FirstName           string           `json:"firstName,omitempty"`
	LastName            string           `json:"lastName,omitempty"`
	Department          string           `json:"department,omitempty"`
	JobTitle            string           `json:"jobTitle,omitempty"`
	ManagerEmail        string           `json:"managerEmail,omitempty"`
	HireDate            *time.Time       `json:"hireDate,omitempty"`
	EmploymentStatus    string           `json:"employmentStatus,omitempty"`
	EmploymentType      string           `json:"employmentType,omitempty"`
	Location            string           `json:"location,omitempty"`
	SourceIntegrationID id.IntegrationID `json:"sourceIntegrationId,omitempty"`
	LastCorrelatedAt    time.Time        `json:"lastCorrelatedAt"`

	// ComplianceScore caches the most recent calculator output; nil until
	// the first computation. Never hand-edited.
	ComplianceScore  *int              `json:"complianceScore"`
	ComplianceIssues []ComplianceIssue `json:"complianceIssues"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ComplianceIssue is a structured finding regenerated in full on every score
// computation. Issues are never merged with a prior run.
type ComplianceIssue struct {
	Type     string `json:"type"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
}

// Issue severities, ordered by urgency.
const (
	SeverityLow      = "low"
	SeverityMedium   = "medium"
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)

// Issue types.
const (
	IssueBackgroundCheck = "background_check"
	IssueTraining        = "training"
	IssueAttestation     = "attestation"
	IssueAccessReview    = "access_review"
	IssueMFA             = "mfa"
	IssueDevice          = "device"
	IssueEmployee        = "employee"
)

// Background check statuses.
const (
	CheckClear      = "clear"
	CheckPending    = "pending"
	CheckInProgress = "in_progress"
	CheckFlagged    = "flagged"
)

// BackgroundCheck is a screening result tied to one employee. Keyed by
// (EmployeeID, IntegrationID, ExternalID) so repeated syncs of the same
// logical check upsert rather than duplicate.
type BackgroundCheck struct {
	ID            string           `json:"id"`
	EmployeeID    id.EmployeeID    `json:"employeeId"`
	IntegrationID id.IntegrationID `json:"integrationId"`
	ExternalID    string           `json:"externalId"`
	Status        string           `json:"status"`
	CheckType     string           `json:"checkType,omitempty"`
	InitiatedAt   *time.Time       `json:"initiatedAt,omitempty"`
	CompletedAt   *time.Time       `json:"completedAt,omitempty"`
	ExpiresAt     *time.Time       `json:"expiresAt,omitempty"`
	RawPayload    json.RawMessage  `json:"-"`
	CreatedAt     time.Time        `json:"createdAt"`
	UpdatedAt     time.Time        `json:"updatedAt"`
}

// Training record statuses.
const (
	TrainingAssigned   = "assigned"
	TrainingInProgress = "in_progress"
	TrainingCompleted  = "completed"
	TrainingOverdue    = "overdue"
)

// TrainingRecord is one course assignment or completion. Append-only: no
// natural external id exists, so each sync run inserts fresh rows and the
// score calculator picks the relevant subset (latest per course).
type TrainingRecord struct {
	ID            string           `json:"id"`
	EmployeeID    id.EmployeeID    `json:"employeeId"`
	IntegrationID id.IntegrationID `json:"integrationId"`
	CourseID      string           `json:"courseId,omitempty"`
	CourseName    string           `json:"courseName,omitempty"`
	Category      string           `json:"category,omitempty"` // required or optional
	Status        string           `json:"status"`
	AssignedAt    *time.Time       `json:"assignedAt,omitempty"`
	DueAt         *time.Time       `json:"dueAt,omitempty"`
	CompletedAt   *time.Time       `json:"completedAt,omitempty"`
	Score         *float64         `json:"score,omitempty"`
	RawPayload    json.RawMessage  `json:"-"`
	CreatedAt     time.Time        `json:"createdAt"`
}

// AssetAssignment links an employee to a managed device. Keyed by
// (EmployeeID, IntegrationID, ExternalID); when the source provides no id a
// deterministic one is synthesized from the serial number so re-syncs
// overwrite. AssetID is an optional link into the asset inventory resolved
// by serial number.
type AssetAssignment struct {
	ID            string           `json:"id"`
	EmployeeID    id.EmployeeID    `json:"employeeId"`
	IntegrationID id.IntegrationID `json:"integrationId"`
	ExternalID    string           `json:"externalId"`
	AssetID       id.AssetID       `json:"assetId,omitempty"`
	DeviceType    string           `json:"deviceType,omitempty"`
	DeviceName    string           `json:"deviceName,omitempty"`
	SerialNumber  string           `json:"serialNumber,omitempty"`
	Model         string           `json:"model,omitempty"`
	Manufacturer  string           `json:"manufacturer,omitempty"`
	OS            string           `json:"os,omitempty"`
	Compliant     *bool            `json:"compliant,omitempty"`
	LastCheckInAt *time.Time       `json:"lastCheckInAt,omitempty"`
	RawPayload    json.RawMessage  `json:"-"`
	CreatedAt     time.Time        `json:"createdAt"`
	UpdatedAt     time.Time        `json:"updatedAt"`
}

// Access review statuses reported by identity providers.
const (
	ReviewActionRequired = "action_required"
	ReviewPending        = "pending"
	ReviewCompleted      = "completed"
)

// AccessRecord holds the latest system-access state one integration reports
// for an employee. One row per (EmployeeID, IntegrationID): latest state
// replaces the prior row entirely. Two integrations reporting for the same
// employee keep separate rows; no cross-integration merge is attempted.
type AccessRecord struct {
	ID            string           `json:"id"`
	EmployeeID    id.EmployeeID    `json:"employeeId"`
	IntegrationID id.IntegrationID `json:"integrationId"`
	Systems       []SystemAccess   `json:"systems"`
	MFAEnabled    *bool            `json:"mfaEnabled,omitempty"`
	LastReviewAt  *time.Time       `json:"lastReviewAt,omitempty"`
	ReviewStatus  string           `json:"reviewStatus,omitempty"`
	RawPayload    json.RawMessage  `json:"-"`
	CreatedAt     time.Time        `json:"createdAt"`
	UpdatedAt     time.Time        `json:"updatedAt"`
}

// SystemAccess is one entry in an access record's system list.
type SystemAccess struct {
	System string `json:"system"`
	Role   string `json:"role,omitempty"`
}

// SecurityScore is one point-in-time security awareness measurement.
// Append-only history; the calculator and reporting use the most recent row.
type SecurityScore struct {
	ID             string           `json:"id"`
	EmployeeID     id.EmployeeID    `json:"employeeId"`
	IntegrationID  id.IntegrationID `json:"integrationId"`
	OverallScore   *float64         `json:"overallScore,omitempty"`
	PhishingScore  *float64         `json:"phishingScore,omitempty"`
	TrainingScore  *float64         `json:"trainingScore,omitempty"`
	PhishingTests  int              `json:"phishingTests"`
	PhishingFailed int              `json:"phishingFailed"`
	RecordedAt     time.Time        `json:"recordedAt"`
	RawPayload     json.RawMessage  `json:"-"`
	CreatedAt      time.Time        `json:"createdAt"`
}

// Attestation statuses. Attestations are owned by the policy subsystem and
// read here only as score inputs.
const (
	AttestationAcknowledged = "acknowledged"
	AttestationPending      = "pending"
	AttestationDeclined     = "declined"
	AttestationExpired      = "expired"
)

// Attestation is a read-only view of a policy acknowledgement.
type Attestation struct {
	ID             string        `json:"id"`
	EmployeeID     id.EmployeeID `json:"employeeId"`
	PolicyID       string        `json:"policyId"`
	Status         string        `json:"status"`
	AcknowledgedAt *time.Time    `json:"acknowledgedAt,omitempty"`
	ExpiresAt      *time.Time    `json:"expiresAt,omitempty"`
}

// Asset is an inventory entry assignments may link to by serial number.
type Asset struct {
	ID           id.AssetID
	OrgID        id.OrgID
	SerialNumber string
	Name         string
}

// SyncResult is the aggregate outcome of one evidence batch. Errors counts
// records skipped for missing required keys; one bad record never aborts
// the batch.
type SyncResult struct {
	Processed int `json:"processed"`
	Errors    int `json:"errors"`
}

// Add folds another result into this one.
func (r *SyncResult) Add(other SyncResult) {
	r.Processed += other.Processed
	r.Errors += other.Errors
}

// ScoreSummary is the slim projection the metrics aggregator reads: one row
// per active employee with the persisted score and issue list.
type ScoreSummary struct {
	EmployeeID id.EmployeeID
	Score      *int
	Issues     []ComplianceIssue
}
