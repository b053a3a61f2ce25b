// Package reporting serves organization-wide rollups and the employee
// listing/detail queries consumed by the presentation layer. It only reads
// persisted state; scores are never recomputed here.
package reporting

import (
	"comply/internal/correlation/models"
	id "comply/pkg/domain"
)

// Score distribution bucket labels, fixed and ordered highest first.
var distributionBuckets = []string{"90-100", "80-89", "70-79", "60-69", "<60"}

// OrgMetrics is the organization-wide compliance rollup. Only active
// employees participate.
type OrgMetrics struct {
	TotalEmployees int `json:"totalEmployees"`
	// AverageScore averages persisted scores; employees not yet scored are
	// excluded from the average and the distribution.
	AverageScore      float64            `json:"averageScore"`
	ScoreDistribution []DistributionSlot `json:"scoreDistribution"`
	IssueBreakdown    []IssueCount       `json:"issueBreakdown"`
	// ComplianceRate is the percentage of active employees at or above the
	// compliant threshold.
	ComplianceRate float64 `json:"complianceRate"`
}

// DistributionSlot is one fixed score bucket.
type DistributionSlot struct {
	Bucket string `json:"bucket"`
	Count  int    `json:"count"`
}

// IssueCount aggregates persisted issues by type.
type IssueCount struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
}

// EmployeePage is one page of a filtered employee listing.
type EmployeePage struct {
	Employees []*models.CorrelatedEmployee `json:"employees"`
	Total     int                          `json:"total"`
}

// EmployeeDetail is the full correlated view of one employee: every
// sub-record family plus the distinct integrations that contributed data.
type EmployeeDetail struct {
	Employee         *models.CorrelatedEmployee `json:"employee"`
	BackgroundChecks []*models.BackgroundCheck  `json:"backgroundChecks"`
	TrainingRecords  []*models.TrainingRecord   `json:"trainingRecords"`
	AssetAssignments []*models.AssetAssignment  `json:"assetAssignments"`
	AccessRecords    []*models.AccessRecord     `json:"accessRecords"`
	SecurityScores   []*models.SecurityScore    `json:"securityScores"`
	Attestations     []*models.Attestation      `json:"attestations"`
	DataSources      []id.IntegrationID         `json:"dataSources"`
}
