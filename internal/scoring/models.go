// Package scoring computes the weighted compliance score for correlated
// employees. Rules are pure functions over gathered evidence; all I/O is
// confined to the evidence gatherer and the score writer.
package scoring

import (
	"time"

	"comply/internal/correlation/models"
)

// Breakdown is the result of one score computation. Each component is in
// [0, weight] and Total is their sum. Issues are regenerated fresh on each
// computation, never merged with a prior run.
type Breakdown struct {
	BackgroundCheck int                      `json:"backgroundCheck"`
	Training        int                      `json:"training"`
	Attestation     int                      `json:"attestation"`
	AccessReview    int                      `json:"accessReview"`
	Total           int                      `json:"total"`
	Issues          []models.ComplianceIssue `json:"issues"`
}

// evidence is everything the rules need for one employee, gathered up
// front so the rules stay free of I/O.
type evidence struct {
	employee     *models.CorrelatedEmployee
	latestCheck  *models.BackgroundCheck // nil when none on file
	training     []*models.TrainingRecord
	attestations []*models.Attestation
	latestAccess *models.AccessRecord // nil when none on file
	assignments  []*models.AssetAssignment
	fetchedAt    time.Time
}
