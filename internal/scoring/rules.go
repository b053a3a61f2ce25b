package scoring

import (
	"fmt"
	"time"

	"comply/internal/correlation/models"
	"comply/internal/platform/config"
)

// The rules in this file are pure domain logic - no I/O, no side effects.
// Each component is derived independently; there is no cross-component
// coupling. Rule outcomes are expressed on the documented 25-point scale
// and scaled to the configured component weight, so the stock 25/25/25/25
// weighting reproduces the documented values exactly.

// scale maps points on the 25-point rule scale onto the component weight.
func scale(points, weight int) int {
	return points * weight / 25
}

// scoreBackgroundCheck scores the latest check only (most recently
// completed first). Rule priority:
//  1. No record on file - hard zero
//  2. Expired check - near zero regardless of status
//  3. Status ladder: clear / pending / flagged / other
func scoreBackgroundCheck(check *models.BackgroundCheck, now time.Time, weight int) (int, []models.ComplianceIssue) {
	if check == nil {
		return 0, []models.ComplianceIssue{{
			Type:     models.IssueBackgroundCheck,
			Severity: models.SeverityHigh,
			Message:  "no background check on file",
		}}
	}
	if check.ExpiresAt != nil && check.ExpiresAt.Before(now) {
		return scale(5, weight), []models.ComplianceIssue{{
			Type:     models.IssueBackgroundCheck,
			Severity: models.SeverityHigh,
			Message:  "background check expired",
		}}
	}
	switch check.Status {
	case models.CheckClear:
		return weight, nil
	case models.CheckPending, models.CheckInProgress:
		return scale(15, weight), []models.ComplianceIssue{{
			Type:     models.IssueBackgroundCheck,
			Severity: models.SeverityMedium,
			Message:  "background check pending",
		}}
	case models.CheckFlagged:
		return scale(5, weight), []models.ComplianceIssue{{
			Type:     models.IssueBackgroundCheck,
			Severity: models.SeverityCritical,
			Message:  "background check flagged",
		}}
	default:
		return scale(10, weight), nil
	}
}

// scoreTraining scores the latest row per course. Zero records score full:
// absence of data may mean "no training assigned", not "missing
// integration", so it is not penalized. Overdue rate dominates the
// completion ladder when any course is overdue.
func scoreTraining(records []*models.TrainingRecord, weight int) (int, []models.ComplianceIssue) {
	records = latestPerCourse(records)
	if len(records) == 0 {
		return weight, nil
	}

	var completed, overdue, inProgress int
	for _, rec := range records {
		switch rec.Status {
		case models.TrainingCompleted:
			completed++
		case models.TrainingOverdue:
			overdue++
		case models.TrainingInProgress:
			inProgress++
		}
	}

	var issues []models.ComplianceIssue
	if overdue > 0 {
		issues = append(issues, models.ComplianceIssue{
			Type:     models.IssueTraining,
			Severity: models.SeverityHigh,
			Message:  fmt.Sprintf("%d training courses overdue", overdue),
		})
	}
	if inProgress > 0 {
		issues = append(issues, models.ComplianceIssue{
			Type:     models.IssueTraining,
			Severity: models.SeverityLow,
			Message:  fmt.Sprintf("%d training courses in progress", inProgress),
		})
	}

	total := len(records)
	overdueRate := float64(overdue) / float64(total)
	switch {
	case overdueRate > 0.5:
		return scale(5, weight), issues
	case overdueRate > 0.25:
		return scale(10, weight), issues
	case overdueRate > 0:
		return scale(15, weight), issues
	}

	completionRate := float64(completed) / float64(total)
	switch {
	case completionRate >= 1:
		return weight, issues
	case completionRate >= 0.75:
		return scale(20, weight), issues
	case completionRate >= 0.5:
		return scale(15, weight), issues
	default:
		return scale(10, weight), issues
	}
}

// latestPerCourse reduces the append-only training history to the most
// recent row per course. Rows sharing neither course id nor name are kept
// individually.
func latestPerCourse(records []*models.TrainingRecord) []*models.TrainingRecord {
	latest := make(map[string]*models.TrainingRecord)
	var order []string
	for _, rec := range records {
		key := rec.CourseID
		if key == "" {
			key = rec.CourseName
		}
		if key == "" {
			key = rec.ID
		}
		existing, ok := latest[key]
		if !ok {
			latest[key] = rec
			order = append(order, key)
			continue
		}
		if rec.CreatedAt.After(existing.CreatedAt) {
			latest[key] = rec
		}
	}
	reduced := make([]*models.TrainingRecord, 0, len(order))
	for _, key := range order {
		reduced = append(reduced, latest[key])
	}
	return reduced
}

// scoreAttestations scores policy acknowledgements. Zero records score
// full (benefit of the doubt). Any declined attestation forces the
// component to zero, overriding all else.
func scoreAttestations(attestations []*models.Attestation, now time.Time, weight int) (int, []models.ComplianceIssue) {
	if len(attestations) == 0 {
		return weight, nil
	}

	var acknowledged, declined, expired, pending int
	for _, att := range attestations {
		switch {
		case att.Status == models.AttestationDeclined:
			declined++
		case att.Status == models.AttestationExpired,
			att.ExpiresAt != nil && att.ExpiresAt.Before(now):
			expired++
		case att.Status == models.AttestationAcknowledged:
			acknowledged++
		case att.Status == models.AttestationPending:
			pending++
		}
	}

	var issues []models.ComplianceIssue
	if pending > 0 {
		issues = append(issues, models.ComplianceIssue{
			Type:     models.IssueAttestation,
			Severity: models.SeverityMedium,
			Message:  fmt.Sprintf("%d policy attestations pending", pending),
		})
	}

	if declined > 0 {
		issues = append(issues, models.ComplianceIssue{
			Type:     models.IssueAttestation,
			Severity: models.SeverityCritical,
			Message:  "policy attestation declined",
		})
		return 0, issues
	}

	total := len(attestations)
	if expired > 0 {
		issues = append(issues, models.ComplianceIssue{
			Type:     models.IssueAttestation,
			Severity: models.SeverityHigh,
			Message:  fmt.Sprintf("%d policy attestations expired", expired),
		})
		if float64(expired)/float64(total) > 0.5 {
			return scale(5, weight), issues
		}
		return scale(15, weight), issues
	}

	acknowledgedRate := float64(acknowledged) / float64(total)
	switch {
	case acknowledgedRate >= 1:
		return weight, issues
	case acknowledgedRate >= 0.75:
		return scale(20, weight), issues
	case acknowledgedRate >= 0.5:
		return scale(15, weight), issues
	default:
		return scale(10, weight), issues
	}
}

// scoreAccessReview starts at full weight and applies independent additive
// deductions from the latest access record and the device list; the result
// floors at zero and is never raised.
func scoreAccessReview(access *models.AccessRecord, assignments []*models.AssetAssignment, weight int) (int, []models.ComplianceIssue) {
	score := weight
	var issues []models.ComplianceIssue

	if access != nil {
		switch access.ReviewStatus {
		case models.ReviewActionRequired:
			score -= scale(10, weight)
			issues = append(issues, models.ComplianceIssue{
				Type:     models.IssueAccessReview,
				Severity: models.SeverityHigh,
				Message:  "access review action required",
			})
		case models.ReviewPending:
			score -= scale(5, weight)
			issues = append(issues, models.ComplianceIssue{
				Type:     models.IssueAccessReview,
				Severity: models.SeverityMedium,
				Message:  "access review pending",
			})
		}
		if access.MFAEnabled != nil && !*access.MFAEnabled {
			score -= scale(5, weight)
			issues = append(issues, models.ComplianceIssue{
				Type:     models.IssueMFA,
				Severity: models.SeverityHigh,
				Message:  "MFA not enabled",
			})
		}
	}

	for _, assignment := range assignments {
		if assignment.Compliant != nil && !*assignment.Compliant {
			score -= scale(5, weight)
			issues = append(issues, models.ComplianceIssue{
				Type:     models.IssueDevice,
				Severity: models.SeverityMedium,
				Message:  "non-compliant device assigned",
			})
			break
		}
	}

	return max(0, score), issues
}

// buildBreakdown assembles the four components into one breakdown.
func buildBreakdown(ev *evidence, weights config.Weights) *Breakdown {
	breakdown := &Breakdown{Issues: []models.ComplianceIssue{}}

	var issues []models.ComplianceIssue
	breakdown.BackgroundCheck, issues = scoreBackgroundCheck(ev.latestCheck, ev.fetchedAt, weights.BackgroundCheck)
	breakdown.Issues = append(breakdown.Issues, issues...)

	breakdown.Training, issues = scoreTraining(ev.training, weights.Training)
	breakdown.Issues = append(breakdown.Issues, issues...)

	breakdown.Attestation, issues = scoreAttestations(ev.attestations, ev.fetchedAt, weights.Attestation)
	breakdown.Issues = append(breakdown.Issues, issues...)

	breakdown.AccessReview, issues = scoreAccessReview(ev.latestAccess, ev.assignments, weights.AccessReview)
	breakdown.Issues = append(breakdown.Issues, issues...)

	breakdown.Total = breakdown.BackgroundCheck + breakdown.Training + breakdown.Attestation + breakdown.AccessReview
	return breakdown
}
