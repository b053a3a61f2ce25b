package reporting

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"comply/internal/correlation/models"
	"comply/internal/correlation/store"
	id "comply/pkg/domain"
	dErrors "comply/pkg/domain-errors"
	"comply/pkg/platform/sentinel"
)

// EmployeeReader is the listing/rollup surface of the employee store.
type EmployeeReader interface {
	FindByID(ctx context.Context, employeeID id.EmployeeID) (*models.CorrelatedEmployee, error)
	List(ctx context.Context, orgID id.OrgID, filter store.ListFilter) ([]*models.CorrelatedEmployee, int, error)
	ActiveScoreSummaries(ctx context.Context, orgID id.OrgID) ([]models.ScoreSummary, error)
}

// SubRecordReader lists every sub-record family for the detail view.
type SubRecordReader interface {
	ListChecksByEmployee(ctx context.Context, employeeID id.EmployeeID) ([]*models.BackgroundCheck, error)
	ListTrainingByEmployee(ctx context.Context, employeeID id.EmployeeID) ([]*models.TrainingRecord, error)
	ListAssignmentsByEmployee(ctx context.Context, employeeID id.EmployeeID) ([]*models.AssetAssignment, error)
	ListAccessByEmployee(ctx context.Context, employeeID id.EmployeeID) ([]*models.AccessRecord, error)
	ListSecurityScoresByEmployee(ctx context.Context, employeeID id.EmployeeID) ([]*models.SecurityScore, error)
	ListAttestationsByEmployee(ctx context.Context, employeeID id.EmployeeID) ([]*models.Attestation, error)
}

// Service answers listing, detail, and rollup queries.
type Service struct {
	employees EmployeeReader
	records   SubRecordReader
	cache     Cache
	logger    *slog.Logger
}

func New(employees EmployeeReader, records SubRecordReader, cache Cache, logger *slog.Logger) *Service {
	if cache == nil {
		cache = NoopCache{}
	}
	return &Service{
		employees: employees,
		records:   records,
		cache:     cache,
		logger:    logger,
	}
}

// ListEmployees returns a filtered, paginated employee listing.
func (s *Service) ListEmployees(ctx context.Context, orgID id.OrgID, filter store.ListFilter) (*EmployeePage, error) {
	if filter.Bucket != "" && !filter.Bucket.IsValid() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "invalid compliance bucket")
	}
	employees, total, err := s.employees.List(ctx, orgID, filter)
	if err != nil {
		return nil, fmt.Errorf("list employees: %w", err)
	}
	return &EmployeePage{Employees: employees, Total: total}, nil
}

// EmployeeDetail assembles one employee's full correlated view.
func (s *Service) EmployeeDetail(ctx context.Context, employeeID id.EmployeeID) (*EmployeeDetail, error) {
	emp, err := s.employees.FindByID(ctx, employeeID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "employee not found")
		}
		return nil, fmt.Errorf("find employee: %w", err)
	}

	detail := &EmployeeDetail{Employee: emp}
	if detail.BackgroundChecks, err = s.records.ListChecksByEmployee(ctx, employeeID); err != nil {
		return nil, fmt.Errorf("list checks: %w", err)
	}
	if detail.TrainingRecords, err = s.records.ListTrainingByEmployee(ctx, employeeID); err != nil {
		return nil, fmt.Errorf("list training: %w", err)
	}
	if detail.AssetAssignments, err = s.records.ListAssignmentsByEmployee(ctx, employeeID); err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	if detail.AccessRecords, err = s.records.ListAccessByEmployee(ctx, employeeID); err != nil {
		return nil, fmt.Errorf("list access: %w", err)
	}
	if detail.SecurityScores, err = s.records.ListSecurityScoresByEmployee(ctx, employeeID); err != nil {
		return nil, fmt.Errorf("list security scores: %w", err)
	}
	if detail.Attestations, err = s.records.ListAttestationsByEmployee(ctx, employeeID); err != nil {
		return nil, fmt.Errorf("list attestations: %w", err)
	}
	detail.DataSources = dataSources(detail)
	return detail, nil
}

// dataSources dedupes the integrations that contributed any data for the
// employee, including the roster source.
func dataSources(detail *EmployeeDetail) []id.IntegrationID {
	seen := make(map[id.IntegrationID]bool)
	var sources []id.IntegrationID
	add := func(integrationID id.IntegrationID) {
		if integrationID == "" || seen[integrationID] {
			return
		}
		seen[integrationID] = true
		sources = append(sources, integrationID)
	}

	add(detail.Employee.SourceIntegrationID)
	for _, r := range detail.BackgroundChecks {
		add(r.IntegrationID)
	}
	for _, r := range detail.TrainingRecords {
		add(r.IntegrationID)
	}
	for _, r := range detail.AssetAssignments {
		add(r.IntegrationID)
	}
	for _, r := range detail.AccessRecords {
		add(r.IntegrationID)
	}
	for _, r := range detail.SecurityScores {
		add(r.IntegrationID)
	}
	sort.Slice(sources, func(i, j int) bool { return sources[i] < sources[j] })
	return sources
}

// OrganizationMetrics computes the organization rollup from persisted
// scores, with a short-TTL cache in front when configured. The persisted
// issue lists are counted as-is, not recomputed.
func (s *Service) OrganizationMetrics(ctx context.Context, orgID id.OrgID) (*OrgMetrics, error) {
	if cached, ok := s.cache.Get(ctx, orgID); ok {
		return cached, nil
	}

	summaries, err := s.employees.ActiveScoreSummaries(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("score summaries: %w", err)
	}

	metrics := &OrgMetrics{
		TotalEmployees:    len(summaries),
		ScoreDistribution: make([]DistributionSlot, len(distributionBuckets)),
	}
	for i, bucket := range distributionBuckets {
		metrics.ScoreDistribution[i] = DistributionSlot{Bucket: bucket}
	}

	var (
		scored      int
		scoreSum    int
		compliant   int
		issueCounts = make(map[string]int)
	)
	for _, summary := range summaries {
		for _, issue := range summary.Issues {
			issueCounts[issue.Type]++
		}
		if summary.Score == nil {
			continue
		}
		score := *summary.Score
		scored++
		scoreSum += score
		if score >= id.CompliantThreshold {
			compliant++
		}
		metrics.ScoreDistribution[distributionSlot(score)].Count++
	}

	if scored > 0 {
		metrics.AverageScore = float64(scoreSum) / float64(scored)
	}
	if len(summaries) > 0 {
		metrics.ComplianceRate = 100 * float64(compliant) / float64(len(summaries))
	}

	for issueType, count := range issueCounts {
		metrics.IssueBreakdown = append(metrics.IssueBreakdown, IssueCount{Type: issueType, Count: count})
	}
	sort.Slice(metrics.IssueBreakdown, func(i, j int) bool {
		if metrics.IssueBreakdown[i].Count != metrics.IssueBreakdown[j].Count {
			return metrics.IssueBreakdown[i].Count > metrics.IssueBreakdown[j].Count
		}
		return metrics.IssueBreakdown[i].Type < metrics.IssueBreakdown[j].Type
	})

	s.cache.Set(ctx, orgID, metrics)
	return metrics, nil
}

func distributionSlot(score int) int {
	switch {
	case score >= 90:
		return 0
	case score >= 80:
		return 1
	case score >= 70:
		return 2
	case score >= 60:
		return 3
	default:
		return 4
	}
}
