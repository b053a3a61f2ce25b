package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"comply/internal/correlation/models"
	id "comply/pkg/domain"
	"comply/pkg/platform/sentinel"
)

// Memory is an in-memory implementation of every correlation store. It
// backs unit tests and local development; the PostgreSQL stores are the
// production implementations.
type Memory struct {
	mu           sync.RWMutex
	employees    map[id.EmployeeID]*models.CorrelatedEmployee
	identity     map[string]id.EmployeeID // orgID + "\x00" + email
	checks       map[string]*models.BackgroundCheck
	training     []*models.TrainingRecord
	assignments  map[string]*models.AssetAssignment
	access       map[string]*models.AccessRecord
	security     []*models.SecurityScore
	attestations map[id.EmployeeID][]*models.Attestation
	assets       map[string]*models.Asset // orgID + "\x00" + serial
}

func NewMemory() *Memory {
	return &Memory{
		employees:    make(map[id.EmployeeID]*models.CorrelatedEmployee),
		identity:     make(map[string]id.EmployeeID),
		checks:       make(map[string]*models.BackgroundCheck),
		assignments:  make(map[string]*models.AssetAssignment),
		access:       make(map[string]*models.AccessRecord),
		attestations: make(map[id.EmployeeID][]*models.Attestation),
		assets:       make(map[string]*models.Asset),
	}
}

func identityKey(orgID id.OrgID, email string) string {
	return orgID.String() + "\x00" + email
}

func subRecordKey(employeeID id.EmployeeID, integrationID id.IntegrationID, externalID string) string {
	return employeeID.String() + "\x00" + integrationID.String() + "\x00" + externalID
}

func (m *Memory) ResolveIdentity(_ context.Context, orgID id.OrgID, email string, now time.Time) (id.EmployeeID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := identityKey(orgID, email)
	if employeeID, ok := m.identity[key]; ok {
		emp := m.employees[employeeID]
		emp.LastCorrelatedAt = now
		emp.UpdatedAt = now
		return employeeID, nil
	}

	emp := &models.CorrelatedEmployee{
		ID:               id.NewEmployeeID(),
		OrgID:            orgID,
		Email:            email,
		LastCorrelatedAt: now,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	m.employees[emp.ID] = emp
	m.identity[key] = emp.ID
	return emp.ID, nil
}

func (m *Memory) UpsertRoster(_ context.Context, emp *models.CorrelatedEmployee) (id.EmployeeID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := identityKey(emp.OrgID, emp.Email)
	if employeeID, ok := m.identity[key]; ok {
		existing := m.employees[employeeID]
		existing.ExternalID = emp.ExternalID
		existing.FirstName = emp.FirstName
		existing.LastName = emp.LastName
		existing.Department = emp.Department
		existing.JobTitle = emp.JobTitle
		existing.ManagerEmail = emp.ManagerEmail
		existing.HireDate = emp.HireDate
		existing.EmploymentStatus = emp.EmploymentStatus
		existing.EmploymentType = emp.EmploymentType
		existing.Location = emp.Location
		existing.SourceIntegrationID = emp.SourceIntegrationID
		existing.LastCorrelatedAt = emp.LastCorrelatedAt
		existing.UpdatedAt = emp.LastCorrelatedAt
		return employeeID, nil
	}

	created := *emp
	if created.ID.IsNil() {
		created.ID = id.NewEmployeeID()
	}
	created.CreatedAt = emp.LastCorrelatedAt
	created.UpdatedAt = emp.LastCorrelatedAt
	m.employees[created.ID] = &created
	m.identity[key] = created.ID
	return created.ID, nil
}

func (m *Memory) FindByID(_ context.Context, employeeID id.EmployeeID) (*models.CorrelatedEmployee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	emp, ok := m.employees[employeeID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *emp
	return &cp, nil
}

func (m *Memory) UpdateScore(_ context.Context, employeeID id.EmployeeID, score int, issues []models.ComplianceIssue, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	emp, ok := m.employees[employeeID]
	if !ok {
		return sentinel.ErrNotFound
	}
	emp.ComplianceScore = &score
	emp.ComplianceIssues = append([]models.ComplianceIssue(nil), issues...)
	emp.UpdatedAt = now
	return nil
}

func (m *Memory) PageByID(_ context.Context, orgID id.OrgID, afterID id.EmployeeID, limit int) ([]*models.CorrelatedEmployee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var page []*models.CorrelatedEmployee
	for _, emp := range m.employees {
		if emp.OrgID == orgID && emp.ID > afterID {
			cp := *emp
			page = append(page, &cp)
		}
	}
	sort.Slice(page, func(i, j int) bool { return page[i].ID < page[j].ID })
	if limit > 0 && len(page) > limit {
		page = page[:limit]
	}
	return page, nil
}

func (m *Memory) List(_ context.Context, orgID id.OrgID, filter ListFilter) ([]*models.CorrelatedEmployee, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var matched []*models.CorrelatedEmployee
	for _, emp := range m.employees {
		if emp.OrgID != orgID || !matchesFilter(emp, filter) {
			continue
		}
		cp := *emp
		matched = append(matched, &cp)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].Email < matched[j].Email })

	total := len(matched)
	if filter.Offset > 0 {
		if filter.Offset >= total {
			return nil, total, nil
		}
		matched = matched[filter.Offset:]
	}
	if filter.Limit > 0 && len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
	}
	return matched, total, nil
}

func matchesFilter(emp *models.CorrelatedEmployee, filter ListFilter) bool {
	if filter.Department != "" && emp.Department != filter.Department {
		return false
	}
	if filter.EmploymentStatus != "" && emp.EmploymentStatus != filter.EmploymentStatus {
		return false
	}
	if filter.Bucket != "" {
		if emp.ComplianceScore == nil || id.BucketForScore(*emp.ComplianceScore) != filter.Bucket {
			return false
		}
	}
	if filter.Search != "" {
		needle := strings.ToLower(filter.Search)
		haystack := strings.ToLower(emp.Email + " " + emp.FirstName + " " + emp.LastName)
		if !strings.Contains(haystack, needle) {
			return false
		}
	}
	return true
}

func (m *Memory) ActiveScoreSummaries(_ context.Context, orgID id.OrgID) ([]models.ScoreSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var summaries []models.ScoreSummary
	for _, emp := range m.employees {
		if emp.OrgID != orgID || emp.EmploymentStatus != models.EmploymentActive {
			continue
		}
		summary := models.ScoreSummary{
			EmployeeID: emp.ID,
			Issues:     append([]models.ComplianceIssue(nil), emp.ComplianceIssues...),
		}
		if emp.ComplianceScore != nil {
			score := *emp.ComplianceScore
			summary.Score = &score
		}
		summaries = append(summaries, summary)
	}
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].EmployeeID < summaries[j].EmployeeID })
	return summaries, nil
}

func (m *Memory) UpsertCheck(_ context.Context, check *models.BackgroundCheck) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := subRecordKey(check.EmployeeID, check.IntegrationID, check.ExternalID)
	cp := *check
	if existing, ok := m.checks[key]; ok {
		cp.ID = existing.ID
		cp.CreatedAt = existing.CreatedAt
	}
	m.checks[key] = &cp
	return nil
}

func (m *Memory) LatestCheckByEmployee(ctx context.Context, employeeID id.EmployeeID) (*models.BackgroundCheck, error) {
	checks, err := m.ListChecksByEmployee(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	if len(checks) == 0 {
		return nil, sentinel.ErrNotFound
	}
	return checks[0], nil
}

func (m *Memory) ListChecksByEmployee(_ context.Context, employeeID id.EmployeeID) ([]*models.BackgroundCheck, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var checks []*models.BackgroundCheck
	for _, check := range m.checks {
		if check.EmployeeID == employeeID {
			cp := *check
			checks = append(checks, &cp)
		}
	}
	// Most recently completed first; never-completed checks sort last.
	sort.Slice(checks, func(i, j int) bool {
		return completedAfter(checks[i].CompletedAt, checks[j].CompletedAt, checks[i].CreatedAt, checks[j].CreatedAt)
	})
	return checks, nil
}

func completedAfter(a, b *time.Time, createdA, createdB time.Time) bool {
	switch {
	case a != nil && b != nil:
		return a.After(*b)
	case a != nil:
		return true
	case b != nil:
		return false
	default:
		return createdA.After(createdB)
	}
}

func (m *Memory) InsertTraining(_ context.Context, rec *models.TrainingRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *rec
	m.training = append(m.training, &cp)
	return nil
}

func (m *Memory) ListTrainingByEmployee(_ context.Context, employeeID id.EmployeeID) ([]*models.TrainingRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var records []*models.TrainingRecord
	for _, rec := range m.training {
		if rec.EmployeeID == employeeID {
			cp := *rec
			records = append(records, &cp)
		}
	}
	return records, nil
}

func (m *Memory) UpsertAssignment(_ context.Context, assignment *models.AssetAssignment) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := subRecordKey(assignment.EmployeeID, assignment.IntegrationID, assignment.ExternalID)
	cp := *assignment
	if existing, ok := m.assignments[key]; ok {
		cp.ID = existing.ID
		cp.CreatedAt = existing.CreatedAt
	}
	m.assignments[key] = &cp
	return nil
}

func (m *Memory) ListAssignmentsByEmployee(_ context.Context, employeeID id.EmployeeID) ([]*models.AssetAssignment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var assignments []*models.AssetAssignment
	for _, assignment := range m.assignments {
		if assignment.EmployeeID == employeeID {
			cp := *assignment
			assignments = append(assignments, &cp)
		}
	}
	sort.Slice(assignments, func(i, j int) bool { return assignments[i].SerialNumber < assignments[j].SerialNumber })
	return assignments, nil
}

func (m *Memory) FindAssetBySerial(_ context.Context, orgID id.OrgID, serialNumber string) (*models.Asset, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	asset, ok := m.assets[identityKey(orgID, serialNumber)]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *asset
	return &cp, nil
}

// SeedAsset registers an inventory asset for tests.
func (m *Memory) SeedAsset(asset *models.Asset) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *asset
	m.assets[identityKey(asset.OrgID, asset.SerialNumber)] = &cp
}

func (m *Memory) ReplaceAccess(_ context.Context, rec *models.AccessRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := rec.EmployeeID.String() + "\x00" + rec.IntegrationID.String()
	cp := *rec
	if existing, ok := m.access[key]; ok {
		cp.ID = existing.ID
		cp.CreatedAt = existing.CreatedAt
	}
	m.access[key] = &cp
	return nil
}

func (m *Memory) LatestAccessByEmployee(_ context.Context, employeeID id.EmployeeID) (*models.AccessRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var latest *models.AccessRecord
	for _, rec := range m.access {
		if rec.EmployeeID != employeeID {
			continue
		}
		if latest == nil || rec.UpdatedAt.After(latest.UpdatedAt) {
			latest = rec
		}
	}
	if latest == nil {
		return nil, sentinel.ErrNotFound
	}
	cp := *latest
	return &cp, nil
}

func (m *Memory) ListAccessByEmployee(_ context.Context, employeeID id.EmployeeID) ([]*models.AccessRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var records []*models.AccessRecord
	for _, rec := range m.access {
		if rec.EmployeeID == employeeID {
			cp := *rec
			records = append(records, &cp)
		}
	}
	sort.Slice(records, func(i, j int) bool { return records[i].IntegrationID < records[j].IntegrationID })
	return records, nil
}

func (m *Memory) InsertSecurityScore(_ context.Context, score *models.SecurityScore) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *score
	m.security = append(m.security, &cp)
	return nil
}

func (m *Memory) ListSecurityScoresByEmployee(_ context.Context, employeeID id.EmployeeID) ([]*models.SecurityScore, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var scores []*models.SecurityScore
	for _, score := range m.security {
		if score.EmployeeID == employeeID {
			cp := *score
			scores = append(scores, &cp)
		}
	}
	sort.Slice(scores, func(i, j int) bool { return scores[i].RecordedAt.After(scores[j].RecordedAt) })
	return scores, nil
}

func (m *Memory) ListAttestationsByEmployee(_ context.Context, employeeID id.EmployeeID) ([]*models.Attestation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var attestations []*models.Attestation
	for _, att := range m.attestations[employeeID] {
		cp := *att
		attestations = append(attestations, &cp)
	}
	return attestations, nil
}

// SeedAttestation registers a policy attestation for tests; attestations are
// owned by the policy subsystem and only read by this engine.
func (m *Memory) SeedAttestation(att *models.Attestation) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *att
	m.attestations[att.EmployeeID] = append(m.attestations[att.EmployeeID], &cp)
}
