package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"comply/internal/correlation/models"
	id "comply/pkg/domain"
	"comply/pkg/platform/sentinel"
)

// Postgres persists the correlation engine's state in PostgreSQL. All
// writes are idempotent upserts on the natural keys; sub-record
// organization scoping is implied transitively through the employee row.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

const employeeColumns = `id, organization_id, email, external_id, first_name, last_name,
	department, job_title, manager_email, hire_date, employment_status, employment_type,
	location, source_integration_id, last_correlated_at, compliance_score, compliance_issues,
	created_at, updated_at`

// ResolveIdentity creates the placeholder row on first sight of an email.
// The insert is an atomic upsert: concurrent handlers resolving the same
// new employee race safely on the (organization_id, email) unique key.
func (s *Postgres) ResolveIdentity(ctx context.Context, orgID id.OrgID, email string, now time.Time) (id.EmployeeID, error) {
	query := `
		INSERT INTO employees (id, organization_id, email, last_correlated_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4, $4)
		ON CONFLICT (organization_id, email) DO UPDATE SET
			last_correlated_at = EXCLUDED.last_correlated_at,
			updated_at = EXCLUDED.updated_at
		RETURNING id
	`
	var employeeID string
	err := s.db.QueryRowContext(ctx, query, id.NewEmployeeID().String(), orgID.String(), email, now).Scan(&employeeID)
	if err != nil {
		return "", fmt.Errorf("resolve identity: %w", err)
	}
	return id.EmployeeID(employeeID), nil
}

func (s *Postgres) UpsertRoster(ctx context.Context, emp *models.CorrelatedEmployee) (id.EmployeeID, error) {
	query := `
		INSERT INTO employees (id, organization_id, email, external_id, first_name, last_name,
			department, job_title, manager_email, hire_date, employment_status, employment_type,
			location, source_integration_id, last_correlated_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $15, $15)
		ON CONFLICT (organization_id, email) DO UPDATE SET
			external_id = EXCLUDED.external_id,
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			department = EXCLUDED.department,
			job_title = EXCLUDED.job_title,
			manager_email = EXCLUDED.manager_email,
			hire_date = EXCLUDED.hire_date,
			employment_status = EXCLUDED.employment_status,
			employment_type = EXCLUDED.employment_type,
			location = EXCLUDED.location,
			source_integration_id = EXCLUDED.source_integration_id,
			last_correlated_at = EXCLUDED.last_correlated_at,
			updated_at = EXCLUDED.updated_at
		RETURNING id
	`
	newID := emp.ID
	if newID.IsNil() {
		newID = id.NewEmployeeID()
	}
	var employeeID string
	err := s.db.QueryRowContext(ctx, query,
		newID.String(),
		emp.OrgID.String(),
		emp.Email,
		emp.ExternalID,
		emp.FirstName,
		emp.LastName,
		emp.Department,
		emp.JobTitle,
		emp.ManagerEmail,
		nullTime(emp.HireDate),
		emp.EmploymentStatus,
		emp.EmploymentType,
		emp.Location,
		emp.SourceIntegrationID.String(),
		emp.LastCorrelatedAt,
	).Scan(&employeeID)
	if err != nil {
		return "", fmt.Errorf("upsert roster: %w", err)
	}
	return id.EmployeeID(employeeID), nil
}

func (s *Postgres) FindByID(ctx context.Context, employeeID id.EmployeeID) (*models.CorrelatedEmployee, error) {
	query := `SELECT ` + employeeColumns + ` FROM employees WHERE id = $1`
	emp, err := scanEmployee(s.db.QueryRowContext(ctx, query, employeeID.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find employee: %w", err)
	}
	return emp, nil
}

func (s *Postgres) UpdateScore(ctx context.Context, employeeID id.EmployeeID, score int, issues []models.ComplianceIssue, now time.Time) error {
	if issues == nil {
		issues = []models.ComplianceIssue{}
	}
	payload, err := json.Marshal(issues)
	if err != nil {
		return fmt.Errorf("marshal issues: %w", err)
	}
	result, err := s.db.ExecContext(ctx, `
		UPDATE employees
		SET compliance_score = $2, compliance_issues = $3, updated_at = $4
		WHERE id = $1
	`, employeeID.String(), score, payload, now)
	if err != nil {
		return fmt.Errorf("update score: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update score rows: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *Postgres) PageByID(ctx context.Context, orgID id.OrgID, afterID id.EmployeeID, limit int) ([]*models.CorrelatedEmployee, error) {
	query := `SELECT ` + employeeColumns + `
		FROM employees
		WHERE organization_id = $1 AND id > $2
		ORDER BY id ASC
		LIMIT $3`
	rows, err := s.db.QueryContext(ctx, query, orgID.String(), afterID.String(), limit)
	if err != nil {
		return nil, fmt.Errorf("page employees: %w", err)
	}
	defer rows.Close()

	var page []*models.CorrelatedEmployee
	for rows.Next() {
		emp, err := scanEmployee(rows)
		if err != nil {
			return nil, fmt.Errorf("scan employee page: %w", err)
		}
		page = append(page, emp)
	}
	return page, rows.Err()
}

func (s *Postgres) List(ctx context.Context, orgID id.OrgID, filter ListFilter) ([]*models.CorrelatedEmployee, int, error) {
	where := []string{"organization_id = $1"}
	args := []any{orgID.String()}

	if filter.Department != "" {
		args = append(args, filter.Department)
		where = append(where, fmt.Sprintf("department = $%d", len(args)))
	}
	if filter.EmploymentStatus != "" {
		args = append(args, filter.EmploymentStatus)
		where = append(where, fmt.Sprintf("employment_status = $%d", len(args)))
	}
	switch filter.Bucket {
	case id.BucketCompliant:
		where = append(where, "compliance_score >= 80")
	case id.BucketAtRisk:
		where = append(where, "compliance_score >= 60 AND compliance_score < 80")
	case id.BucketNonCompliant:
		where = append(where, "compliance_score < 60")
	}
	if filter.Search != "" {
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
		n := len(args)
		where = append(where, fmt.Sprintf("(email LIKE $%d OR lower(first_name) LIKE $%d OR lower(last_name) LIKE $%d)", n, n, n))
	}

	clause := strings.Join(where, " AND ")

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM employees WHERE `+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count employees: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	args = append(args, limit, filter.Offset)
	query := fmt.Sprintf(`SELECT %s FROM employees WHERE %s ORDER BY email ASC LIMIT $%d OFFSET $%d`,
		employeeColumns, clause, len(args)-1, len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list employees: %w", err)
	}
	defer rows.Close()

	var employees []*models.CorrelatedEmployee
	for rows.Next() {
		emp, err := scanEmployee(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan employee list: %w", err)
		}
		employees = append(employees, emp)
	}
	return employees, total, rows.Err()
}

func (s *Postgres) ActiveScoreSummaries(ctx context.Context, orgID id.OrgID) ([]models.ScoreSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, compliance_score, compliance_issues
		FROM employees
		WHERE organization_id = $1 AND employment_status = $2
		ORDER BY id ASC
	`, orgID.String(), models.EmploymentActive)
	if err != nil {
		return nil, fmt.Errorf("active score summaries: %w", err)
	}
	defer rows.Close()

	var summaries []models.ScoreSummary
	for rows.Next() {
		var (
			employeeID string
			score      sql.NullInt64
			issuesRaw  []byte
		)
		if err := rows.Scan(&employeeID, &score, &issuesRaw); err != nil {
			return nil, fmt.Errorf("scan score summary: %w", err)
		}
		summary := models.ScoreSummary{EmployeeID: id.EmployeeID(employeeID)}
		if score.Valid {
			v := int(score.Int64)
			summary.Score = &v
		}
		if len(issuesRaw) > 0 {
			if err := json.Unmarshal(issuesRaw, &summary.Issues); err != nil {
				return nil, fmt.Errorf("unmarshal issues: %w", err)
			}
		}
		summaries = append(summaries, summary)
	}
	return summaries, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEmployee(row rowScanner) (*models.CorrelatedEmployee, error) {
	var (
		emp       models.CorrelatedEmployee
		empID     string
		orgID     string
		sourceID  sql.NullString
		hireDate  sql.NullTime
		score     sql.NullInt64
		issuesRaw []byte
	)
	err := row.Scan(
		&empID,
		&orgID,
		&emp.Email,
		&emp.ExternalID,
		&emp.FirstName,
		&emp.LastName,
		&emp.Department,
		&emp.JobTitle,
		&emp.ManagerEmail,
		&hireDate,
		&emp.EmploymentStatus,
		&emp.EmploymentType,
		&emp.Location,
		&sourceID,
		&emp.LastCorrelatedAt,
		&score,
		&issuesRaw,
		&emp.CreatedAt,
		&emp.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	emp.ID = id.EmployeeID(empID)
	emp.OrgID = id.OrgID(orgID)
	if sourceID.Valid {
		emp.SourceIntegrationID = id.IntegrationID(sourceID.String)
	}
	emp.HireDate = timePtr(hireDate)
	if score.Valid {
		v := int(score.Int64)
		emp.ComplianceScore = &v
	}
	if len(issuesRaw) > 0 {
		if err := json.Unmarshal(issuesRaw, &emp.ComplianceIssues); err != nil {
			return nil, fmt.Errorf("unmarshal issues: %w", err)
		}
	}
	return &emp, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}

func nullBool(b *bool) sql.NullBool {
	if b == nil {
		return sql.NullBool{}
	}
	return sql.NullBool{Bool: *b, Valid: true}
}

func boolPtr(nb sql.NullBool) *bool {
	if !nb.Valid {
		return nil
	}
	b := nb.Bool
	return &b
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func floatPtr(nf sql.NullFloat64) *float64 {
	if !nf.Valid {
		return nil
	}
	f := nf.Float64
	return &f
}
