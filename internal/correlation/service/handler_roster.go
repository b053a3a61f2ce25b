package service

import (
	"context"

	"comply/internal/correlation/models"
	id "comply/pkg/domain"
	"comply/pkg/requestcontext"
)

// handleRoster upserts the full identity attribute set. The roster handler
// is the only writer of identity attributes; every other handler attaches
// sub-records to an identity resolved (or placeheld) by email.
func (s *Service) handleRoster(ctx context.Context, orgID id.OrgID, integrationID id.IntegrationID, records []Record) (models.SyncResult, error) {
	var result models.SyncResult
	now := requestcontext.Now(ctx)

	for _, record := range records {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		email := record.Email()
		if email == "" {
			result.Errors++
			continue
		}

		emp := &models.CorrelatedEmployee{
			OrgID:               orgID,
			Email:               email,
			ExternalID:          record.FirstString("external_id", "employee_id", "id"),
			FirstName:           record.FirstString("first_name", "given_name"),
			LastName:            record.FirstString("last_name", "family_name"),
			Department:          record.String("department"),
			JobTitle:            record.FirstString("job_title", "title"),
			ManagerEmail:        NormalizeEmail(record.String("manager_email")),
			HireDate:            record.Time("hire_date"),
			EmploymentStatus:    record.FirstString("employment_status", "status"),
			EmploymentType:      record.String("employment_type"),
			Location:            record.String("location"),
			SourceIntegrationID: integrationID,
			LastCorrelatedAt:    now,
		}
		if _, err := s.stores.Employees.UpsertRoster(ctx, emp); err != nil {
			s.logger.ErrorContext(ctx, "roster upsert failed",
				"org_id", orgID,
				"email", email,
				"error", err,
			)
			result.Errors++
			continue
		}
		result.Processed++
	}
	return result, nil
}
