package service

import (
	"context"

	"github.com/google/uuid"

	"comply/internal/correlation/models"
	id "comply/pkg/domain"
	"comply/pkg/requestcontext"
)

// handleAccess upserts the single access row per (employee, integration).
// Latest state replaces the prior row entirely; two integrations reporting
// for the same employee keep separate rows and are not merged.
func (s *Service) handleAccess(ctx context.Context, orgID id.OrgID, integrationID id.IntegrationID, records []Record) (models.SyncResult, error) {
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

		employeeID, err := s.Resolve(ctx, orgID, email)
		if err != nil {
			s.logger.ErrorContext(ctx, "resolve for access record failed",
				"org_id", orgID, "email", email, "error", err)
			result.Errors++
			continue
		}

		rec := &models.AccessRecord{
			ID:            uuid.NewString(),
			EmployeeID:    employeeID,
			IntegrationID: integrationID,
			Systems:       parseSystems(record),
			MFAEnabled:    record.Bool("mfa_enabled"),
			LastReviewAt:  record.Time("last_review_at"),
			ReviewStatus:  record.FirstString("review_status", "access_review_status"),
			RawPayload:    record.RawPayload(),
			UpdatedAt:     now,
		}
		if err := s.stores.Access.ReplaceAccess(ctx, rec); err != nil {
			s.logger.ErrorContext(ctx, "access record replace failed",
				"org_id", orgID, "employee_id", employeeID, "error", err)
			result.Errors++
			continue
		}
		result.Processed++
	}
	return result, nil
}

// parseSystems extracts the system-access list; entries may arrive as bare
// system names or as {system, role} objects.
func parseSystems(record Record) []models.SystemAccess {
	raw, ok := record["systems"].([]any)
	if !ok {
		raw, ok = record["apps"].([]any)
		if !ok {
			return nil
		}
	}
	var systems []models.SystemAccess
	for _, entry := range raw {
		switch v := entry.(type) {
		case string:
			systems = append(systems, models.SystemAccess{System: v})
		case map[string]any:
			sa := models.SystemAccess{}
			if name, ok := v["system"].(string); ok {
				sa.System = name
			} else if name, ok := v["name"].(string); ok {
				sa.System = name
			}
			if role, ok := v["role"].(string); ok {
				sa.Role = role
			}
			if sa.System != "" {
				systems = append(systems, sa)
			}
		}
	}
	return systems
}
