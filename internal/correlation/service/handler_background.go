package service

import (
	"context"

	"github.com/google/uuid"

	"comply/internal/correlation/models"
	id "comply/pkg/domain"
	"comply/pkg/requestcontext"
)

// handleBackgroundChecks upserts screening results keyed on (employee,
// integration, external id). When the vendor provides no id, a
// deterministic one is synthesized from integration, email, and check type
// so re-syncs of the same logical check overwrite rather than duplicate.
func (s *Service) handleBackgroundChecks(ctx context.Context, orgID id.OrgID, integrationID id.IntegrationID, records []Record) (models.SyncResult, error) {
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
			s.logger.ErrorContext(ctx, "resolve for background check failed",
				"org_id", orgID, "email", email, "error", err)
			result.Errors++
			continue
		}

		checkType := record.FirstString("check_type", "type")
		externalID := record.FirstString("external_id", "check_id", "id")
		if externalID == "" {
			externalID = syntheticExternalID(integrationID.String(), email, checkType)
		}

		check := &models.BackgroundCheck{
			ID:            uuid.NewString(),
			EmployeeID:    employeeID,
			IntegrationID: integrationID,
			ExternalID:    externalID,
			Status:        normalizeCheckStatus(record.String("status")),
			CheckType:     checkType,
			InitiatedAt:   record.Time("initiated_at"),
			CompletedAt:   record.Time("completed_at"),
			ExpiresAt:     record.Time("expires_at"),
			RawPayload:    record.RawPayload(),
			UpdatedAt:     now,
		}
		if err := s.stores.Checks.UpsertCheck(ctx, check); err != nil {
			s.logger.ErrorContext(ctx, "background check upsert failed",
				"org_id", orgID, "employee_id", employeeID, "error", err)
			result.Errors++
			continue
		}
		result.Processed++
	}
	return result, nil
}

// normalizeCheckStatus collapses vendor status vocabulary onto the engine's
// fixed set; unrecognized statuses pass through and score as "other".
func normalizeCheckStatus(status string) string {
	switch status {
	case "clear", "passed", "pass":
		return models.CheckClear
	case "pending":
		return models.CheckPending
	case "in_progress", "processing":
		return models.CheckInProgress
	case "flagged", "consider", "failed":
		return models.CheckFlagged
	default:
		return status
	}
}
