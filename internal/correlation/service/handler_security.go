package service

import (
	"context"

	"github.com/google/uuid"

	"comply/internal/correlation/models"
	id "comply/pkg/domain"
	"comply/pkg/requestcontext"
)

// handleSecurityScores appends security awareness measurements. Scores are
// point-in-time samples with no external id, so each sync adds history and
// readers take the most recent row.
func (s *Service) handleSecurityScores(ctx context.Context, orgID id.OrgID, integrationID id.IntegrationID, records []Record) (models.SyncResult, error) {
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
			s.logger.ErrorContext(ctx, "resolve for security score failed",
				"org_id", orgID, "email", email, "error", err)
			result.Errors++
			continue
		}

		recordedAt := now
		if t := record.Time("recorded_at"); t != nil {
			recordedAt = *t
		}
		score := &models.SecurityScore{
			ID:             uuid.NewString(),
			EmployeeID:     employeeID,
			IntegrationID:  integrationID,
			OverallScore:   record.Float("overall_score"),
			PhishingScore:  record.Float("phishing_score"),
			TrainingScore:  record.Float("training_score"),
			PhishingTests:  record.Int("phishing_tests"),
			PhishingFailed: record.Int("phishing_failed"),
			RecordedAt:     recordedAt,
			RawPayload:     record.RawPayload(),
			CreatedAt:      now,
		}
		if err := s.stores.Security.InsertSecurityScore(ctx, score); err != nil {
			s.logger.ErrorContext(ctx, "security score insert failed",
				"org_id", orgID, "employee_id", employeeID, "error", err)
			result.Errors++
			continue
		}
		result.Processed++
	}
	return result, nil
}
