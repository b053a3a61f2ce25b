package service

import (
	"context"

	"github.com/google/uuid"

	"comply/internal/correlation/models"
	id "comply/pkg/domain"
	"comply/pkg/requestcontext"
)

// handleTraining inserts training rows per sync. No natural external id
// exists for training evidence, so repeat syncs accumulate history and the
// score calculator reduces to the latest row per course.
func (s *Service) handleTraining(ctx context.Context, orgID id.OrgID, integrationID id.IntegrationID, records []Record) (models.SyncResult, error) {
	var result models.SyncResult
	now := requestcontext.Now(ctx)

	for _, record := range records {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		email := record.Email()
		courseID := record.FirstString("course_id", "course")
		courseName := record.FirstString("course_name", "name")
		if email == "" || (courseID == "" && courseName == "") {
			result.Errors++
			continue
		}

		employeeID, err := s.Resolve(ctx, orgID, email)
		if err != nil {
			s.logger.ErrorContext(ctx, "resolve for training record failed",
				"org_id", orgID, "email", email, "error", err)
			result.Errors++
			continue
		}

		rec := &models.TrainingRecord{
			ID:            uuid.NewString(),
			EmployeeID:    employeeID,
			IntegrationID: integrationID,
			CourseID:      courseID,
			CourseName:    courseName,
			Category:      record.String("category"),
			Status:        normalizeTrainingStatus(record.String("status")),
			AssignedAt:    record.Time("assigned_at"),
			DueAt:         record.Time("due_at"),
			CompletedAt:   record.Time("completed_at"),
			Score:         record.Float("score"),
			RawPayload:    record.RawPayload(),
			CreatedAt:     now,
		}
		if err := s.stores.Training.InsertTraining(ctx, rec); err != nil {
			s.logger.ErrorContext(ctx, "training insert failed",
				"org_id", orgID, "employee_id", employeeID, "error", err)
			result.Errors++
			continue
		}
		result.Processed++
	}
	return result, nil
}

func normalizeTrainingStatus(status string) string {
	switch status {
	case "assigned", "not_started":
		return models.TrainingAssigned
	case "in_progress", "started":
		return models.TrainingInProgress
	case "completed", "complete", "passed":
		return models.TrainingCompleted
	case "overdue", "past_due":
		return models.TrainingOverdue
	default:
		return status
	}
}
