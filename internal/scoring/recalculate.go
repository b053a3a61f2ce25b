package scoring

import (
	"context"
	"fmt"

	"comply/internal/audit"
	id "comply/pkg/domain"
	"comply/pkg/requestcontext"
)

// RecalculateOrganization rescores every employee of an organization and
// returns the number updated. Pages are fetched by cursor (last-seen id,
// ascending) rather than offset so rows inserted mid-run are neither
// skipped nor double-processed. A failure on one employee is logged and
// skipped; recalculation is idempotent and safe to re-run after a partial
// completion.
func (s *Service) RecalculateOrganization(ctx context.Context, orgID id.OrgID) (int, error) {
	if s.lease != nil {
		acquired, release, err := s.lease.Acquire(ctx, orgID)
		if err != nil {
			// Lease failures degrade to an unguarded run, which stays
			// correct because recalculation is idempotent.
			s.logger.WarnContext(ctx, "recalc lease unavailable, continuing unguarded",
				"org_id", orgID, "error", err)
		} else if !acquired {
			s.logger.InfoContext(ctx, "recalculation already running", "org_id", orgID)
			return 0, nil
		} else {
			defer release()
		}
	}

	var (
		updated int
		afterID id.EmployeeID
	)
	for {
		if err := ctx.Err(); err != nil {
			return updated, err
		}
		page, err := s.stores.Employees.PageByID(ctx, orgID, afterID, s.pageSize)
		if err != nil {
			return updated, fmt.Errorf("page employees for %s: %w", orgID, err)
		}
		for _, emp := range page {
			if _, err := s.UpdateEmployeeScore(ctx, emp.ID); err != nil {
				s.logger.ErrorContext(ctx, "rescore failed, skipping employee",
					"org_id", orgID,
					"employee_id", emp.ID,
					"error", err,
				)
				s.metrics.IncrementRecalcFailure()
				continue
			}
			updated++
			s.metrics.IncrementRecalc()
		}
		if len(page) < s.pageSize {
			break
		}
		afterID = page[len(page)-1].ID
	}

	s.logger.InfoContext(ctx, "organization recalculation completed",
		"org_id", orgID,
		"updated", updated,
	)
	if s.audit != nil {
		s.audit.Emit(ctx, audit.Event{
			Timestamp: requestcontext.Now(ctx),
			OrgID:     orgID,
			Action:    audit.ActionRecalcCompleted,
			Detail:    map[string]any{"updated": updated},
		})
	}
	return updated, nil
}
