package scoring

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"comply/internal/correlation/models"
	id "comply/pkg/domain"
	"comply/pkg/platform/sentinel"
	"comply/pkg/requestcontext"
)

const evidenceTimeout = 10 * time.Second

// gatherEvidence fetches one employee's correlated sub-records in parallel
// with shared context cancellation. Each family has its own bounded query;
// "no record" sentinels are normal outcomes, not errors.
func (s *Service) gatherEvidence(ctx context.Context, employeeID id.EmployeeID) (*evidence, error) {
	ctx, cancel := context.WithTimeout(ctx, evidenceTimeout)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)

	ev := &evidence{fetchedAt: requestcontext.Now(ctx)}

	g.Go(func() error {
		start := time.Now()
		check, err := s.stores.Checks.LatestCheckByEmployee(ctx, employeeID)
		s.metrics.ObserveEvidenceLatency("background_check", start)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return nil
			}
			return err
		}
		ev.latestCheck = check
		return nil
	})

	g.Go(func() error {
		start := time.Now()
		records, err := s.stores.Training.ListTrainingByEmployee(ctx, employeeID)
		s.metrics.ObserveEvidenceLatency("training", start)
		if err != nil {
			return err
		}
		ev.training = filterTrainingStatuses(records)
		return nil
	})

	g.Go(func() error {
		start := time.Now()
		attestations, err := s.stores.Attestations.ListAttestationsByEmployee(ctx, employeeID)
		s.metrics.ObserveEvidenceLatency("attestation", start)
		if err != nil {
			return err
		}
		ev.attestations = attestations
		return nil
	})

	g.Go(func() error {
		start := time.Now()
		access, err := s.stores.Access.LatestAccessByEmployee(ctx, employeeID)
		s.metrics.ObserveEvidenceLatency("access", start)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return nil
			}
			return err
		}
		ev.latestAccess = access
		return nil
	})

	g.Go(func() error {
		start := time.Now()
		assignments, err := s.stores.Assets.ListAssignmentsByEmployee(ctx, employeeID)
		s.metrics.ObserveEvidenceLatency("device", start)
		if err != nil {
			return err
		}
		ev.assignments = assignments
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return ev, nil
}

// filterTrainingStatuses keeps only rows with a recognized status; vendor
// statuses outside the fixed vocabulary carry no scoring signal.
func filterTrainingStatuses(records []*models.TrainingRecord) []*models.TrainingRecord {
	var filtered []*models.TrainingRecord
	for _, rec := range records {
		switch rec.Status {
		case models.TrainingAssigned, models.TrainingInProgress,
			models.TrainingCompleted, models.TrainingOverdue:
			filtered = append(filtered, rec)
		}
	}
	return filtered
}
