package service

import (
	"context"
	"time"

	"comply/internal/audit"
	"comply/internal/correlation/models"
	id "comply/pkg/domain"
)

// ProcessEvidenceSync is the entry point external integration syncs call.
// It routes one typed batch to the matching category handler and returns
// the aggregate processed/error counts. An unrecognized evidence type is
// not a failure: new types appear faster than this engine is updated, so
// the batch is ignored with zero counts and no side effects.
func (s *Service) ProcessEvidenceSync(ctx context.Context, orgID id.OrgID, integrationID id.IntegrationID, evidenceType id.EvidenceType, records []Record) (models.SyncResult, error) {
	category := evidenceType.Category()
	if category == id.CategoryUnknown {
		s.metrics.IncrementUnknownEvidence()
		s.logger.DebugContext(ctx, "ignoring unrecognized evidence type",
			"org_id", orgID,
			"evidence_type", evidenceType,
		)
		return models.SyncResult{}, nil
	}

	start := time.Now()
	var (
		result models.SyncResult
		err    error
	)
	switch category {
	case id.CategoryRoster:
		result, err = s.handleRoster(ctx, orgID, integrationID, records)
	case id.CategoryBackgroundCheck:
		result, err = s.handleBackgroundChecks(ctx, orgID, integrationID, records)
	case id.CategoryTraining:
		result, err = s.handleTraining(ctx, orgID, integrationID, records)
	case id.CategoryDevice:
		result, err = s.handleDevices(ctx, orgID, integrationID, records)
	case id.CategoryAccess:
		result, err = s.handleAccess(ctx, orgID, integrationID, records)
	case id.CategorySecurityScore:
		result, err = s.handleSecurityScores(ctx, orgID, integrationID, records)
	}
	if err != nil {
		return result, err
	}

	s.metrics.ObserveBatch(string(category), result.Processed, result.Errors, start)
	s.logger.InfoContext(ctx, "evidence sync completed",
		"org_id", orgID,
		"integration_id", integrationID,
		"evidence_type", evidenceType,
		"processed", result.Processed,
		"errors", result.Errors,
	)
	if s.audit != nil {
		s.audit.Emit(ctx, audit.Event{
			OrgID:   orgID,
			Action:  audit.ActionEvidenceSync,
			Subject: evidenceType.String(),
			Detail: map[string]any{
				"integration_id": integrationID.String(),
				"processed":      result.Processed,
				"errors":         result.Errors,
			},
		})
	}
	return result, nil
}
