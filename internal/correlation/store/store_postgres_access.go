package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"comply/internal/correlation/models"
	id "comply/pkg/domain"
	"comply/pkg/platform/sentinel"
)

func (s *Postgres) ReplaceAccess(ctx context.Context, rec *models.AccessRecord) error {
	systems, err := json.Marshal(rec.Systems)
	if err != nil {
		return fmt.Errorf("marshal access systems: %w", err)
	}
	query := `
		INSERT INTO access_records (id, employee_id, integration_id, systems, mfa_enabled,
			last_review_at, review_status, raw_payload, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
		ON CONFLICT (employee_id, integration_id) DO UPDATE SET
			systems = EXCLUDED.systems,
			mfa_enabled = EXCLUDED.mfa_enabled,
			last_review_at = EXCLUDED.last_review_at,
			review_status = EXCLUDED.review_status,
			raw_payload = EXCLUDED.raw_payload,
			updated_at = EXCLUDED.updated_at
	`
	_, err = s.db.ExecContext(ctx, query,
		rec.ID,
		rec.EmployeeID.String(),
		rec.IntegrationID.String(),
		systems,
		nullBool(rec.MFAEnabled),
		nullTime(rec.LastReviewAt),
		rec.ReviewStatus,
		rawOrEmpty(rec.RawPayload),
		rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("replace access record: %w", err)
	}
	return nil
}

func (s *Postgres) LatestAccessByEmployee(ctx context.Context, employeeID id.EmployeeID) (*models.AccessRecord, error) {
	query := accessSelect + `
		WHERE employee_id = $1
		ORDER BY updated_at DESC
		LIMIT 1
	`
	rec, err := scanAccess(s.db.QueryRowContext(ctx, query, employeeID.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("latest access record: %w", err)
	}
	return rec, nil
}

func (s *Postgres) ListAccessByEmployee(ctx context.Context, employeeID id.EmployeeID) ([]*models.AccessRecord, error) {
	query := accessSelect + `
		WHERE employee_id = $1
		ORDER BY integration_id ASC
	`
	rows, err := s.db.QueryContext(ctx, query, employeeID.String())
	if err != nil {
		return nil, fmt.Errorf("list access records: %w", err)
	}
	defer rows.Close()

	var records []*models.AccessRecord
	for rows.Next() {
		rec, err := scanAccess(rows)
		if err != nil {
			return nil, fmt.Errorf("scan access record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

const accessSelect = `
	SELECT id, employee_id, integration_id, systems, mfa_enabled, last_review_at,
		review_status, raw_payload, created_at, updated_at
	FROM access_records`

func scanAccess(row rowScanner) (*models.AccessRecord, error) {
	var (
		rec         models.AccessRecord
		empID       string
		integration string
		systemsRaw  []byte
		mfa         sql.NullBool
		lastReview  sql.NullTime
	)
	err := row.Scan(
		&rec.ID,
		&empID,
		&integration,
		&systemsRaw,
		&mfa,
		&lastReview,
		&rec.ReviewStatus,
		&rec.RawPayload,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	rec.EmployeeID = id.EmployeeID(empID)
	rec.IntegrationID = id.IntegrationID(integration)
	rec.MFAEnabled = boolPtr(mfa)
	rec.LastReviewAt = timePtr(lastReview)
	if len(systemsRaw) > 0 {
		if err := json.Unmarshal(systemsRaw, &rec.Systems); err != nil {
			return nil, fmt.Errorf("unmarshal access systems: %w", err)
		}
	}
	return &rec, nil
}

func (s *Postgres) InsertSecurityScore(ctx context.Context, score *models.SecurityScore) error {
	query := `
		INSERT INTO security_scores (id, employee_id, integration_id, overall_score,
			phishing_score, training_score, phishing_tests, phishing_failed,
			recorded_at, raw_payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := s.db.ExecContext(ctx, query,
		score.ID,
		score.EmployeeID.String(),
		score.IntegrationID.String(),
		nullFloat(score.OverallScore),
		nullFloat(score.PhishingScore),
		nullFloat(score.TrainingScore),
		score.PhishingTests,
		score.PhishingFailed,
		score.RecordedAt,
		rawOrEmpty(score.RawPayload),
		score.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert security score: %w", err)
	}
	return nil
}

func (s *Postgres) ListSecurityScoresByEmployee(ctx context.Context, employeeID id.EmployeeID) ([]*models.SecurityScore, error) {
	query := `
		SELECT id, employee_id, integration_id, overall_score, phishing_score, training_score,
			phishing_tests, phishing_failed, recorded_at, raw_payload, created_at
		FROM security_scores
		WHERE employee_id = $1
		ORDER BY recorded_at DESC
	`
	rows, err := s.db.QueryContext(ctx, query, employeeID.String())
	if err != nil {
		return nil, fmt.Errorf("list security scores: %w", err)
	}
	defer rows.Close()

	var scores []*models.SecurityScore
	for rows.Next() {
		var (
			score       models.SecurityScore
			empID       string
			integration string
			overall     sql.NullFloat64
			phishing    sql.NullFloat64
			training    sql.NullFloat64
		)
		err := rows.Scan(
			&score.ID,
			&empID,
			&integration,
			&overall,
			&phishing,
			&training,
			&score.PhishingTests,
			&score.PhishingFailed,
			&score.RecordedAt,
			&score.RawPayload,
			&score.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan security score: %w", err)
		}
		score.EmployeeID = id.EmployeeID(empID)
		score.IntegrationID = id.IntegrationID(integration)
		score.OverallScore = floatPtr(overall)
		score.PhishingScore = floatPtr(phishing)
		score.TrainingScore = floatPtr(training)
		scores = append(scores, &score)
	}
	return scores, rows.Err()
}

func (s *Postgres) ListAttestationsByEmployee(ctx context.Context, employeeID id.EmployeeID) ([]*models.Attestation, error) {
	query := `
		SELECT id, employee_id, policy_id, status, acknowledged_at, expires_at
		FROM attestations
		WHERE employee_id = $1
		ORDER BY policy_id ASC
	`
	rows, err := s.db.QueryContext(ctx, query, employeeID.String())
	if err != nil {
		return nil, fmt.Errorf("list attestations: %w", err)
	}
	defer rows.Close()

	var attestations []*models.Attestation
	for rows.Next() {
		var (
			att          models.Attestation
			empID        string
			acknowledged sql.NullTime
			expires      sql.NullTime
		)
		if err := rows.Scan(&att.ID, &empID, &att.PolicyID, &att.Status, &acknowledged, &expires); err != nil {
			return nil, fmt.Errorf("scan attestation: %w", err)
		}
		att.EmployeeID = id.EmployeeID(empID)
		att.AcknowledgedAt = timePtr(acknowledged)
		att.ExpiresAt = timePtr(expires)
		attestations = append(attestations, &att)
	}
	return attestations, rows.Err()
}
