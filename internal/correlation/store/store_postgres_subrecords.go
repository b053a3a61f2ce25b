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

func (s *Postgres) UpsertCheck(ctx context.Context, check *models.BackgroundCheck) error {
	query := `
		INSERT INTO background_checks (id, employee_id, integration_id, external_id, status,
			check_type, initiated_at, completed_at, expires_at, raw_payload, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11)
		ON CONFLICT (employee_id, integration_id, external_id) DO UPDATE SET
			status = EXCLUDED.status,
			check_type = EXCLUDED.check_type,
			initiated_at = EXCLUDED.initiated_at,
			completed_at = EXCLUDED.completed_at,
			expires_at = EXCLUDED.expires_at,
			raw_payload = EXCLUDED.raw_payload,
			updated_at = EXCLUDED.updated_at
	`
	_, err := s.db.ExecContext(ctx, query,
		check.ID,
		check.EmployeeID.String(),
		check.IntegrationID.String(),
		check.ExternalID,
		check.Status,
		check.CheckType,
		nullTime(check.InitiatedAt),
		nullTime(check.CompletedAt),
		nullTime(check.ExpiresAt),
		rawOrEmpty(check.RawPayload),
		check.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert background check: %w", err)
	}
	return nil
}

func (s *Postgres) LatestCheckByEmployee(ctx context.Context, employeeID id.EmployeeID) (*models.BackgroundCheck, error) {
	query := `
		SELECT id, employee_id, integration_id, external_id, status, check_type,
			initiated_at, completed_at, expires_at, raw_payload, created_at, updated_at
		FROM background_checks
		WHERE employee_id = $1
		ORDER BY completed_at DESC NULLS LAST, created_at DESC
		LIMIT 1
	`
	check, err := scanCheck(s.db.QueryRowContext(ctx, query, employeeID.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("latest background check: %w", err)
	}
	return check, nil
}

func (s *Postgres) ListChecksByEmployee(ctx context.Context, employeeID id.EmployeeID) ([]*models.BackgroundCheck, error) {
	query := `
		SELECT id, employee_id, integration_id, external_id, status, check_type,
			initiated_at, completed_at, expires_at, raw_payload, created_at, updated_at
		FROM background_checks
		WHERE employee_id = $1
		ORDER BY completed_at DESC NULLS LAST, created_at DESC
	`
	rows, err := s.db.QueryContext(ctx, query, employeeID.String())
	if err != nil {
		return nil, fmt.Errorf("list background checks: %w", err)
	}
	defer rows.Close()

	var checks []*models.BackgroundCheck
	for rows.Next() {
		check, err := scanCheck(rows)
		if err != nil {
			return nil, fmt.Errorf("scan background check: %w", err)
		}
		checks = append(checks, check)
	}
	return checks, rows.Err()
}

func scanCheck(row rowScanner) (*models.BackgroundCheck, error) {
	var (
		check       models.BackgroundCheck
		empID       string
		integration string
		initiated   sql.NullTime
		completed   sql.NullTime
		expires     sql.NullTime
	)
	err := row.Scan(
		&check.ID,
		&empID,
		&integration,
		&check.ExternalID,
		&check.Status,
		&check.CheckType,
		&initiated,
		&completed,
		&expires,
		&check.RawPayload,
		&check.CreatedAt,
		&check.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	check.EmployeeID = id.EmployeeID(empID)
	check.IntegrationID = id.IntegrationID(integration)
	check.InitiatedAt = timePtr(initiated)
	check.CompletedAt = timePtr(completed)
	check.ExpiresAt = timePtr(expires)
	return &check, nil
}

func (s *Postgres) InsertTraining(ctx context.Context, rec *models.TrainingRecord) error {
	query := `
		INSERT INTO training_records (id, employee_id, integration_id, course_id, course_name,
			category, status, assigned_at, due_at, completed_at, score, raw_payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err := s.db.ExecContext(ctx, query,
		rec.ID,
		rec.EmployeeID.String(),
		rec.IntegrationID.String(),
		rec.CourseID,
		rec.CourseName,
		rec.Category,
		rec.Status,
		nullTime(rec.AssignedAt),
		nullTime(rec.DueAt),
		nullTime(rec.CompletedAt),
		nullFloat(rec.Score),
		rawOrEmpty(rec.RawPayload),
		rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert training record: %w", err)
	}
	return nil
}

func (s *Postgres) ListTrainingByEmployee(ctx context.Context, employeeID id.EmployeeID) ([]*models.TrainingRecord, error) {
	query := `
		SELECT id, employee_id, integration_id, course_id, course_name, category, status,
			assigned_at, due_at, completed_at, score, raw_payload, created_at
		FROM training_records
		WHERE employee_id = $1
		ORDER BY created_at DESC
	`
	rows, err := s.db.QueryContext(ctx, query, employeeID.String())
	if err != nil {
		return nil, fmt.Errorf("list training records: %w", err)
	}
	defer rows.Close()

	var records []*models.TrainingRecord
	for rows.Next() {
		var (
			rec         models.TrainingRecord
			empID       string
			integration string
			assigned    sql.NullTime
			due         sql.NullTime
			completed   sql.NullTime
			score       sql.NullFloat64
		)
		err := rows.Scan(
			&rec.ID,
			&empID,
			&integration,
			&rec.CourseID,
			&rec.CourseName,
			&rec.Category,
			&rec.Status,
			&assigned,
			&due,
			&completed,
			&score,
			&rec.RawPayload,
			&rec.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan training record: %w", err)
		}
		rec.EmployeeID = id.EmployeeID(empID)
		rec.IntegrationID = id.IntegrationID(integration)
		rec.AssignedAt = timePtr(assigned)
		rec.DueAt = timePtr(due)
		rec.CompletedAt = timePtr(completed)
		rec.Score = floatPtr(score)
		records = append(records, &rec)
	}
	return records, rows.Err()
}

func (s *Postgres) UpsertAssignment(ctx context.Context, assignment *models.AssetAssignment) error {
	query := `
		INSERT INTO asset_assignments (id, employee_id, integration_id, external_id, asset_id,
			device_type, device_name, serial_number, model, manufacturer, os, compliant,
			last_check_in_at, raw_payload, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $15)
		ON CONFLICT (employee_id, integration_id, external_id) DO UPDATE SET
			asset_id = EXCLUDED.asset_id,
			device_type = EXCLUDED.device_type,
			device_name = EXCLUDED.device_name,
			serial_number = EXCLUDED.serial_number,
			model = EXCLUDED.model,
			manufacturer = EXCLUDED.manufacturer,
			os = EXCLUDED.os,
			compliant = EXCLUDED.compliant,
			last_check_in_at = EXCLUDED.last_check_in_at,
			raw_payload = EXCLUDED.raw_payload,
			updated_at = EXCLUDED.updated_at
	`
	var assetID sql.NullString
	if assignment.AssetID != "" {
		assetID = sql.NullString{String: assignment.AssetID.String(), Valid: true}
	}
	_, err := s.db.ExecContext(ctx, query,
		assignment.ID,
		assignment.EmployeeID.String(),
		assignment.IntegrationID.String(),
		assignment.ExternalID,
		assetID,
		assignment.DeviceType,
		assignment.DeviceName,
		assignment.SerialNumber,
		assignment.Model,
		assignment.Manufacturer,
		assignment.OS,
		nullBool(assignment.Compliant),
		nullTime(assignment.LastCheckInAt),
		rawOrEmpty(assignment.RawPayload),
		assignment.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert asset assignment: %w", err)
	}
	return nil
}

func (s *Postgres) ListAssignmentsByEmployee(ctx context.Context, employeeID id.EmployeeID) ([]*models.AssetAssignment, error) {
	query := `
		SELECT id, employee_id, integration_id, external_id, asset_id, device_type, device_name,
			serial_number, model, manufacturer, os, compliant, last_check_in_at, raw_payload,
			created_at, updated_at
		FROM asset_assignments
		WHERE employee_id = $1
		ORDER BY serial_number ASC
	`
	rows, err := s.db.QueryContext(ctx, query, employeeID.String())
	if err != nil {
		return nil, fmt.Errorf("list asset assignments: %w", err)
	}
	defer rows.Close()

	var assignments []*models.AssetAssignment
	for rows.Next() {
		var (
			assignment  models.AssetAssignment
			empID       string
			integration string
			assetID     sql.NullString
			compliant   sql.NullBool
			lastCheckIn sql.NullTime
		)
		err := rows.Scan(
			&assignment.ID,
			&empID,
			&integration,
			&assignment.ExternalID,
			&assetID,
			&assignment.DeviceType,
			&assignment.DeviceName,
			&assignment.SerialNumber,
			&assignment.Model,
			&assignment.Manufacturer,
			&assignment.OS,
			&compliant,
			&lastCheckIn,
			&assignment.RawPayload,
			&assignment.CreatedAt,
			&assignment.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan asset assignment: %w", err)
		}
		assignment.EmployeeID = id.EmployeeID(empID)
		assignment.IntegrationID = id.IntegrationID(integration)
		if assetID.Valid {
			assignment.AssetID = id.AssetID(assetID.String)
		}
		assignment.Compliant = boolPtr(compliant)
		assignment.LastCheckInAt = timePtr(lastCheckIn)
		assignments = append(assignments, &assignment)
	}
	return assignments, rows.Err()
}

func (s *Postgres) FindAssetBySerial(ctx context.Context, orgID id.OrgID, serialNumber string) (*models.Asset, error) {
	var (
		asset   models.Asset
		assetID string
		org     string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, organization_id, serial_number, name
		FROM assets
		WHERE organization_id = $1 AND serial_number = $2
	`, orgID.String(), serialNumber).Scan(&assetID, &org, &asset.SerialNumber, &asset.Name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find asset by serial: %w", err)
	}
	asset.ID = id.AssetID(assetID)
	asset.OrgID = id.OrgID(org)
	return &asset, nil
}

func rawOrEmpty(raw json.RawMessage) []byte {
	if len(raw) == 0 {
		return []byte("{}")
	}
	return raw
}
