package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"comply/internal/correlation/models"
	id "comply/pkg/domain"
	"comply/pkg/platform/sentinel"
	"comply/pkg/requestcontext"
)

// handleDevices upserts device assignments keyed on (employee, integration,
// external id), synthesizing the id from the serial number when the MDM
// provides none. Serial numbers are also resolved against the asset
// inventory; an uninventoried serial leaves the link empty.
func (s *Service) handleDevices(ctx context.Context, orgID id.OrgID, integrationID id.IntegrationID, records []Record) (models.SyncResult, error) {
	var result models.SyncResult
	now := requestcontext.Now(ctx)

	for _, record := range records {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		email := record.Email()
		serial := record.FirstString("serial_number", "serial")
		if email == "" || serial == "" {
			result.Errors++
			continue
		}

		employeeID, err := s.Resolve(ctx, orgID, email)
		if err != nil {
			s.logger.ErrorContext(ctx, "resolve for device assignment failed",
				"org_id", orgID, "email", email, "error", err)
			result.Errors++
			continue
		}

		externalID := record.FirstString("external_id", "device_id", "id")
		if externalID == "" {
			externalID = syntheticExternalID(integrationID.String(), email, serial)
		}

		assignment := &models.AssetAssignment{
			ID:            uuid.NewString(),
			EmployeeID:    employeeID,
			IntegrationID: integrationID,
			ExternalID:    externalID,
			DeviceType:    record.FirstString("device_type", "type"),
			DeviceName:    record.FirstString("device_name", "name"),
			SerialNumber:  serial,
			Model:         record.String("model"),
			Manufacturer:  record.String("manufacturer"),
			OS:            record.FirstString("os", "operating_system"),
			Compliant:     record.Bool("compliant"),
			LastCheckInAt: record.Time("last_check_in_at"),
			RawPayload:    record.RawPayload(),
			UpdatedAt:     now,
		}

		asset, err := s.stores.Assets.FindAssetBySerial(ctx, orgID, serial)
		switch {
		case err == nil:
			assignment.AssetID = asset.ID
		case errors.Is(err, sentinel.ErrNotFound):
			// Serial not inventoried; assignment stands alone.
		default:
			s.logger.WarnContext(ctx, "asset lookup failed",
				"org_id", orgID, "serial_number", serial, "error", err)
		}

		if err := s.stores.Assets.UpsertAssignment(ctx, assignment); err != nil {
			s.logger.ErrorContext(ctx, "device assignment upsert failed",
				"org_id", orgID, "employee_id", employeeID, "error", err)
			result.Errors++
			continue
		}
		result.Processed++
	}
	return result, nil
}
