package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	id "comply/pkg/domain"
)

// PostgresStore persists audit events in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Append(ctx context.Context, event Event) error {
	detail := event.Detail
	if detail == nil {
		detail = map[string]any{}
	}
	payload, err := json.Marshal(detail)
	if err != nil {
		return fmt.Errorf("marshal audit detail: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO audit_events (occurred_at, organization_id, actor, action, subject, detail)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, event.Timestamp, event.OrgID.String(), event.Actor, event.Action, event.Subject, payload)
	if err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByOrg(ctx context.Context, orgID id.OrgID, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT occurred_at, organization_id, actor, action, subject, detail
		FROM audit_events
		WHERE organization_id = $1
		ORDER BY occurred_at DESC
		LIMIT $2
	`, orgID.String(), limit)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var (
			event  Event
			org    string
			detail []byte
		)
		if err := rows.Scan(&event.Timestamp, &org, &event.Actor, &event.Action, &event.Subject, &detail); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		event.OrgID = id.OrgID(org)
		if len(detail) > 0 {
			if err := json.Unmarshal(detail, &event.Detail); err != nil {
				return nil, fmt.Errorf("unmarshal audit detail: %w", err)
			}
		}
		events = append(events, event)
	}
	return events, rows.Err()
}
