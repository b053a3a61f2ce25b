package audit

import (
	"time"

	id "comply/pkg/domain"
)

// Actions recorded by the correlation engine.
const (
	ActionEvidenceSync    = "evidence_sync.completed"
	ActionScoreUpdated    = "score.updated"
	ActionRecalcCompleted = "recalculation.completed"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Timestamp time.Time
	OrgID     id.OrgID
	Actor     string
	Action    string
	Subject   string
	Detail    map[string]any
}
