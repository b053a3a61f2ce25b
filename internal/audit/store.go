package audit

import (
	"context"

	id "comply/pkg/domain"
)

// Store is the append-only audit sink.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByOrg(ctx context.Context, orgID id.OrgID, limit int) ([]Event, error)
}
