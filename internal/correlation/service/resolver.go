package service

import (
	"context"
	"fmt"

	id "comply/pkg/domain"
	dErrors "comply/pkg/domain-errors"
	"comply/pkg/requestcontext"
)

// Resolve finds or lazily creates the canonical employee for an
// organization+email pair. A lookup miss creates a placeholder with only
// identity key and timestamps set; a later roster sync enriches it in
// place. The underlying store upsert is atomic, so concurrent handlers
// resolving the same new employee converge on one row.
func (s *Service) Resolve(ctx context.Context, orgID id.OrgID, email string) (id.EmployeeID, error) {
	normalized := NormalizeEmail(email)
	if normalized == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "email is required")
	}
	employeeID, err := s.stores.Employees.ResolveIdentity(ctx, orgID, normalized, requestcontext.Now(ctx))
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", normalized, err)
	}
	return employeeID, nil
}
