package domain

import "github.com/google/uuid"

// Typed identifiers keep organization, employee, and integration IDs from
// being swapped at call sites. Construct new IDs via the New* helpers;
// cast only when hydrating from storage.
type (
	OrgID         string
	EmployeeID    string
	IntegrationID string
	AssetID       string
)

func NewEmployeeID() EmployeeID {
	return EmployeeID(uuid.NewString())
}

func NewAssetID() AssetID {
	return AssetID(uuid.NewString())
}

func (id OrgID) String() string         { return string(id) }
func (id EmployeeID) String() string    { return string(id) }
func (id IntegrationID) String() string { return string(id) }
func (id AssetID) String() string       { return string(id) }

func (id OrgID) IsNil() bool      { return id == "" }
func (id EmployeeID) IsNil() bool { return id == "" }
func (id AssetID) IsNil() bool    { return id == "" }
