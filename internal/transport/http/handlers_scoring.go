package httptransport

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	id "comply/pkg/domain"
	dErrors "comply/pkg/domain-errors"
)

type recalculateOrgResponse struct {
	OrganizationID string `json:"organizationId"`
	Recalculated   int    `json:"recalculated"`
}

func (h *Handler) handleRecalculateEmployee(w http.ResponseWriter, r *http.Request) {
	employeeID := id.EmployeeID(chi.URLParam(r, "employeeID"))
	if employeeID.IsNil() {
		writeError(w, dErrors.New(dErrors.CodeInvalidInput, "employee id is required"))
		return
	}

	breakdown, err := h.scoring.UpdateEmployeeScore(r.Context(), employeeID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, breakdown)
}

// handleRecalculateOrg walks every employee in the organization. The walk is
// synchronous; batch callers should treat this as a slow endpoint.
func (h *Handler) handleRecalculateOrg(w http.ResponseWriter, r *http.Request) {
	orgID := id.OrgID(chi.URLParam(r, "orgID"))
	if orgID.IsNil() {
		writeError(w, dErrors.New(dErrors.CodeInvalidInput, "organization id is required"))
		return
	}

	count, err := h.scoring.RecalculateOrganization(r.Context(), orgID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, recalculateOrgResponse{
		OrganizationID: orgID.String(),
		Recalculated:   count,
	})
}
