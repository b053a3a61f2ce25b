package httptransport

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"comply/internal/correlation/store"
	id "comply/pkg/domain"
	dErrors "comply/pkg/domain-errors"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

func (h *Handler) handleListEmployees(w http.ResponseWriter, r *http.Request) {
	orgID := id.OrgID(chi.URLParam(r, "orgID"))
	if orgID.IsNil() {
		writeError(w, dErrors.New(dErrors.CodeInvalidInput, "organization id is required"))
		return
	}

	q := r.URL.Query()
	filter := store.ListFilter{
		Search:           q.Get("search"),
		Department:       q.Get("department"),
		EmploymentStatus: q.Get("status"),
		Bucket:           id.ComplianceBucket(q.Get("bucket")),
		Limit:            parseIntParam(q.Get("limit"), defaultListLimit),
		Offset:           parseIntParam(q.Get("offset"), 0),
	}
	if filter.Limit > maxListLimit {
		filter.Limit = maxListLimit
	}

	page, err := h.reporting.ListEmployees(r.Context(), orgID, filter)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *Handler) handleEmployeeDetail(w http.ResponseWriter, r *http.Request) {
	orgID := id.OrgID(chi.URLParam(r, "orgID"))
	employeeID := id.EmployeeID(chi.URLParam(r, "employeeID"))
	if orgID.IsNil() || employeeID.IsNil() {
		writeError(w, dErrors.New(dErrors.CodeInvalidInput, "organization and employee ids are required"))
		return
	}

	detail, err := h.reporting.EmployeeDetail(r.Context(), employeeID)
	if err != nil {
		writeError(w, err)
		return
	}
	// An employee id from another tenant is indistinguishable from a
	// missing one.
	if detail.Employee.OrgID != orgID {
		writeError(w, dErrors.New(dErrors.CodeNotFound, "employee not found"))
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (h *Handler) handleOrgMetrics(w http.ResponseWriter, r *http.Request) {
	orgID := id.OrgID(chi.URLParam(r, "orgID"))
	if orgID.IsNil() {
		writeError(w, dErrors.New(dErrors.CodeInvalidInput, "organization id is required"))
		return
	}

	metrics, err := h.reporting.OrganizationMetrics(r.Context(), orgID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, metrics)
}

func parseIntParam(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}
