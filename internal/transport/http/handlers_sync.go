package httptransport

import (
	"encoding/json"
	"net/http"

	corrsvc "comply/internal/correlation/service"
	id "comply/pkg/domain"
	dErrors "comply/pkg/domain-errors"
)

type evidenceSyncRequest struct {
	OrganizationID string           `json:"organizationId"`
	IntegrationID  string           `json:"integrationId"`
	EvidenceType   string           `json:"evidenceType"`
	Records        []corrsvc.Record `json:"records"`
}

type evidenceSyncResponse struct {
	EvidenceType string `json:"evidenceType"`
	Processed    int    `json:"processed"`
	Errors       int    `json:"errors"`
}

// handleEvidenceSync accepts one evidence batch from an integration.
// Unrecognized evidence types are acknowledged with a zero result so
// integrations can ship new categories ahead of the engine.
func (h *Handler) handleEvidenceSync(w http.ResponseWriter, r *http.Request) {
	var req evidenceSyncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}
	if req.OrganizationID == "" || req.IntegrationID == "" || req.EvidenceType == "" {
		writeError(w, dErrors.New(dErrors.CodeInvalidInput, "organizationId, integrationId and evidenceType are required"))
		return
	}

	result, err := h.correlation.ProcessEvidenceSync(
		r.Context(),
		id.OrgID(req.OrganizationID),
		id.IntegrationID(req.IntegrationID),
		id.EvidenceType(req.EvidenceType),
		req.Records,
	)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, evidenceSyncResponse{
		EvidenceType: req.EvidenceType,
		Processed:    result.Processed,
		Errors:       result.Errors,
	})
}
