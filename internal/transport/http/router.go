// Package httptransport is the thin HTTP layer. Handlers decode, delegate to
// the domain services and encode; business rules never live here.
package httptransport

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"comply/internal/correlation/models"
	corrsvc "comply/internal/correlation/service"
	"comply/internal/correlation/store"
	"comply/internal/reporting"
	"comply/internal/scoring"
	id "comply/pkg/domain"
	dErrors "comply/pkg/domain-errors"
	"comply/pkg/platform/middleware"
)

// CorrelationService ingests evidence batches.
type CorrelationService interface {
	ProcessEvidenceSync(ctx context.Context, orgID id.OrgID, integrationID id.IntegrationID, evidenceType id.EvidenceType, records []corrsvc.Record) (models.SyncResult, error)
}

// ScoringService computes and persists compliance scores.
type ScoringService interface {
	UpdateEmployeeScore(ctx context.Context, employeeID id.EmployeeID) (*scoring.Breakdown, error)
	RecalculateOrganization(ctx context.Context, orgID id.OrgID) (int, error)
}

// ReportingService serves read-model queries.
type ReportingService interface {
	ListEmployees(ctx context.Context, orgID id.OrgID, filter store.ListFilter) (*reporting.EmployeePage, error)
	EmployeeDetail(ctx context.Context, employeeID id.EmployeeID) (*reporting.EmployeeDetail, error)
	OrganizationMetrics(ctx context.Context, orgID id.OrgID) (*reporting.OrgMetrics, error)
}

// HealthChecker reports readiness of one backing dependency.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// HealthFunc adapts a plain probe function to HealthChecker.
type HealthFunc func(ctx context.Context) error

func (f HealthFunc) Health(ctx context.Context) error { return f(ctx) }

type Handler struct {
	logger      *slog.Logger
	correlation CorrelationService
	scoring     ScoringService
	reporting   ReportingService
	validator   middleware.TokenValidator
	health      map[string]HealthChecker
}

func NewHandler(
	correlation CorrelationService,
	scoring ScoringService,
	reporting ReportingService,
	validator middleware.TokenValidator,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		logger:      logger,
		correlation: correlation,
		scoring:     scoring,
		reporting:   reporting,
		validator:   validator,
		health:      map[string]HealthChecker{},
	}
}

// AddHealthCheck registers a named dependency probe for /healthz.
func (h *Handler) AddHealthCheck(name string, checker HealthChecker) {
	h.health[name] = checker
}

// Router wires all endpoints. Everything except /healthz and /metrics sits
// behind bearer auth.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recovery(h.logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(h.logger))

	r.Get("/healthz", h.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(h.validator, h.logger))

		r.Post("/sync/evidence", h.handleEvidenceSync)

		r.Route("/orgs/{orgID}", func(r chi.Router) {
			r.Get("/employees", h.handleListEmployees)
			r.Get("/employees/{employeeID}", h.handleEmployeeDetail)
			r.Post("/employees/{employeeID}/recalculate", h.handleRecalculateEmployee)
			r.Post("/recalculate", h.handleRecalculateOrg)
			r.Get("/metrics", h.handleOrgMetrics)
		})
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError translates domain errors into the JSON error envelope. Uncoded
// errors collapse to 500 without leaking internals.
func writeError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	message := "internal error"
	var de *dErrors.Error
	if errors.As(err, &de) && code != dErrors.CodeInternal {
		message = de.Message
	}
	writeJSON(w, dErrors.ToHTTPStatus(code), map[string]string{
		"error":   string(code),
		"message": message,
	})
}
