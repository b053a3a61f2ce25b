package httptransport

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"comply/internal/correlation/models"
	corrsvc "comply/internal/correlation/service"
	"comply/internal/correlation/store"
	"comply/internal/reporting"
	"comply/internal/scoring"
	id "comply/pkg/domain"
	dErrors "comply/pkg/domain-errors"
	"comply/pkg/testutil"
)

// Stub services record the arguments the handlers pass through and return
// canned responses; transport tests never exercise domain logic.

type stubCorrelation struct {
	gotOrg     id.OrgID
	gotType    id.EvidenceType
	gotRecords int
	result     models.SyncResult
	err        error
}

func (s *stubCorrelation) ProcessEvidenceSync(_ context.Context, orgID id.OrgID, _ id.IntegrationID, evidenceType id.EvidenceType, records []corrsvc.Record) (models.SyncResult, error) {
	s.gotOrg = orgID
	s.gotType = evidenceType
	s.gotRecords = len(records)
	return s.result, s.err
}

type stubScoring struct {
	breakdown *scoring.Breakdown
	updated   int
	err       error
}

func (s *stubScoring) UpdateEmployeeScore(context.Context, id.EmployeeID) (*scoring.Breakdown, error) {
	return s.breakdown, s.err
}

func (s *stubScoring) RecalculateOrganization(context.Context, id.OrgID) (int, error) {
	return s.updated, s.err
}

type stubReporting struct {
	page    *reporting.EmployeePage
	detail  *reporting.EmployeeDetail
	metrics *reporting.OrgMetrics
	filter  store.ListFilter
	err     error
}

func (s *stubReporting) ListEmployees(_ context.Context, _ id.OrgID, filter store.ListFilter) (*reporting.EmployeePage, error) {
	s.filter = filter
	return s.page, s.err
}

func (s *stubReporting) EmployeeDetail(context.Context, id.EmployeeID) (*reporting.EmployeeDetail, error) {
	return s.detail, s.err
}

func (s *stubReporting) OrganizationMetrics(context.Context, id.OrgID) (*reporting.OrgMetrics, error) {
	return s.metrics, s.err
}

// acceptAllValidator authenticates any non-empty token as "tester".
type acceptAllValidator struct{}

func (acceptAllValidator) Validate(token string) (string, error) {
	if token == "reject-me" {
		return "", fmt.Errorf("bad token")
	}
	return "tester", nil
}

type testHarness struct {
	correlation *stubCorrelation
	scoring     *stubScoring
	reporting   *stubReporting
	router      http.Handler
}

func newHarness() *testHarness {
	h := &testHarness{
		correlation: &stubCorrelation{},
		scoring:     &stubScoring{},
		reporting:   &stubReporting{},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := NewHandler(h.correlation, h.scoring, h.reporting, acceptAllValidator{}, logger)
	h.router = handler.Router()
	return h
}

func authed(req *http.Request) *http.Request {
	req.Header.Set("Authorization", "Bearer test-token")
	return req
}

func TestAuth(t *testing.T) {
	h := newHarness()

	t.Run("missing bearer token is rejected", func(t *testing.T) {
		req := testutil.NewRequest(t, http.MethodGet, "/orgs/org-1/metrics")
		rr := testutil.DoRequest(h.router, req)
		testutil.AssertStatus(t, rr, http.StatusUnauthorized)
		testutil.AssertErrorCode(t, rr, "unauthorized")
	})

	t.Run("invalid token is rejected", func(t *testing.T) {
		req := testutil.NewRequest(t, http.MethodGet, "/orgs/org-1/metrics")
		req.Header.Set("Authorization", "Bearer reject-me")
		rr := testutil.DoRequest(h.router, req)
		testutil.AssertStatus(t, rr, http.StatusUnauthorized)
	})

	t.Run("healthz needs no token", func(t *testing.T) {
		req := testutil.NewRequest(t, http.MethodGet, "/healthz")
		rr := testutil.DoRequest(h.router, req)
		testutil.AssertStatus(t, rr, http.StatusOK)
	})
}

func TestHandleEvidenceSync(t *testing.T) {
	t.Run("routes the batch and returns the counts", func(t *testing.T) {
		h := newHarness()
		h.correlation.result = models.SyncResult{Processed: 2, Errors: 1}

		req := authed(testutil.NewJSONRequest(t, http.MethodPost, "/sync/evidence", map[string]any{
			"organizationId": "org-1",
			"integrationId":  "int-hris",
			"evidenceType":   "employee_roster",
			"records": []map[string]any{
				{"email": "a@example.com"},
				{"email": "b@example.com"},
				{"name": "no email"},
			},
		}))
		rr := testutil.DoRequest(h.router, req)

		testutil.AssertStatus(t, rr, http.StatusOK)
		resp := testutil.UnmarshalResponse[evidenceSyncResponse](t, rr)
		assert.Equal(t, 2, resp.Processed)
		assert.Equal(t, 1, resp.Errors)
		assert.Equal(t, "employee_roster", resp.EvidenceType)
		assert.Equal(t, id.OrgID("org-1"), h.correlation.gotOrg)
		assert.Equal(t, 3, h.correlation.gotRecords)
	})

	t.Run("malformed body is a bad request", func(t *testing.T) {
		h := newHarness()
		req := authed(testutil.NewRequest(t, http.MethodPost, "/sync/evidence"))
		rr := testutil.DoRequest(h.router, req)
		testutil.AssertStatus(t, rr, http.StatusBadRequest)
		testutil.AssertErrorCode(t, rr, string(dErrors.CodeInvalidInput))
	})

	t.Run("missing identifiers are a bad request", func(t *testing.T) {
		h := newHarness()
		req := authed(testutil.NewJSONRequest(t, http.MethodPost, "/sync/evidence", map[string]any{
			"organizationId": "org-1",
			"records":        []map[string]any{},
		}))
		rr := testutil.DoRequest(h.router, req)
		testutil.AssertStatus(t, rr, http.StatusBadRequest)
	})
}

func TestHandleListEmployees(t *testing.T) {
	t.Run("passes filters through to the service", func(t *testing.T) {
		h := newHarness()
		h.reporting.page = &reporting.EmployeePage{Employees: []*models.CorrelatedEmployee{}, Total: 0}

		req := authed(testutil.NewRequest(t, http.MethodGet,
			"/orgs/org-1/employees?search=jane&department=Engineering&status=active&bucket=at_risk&limit=10&offset=20"))
		rr := testutil.DoRequest(h.router, req)

		testutil.AssertStatus(t, rr, http.StatusOK)
		assert.Equal(t, store.ListFilter{
			Search:           "jane",
			Department:       "Engineering",
			EmploymentStatus: "active",
			Bucket:           id.BucketAtRisk,
			Limit:            10,
			Offset:           20,
		}, h.reporting.filter)
	})

	t.Run("defaults and caps the page size", func(t *testing.T) {
		h := newHarness()
		h.reporting.page = &reporting.EmployeePage{}

		rr := testutil.DoRequest(h.router, authed(testutil.NewRequest(t, http.MethodGet, "/orgs/org-1/employees")))
		testutil.AssertStatus(t, rr, http.StatusOK)
		assert.Equal(t, defaultListLimit, h.reporting.filter.Limit)

		rr = testutil.DoRequest(h.router, authed(testutil.NewRequest(t, http.MethodGet, "/orgs/org-1/employees?limit=9999")))
		testutil.AssertStatus(t, rr, http.StatusOK)
		assert.Equal(t, maxListLimit, h.reporting.filter.Limit)
	})

	t.Run("service errors map to the error envelope", func(t *testing.T) {
		h := newHarness()
		h.reporting.err = dErrors.New(dErrors.CodeBadRequest, "invalid compliance bucket")

		rr := testutil.DoRequest(h.router, authed(testutil.NewRequest(t, http.MethodGet, "/orgs/org-1/employees?bucket=nope")))
		testutil.AssertStatus(t, rr, http.StatusBadRequest)
		testutil.AssertErrorCode(t, rr, string(dErrors.CodeBadRequest))
	})
}

func TestHandleEmployeeDetail(t *testing.T) {
	t.Run("returns the detail for the owning org", func(t *testing.T) {
		h := newHarness()
		h.reporting.detail = &reporting.EmployeeDetail{
			Employee:    &models.CorrelatedEmployee{ID: "emp-1", OrgID: "org-1", Email: "a@example.com"},
			DataSources: []id.IntegrationID{"int-hris"},
		}

		rr := testutil.DoRequest(h.router, authed(testutil.NewRequest(t, http.MethodGet, "/orgs/org-1/employees/emp-1")))
		testutil.AssertStatus(t, rr, http.StatusOK)
		resp := testutil.UnmarshalResponse[reporting.EmployeeDetail](t, rr)
		require.NotNil(t, resp.Employee)
		assert.Equal(t, "a@example.com", resp.Employee.Email)
	})

	t.Run("cross-tenant lookups read as not found", func(t *testing.T) {
		h := newHarness()
		h.reporting.detail = &reporting.EmployeeDetail{
			Employee: &models.CorrelatedEmployee{ID: "emp-1", OrgID: "org-other"},
		}

		rr := testutil.DoRequest(h.router, authed(testutil.NewRequest(t, http.MethodGet, "/orgs/org-1/employees/emp-1")))
		testutil.AssertStatus(t, rr, http.StatusNotFound)
		testutil.AssertErrorCode(t, rr, string(dErrors.CodeNotFound))
	})

	t.Run("missing employee maps to not found", func(t *testing.T) {
		h := newHarness()
		h.reporting.err = dErrors.New(dErrors.CodeNotFound, "employee not found")

		rr := testutil.DoRequest(h.router, authed(testutil.NewRequest(t, http.MethodGet, "/orgs/org-1/employees/nope")))
		testutil.AssertStatus(t, rr, http.StatusNotFound)
	})
}

func TestHandleRecalculate(t *testing.T) {
	t.Run("single employee returns the breakdown", func(t *testing.T) {
		h := newHarness()
		h.scoring.breakdown = &scoring.Breakdown{BackgroundCheck: 25, Training: 25, Attestation: 25, AccessReview: 20, Total: 95}

		rr := testutil.DoRequest(h.router, authed(testutil.NewRequest(t, http.MethodPost, "/orgs/org-1/employees/emp-1/recalculate")))
		testutil.AssertStatus(t, rr, http.StatusOK)
		resp := testutil.UnmarshalResponse[scoring.Breakdown](t, rr)
		assert.Equal(t, 95, resp.Total)
	})

	t.Run("organization recalc returns the count", func(t *testing.T) {
		h := newHarness()
		h.scoring.updated = 42

		rr := testutil.DoRequest(h.router, authed(testutil.NewRequest(t, http.MethodPost, "/orgs/org-1/recalculate")))
		testutil.AssertStatus(t, rr, http.StatusOK)
		resp := testutil.UnmarshalResponse[recalculateOrgResponse](t, rr)
		assert.Equal(t, 42, resp.Recalculated)
		assert.Equal(t, "org-1", resp.OrganizationID)
	})

	t.Run("uncoded service errors collapse to 500", func(t *testing.T) {
		h := newHarness()
		h.scoring.err = fmt.Errorf("store blew up")

		rr := testutil.DoRequest(h.router, authed(testutil.NewRequest(t, http.MethodPost, "/orgs/org-1/recalculate")))
		testutil.AssertStatus(t, rr, http.StatusInternalServerError)
		testutil.AssertErrorCode(t, rr, string(dErrors.CodeInternal))
	})
}

type stubChecker struct{ err error }

func (c stubChecker) Health(context.Context) error { return c.err }

func TestHandleHealth(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("all probes passing reads ok", func(t *testing.T) {
		handler := NewHandler(&stubCorrelation{}, &stubScoring{}, &stubReporting{}, acceptAllValidator{}, logger)
		handler.AddHealthCheck("database", stubChecker{})
		handler.AddHealthCheck("redis", stubChecker{})

		rr := testutil.DoRequest(handler.Router(), testutil.NewRequest(t, http.MethodGet, "/healthz"))
		testutil.AssertStatus(t, rr, http.StatusOK)
		resp := testutil.UnmarshalResponse[map[string]any](t, rr)
		assert.Equal(t, "ok", (*resp)["status"])
	})

	t.Run("one failing probe degrades the whole endpoint", func(t *testing.T) {
		handler := NewHandler(&stubCorrelation{}, &stubScoring{}, &stubReporting{}, acceptAllValidator{}, logger)
		handler.AddHealthCheck("database", stubChecker{})
		handler.AddHealthCheck("redis", stubChecker{err: fmt.Errorf("connection refused")})

		rr := testutil.DoRequest(handler.Router(), testutil.NewRequest(t, http.MethodGet, "/healthz"))
		testutil.AssertStatus(t, rr, http.StatusServiceUnavailable)
		resp := testutil.UnmarshalResponse[map[string]any](t, rr)
		assert.Equal(t, "degraded", (*resp)["status"])
		checks := (*resp)["checks"].(map[string]any)
		assert.Equal(t, "ok", checks["database"])
		assert.Equal(t, "connection refused", checks["redis"])
	})
}

func TestHandleOrgMetrics(t *testing.T) {
	h := newHarness()
	h.reporting.metrics = &reporting.OrgMetrics{
		TotalEmployees: 4,
		AverageScore:   73,
		ComplianceRate: 50,
	}

	rr := testutil.DoRequest(h.router, authed(testutil.NewRequest(t, http.MethodGet, "/orgs/org-1/metrics")))
	testutil.AssertStatus(t, rr, http.StatusOK)
	resp := testutil.UnmarshalResponse[reporting.OrgMetrics](t, rr)
	assert.Equal(t, 4, resp.TotalEmployees)
	assert.Equal(t, 73.0, resp.AverageScore)
}
