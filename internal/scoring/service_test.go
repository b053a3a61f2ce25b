package scoring

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/suite"

	"comply/internal/audit"
	"comply/internal/correlation/models"
	"comply/internal/correlation/store"
	"comply/internal/platform/config"
	id "comply/pkg/domain"
	dErrors "comply/pkg/domain-errors"
	"comply/pkg/requestcontext"
)

const testOrg = id.OrgID("org-scoring")

type ScoringServiceSuite struct {
	suite.Suite
	store   *store.Memory
	audit   *captureEmitter
	service *Service
}

func TestScoringServiceSuite(t *testing.T) {
	suite.Run(t, new(ScoringServiceSuite))
}

func (s *ScoringServiceSuite) SetupTest() {
	s.store = store.NewMemory()
	s.audit = &captureEmitter{}
	s.service = New(s.stores(), config.DefaultWeights(), 2, discardLogger(), nil, WithAudit(s.audit))
}

func (s *ScoringServiceSuite) stores() Stores {
	return Stores{
		Employees:    s.store,
		Checks:       s.store,
		Training:     s.store,
		Attestations: s.store,
		Access:       s.store,
		Assets:       s.store,
	}
}

func (s *ScoringServiceSuite) ctx() context.Context {
	return requestcontext.WithTime(context.Background(), testNow)
}

func (s *ScoringServiceSuite) seedEmployee(email string) id.EmployeeID {
	employeeID, err := s.store.UpsertRoster(context.Background(), &models.CorrelatedEmployee{
		OrgID:            testOrg,
		Email:            email,
		EmploymentStatus: models.EmploymentActive,
		LastCorrelatedAt: testNow,
	})
	s.Require().NoError(err)
	return employeeID
}

type captureEmitter struct {
	events []audit.Event
}

func (c *captureEmitter) Emit(_ context.Context, event audit.Event) {
	c.events = append(c.events, event)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func (s *ScoringServiceSuite) TestCalculate() {
	s.Run("missing employee yields zero breakdown with critical issue", func() {
		breakdown, err := s.service.Calculate(s.ctx(), id.EmployeeID("no-such-employee"))
		s.NoError(err)
		s.Equal(0, breakdown.Total)
		s.Require().Len(breakdown.Issues, 1)
		s.Equal(models.IssueEmployee, breakdown.Issues[0].Type)
		s.Equal(models.SeverityCritical, breakdown.Issues[0].Severity)
		s.Equal("employee not found", breakdown.Issues[0].Message)
	})

	s.Run("employee with no evidence scores benefit of the doubt", func() {
		employeeID := s.seedEmployee("fresh@example.com")

		breakdown, err := s.service.Calculate(s.ctx(), employeeID)
		s.NoError(err)
		s.Equal(0, breakdown.BackgroundCheck)
		s.Equal(25, breakdown.Training)
		s.Equal(25, breakdown.Attestation)
		s.Equal(25, breakdown.AccessReview)
		s.Equal(75, breakdown.Total)
	})

	s.Run("evidence from every family flows into the breakdown", func() {
		employeeID := s.seedEmployee("full@example.com")
		s.Require().NoError(s.store.UpsertCheck(s.ctx(), &models.BackgroundCheck{
			EmployeeID:    employeeID,
			IntegrationID: "checkr",
			ExternalID:    "chk-1",
			Status:        models.CheckClear,
		}))
		s.Require().NoError(s.store.ReplaceAccess(s.ctx(), &models.AccessRecord{
			EmployeeID:    employeeID,
			IntegrationID: "okta",
			MFAEnabled:    boolPtr(false),
		}))

		breakdown, err := s.service.Calculate(s.ctx(), employeeID)
		s.NoError(err)
		s.Equal(95, breakdown.Total)
		s.Require().Len(breakdown.Issues, 1)
		s.Equal(models.IssueMFA, breakdown.Issues[0].Type)
	})

	s.Run("calculation is deterministic for unchanged evidence", func() {
		employeeID := s.seedEmployee("stable@example.com")

		first, err := s.service.Calculate(s.ctx(), employeeID)
		s.Require().NoError(err)
		second, err := s.service.Calculate(s.ctx(), employeeID)
		s.Require().NoError(err)
		s.Equal(first, second)
	})
}

func (s *ScoringServiceSuite) TestUpdateEmployeeScore() {
	s.Run("persists the computed score and issues", func() {
		employeeID := s.seedEmployee("persist@example.com")

		breakdown, err := s.service.UpdateEmployeeScore(s.ctx(), employeeID)
		s.Require().NoError(err)

		emp, err := s.store.FindByID(s.ctx(), employeeID)
		s.Require().NoError(err)
		s.Require().NotNil(emp.ComplianceScore)
		s.Equal(breakdown.Total, *emp.ComplianceScore)
		s.Equal(breakdown.Issues, emp.ComplianceIssues)
	})

	s.Run("missing employee maps to a not found error", func() {
		_, err := s.service.UpdateEmployeeScore(s.ctx(), id.EmployeeID("ghost"))
		s.Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("emits a score updated audit event", func() {
		employeeID := s.seedEmployee("audited@example.com")
		s.audit.events = nil

		_, err := s.service.UpdateEmployeeScore(s.ctx(), employeeID)
		s.Require().NoError(err)
		s.Require().Len(s.audit.events, 1)
		s.Equal(audit.ActionScoreUpdated, s.audit.events[0].Action)
		s.Equal(employeeID.String(), s.audit.events[0].Subject)
	})

	s.Run("rerunning replaces issues instead of accumulating", func() {
		employeeID := s.seedEmployee("replace@example.com")

		_, err := s.service.UpdateEmployeeScore(s.ctx(), employeeID)
		s.Require().NoError(err)
		_, err = s.service.UpdateEmployeeScore(s.ctx(), employeeID)
		s.Require().NoError(err)

		emp, err := s.store.FindByID(s.ctx(), employeeID)
		s.Require().NoError(err)
		s.Len(emp.ComplianceIssues, 1)
	})
}

func (s *ScoringServiceSuite) TestRecalculateOrganization() {
	s.Run("rescore spans multiple cursor pages", func() {
		// Page size is 2; five employees force three pages.
		for i := 0; i < 5; i++ {
			s.seedEmployee(fmt.Sprintf("page%d@example.com", i))
		}

		updated, err := s.service.RecalculateOrganization(s.ctx(), testOrg)
		s.Require().NoError(err)
		s.Equal(5, updated)

		summaries, err := s.store.ActiveScoreSummaries(s.ctx(), testOrg)
		s.Require().NoError(err)
		s.Require().Len(summaries, 5)
		for _, summary := range summaries {
			s.Require().NotNil(summary.Score)
			s.Equal(75, *summary.Score)
		}
	})

	s.Run("other organizations are untouched", func() {
		mine := s.seedEmployee("mine@example.com")
		otherID, err := s.store.UpsertRoster(context.Background(), &models.CorrelatedEmployee{
			OrgID:            "org-other",
			Email:            "other@example.com",
			EmploymentStatus: models.EmploymentActive,
			LastCorrelatedAt: testNow,
		})
		s.Require().NoError(err)

		_, err = s.service.RecalculateOrganization(s.ctx(), testOrg)
		s.Require().NoError(err)

		scored, err := s.store.FindByID(s.ctx(), mine)
		s.Require().NoError(err)
		s.NotNil(scored.ComplianceScore)

		untouched, err := s.store.FindByID(s.ctx(), otherID)
		s.Require().NoError(err)
		s.Nil(untouched.ComplianceScore)
	})

	s.Run("emits a completion audit event", func() {
		s.seedEmployee("recalc-audit@example.com")
		s.audit.events = nil

		_, err := s.service.RecalculateOrganization(s.ctx(), testOrg)
		s.Require().NoError(err)

		var completed []audit.Event
		for _, event := range s.audit.events {
			if event.Action == audit.ActionRecalcCompleted {
				completed = append(completed, event)
			}
		}
		s.Require().Len(completed, 1)
		s.Equal(testOrg, completed[0].OrgID)
	})

	s.Run("held lease skips the run", func() {
		s.seedEmployee("leased@example.com")
		service := New(s.stores(), config.DefaultWeights(), 2, discardLogger(), nil,
			WithLease(stubLease{acquired: false}))

		updated, err := service.RecalculateOrganization(s.ctx(), testOrg)
		s.NoError(err)
		s.Equal(0, updated)
	})

	s.Run("lease errors degrade to an unguarded run", func() {
		employeeID := s.seedEmployee("degraded@example.com")
		service := New(s.stores(), config.DefaultWeights(), 2, discardLogger(), nil,
			WithLease(stubLease{err: fmt.Errorf("redis down")}))

		updated, err := service.RecalculateOrganization(s.ctx(), testOrg)
		s.NoError(err)
		s.GreaterOrEqual(updated, 1)

		emp, err := s.store.FindByID(s.ctx(), employeeID)
		s.Require().NoError(err)
		s.NotNil(emp.ComplianceScore)
	})
}

type stubLease struct {
	acquired bool
	err      error
}

func (l stubLease) Acquire(context.Context, id.OrgID) (bool, func(), error) {
	if l.err != nil {
		return false, func() {}, l.err
	}
	return l.acquired, func() {}, nil
}
