//go:build integration

package store_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"comply/internal/correlation/models"
	"comply/internal/correlation/store"
	id "comply/pkg/domain"
	"comply/pkg/platform/sentinel"
	"comply/pkg/testutil/containers"
)

const pgTestOrg = id.OrgID("org-pg")

var pgTestNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func TestPostgresStore(t *testing.T) {
	pg := containers.NewPostgresContainer(t)
	t.Cleanup(func() {
		_ = pg.DB.Close()
		_ = pg.Container.Terminate(context.Background())
	})

	s := store.NewPostgres(pg.DB)
	ctx := context.Background()

	reset := func(t *testing.T) {
		t.Helper()
		require.NoError(t, pg.TruncateAll(ctx))
	}

	t.Run("ResolveIdentity is idempotent", func(t *testing.T) {
		reset(t)

		first, err := s.ResolveIdentity(ctx, pgTestOrg, "jane@example.com", pgTestNow)
		require.NoError(t, err)
		require.False(t, first.IsNil())

		second, err := s.ResolveIdentity(ctx, pgTestOrg, "jane@example.com", pgTestNow.Add(time.Minute))
		require.NoError(t, err)
		assert.Equal(t, first, second)

		other, err := s.ResolveIdentity(ctx, id.OrgID("org-pg-2"), "jane@example.com", pgTestNow)
		require.NoError(t, err)
		assert.NotEqual(t, first, other, "same email in another org is a distinct employee")
	})

	t.Run("ResolveIdentity survives concurrent resolution of a new email", func(t *testing.T) {
		reset(t)

		ids := make([]id.EmployeeID, 8)
		var g errgroup.Group
		for i := range ids {
			g.Go(func() error {
				employeeID, err := s.ResolveIdentity(ctx, pgTestOrg, "race@example.com", pgTestNow)
				ids[i] = employeeID
				return err
			})
		}
		require.NoError(t, g.Wait())
		for _, got := range ids[1:] {
			assert.Equal(t, ids[0], got)
		}
	})

	t.Run("UpsertRoster updates in place on the org and email key", func(t *testing.T) {
		reset(t)

		first, err := s.UpsertRoster(ctx, &models.CorrelatedEmployee{
			OrgID:               pgTestOrg,
			Email:               "jane@example.com",
			ExternalID:          "emp-42",
			FirstName:           "Jane",
			Department:          "Engineering",
			EmploymentStatus:    models.EmploymentActive,
			SourceIntegrationID: "int-hris",
			LastCorrelatedAt:    pgTestNow,
		})
		require.NoError(t, err)

		second, err := s.UpsertRoster(ctx, &models.CorrelatedEmployee{
			OrgID:               pgTestOrg,
			Email:               "jane@example.com",
			ExternalID:          "emp-42",
			FirstName:           "Jane",
			Department:          "Sales",
			EmploymentStatus:    models.EmploymentActive,
			SourceIntegrationID: "int-hris",
			LastCorrelatedAt:    pgTestNow.Add(time.Hour),
		})
		require.NoError(t, err)
		assert.Equal(t, first, second)

		emp, err := s.FindByID(ctx, first)
		require.NoError(t, err)
		assert.Equal(t, "Sales", emp.Department)
		assert.Equal(t, "jane@example.com", emp.Email)
		assert.Nil(t, emp.ComplianceScore)
	})

	t.Run("FindByID reports missing employees", func(t *testing.T) {
		reset(t)

		_, err := s.FindByID(ctx, id.NewEmployeeID())
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("UpdateScore persists the score and structured issues", func(t *testing.T) {
		reset(t)

		employeeID, err := s.ResolveIdentity(ctx, pgTestOrg, "scored@example.com", pgTestNow)
		require.NoError(t, err)

		issues := []models.ComplianceIssue{
			{Type: models.IssueMFA, Severity: models.SeverityHigh, Message: "MFA not enabled"},
		}
		require.NoError(t, s.UpdateScore(ctx, employeeID, 95, issues, pgTestNow))

		emp, err := s.FindByID(ctx, employeeID)
		require.NoError(t, err)
		require.NotNil(t, emp.ComplianceScore)
		assert.Equal(t, 95, *emp.ComplianceScore)
		assert.Equal(t, issues, emp.ComplianceIssues)

		// A clean rescore replaces the issue list rather than appending.
		require.NoError(t, s.UpdateScore(ctx, employeeID, 100, nil, pgTestNow))
		emp, err = s.FindByID(ctx, employeeID)
		require.NoError(t, err)
		assert.Empty(t, emp.ComplianceIssues)

		err = s.UpdateScore(ctx, id.NewEmployeeID(), 50, nil, pgTestNow)
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("PageByID walks the org in stable id order", func(t *testing.T) {
		reset(t)

		for i := 0; i < 5; i++ {
			_, err := s.ResolveIdentity(ctx, pgTestOrg, fmt.Sprintf("page%d@example.com", i), pgTestNow)
			require.NoError(t, err)
		}
		_, err := s.ResolveIdentity(ctx, id.OrgID("org-pg-other"), "elsewhere@example.com", pgTestNow)
		require.NoError(t, err)

		seen := map[id.EmployeeID]bool{}
		var cursor id.EmployeeID
		pages := 0
		for {
			page, err := s.PageByID(ctx, pgTestOrg, cursor, 2)
			require.NoError(t, err)
			if len(page) == 0 {
				break
			}
			pages++
			for _, emp := range page {
				assert.False(t, seen[emp.ID], "employee repeated across pages")
				seen[emp.ID] = true
				assert.True(t, emp.ID > cursor)
				cursor = emp.ID
			}
			if len(page) < 2 {
				break
			}
		}
		assert.Len(t, seen, 5)
		assert.Equal(t, 3, pages)
	})

	t.Run("List applies filters and counts the full match set", func(t *testing.T) {
		reset(t)

		seed := func(email, department string, score int) {
			employeeID, err := s.UpsertRoster(ctx, &models.CorrelatedEmployee{
				OrgID:            pgTestOrg,
				Email:            email,
				FirstName:        "Listed",
				Department:       department,
				EmploymentStatus: models.EmploymentActive,
				LastCorrelatedAt: pgTestNow,
			})
			require.NoError(t, err)
			require.NoError(t, s.UpdateScore(ctx, employeeID, score, nil, pgTestNow))
		}
		seed("a@example.com", "Engineering", 95)
		seed("b@example.com", "Engineering", 65)
		seed("c@example.com", "Sales", 40)

		_, total, err := s.List(ctx, pgTestOrg, store.ListFilter{Department: "Engineering"})
		require.NoError(t, err)
		assert.Equal(t, 2, total)

		atRisk, total, err := s.List(ctx, pgTestOrg, store.ListFilter{Bucket: id.BucketAtRisk})
		require.NoError(t, err)
		require.Equal(t, 1, total)
		assert.Equal(t, "b@example.com", atRisk[0].Email)

		page, total, err := s.List(ctx, pgTestOrg, store.ListFilter{Limit: 2})
		require.NoError(t, err)
		assert.Equal(t, 3, total)
		assert.Len(t, page, 2)

		found, total, err := s.List(ctx, pgTestOrg, store.ListFilter{Search: "C@EXAMPLE"})
		require.NoError(t, err)
		require.Equal(t, 1, total)
		assert.Equal(t, "c@example.com", found[0].Email)
	})

	t.Run("UpsertCheck keys on employee, integration and external id", func(t *testing.T) {
		reset(t)

		employeeID, err := s.ResolveIdentity(ctx, pgTestOrg, "checked@example.com", pgTestNow)
		require.NoError(t, err)

		completed := pgTestNow.Add(-24 * time.Hour)
		check := &models.BackgroundCheck{
			ID:            uuid.NewString(),
			EmployeeID:    employeeID,
			IntegrationID: "int-checkr",
			ExternalID:    "chk-1",
			Status:        models.CheckPending,
			CreatedAt:     pgTestNow,
			UpdatedAt:     pgTestNow,
		}
		require.NoError(t, s.UpsertCheck(ctx, check))

		// Same logical check resynced with a terminal status.
		check.ID = uuid.NewString()
		check.Status = models.CheckClear
		check.CompletedAt = &completed
		check.UpdatedAt = pgTestNow.Add(time.Hour)
		require.NoError(t, s.UpsertCheck(ctx, check))

		rows, err := s.ListChecksByEmployee(ctx, employeeID)
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, models.CheckClear, rows[0].Status)

		latest, err := s.LatestCheckByEmployee(ctx, employeeID)
		require.NoError(t, err)
		assert.Equal(t, "chk-1", latest.ExternalID)
	})

	t.Run("ReplaceAccess keeps one row per integration", func(t *testing.T) {
		reset(t)

		employeeID, err := s.ResolveIdentity(ctx, pgTestOrg, "access@example.com", pgTestNow)
		require.NoError(t, err)

		mfaOff, mfaOn := false, true
		require.NoError(t, s.ReplaceAccess(ctx, &models.AccessRecord{
			ID:            uuid.NewString(),
			EmployeeID:    employeeID,
			IntegrationID: "int-okta",
			Systems:       []models.SystemAccess{{System: "github"}},
			MFAEnabled:    &mfaOff,
			CreatedAt:     pgTestNow,
			UpdatedAt:     pgTestNow,
		}))
		require.NoError(t, s.ReplaceAccess(ctx, &models.AccessRecord{
			ID:            uuid.NewString(),
			EmployeeID:    employeeID,
			IntegrationID: "int-okta",
			Systems:       []models.SystemAccess{{System: "github"}, {System: "aws", Role: "admin"}},
			MFAEnabled:    &mfaOn,
			CreatedAt:     pgTestNow,
			UpdatedAt:     pgTestNow.Add(time.Hour),
		}))

		rows, err := s.ListAccessByEmployee(ctx, employeeID)
		require.NoError(t, err)
		require.Len(t, rows, 1)
		require.NotNil(t, rows[0].MFAEnabled)
		assert.True(t, *rows[0].MFAEnabled)
		assert.Equal(t, []models.SystemAccess{{System: "github"}, {System: "aws", Role: "admin"}}, rows[0].Systems)

		latest, err := s.LatestAccessByEmployee(ctx, employeeID)
		require.NoError(t, err)
		assert.Equal(t, id.IntegrationID("int-okta"), latest.IntegrationID)
	})

	t.Run("ActiveScoreSummaries excludes inactive employees", func(t *testing.T) {
		reset(t)

		activeID, err := s.UpsertRoster(ctx, &models.CorrelatedEmployee{
			OrgID:            pgTestOrg,
			Email:            "active@example.com",
			EmploymentStatus: models.EmploymentActive,
			LastCorrelatedAt: pgTestNow,
		})
		require.NoError(t, err)
		require.NoError(t, s.UpdateScore(ctx, activeID, 80, nil, pgTestNow))

		goneID, err := s.UpsertRoster(ctx, &models.CorrelatedEmployee{
			OrgID:            pgTestOrg,
			Email:            "gone@example.com",
			EmploymentStatus: models.EmploymentTerminated,
			LastCorrelatedAt: pgTestNow,
		})
		require.NoError(t, err)
		require.NoError(t, s.UpdateScore(ctx, goneID, 10, nil, pgTestNow))

		summaries, err := s.ActiveScoreSummaries(ctx, pgTestOrg)
		require.NoError(t, err)
		require.Len(t, summaries, 1)
		assert.Equal(t, activeID, summaries[0].EmployeeID)
	})
}
