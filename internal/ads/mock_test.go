package ads

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockClient_CreateCampaign(t *testing.T) {
	m := NewMockClient("meta")
	ctx := context.Background()

	c, err := m.CreateCampaign(ctx, CampaignRequest{
		Name:        "Spring push",
		Objective:   "lead_generation",
		DailyBudget: 500,
		StartDate:   "2026-09-01",
		EndDate:     "2026-09-30",
	})
	require.NoError(t, err)
	assert.Equal(t, "meta", c.Platform)
	assert.Equal(t, "pending_review", c.Status)
	assert.NotEmpty(t, c.CampaignID)

	// Same inputs, same id.
	c2, err := m.CreateCampaign(ctx, CampaignRequest{
		Name: "Spring push", Objective: "lead_generation",
		DailyBudget: 500, StartDate: "2026-09-01", EndDate: "2026-09-30",
	})
	require.NoError(t, err)
	assert.Equal(t, c.CampaignID, c2.CampaignID)

	_, err = m.CreateCampaign(ctx, CampaignRequest{Name: "", DailyBudget: 100})
	assert.Error(t, err)
	_, err = m.CreateCampaign(ctx, CampaignRequest{Name: "x", DailyBudget: 0})
	assert.Error(t, err)
}

func TestMockClient_ApprovalStatus_Deterministic(t *testing.T) {
	m := NewMockClient("google")
	ctx := context.Background()

	first, err := m.ApprovalStatus(ctx, "google_12345")
	require.NoError(t, err)
	assert.Contains(t, []string{"active", "rejected"}, first)

	// Status for a given campaign never flip-flops.
	for i := 0; i < 5; i++ {
		again, err := m.ApprovalStatus(ctx, "google_12345")
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestMockClient_Performance(t *testing.T) {
	m := NewMockClient("meta")
	ctx := context.Background()
	from := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 8, 7, 0, 0, 0, 0, time.UTC)

	p, err := m.Performance(ctx, "meta_777", from, to)
	require.NoError(t, err)

	assert.Equal(t, "meta_777", p.CampaignID)
	assert.Equal(t, "2026-08-01..2026-08-07", p.DateRange)
	assert.Greater(t, p.Impressions, int64(0))
	assert.Greater(t, p.Clicks, int64(0))
	assert.Greater(t, p.Spend, 0.0)
	assert.GreaterOrEqual(t, p.Clicks, p.Conversions)
	assert.InDelta(t, float64(p.Clicks)/float64(p.Impressions)*100, p.CTR, 1e-9)
	assert.InDelta(t, p.Spend/float64(p.Clicks), p.CPC, 1e-9)

	// Same campaign and range yields identical metrics.
	p2, err := m.Performance(ctx, "meta_777", from, to)
	require.NoError(t, err)
	assert.Equal(t, p, p2)

	// A different range yields a different seed.
	p3, err := m.Performance(ctx, "meta_777", from, to.AddDate(0, 0, 7))
	require.NoError(t, err)
	assert.NotEqual(t, p.DateRange, p3.DateRange)
}
