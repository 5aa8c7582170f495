// Package ads defines the port to external ad platforms (Meta, Google Ads).
// The domain only depends on this interface; the production implementation
// is swappable without touching any handler.
package ads

import (
	"context"
	"time"
)

// CampaignRequest is what a tenant submits to launch a campaign.
type CampaignRequest struct {
	Name        string  `json:"name"`
	Objective   string  `json:"objective"` // e.g. lead_generation, traffic
	DailyBudget float64 `json:"daily_budget"`
	StartDate   string  `json:"start_date"` // YYYY-MM-DD
	EndDate     string  `json:"end_date"`
}

// Campaign is the platform's view of a created campaign.
type Campaign struct {
	CampaignID string `json:"campaign_id"`
	Platform   string `json:"platform"`
	Status     string `json:"status"` // pending_review | active | rejected
}

// Performance is the metrics shape every platform is normalized to.
type Performance struct {
	CampaignID  string  `json:"campaign_id"`
	Impressions int64   `json:"impressions"`
	Clicks      int64   `json:"clicks"`
	Spend       float64 `json:"spend"`
	Conversions int64   `json:"conversions"`
	CTR         float64 `json:"ctr"`
	CPC         float64 `json:"cpc"`
	DateRange   string  `json:"date_range"`
}

// Client is implemented once per ad platform.
type Client interface {
	CreateCampaign(ctx context.Context, req CampaignRequest) (*Campaign, error)
	ApprovalStatus(ctx context.Context, campaignID string) (string, error)
	Performance(ctx context.Context, campaignID string, from, to time.Time) (*Performance, error)
}
