package ads

import (
	"context"
	"fmt"
	"hash/fnv"
	"time"
)

// MockClient is the dev/test implementation of Client. Metrics are derived
// from a hash of the campaign id and date range so repeated fetches return
// identical numbers.
type MockClient struct {
	Platform string // "meta" | "google"
}

func NewMockClient(platform string) *MockClient {
	return &MockClient{Platform: platform}
}

func (m *MockClient) CreateCampaign(ctx context.Context, req CampaignRequest) (*Campaign, error) {
	if req.Name == "" {
		return nil, fmt.Errorf("campaign name is required")
	}
	if req.DailyBudget <= 0 {
		return nil, fmt.Errorf("daily budget must be positive")
	}
	return &Campaign{
		CampaignID: fmt.Sprintf("%s_%d", m.Platform, seed(req.Name+req.StartDate)),
		Platform:   m.Platform,
		Status:     "pending_review",
	}, nil
}

func (m *MockClient) ApprovalStatus(ctx context.Context, campaignID string) (string, error) {
	// Roughly one in eight campaigns fails review.
	if seed(campaignID)%8 == 0 {
		return "rejected", nil
	}
	return "active", nil
}

func (m *MockClient) Performance(ctx context.Context, campaignID string, from, to time.Time) (*Performance, error) {
	days := int64(to.Sub(from).Hours()/24) + 1
	if days < 1 {
		days = 1
	}

	s := seed(campaignID + from.Format("2006-01-02") + to.Format("2006-01-02"))
	impressions := int64(1000+s%9000) * days
	clicks := impressions * int64(1+s%5) / 100
	if clicks == 0 {
		clicks = 1
	}
	spend := float64(clicks) * (2 + float64(s%300)/100)
	conversions := clicks * int64(2+s%8) / 100

	return &Performance{
		CampaignID:  campaignID,
		Impressions: impressions,
		Clicks:      clicks,
		Spend:       spend,
		Conversions: conversions,
		CTR:         float64(clicks) / float64(impressions) * 100,
		CPC:         spend / float64(clicks),
		DateRange:   from.Format("2006-01-02") + ".." + to.Format("2006-01-02"),
	}, nil
}

func seed(s string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return h.Sum64()
}
