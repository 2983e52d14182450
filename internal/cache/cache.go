package cache

import (
	"context"
	"time"

	"laundrydesk/backend/internal/domain"
)

// ReportSnapshot bundles the two derived views so one cache round-trip
// serves a full dashboard render.
type ReportSnapshot struct {
	Dashboard domain.DashboardStats `json:"dashboard"`
	Finance   domain.FinanceSummary `json:"finance"`
}

type ReportCache interface {
	Get(ctx context.Context, key string) (*ReportSnapshot, bool, error)
	Set(ctx context.Context, key string, value *ReportSnapshot, ttl time.Duration) error
}

type NoopReportCache struct{}

func (NoopReportCache) Get(_ context.Context, _ string) (*ReportSnapshot, bool, error) {
	return nil, false, nil
}

func (NoopReportCache) Set(_ context.Context, _ string, _ *ReportSnapshot, _ time.Duration) error {
	return nil
}
