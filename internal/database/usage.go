package database

import (
	"context"
	"time"

	"killfocus/internal/killer"
)

// UsageSource serves the focus history as killer usage records
type UsageSource struct {
	repo *Repository
}

func NewUsageSource(repo *Repository) *UsageSource {
	return &UsageSource{repo: repo}
}

func (s *UsageSource) QueryRecentUsage(ctx context.Context, start, end time.Time) ([]killer.UsageRecord, error) {
	usage, err := s.repo.RecentUsage(ctx, start, end)
	if err != nil {
		return nil, err
	}

	records := make([]killer.UsageRecord, 0, len(usage))
	for _, u := range usage {
		records = append(records, killer.UsageRecord{
			PackageID:     u.AppName,
			LastEventType: killer.ParseEventType(u.EventType),
			LastUsed:      u.LastUsed.UnixMilli(),
		})
	}
	return records, nil
}
