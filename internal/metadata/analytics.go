package metadata

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/lgulliver/simpledrive/pkg/types"
	"gorm.io/gorm"
)

// activityWindow is how far back RecentActivity reaches
const activityWindow = 30 * 24 * time.Hour

// GetStorageStats returns blob counts and sizes overall and per provider
func (s *Service) GetStorageStats(ctx context.Context, query *StatsQuery) (*StorageStats, error) {
	if query == nil {
		query = &StatsQuery{}
	}
	stats := &StorageStats{}

	var totals struct {
		Count int64
		Bytes int64
	}
	if err := s.filtered(ctx, query).
		Select("COUNT(*) AS count, COALESCE(SUM(size), 0) AS bytes").
		Scan(&totals).Error; err != nil {
		return nil, fmt.Errorf("failed to sum blobs: %w", err)
	}
	stats.TotalBlobs = totals.Count
	stats.TotalBytes = totals.Bytes

	providers, err := s.getProviderBreakdown(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get provider breakdown: %w", err)
	}
	stats.Providers = providers

	activity, err := s.getRecentActivity(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent activity: %w", err)
	}
	stats.RecentActivity = activity

	return stats, nil
}

func (s *Service) filtered(ctx context.Context, query *StatsQuery) *gorm.DB {
	db := s.db.WithContext(ctx).Model(&types.Blob{})
	if query.Provider != "" {
		db = db.Where("storage_provider = ?", query.Provider)
	}
	if query.StartDate != nil {
		db = db.Where("created_at >= ?", *query.StartDate)
	}
	if query.EndDate != nil {
		db = db.Where("created_at <= ?", *query.EndDate)
	}
	return db
}

func (s *Service) getProviderBreakdown(ctx context.Context, query *StatsQuery) ([]ProviderStats, error) {
	var rows []ProviderStats
	err := s.filtered(ctx, query).
		Select("storage_provider AS provider, COUNT(*) AS blob_count, COALESCE(SUM(size), 0) AS bytes").
		Group("storage_provider").
		Order("storage_provider").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// getRecentActivity buckets blobs created inside the activity window by UTC day
func (s *Service) getRecentActivity(ctx context.Context, query *StatsQuery) ([]ActivityPoint, error) {
	var rows []struct {
		Size      int64
		CreatedAt time.Time
	}
	since := time.Now().Add(-activityWindow)
	err := s.filtered(ctx, query).
		Select("size, created_at").
		Where("created_at >= ?", since).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	byDay := make(map[string]*ActivityPoint)
	for _, row := range rows {
		day := row.CreatedAt.UTC().Format("2006-01-02")
		point, ok := byDay[day]
		if !ok {
			point = &ActivityPoint{Date: day}
			byDay[day] = point
		}
		point.Blobs++
		point.Bytes += row.Size
	}

	activity := make([]ActivityPoint, 0, len(byDay))
	for _, point := range byDay {
		activity = append(activity, *point)
	}
	sort.Slice(activity, func(i, j int) bool { return activity[i].Date < activity[j].Date })
	return activity, nil
}
