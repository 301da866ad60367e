package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/codyseavey/tcg-inventory/backend/internal/models"
)

// SummarySource supplies the totals a snapshot records.
type SummarySource interface {
	Summary(ctx context.Context) (*models.InventorySummary, error)
}

// SnapshotService records the inventory value once a day
type SnapshotService struct {
	db            *gorm.DB
	source        SummarySource
	mu            sync.Mutex
	lastSnapshot  time.Time
	snapshotHour  int // Hour of day to take snapshot (0-23)
	checkInterval time.Duration
	now           func() time.Time
}

func NewSnapshotService(db *gorm.DB, source SummarySource, snapshotHour int, checkInterval time.Duration) *SnapshotService {
	if checkInterval <= 0 {
		checkInterval = 15 * time.Minute
	}
	return &SnapshotService{
		db:            db,
		source:        source,
		snapshotHour:  snapshotHour,
		checkInterval: checkInterval,
		now:           time.Now,
	}
}

// Start runs the snapshot worker until ctx is cancelled
func (s *SnapshotService) Start(ctx context.Context) {
	log.Info().Int("hour", s.snapshotHour).Msg("snapshot service started")

	// A restart after the snapshot hour should not skip the day.
	s.checkAndSnapshot(ctx)

	ticker := time.NewTicker(s.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("snapshot service stopping")
			return
		case <-ticker.C:
			s.checkAndSnapshot(ctx)
		}
	}
}

func (s *SnapshotService) checkAndSnapshot(ctx context.Context) {
	now := s.now()
	if s.hasSnapshotForDate(ctx, startOfDay(now)) {
		return
	}
	if now.Hour() >= s.snapshotHour {
		if _, err := s.TakeSnapshot(ctx); err != nil {
			log.Error().Err(err).Msg("failed to take value snapshot")
		}
	}
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func (s *SnapshotService) hasSnapshotForDate(ctx context.Context, day time.Time) bool {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.ValueSnapshot{}).
		Where("snapshot_date >= ? AND snapshot_date < ?", day, day.Add(24*time.Hour)).
		Count(&count).Error
	if err != nil {
		log.Warn().Err(err).Msg("failed to check for existing snapshot")
		return false
	}
	return count > 0
}

// TakeSnapshot records today's totals, replacing any earlier snapshot for
// the same day.
func (s *SnapshotService) TakeSnapshot(ctx context.Context) (*models.ValueSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	summary, err := s.source.Summary(ctx)
	if err != nil {
		return nil, fmt.Errorf("compute summary: %w", err)
	}

	now := s.now()
	snapshot := models.ValueSnapshot{SnapshotDate: startOfDay(now), CreatedAt: now}
	err = s.db.WithContext(ctx).
		Where(models.ValueSnapshot{SnapshotDate: snapshot.SnapshotDate}).
		Assign(models.ValueSnapshot{
			StockCount:    summary.StockCount,
			DistinctCards: summary.DistinctCards,
			TotalValue:    summary.TotalValue,
			TotalCost:     summary.TotalCost,
		}).
		FirstOrCreate(&snapshot).Error
	if err != nil {
		return nil, fmt.Errorf("save snapshot: %w", err)
	}

	s.lastSnapshot = now
	log.Info().
		Str("date", snapshot.SnapshotDate.Format("2006-01-02")).
		Str("total_value", summary.TotalValue.StringFixed(2)).
		Int("stock_count", summary.StockCount).
		Msg("recorded value snapshot")
	return &snapshot, nil
}

// GetHistory returns snapshots for "week", "month", "3month", "year" or
// "all", oldest first. Unknown periods mean a month.
func (s *SnapshotService) GetHistory(ctx context.Context, period string) ([]models.ValueSnapshot, error) {
	now := s.now()
	var startDate time.Time

	switch period {
	case "week":
		startDate = now.AddDate(0, 0, -7)
	case "month":
		startDate = now.AddDate(0, -1, 0)
	case "3month":
		startDate = now.AddDate(0, -3, 0)
	case "year":
		startDate = now.AddDate(-1, 0, 0)
	case "all":
	default:
		startDate = now.AddDate(0, -1, 0)
	}

	query := s.db.WithContext(ctx).Order("snapshot_date ASC")
	if !startDate.IsZero() {
		query = query.Where("snapshot_date >= ?", startDate)
	}

	snapshots := []models.ValueSnapshot{}
	if err := query.Find(&snapshots).Error; err != nil {
		return nil, fmt.Errorf("load snapshot history: %w", err)
	}
	return snapshots, nil
}

// GetLastSnapshot returns the most recent snapshot, or nil if none exist
func (s *SnapshotService) GetLastSnapshot(ctx context.Context) *models.ValueSnapshot {
	var snapshot models.ValueSnapshot
	if err := s.db.WithContext(ctx).Order("snapshot_date DESC").First(&snapshot).Error; err != nil {
		return nil
	}
	return &snapshot
}
