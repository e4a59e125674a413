package database

import (
	"context"
	"strings"
	"time"

	"killfocus/internal/models"

	"github.com/pkg/errors"

	"gorm.io/gorm"
)

// Repository handles all database operations for focus events
type Repository struct {
	db *DB
}

// NewRepository creates a new repository instance
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new focus event into the database
func (r *Repository) Create(event *models.FocusEvent) error {
	event.AppName = strings.ToLower(event.AppName)
	event.Timestamp = event.Timestamp.UTC()
	result := r.db.Create(event)
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to insert focus event")
	}
	return nil
}

// RecentUsage returns, per app, the last event recorded in [since, until].
// The query returns raw events and the folding happens here.
func (r *Repository) RecentUsage(ctx context.Context, since, until time.Time) ([]models.AppUsage, error) {
	var events []*models.FocusEvent
	result := r.db.WithContext(ctx).
		Select("app_name", "event_type", "timestamp").
		Where("timestamp >= ? AND timestamp <= ?", since.UTC(), until.UTC()).
		Order("timestamp ASC").
		Order("id ASC").
		Find(&events)

	if result.Error != nil {
		return nil, errors.Wrap(result.Error, "failed to query recent usage")
	}

	latest := make(map[string]int)
	var usage []models.AppUsage
	for _, e := range events {
		u := models.AppUsage{AppName: e.AppName, EventType: e.EventType, LastUsed: e.Timestamp}
		if i, ok := latest[e.AppName]; ok {
			usage[i] = u
			continue
		}
		latest[e.AppName] = len(usage)
		usage = append(usage, u)
	}

	return usage, nil
}

// DeleteOldEvents permanently deletes events older than before
func (r *Repository) DeleteOldEvents(before time.Time) (int64, error) {
	result := r.db.Unscoped().Where("timestamp < ?", before.UTC()).Delete(&models.FocusEvent{})
	if result.Error != nil {
		return 0, errors.Wrap(result.Error, "failed to delete old events")
	}
	return result.RowsAffected, nil
}

// GetLatest retrieves the most recent focus event
func (r *Repository) GetLatest() (*models.FocusEvent, error) {
	var event models.FocusEvent
	result := r.db.Order("timestamp DESC").Order("id DESC").First(&event)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, errors.Wrap(result.Error, "failed to get latest event")
	}
	return &event, nil
}

// CreateErrorLog inserts a new error log into the database
func (r *Repository) CreateErrorLog(errorLog *models.ErrorLog) error {
	result := r.db.Create(errorLog)
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to insert error log")
	}
	return nil
}

// DeleteOldErrorLogs permanently deletes error logs older than before
func (r *Repository) DeleteOldErrorLogs(before time.Time) (int64, error) {
	result := r.db.Unscoped().Where("timestamp < ?", before.UTC()).Delete(&models.ErrorLog{})
	if result.Error != nil {
		return 0, errors.Wrap(result.Error, "failed to delete old error logs")
	}
	return result.RowsAffected, nil
}

// Clear removes all focus events from the database
func (r *Repository) Clear() error {
	result := r.db.Exec("DELETE FROM focus_events")
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to clear focus events")
	}
	return nil
}
