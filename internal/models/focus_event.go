package models

import (
	"time"

	"gorm.io/gorm"
)

// Event types stored in focus_events.event_type
const (
	EventForeground = "foreground"
	EventBackground = "background"
)

// FocusEvent is one focus transition of an app's top-level window
type FocusEvent struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	Timestamp     time.Time      `gorm:"not null;index" json:"timestamp"`
	AppName       string         `gorm:"not null;index" json:"app_name"` // lower-cased WM_CLASS
	EventType     string         `gorm:"not null;index" json:"event_type"`
	WindowTitle   string         `gorm:"not null" json:"window_title"`
	WindowID      uint32         `gorm:"not null;default:0" json:"window_id"`
	PID           uint32         `gorm:"not null;default:0" json:"pid"`
	DisplayServer string         `gorm:"not null" json:"display_server"`
	CreatedAt     time.Time      `gorm:"autoCreateTime;index" json:"created_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}

// AppUsage is the latest event per app inside a window of time
type AppUsage struct {
	AppName   string    `json:"app_name"`
	EventType string    `json:"event_type"`
	LastUsed  time.Time `json:"last_used"`
}
