package config

import (
	"fmt"
	"os"
	"time"
)

// Config holds all application configuration
type Config struct {
	// Database configuration
	Database DatabaseConfig

	// Tracker configuration
	Tracker TrackerConfig

	// Killer configuration
	Killer KillerConfig

	// Daemon configuration
	Daemon DaemonConfig

	// Web server configuration
	Web WebConfig

	// Logging configuration
	Logging LogConfig
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	Path string `envconfig:"DB_PATH"` // Path to SQLite database file
}

// TrackerConfig holds focus tracking configuration
type TrackerConfig struct {
	PollInterval    time.Duration `envconfig:"POLL_INTERVAL"` // How often to check the focused window
	MinPollInterval time.Duration `ignored:"true"`
	MaxPollInterval time.Duration `ignored:"true"`
	Retention       time.Duration `envconfig:"RETENTION"` // How long focus events are kept
}

// KillerConfig holds kill invocation configuration
type KillerConfig struct {
	Enabled             bool          `envconfig:"KILL_ENABLED"`
	UsageWindow         time.Duration `envconfig:"USAGE_WINDOW"`  // History window scanned for the foreground app
	QueryTimeout        time.Duration `envconfig:"QUERY_TIMEOUT"` // Bound on usage and task queries
	SystemUIPackage     string        `envconfig:"SYSTEMUI_PACKAGE"`
	FallbackHomePackage string        `envconfig:"HOME_PACKAGE"` // Used when the desktop app cannot be resolved
	UserID              int           `envconfig:"USER_ID"`
	KioskMode           bool          `envconfig:"KIOSK_MODE"` // Pins the session; kills are refused
	Locale              string        `envconfig:"LOCALE"`
}

// DaemonConfig holds daemon process configuration
type DaemonConfig struct {
	PIDFile string `envconfig:"PID_FILE"` // Path to PID file for daemon management
}

// WebConfig holds web server configuration
type WebConfig struct {
	Host         string        `envconfig:"WEB_HOST"`
	Port         int           `envconfig:"WEB_PORT"`
	KillDebounce time.Duration `envconfig:"KILL_DEBOUNCE"` // Minimum gap between kill triggers
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL"`
	Development bool   `envconfig:"LOG_DEV"`
	File        string `envconfig:"LOG_FILE"`
}

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path: "", // Empty means use default ~/.config/killfocus/killfocus.db
		},
		Tracker: TrackerConfig{
			PollInterval:    time.Second,
			MinPollInterval: 250 * time.Millisecond,
			MaxPollInterval: 30 * time.Second,
			Retention:       7 * 24 * time.Hour,
		},
		Killer: KillerConfig{
			Enabled:             true,
			UsageWindow:         60 * time.Minute,
			QueryTimeout:        2 * time.Second,
			SystemUIPackage:     "gnome-shell",
			FallbackHomePackage: "nautilus",
			UserID:              os.Getuid(),
			Locale:              "",
		},
		Daemon: DaemonConfig{
			PIDFile: fmt.Sprintf("/tmp/killfocus-%d.pid", os.Getuid()),
		},
		Web: WebConfig{
			Host:         "localhost",
			Port:         20000 + os.Getuid()%10000,
			KillDebounce: 500 * time.Millisecond,
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Tracker.PollInterval < c.Tracker.MinPollInterval {
		return fmt.Errorf("poll interval (%v) cannot be less than minimum (%v)",
			c.Tracker.PollInterval, c.Tracker.MinPollInterval)
	}

	if c.Tracker.PollInterval > c.Tracker.MaxPollInterval {
		return fmt.Errorf("poll interval (%v) cannot be greater than maximum (%v)",
			c.Tracker.PollInterval, c.Tracker.MaxPollInterval)
	}

	if c.Tracker.Retention < c.Killer.UsageWindow {
		return fmt.Errorf("retention (%v) cannot be shorter than the usage window (%v)",
			c.Tracker.Retention, c.Killer.UsageWindow)
	}

	if c.Killer.UsageWindow <= 0 {
		return fmt.Errorf("usage window must be positive, got %v", c.Killer.UsageWindow)
	}

	if c.Killer.QueryTimeout <= 0 {
		return fmt.Errorf("query timeout must be positive, got %v", c.Killer.QueryTimeout)
	}

	if c.Killer.SystemUIPackage == "" {
		return fmt.Errorf("system UI package cannot be empty")
	}

	if c.Killer.UserID < 0 {
		return fmt.Errorf("user id cannot be negative")
	}

	if c.Web.Port < 1 || c.Web.Port > 65535 {
		return fmt.Errorf("web port must be between 1 and 65535, got %d", c.Web.Port)
	}

	if c.Web.Host == "" {
		return fmt.Errorf("web host cannot be empty")
	}

	if c.Web.KillDebounce < 0 {
		return fmt.Errorf("kill debounce cannot be negative")
	}

	if c.Daemon.PIDFile == "" {
		return fmt.Errorf("PID file path cannot be empty")
	}

	return nil
}

// SetPollInterval sets the poll interval with validation
func (c *Config) SetPollInterval(interval time.Duration) error {
	if interval < c.Tracker.MinPollInterval {
		return fmt.Errorf("poll interval cannot be less than %v", c.Tracker.MinPollInterval)
	}
	if interval > c.Tracker.MaxPollInterval {
		return fmt.Errorf("poll interval cannot be greater than %v", c.Tracker.MaxPollInterval)
	}
	c.Tracker.PollInterval = interval
	return nil
}

// SetWebPort sets the web server port with validation
func (c *Config) SetWebPort(port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", port)
	}
	c.Web.Port = port
	return nil
}

// String returns a string representation of the config
func (c *Config) String() string {
	return fmt.Sprintf(`Configuration:
  Database:
    Path: %s
  Tracker:
    Poll Interval: %v
    Retention: %v
  Killer:
    Enabled: %v
    Usage Window: %v
    Query Timeout: %v
    System UI: %s
    Fallback Home: %s
    User ID: %d
    Kiosk Mode: %v
  Daemon:
    PID File: %s
  Web:
    Host: %s
    Port: %d
    Kill Debounce: %v`,
		c.Database.Path,
		c.Tracker.PollInterval,
		c.Tracker.Retention,
		c.Killer.Enabled,
		c.Killer.UsageWindow,
		c.Killer.QueryTimeout,
		c.Killer.SystemUIPackage,
		c.Killer.FallbackHomePackage,
		c.Killer.UserID,
		c.Killer.KioskMode,
		c.Daemon.PIDFile,
		c.Web.Host,
		c.Web.Port,
		c.Web.KillDebounce,
	)
}
