package tracker

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"killfocus/internal/config"
	"killfocus/internal/models"
	"killfocus/pkg/window"
)

const pruneEvery = time.Hour

// EventStore is where focus transitions are written
type EventStore interface {
	Create(event *models.FocusEvent) error
	CreateErrorLog(errorLog *models.ErrorLog) error
	DeleteOldEvents(before time.Time) (int64, error)
	DeleteOldErrorLogs(before time.Time) (int64, error)
}

// Observer is notified of every stored transition
type Observer interface {
	ObserveFocusEvent(eventType string)
}

// Service polls the focused window and records foreground and background
// transitions per app.
type Service struct {
	config   *config.Config
	store    EventStore
	detector window.Detector
	observer Observer
	logger   *zap.Logger
	now      func() time.Time

	mu        sync.Mutex
	stopChan  chan struct{}
	running   bool
	current   *window.WindowInfo
	lastPrune time.Time
}

func NewService(cfg *config.Config, store EventStore, detector window.Detector, observer Observer, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		config:   cfg,
		store:    store,
		detector: detector,
		observer: observer,
		logger:   logger.Named("tracker"),
		now:      time.Now,
		stopChan: make(chan struct{}),
	}
}

// Start blocks until ctx is cancelled or Stop is called
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("tracker is already running")
	}
	s.running = true
	stop := s.stopChan
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	s.logger.Info("Starting tracker",
		zap.Duration("poll_interval", s.config.Tracker.PollInterval),
		zap.Duration("retention", s.config.Tracker.Retention),
		zap.String("display_server", s.detector.GetDisplayServer()))

	ticker := time.NewTicker(s.config.Tracker.PollInterval)
	defer ticker.Stop()

	s.poll()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Tracker stopped by context")
			return ctx.Err()

		case <-stop:
			s.logger.Info("Tracker stopped")
			return nil

		case <-ticker.C:
			s.poll()
		}
	}
}

func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		close(s.stopChan)
		s.stopChan = make(chan struct{})
	}
}

func (s *Service) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Current is the app the tracker last saw in the foreground, or nil
func (s *Service) Current() *window.WindowInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil
	}
	w := *s.current
	return &w
}

func (s *Service) poll() {
	if err := s.trackOnce(); err != nil {
		s.storeError(err)
	}
	if err := s.pruneIfDue(); err != nil {
		s.storeError(err)
	}
}

// trackOnce records a BACKGROUND event for the app losing focus and a
// FOREGROUND event for the app gaining it. Focus moving between windows of
// the same app is not a transition.
func (s *Service) trackOnce() error {
	focused, err := s.detector.GetFocusedWindow()
	if err != nil {
		return errors.Wrap(err, "failed to get focused window")
	}
	if focused != nil && focused.AppName == "" {
		focused = nil
	}

	s.mu.Lock()
	previous := s.current
	s.mu.Unlock()

	if samePackage(previous, focused) {
		return nil
	}

	now := s.now()
	if previous != nil {
		if err := s.record(previous, models.EventBackground, now); err != nil {
			return err
		}
	}
	if focused != nil {
		if err := s.record(focused, models.EventForeground, now); err != nil {
			return err
		}
		s.logger.Debug("Focus changed", zap.String("app", focused.AppName), zap.String("title", focused.WindowTitle))
	}

	s.mu.Lock()
	s.current = focused
	s.mu.Unlock()
	return nil
}

func (s *Service) record(w *window.WindowInfo, eventType string, at time.Time) error {
	event := &models.FocusEvent{
		Timestamp:     at,
		AppName:       w.AppName,
		EventType:     eventType,
		WindowTitle:   w.WindowTitle,
		WindowID:      w.ID,
		PID:           w.PID,
		DisplayServer: w.DisplayServer,
	}
	if err := s.store.Create(event); err != nil {
		return errors.Wrapf(err, "failed to save %s event for %s", eventType, w.AppName)
	}
	if s.observer != nil {
		s.observer.ObserveFocusEvent(eventType)
	}
	return nil
}

func (s *Service) pruneIfDue() error {
	now := s.now()
	if !s.lastPrune.IsZero() && now.Sub(s.lastPrune) < pruneEvery {
		return nil
	}
	s.lastPrune = now

	cutoff := now.Add(-s.config.Tracker.Retention)
	deleted, err := s.store.DeleteOldEvents(cutoff)
	if err != nil {
		return errors.Wrap(err, "failed to prune old events")
	}
	deletedLogs, err := s.store.DeleteOldErrorLogs(cutoff)
	if err != nil {
		return errors.Wrap(err, "failed to prune old error logs")
	}
	if deleted > 0 || deletedLogs > 0 {
		s.logger.Info("Pruned old records",
			zap.Int64("focus_events", deleted),
			zap.Int64("error_logs", deletedLogs))
	}
	return nil
}

func (s *Service) storeError(err error) {
	errorLog := &models.ErrorLog{
		Timestamp: s.now(),
		Source:    "tracker",
		ErrorMsg:  err.Error(),
	}

	if dbErr := s.store.CreateErrorLog(errorLog); dbErr != nil {
		s.logger.Error("Failed to store error in database", zap.Error(dbErr), zap.NamedError("original", err))
		return
	}
	s.logger.Warn("Tracker error", zap.Error(err))
}

func samePackage(a, b *window.WindowInfo) bool {
	if a == nil || b == nil {
		return a == b
	}
	return strings.EqualFold(a.AppName, b.AppName)
}
