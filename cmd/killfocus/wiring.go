package main

import (
	"github.com/godbus/dbus/v5"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"killfocus/internal/config"
	"killfocus/internal/database"
	"killfocus/internal/killer"
	"killfocus/internal/metrics"
	"killfocus/pkg/desktop"
	"killfocus/pkg/detector"
	"killfocus/pkg/integrations/process"
	"killfocus/pkg/integrations/x11"
	"killfocus/pkg/session"
)

// services holds the long-lived resources a command needs
type services struct {
	cfg      *config.Config
	logger   *zap.Logger
	db       *database.DB
	repo     *database.Repository
	metrics  *metrics.Metrics
	detector *x11.Detector
	bus      *dbus.Conn
}

func openDatabase(cfg *config.Config) (*database.DB, *database.Repository, error) {
	db, err := database.Connect(cfg.Database.Path)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to connect to database")
	}
	if err := db.Initialize(); err != nil {
		db.Close()
		return nil, nil, errors.Wrap(err, "failed to initialize database")
	}
	return db, database.NewRepository(db), nil
}

func newServices(cfg *config.Config, logger *zap.Logger) (*services, error) {
	db, repo, err := openDatabase(cfg)
	if err != nil {
		return nil, err
	}

	det, err := detector.New()
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to initialize window detector")
	}

	svc := &services{
		cfg:      cfg,
		logger:   logger,
		db:       db,
		repo:     repo,
		metrics:  metrics.New(),
		detector: det,
	}

	// Without a session bus there is no notification daemon and no screen
	// locker to ask, so kills proceed silently.
	bus, err := dbus.ConnectSessionBus()
	if err != nil {
		logger.Warn("Session bus unavailable, notifications disabled", zap.Error(err))
	} else {
		svc.bus = bus
	}

	return svc, nil
}

func (svc *services) locale() string {
	if svc.cfg.Killer.Locale != "" {
		return svc.cfg.Killer.Locale
	}
	return session.SessionLocale()
}

func (svc *services) usageSource() *database.UsageSource {
	return database.NewUsageSource(svc.repo)
}

func (svc *services) orchestrator() *killer.Orchestrator {
	cfg := svc.cfg.Killer
	locale := svc.locale()

	tasks := x11.NewTaskManager(svc.detector)

	deps := killer.Deps{
		Usage:     svc.usageSource(),
		Tasks:     tasks,
		Processes: process.NewController().WithWindowOwners(tasks),
		Metadata:  desktop.NewSystemCatalog(locale),
		Home:      desktop.HomeChain{x11.NewHomeResolver(svc.detector), desktop.NewEnvHome()},
		Messages:  session.NewMessages(locale),
		Authority: session.NewAuthority(cfg.Enabled, cfg.UserID),
		LockTask:  session.NewLockTask(svc.bus, cfg.KioskMode),
		Recorder:  svc.metrics,
	}
	if svc.bus != nil {
		deps.Presenter = session.NewNotifier(svc.bus)
	}

	return killer.NewOrchestrator(killer.Options{
		UsageWindow:         cfg.UsageWindow,
		QueryTimeout:        cfg.QueryTimeout,
		SystemUIPackage:     cfg.SystemUIPackage,
		FallbackHomePackage: cfg.FallbackHomePackage,
		UserID:              cfg.UserID,
	}, deps, svc.logger)
}

func (svc *services) Close() {
	if svc.bus != nil {
		svc.bus.Close()
	}
	if svc.detector != nil {
		svc.detector.Close()
	}
	if svc.db != nil {
		svc.db.Close()
	}
}
