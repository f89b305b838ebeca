package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"

	"socialharvest/internal/store/sqlite"
	"socialharvest/pkg/auth"
	"socialharvest/pkg/config"
	"socialharvest/pkg/executor"
	"socialharvest/pkg/logger"
	"socialharvest/pkg/orchestrator"
	"socialharvest/pkg/platform"
	"socialharvest/pkg/platform/instagram"
	"socialharvest/pkg/proxy"
	"socialharvest/pkg/ratelimit"
	"socialharvest/pkg/ui"
)

// engine bundles the wired collection stack behind the CLI commands.
type engine struct {
	cfg      *config.Config
	store    *sqlite.Store
	registry *platform.Registry
	proxies  *proxy.Pool
	limiter  *ratelimit.Limiter
	orch     *orchestrator.Orchestrator
	log      logger.Logger
}

// loadConfig merges the persistent flags over the file and environment
// configuration and initializes logging. Exits on invalid configuration.
func loadConfig() *config.Config {
	flags := make(map[string]interface{})
	if storagePath != "" {
		flags["storage"] = storagePath
	}
	if logLevel != "info" {
		flags["log-level"] = logLevel
	}
	if logFormat != "" {
		flags["log-format"] = logFormat
	}

	cfg, err := config.Load(configFile, flags)
	if err != nil {
		ui.PrintError("Failed to load configuration", err.Error())
		os.Exit(1)
	}

	if err := logger.Initialize(&cfg.Logging); err != nil {
		ui.PrintError("Failed to initialize logging", err.Error())
		os.Exit(1)
	}
	return cfg
}

// applyStoredCredentials fills platform credentials from the credential
// manager for platforms the configuration leaves blank. With accountName
// set, that stored account is required and overrides the configuration.
func applyStoredCredentials(cfg *config.Config, accountName string) {
	manager, err := auth.NewManager()
	if err != nil {
		logger.WithError(err).Debug("credential manager unavailable")
		return
	}

	for name, pc := range cfg.Platforms {
		var creds *auth.Credentials
		if accountName != "" {
			creds, err = manager.Retrieve(name, accountName)
			if err != nil {
				continue
			}
		} else {
			if pc.SessionID != "" || pc.AccessToken != "" {
				continue
			}
			creds, err = manager.RetrieveDefault(name)
			if err != nil {
				continue
			}
		}

		pc.SessionID = creds.SessionID
		pc.CSRFToken = creds.CSRFToken
		pc.AccessToken = creds.AccessToken
		if creds.UserAgent != "" {
			pc.UserAgent = creds.UserAgent
		}
		cfg.Platforms[name] = pc
		logger.WithFields(map[string]interface{}{
			"platform": name,
			"account":  creds.Username,
		}).Info("using stored credentials")
	}
}

// openStore opens just the storage layer for commands that inspect or
// administer stored data without collecting.
func openStore(ctx context.Context) (*config.Config, *sqlite.Store) {
	cfg := loadConfig()
	store, err := sqlite.Open(ctx, cfg.Storage.Path)
	if err != nil {
		ui.PrintError("Failed to open storage", err.Error())
		os.Exit(1)
	}
	return cfg, store
}

// buildEngine opens storage and assembles the proxy pool, rate limiter,
// per-platform executors and the orchestrator on top of them.
func buildEngine(ctx context.Context, cfg *config.Config) (*engine, error) {
	log := logger.GetLogger()

	store, err := sqlite.Open(ctx, cfg.Storage.Path)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	pool := proxy.New(&cfg.Proxy, log)
	limiter := ratelimit.New(log)
	for name, pc := range cfg.Platforms {
		limiter.SetQuota(name, pc.RequestsPerHour, pc.RequestsPerDay)
	}

	registry := platform.NewRegistry()
	orch := orchestrator.New(registry, store, store, cfg.Engine.MaxConcurrent, log)

	for name := range cfg.Platforms {
		switch name {
		case platform.Instagram:
			exec := executor.New(cfg, name, pool, limiter, log)
			registry.Register(instagram.New(exec, cfg, log))
			orch.Manage(exec)
		default:
			log.WithField("platform", name).Debug("no collector implemented, platform skipped")
		}
	}

	return &engine{
		cfg:      cfg,
		store:    store,
		registry: registry,
		proxies:  pool,
		limiter:  limiter,
		orch:     orch,
		log:      log,
	}, nil
}

// Close shuts the orchestrator down before the storage it writes to.
func (e *engine) Close() {
	e.orch.Close()
	if err := e.store.Close(); err != nil {
		e.log.WithError(err).Warn("closing storage")
	}
}

// resolveInfluencer finds a tracked influencer by handle, registering it
// with defaults when it is not tracked yet. Lookup comes first so a bare
// handle never overwrites the stored display name or schedule.
func (e *engine) resolveInfluencer(ctx context.Context, platformName, username string) (*platform.Influencer, error) {
	inf, err := e.store.InfluencerByHandle(ctx, platformName, username)
	if err == nil {
		return inf, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	inf, err = e.store.AddInfluencer(ctx, &platform.Influencer{
		Platform: platformName,
		Username: username,
	})
	if err != nil {
		return nil, err
	}
	e.log.WithFields(map[string]interface{}{
		"platform": platformName,
		"username": username,
	}).Info("influencer registered")
	return inf, nil
}
