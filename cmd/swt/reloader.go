package main

import (
	"context"
	"fmt"
	"os"

	"github.com/swtk/swt/internal/bindings"
	"github.com/swtk/swt/internal/config"
	"github.com/swtk/swt/internal/util"
)

type reloadTarget interface {
	Reload(ctx context.Context, cfg *config.Config) error
}

type configReloader struct {
	path           string
	logger         *util.Logger
	target         reloadTarget
	lastConfig     *config.Config
	lastSerialized []byte
}

func newConfigReloader(path string, logger *util.Logger, target reloadTarget, cfg *config.Config, serialized []byte) *configReloader {
	return &configReloader{
		path:           path,
		logger:         logger,
		target:         target,
		lastConfig:     cfg,
		lastSerialized: append([]byte(nil), serialized...),
	}
}

// Reload re-reads the config file and hands it to the engine. A rejected file
// leaves the running configuration untouched.
func (r *configReloader) Reload(ctx context.Context, reason string) error {
	r.logger.Infof("%s, reloading config", reason)
	raw, err := os.ReadFile(r.path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	cfg, err := config.Parse(raw)
	if err != nil {
		r.logDiff(raw)
		return err
	}
	if _, err := bindings.Build(cfg.Keys); err != nil {
		r.logDiff(raw)
		return fmt.Errorf("compile key bindings: %w", err)
	}
	diff := config.Diff(r.lastConfig, cfg)
	if diff == "" {
		r.logger.Debugf("config unchanged")
		return nil
	}
	r.logger.Debugf("config changes:\n%s", diff)
	if err := r.target.Reload(ctx, cfg); err != nil {
		return fmt.Errorf("apply config: %w", err)
	}
	r.lastConfig = cfg
	r.lastSerialized = append([]byte(nil), raw...)
	return nil
}

func (r *configReloader) logDiff(current []byte) {
	diff := config.DiffSerialized(r.lastSerialized, current)
	if diff == "" {
		r.logger.Warnf("config change rejected; unable to compute diff vs last valid config")
		return
	}
	r.logger.Warnf("config change rejected; diff vs last valid config:\n%s", diff)
}
