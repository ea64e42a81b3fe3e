// Package project assembles the coordination components for one checkout
// from its configuration and environment.
package project

import (
	"context"
	"time"

	"github.com/grovetools/coord/config"
	"github.com/grovetools/coord/git"
	"github.com/grovetools/coord/logging"
	"github.com/grovetools/coord/pkg/conflict"
	"github.com/grovetools/coord/pkg/coord"
	"github.com/grovetools/coord/pkg/profiling"
	"github.com/grovetools/coord/pkg/registry"
	"github.com/grovetools/coord/pkg/sessions"
	"github.com/grovetools/coord/pkg/syncmon"
	"github.com/grovetools/coord/pkg/wip"
	"github.com/grovetools/coord/state"
)

// Options controls how a Project is opened.
type Options struct {
	// Dir is where root discovery starts. Empty means the working directory.
	Dir string
	// SessionID is the id carried by a hook payload, if any.
	SessionID string
	// Component names the logger handed to every component.
	Component string
	// Now overrides the clock.
	Now func() time.Time
	// ConfigFile loads this file instead of searching from the root.
	ConfigFile string
	// Config skips loading when set.
	Config *config.Config
	// LogLevel overrides the configured log level.
	LogLevel string
}

// Project is a fully wired coordination layer for one checkout.
type Project struct {
	Config    *config.Config
	Context   *coord.Context
	Store     registry.Store
	State     *state.File
	Sessions  *sessions.Manager
	Sync      *syncmon.Monitor
	Conflicts *conflict.Detector
}

// Open resolves the project root and session id, loads configuration,
// configures logging and builds every component.
func Open(ctx context.Context, opts Options) (*Project, error) {
	defer profiling.Start("project.open").Stop()
	component := opts.Component
	if component == "" {
		component = "coord"
	}
	boot := logging.NewLogger("config")

	root, err := coord.ResolveRoot(opts.Dir)
	if err != nil {
		return nil, err
	}
	if err := coord.LoadEnvFile(root); err != nil {
		boot.WithError(err).Warn("Failed to load " + coord.EnvFile)
	}

	cfg := opts.Config
	switch {
	case cfg != nil:
	case opts.ConfigFile != "":
		if cfg, err = config.Load(opts.ConfigFile); err != nil {
			return nil, err
		}
		config.ApplyEnv(cfg, boot.Logger)
	default:
		if cfg, err = config.LoadOrDefault(root, boot.Logger); err != nil {
			return nil, err
		}
	}

	var ctxOpts []coord.Option
	if opts.Now != nil {
		ctxOpts = append(ctxOpts, coord.WithClock(opts.Now))
	}
	c, err := coord.FromConfig(root, "", cfg, ctxOpts...)
	if err != nil {
		return nil, err
	}

	logging.Configure(logging.Options{
		Config: logging.ConfigFrom(cfg),
		LogDir: c.LogDir(),
		Level:  opts.LogLevel,
	})
	c.Logger = logging.NewLogger(component)

	st := state.Open(c.StatePath())
	id, err := coord.ResolveSessionID(st, opts.SessionID, c.Identity, c.Clock())
	if err != nil {
		if id == "" {
			return nil, err
		}
		c.Logger.WithError(err).Warn("Session id not remembered")
	}
	c.SessionID = id

	store, err := registry.Open(ctx, cfg.Registry, root, c.RegistryDir)
	if err != nil {
		return nil, err
	}

	repo := git.NewCLIRepository()
	mgr := sessions.NewManager(c, store, sessions.WithRepository(repo), sessions.WithStateFile(st))
	// The sync cache describes this checkout, so it stays local whatever
	// backend holds the shared records.
	mon := syncmon.NewMonitor(c, registry.NewFileStore(c.RegistryDir),
		syncmon.WithGit(repo),
		syncmon.WithSettings(syncmon.SettingsFromConfig(cfg)))

	return &Project{
		Config:    cfg,
		Context:   c,
		Store:     store,
		State:     st,
		Sessions:  mgr,
		Sync:      mon,
		Conflicts: conflict.NewDetector(c, mgr.WIP(), mon, conflict.WithStatus(repo)),
	}, nil
}

// WIP returns the registry of work-in-progress records.
func (p *Project) WIP() *wip.Registry {
	return p.Sessions.WIP()
}

// Mode returns the configured conflict mode.
func (p *Project) Mode() conflict.Mode {
	m, _ := conflict.ParseMode(p.Config.Coordination.ConflictMode)
	return m
}

// LogDir is where component log files are written.
func (p *Project) LogDir() string {
	return p.Context.LogDir()
}

// Close releases the record store.
func (p *Project) Close() error {
	return p.Store.Close()
}
