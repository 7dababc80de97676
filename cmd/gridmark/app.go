package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"gridmark/internal/config"
	"gridmark/internal/definitions"
	"gridmark/internal/repository/sqlite"
	"gridmark/internal/schema"
	"gridmark/internal/service"
)

// globalOptions are the persistent flags shared by every command
type globalOptions struct {
	configPath      string
	dbPath          string
	definitionsPath string
	logLevel        string
}

// app holds the wired services for one command invocation
type app struct {
	cfg        *config.Config
	configPath string
	logger     *slog.Logger
	repo       *sqlite.Repository
	bus        *service.EventBus
	definition definitions.Source

	projects  *service.ProjectService
	numbering *service.NumberingService
	fields    *service.FieldService
}

// loadConfig reads the config file and applies flag overrides
func loadConfig(opts *globalOptions) (*config.Config, string, error) {
	var (
		cfg  *config.Config
		path string
		err  error
	)
	if opts.configPath != "" {
		cfg, path, err = config.LoadFromPath(opts.configPath)
	} else {
		cfg, path, err = config.Load()
	}
	if err != nil {
		return nil, path, err
	}

	if err := applyOverrides(cfg, opts); err != nil {
		return nil, path, err
	}
	return cfg, path, nil
}

// applyOverrides copies set flags into cfg and validates the result
func applyOverrides(cfg *config.Config, opts *globalOptions) error {
	if opts.dbPath != "" {
		cfg.Database.Path = opts.dbPath
	}
	if opts.definitionsPath != "" {
		cfg.Definitions.Path = opts.definitionsPath
	}
	if opts.logLevel != "" {
		cfg.LogLevel = opts.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func newLogger(level string) *slog.Logger {
	lvl, _ := config.ParseLogLevel(level)
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

// newApp loads config, opens the model database and wires the services
func newApp(ctx context.Context, opts *globalOptions) (*app, error) {
	cfg, path, err := loadConfig(opts)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)
	if path != "" {
		logger.Debug("config loaded", "path", path)
	}

	repo, err := sqlite.New(cfg.Database.Path)
	if err != nil {
		return nil, err
	}
	repo.SetLogger(logger.With("component", "sqlite"))

	parameterGroup, _ := cfg.ParameterGroup()
	source := definitions.Source{Path: cfg.Definitions.Path}
	manager := schema.NewManager(source, repo, schema.Options{
		Group:          cfg.Definitions.Group,
		ParameterGroup: parameterGroup,
		Logger:         logger,
	})

	bus := service.NewEventBus()
	events := make(chan service.Event, 100)
	bus.Subscribe(events)
	go logEvents(ctx, events, logger.With("component", "events"))

	fieldNames := service.FieldNames{GridSquare: cfg.Fields.GridSquare, Number: cfg.Fields.Number}

	return &app{
		cfg:        cfg,
		configPath: path,
		logger:     logger,
		repo:       repo,
		bus:        bus,
		definition: source,
		projects:   service.NewProjectService(repo, bus, logger),
		numbering:  service.NewNumberingService(repo, repo, manager, fieldNames, bus, logger),
		fields:     service.NewFieldService(source, repo),
	}, nil
}

// logEvents logs bus events with their payloads until ctx is done or
// events is closed
func logEvents(ctx context.Context, events <-chan service.Event, logger *slog.Logger) {
	for {
		select {
		case e, ok := <-events:
			if !ok {
				return
			}
			logger.Debug("event", "type", e.Type, "payload", e.Payload)
		case <-ctx.Done():
			return
		}
	}
}

func (a *app) Close() error {
	return a.repo.Close()
}
