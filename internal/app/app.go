package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/vk/coingraph/internal/config"
	"github.com/vk/coingraph/internal/ctxlog"
	cfglang "github.com/vk/coingraph/internal/hcl"
	"github.com/vk/coingraph/internal/registry"
)

// Loader abstracts the configuration front end so tests can supply
// pre-parsed models.
type Loader interface {
	Load(ctx context.Context, paths ...string) (*config.Model, error)
}

// App encapsulates the application's dependencies, configuration and lifecycle.
type App struct {
	outW       io.Writer
	logger     *slog.Logger
	config     *Config
	registry   *registry.Registry
	model      *config.Model
	converter  *cfglang.Converter
	httpServer *http.Server
}

// NewApp is the constructor for the main application. It returns a fully
// initialized App instance, including its own isolated logger and registry.
// Configuration errors at this stage are fatal and panic; the caller is
// expected to recover and present them cleanly.
func NewApp(outW io.Writer, appConfig *Config, loader Loader, modules ...registry.Module) *App {
	logger := newLogger(appConfig.LogLevel, appConfig.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	model, err := loader.Load(ctx, appConfig.GraphPath)
	if err != nil {
		panic(fmt.Errorf("failed to load graph configuration: %w", err))
	}
	logger.Debug("Graph configuration loaded into unified model.")

	reg := registry.New()
	if len(modules) == 0 {
		modules = coreModules
	}
	for _, mod := range modules {
		mod.Register(reg)
	}
	logger.Debug("All agent modules registered.", "count", len(modules))

	if err := reg.Validate(ctx); err != nil {
		// A mismatch between module code and declared inputs is a programmer
		// error, so we panic.
		panic(err)
	}
	logger.Debug("Registry validation passed.")

	return &App{
		outW:      outW,
		logger:    logger,
		config:    appConfig,
		registry:  reg,
		model:     model,
		converter: cfglang.NewConverter(),
	}
}

// Registry returns the application's registry. This is primarily for testing.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

// Model returns the loaded configuration model. This is primarily for testing.
func (a *App) Model() *config.Model {
	return a.model
}
