package agent

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/mwantia/fabric/pkg/container"
	config "github.com/mwantia/godeid/internal/config/server"
	"github.com/mwantia/godeid/pkg/db/store"
	"github.com/mwantia/godeid/pkg/log"
	"github.com/mwantia/godeid/pkg/pipeline"
)

type GodeidAgent struct {
	mutex sync.RWMutex
	wait  sync.WaitGroup

	cfg *config.BaseServerConfig
	sc  *container.ServiceContainer
	log log.LoggerService

	store    store.MappingStore
	outgoing pipeline.OutputDataPlugin
	incoming pipeline.InputDataPlugin
}

func NewAgent(cfg *config.BaseServerConfig) *GodeidAgent {
	return &GodeidAgent{
		cfg: cfg,
		sc:  container.NewServiceContainer(),
		log: log.NewLoggerService("godeid", cfg.Log),
	}
}

// Store exposes the mapping store for the duration of the agent's lifetime.
func (ga *GodeidAgent) Store() store.MappingStore {
	ga.mutex.RLock()
	defer ga.mutex.RUnlock()
	return ga.store
}

func (ga *GodeidAgent) setupServices(ctx context.Context) error {
	errs := container.Errors{}

	ga.log.Debug("Registering 'LoggerService'...")
	errs.Add(container.Register[log.LoggerServiceImpl](ga.sc,
		container.With[log.LoggerService](),
		container.WithInstance(ga.log)))

	storeCfg, err := BuildStoreConfig(ga.cfg.Database)
	if err != nil {
		return err
	}

	ga.log.Debug("Setting up '%s' mapping store...", ga.cfg.Database.Type)
	ga.store, err = store.New(storeCfg, ga.log.Named("store"))
	if err != nil {
		return fmt.Errorf("failed to create mapping store: %w", err)
	}
	if err := ga.store.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect mapping store: %w", err)
	}
	if err := ga.store.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to migrate mapping store: %w", err)
	}

	deps := pipeline.Dependencies{
		Config: ga.cfg.Plugins,
		Store:  ga.store,
		Log:    ga.log,
	}

	// A plugin that fails construction is disabled, not fatal to the agent.
	if name := ga.cfg.Plugins.Outgoing; name != "" {
		ga.outgoing, err = pipeline.NewOutput(name, deps)
		if err != nil {
			ga.log.Error("Output plugin '%s' disabled: %v", name, err)
		}
	}
	if name := ga.cfg.Plugins.Incoming; name != "" {
		ga.incoming, err = pipeline.NewInput(name, deps)
		if err != nil {
			ga.log.Error("Input plugin '%s' disabled: %v", name, err)
		}
	}

	return errs.Errors()
}

func (ga *GodeidAgent) Serve(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt)
	defer cancel()

	ga.mutex.Lock()

	if err := ga.setupServices(ctx); err != nil {
		ga.mutex.Unlock()
		return err
	}

	ga.mutex.Unlock()
	<-ctx.Done()

	timeout, err := time.ParseDuration(ga.cfg.ShutdownTimeout)
	if err != nil {
		// Set default of 60 seconds if error
		timeout = 60 * time.Second
	}

	shutdown, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := ga.sc.Cleanup(shutdown); err != nil {
		return fmt.Errorf("failed to complete service container cleanup: %w", err)
	}

	if ga.store != nil {
		if err := ga.store.Close(); err != nil {
			ga.log.Error("Failed to close mapping store: %v", err)
		}
	}

	ga.wait.Wait()
	return nil
}

// BuildStoreConfig translates the server configuration into the store
// factory's configuration.
func BuildStoreConfig(cfg config.DatabaseServerConfig) (store.Config, error) {
	delays, err := cfg.RetryDelayDurations()
	if err != nil {
		return store.Config{}, err
	}
	retention, err := cfg.RetentionDuration()
	if err != nil {
		return store.Config{}, err
	}

	return store.Config{
		Type:        cfg.Type,
		RetryDelays: delays,
		SQLite: store.SQLiteConfig{
			Path: cfg.SQLite.Path,
		},
		Redis: store.RedisConfig{
			Addr:      cfg.Redis.Addr,
			Password:  cfg.Redis.Password,
			DB:        cfg.Redis.DB,
			Retention: retention,
		},
	}, nil
}
