// Package application is agentd's dependency-injection container: it
// wires config into the Router, Airlock, Skill Executor, Memory Vault,
// Agent Runtime, and every transport (HTTP, gRPC, Cloud Bridge).
// Grounded on the teacher's internal/application.App/NewApp, trimmed to
// this module's surface (no Telegram/REPL/TUI — spec §6 names HTTP,
// gRPC, and the Cloud Bridge as agentd's only external interfaces).
package application

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/duskcore/agentd/internal/airlock"
	"github.com/duskcore/agentd/internal/contextwindow"
	"github.com/duskcore/agentd/internal/domain/service"
	"github.com/duskcore/agentd/internal/infrastructure/config"
	"github.com/duskcore/agentd/internal/infrastructure/persistence"
	"github.com/duskcore/agentd/internal/interfaces/agentgrpc"
	"github.com/duskcore/agentd/internal/interfaces/cloudbridge"
	httpiface "github.com/duskcore/agentd/internal/interfaces/http"
	"github.com/duskcore/agentd/internal/router"
	"github.com/duskcore/agentd/internal/skill"
	"github.com/duskcore/agentd/internal/vault"

	_ "github.com/duskcore/agentd/internal/provider/anthropic" // register anthropic provider factory
	_ "github.com/duskcore/agentd/internal/provider/moonshot"  // register moonshot provider factory
	_ "github.com/duskcore/agentd/internal/provider/openai"    // register openai provider factory
	_ "github.com/duskcore/agentd/internal/provider/vendorsdk" // register vendorsdk provider factory
	_ "github.com/duskcore/agentd/internal/provider/xai"       // register xai provider factory

	"gorm.io/gorm"
)

// App is the assembled agentd process: every subsystem named in
// SPEC_FULL.md, ready to Start/Stop as a unit.
type App struct {
	config *config.Config
	logger *zap.Logger
	db     *gorm.DB

	router        *router.Router
	providerStore *persistence.ProviderConfigStore
	gate          *airlock.Airlock
	toolExec      *skill.Executor
	vaultDB       *vault.Store
	retriever     *vault.Retriever
	agentLoop     *service.AgentLoop

	httpServer  *httpiface.Server
	grpcServer  *agentgrpc.Server
	bridgeClient *cloudbridge.Client
	configWatcher *config.Watcher

	bridgeCancel context.CancelFunc
}

const localConfigPath = "config.yaml"

// New builds the full agentd process (the dependency-injection
// container), mirroring the teacher's NewApp: repositories, domain
// services, infrastructure, then interfaces, in that order.
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	app, err := newCore(cfg, logger)
	if err != nil {
		return nil, err
	}
	if err := app.initInterfaces(); err != nil {
		return nil, fmt.Errorf("init interfaces: %w", err)
	}
	return app, nil
}

// NewCLI builds agentd's Router/Airlock/Skill Executor/Runtime without
// starting the HTTP, gRPC, or Cloud Bridge transports, mirroring the
// teacher's NewAppCLI: agentctl drives the Runtime directly in-process
// for one-shot commands and has no need for a listening server.
func NewCLI(cfg *config.Config, logger *zap.Logger) (*App, error) {
	return newCore(cfg, logger)
}

func newCore(cfg *config.Config, logger *zap.Logger) (*App, error) {
	app := &App{config: cfg, logger: logger}

	if err := app.initPersistence(); err != nil {
		return nil, fmt.Errorf("init persistence: %w", err)
	}
	if err := app.initRouter(); err != nil {
		return nil, fmt.Errorf("init router: %w", err)
	}
	if err := app.initSkills(); err != nil {
		return nil, fmt.Errorf("init skills: %w", err)
	}
	if err := app.initAgentLoop(); err != nil {
		return nil, fmt.Errorf("init agent loop: %w", err)
	}
	if err := app.initConfigWatcher(); err != nil {
		return nil, fmt.Errorf("init config watcher: %w", err)
	}
	return app, nil
}

func (app *App) initPersistence() error {
	db, err := persistence.NewDBConnection(&app.config.Database)
	if err != nil {
		return err
	}
	app.db = db

	masterKey := []byte(os.Getenv(app.config.Vault.MasterKeyEnv))
	cipher, err := vault.NewCipher(masterKey)
	if err != nil {
		return fmt.Errorf("building vault cipher: %w", err)
	}
	store, err := vault.NewStore(db, cipher, app.logger)
	if err != nil {
		return fmt.Errorf("building vault store: %w", err)
	}
	app.vaultDB = store

	migrated, err := store.MigrateLegacyPlaintext(context.Background())
	if err != nil {
		return fmt.Errorf("migrating legacy plaintext memory: %w", err)
	}
	if migrated > 0 {
		app.logger.Info("migrated legacy plaintext memory rows on boot", zap.Int("count", migrated))
	}
	return nil
}

// initConfigWatcher wires the workspace config file's fsnotify watch (spec
// §9's hot-reload requirement): changes to skill.allowed_bins/
// allowed_domains/blocked_domains apply to the already-running Skill
// Executor without a process restart. A missing config.yaml means
// hot-reload is simply inactive, not an error.
func (app *App) initConfigWatcher() error {
	watcher, err := config.NewWatcher(localConfigPath, app.onConfigReload, app.logger)
	if err != nil {
		return err
	}
	app.configWatcher = watcher
	return nil
}

// onConfigReload applies a reloaded Config's tool-policy overrides to the
// live Skill Executor. Providers and agent-loop settings are intentionally
// left alone: changing the provider fleet or model mid-run belongs to the
// `/v1/providers` API (persisted, audited), not a silent file watch.
func (app *App) onConfigReload(cfg *config.Config) {
	app.config = cfg

	bins := make([]string, len(skill.DefaultAllowedBins), len(skill.DefaultAllowedBins)+len(cfg.Skill.AllowedBins))
	copy(bins, skill.DefaultAllowedBins)
	bins = append(bins, cfg.Skill.AllowedBins...)
	app.toolExec.Shell().SetAllowedBins(bins)
	app.toolExec.Web().SetDomainScope(cfg.Skill.AllowedDomains, cfg.Skill.BlockedDomains)
}

func (app *App) initRouter() error {
	rcfg := router.DefaultConfig()
	app.router = router.NewRouter(rcfg, app.logger)

	app.providerStore = persistence.NewProviderConfigStore(app.db)
	persisted, err := app.providerStore.FindAll(context.Background())
	if err != nil {
		return fmt.Errorf("loading persisted providers: %w", err)
	}

	configured := make([]router.ProviderConfig, 0, len(app.config.Providers)+len(persisted))
	for _, p := range app.config.Providers {
		configured = append(configured, router.ProviderConfig{
			ID: p.ID, Type: p.Type, BaseURL: p.BaseURL, APIKey: p.APIKey,
			Models: p.Models, Priority: p.Priority, Weight: p.Weight, Extra: p.Extra,
		})
	}
	configured = append(configured, persisted...)

	for _, pc := range configured {
		provider, err := router.CreateProvider(pc, app.logger)
		if err != nil {
			app.logger.Error("failed to create provider", zap.String("id", pc.ID), zap.Error(err))
			continue
		}
		app.router.AddProvider(provider)
	}
	if app.config.Agent.DefaultProvider != "" {
		app.router.SetDefaultProvider(app.config.Agent.DefaultProvider)
	}

	app.retriever = vault.NewRetriever(app.vaultDB, app.router)

	app.gate = airlock.New(app.config.Agent.Headless, nil, app.logger)
	return nil
}

func (app *App) initSkills() error {
	fs := skill.NewFilesystemHandler(app.logger)
	sh := skill.NewShellHandler(app.logger)
	for _, bin := range app.config.Skill.AllowedBins {
		sh.AddAllowedBin(bin)
	}
	web := skill.NewWebHandler(app.config.Skill.SearchURL, app.config.Skill.SearchAPIKey,
		app.config.Skill.AllowedDomains, app.config.Skill.BlockedDomains, app.logger)
	browser := skill.NewBrowserHandler(nil, app.logger)

	app.toolExec = skill.NewExecutor(fs, sh, web, browser, app.gate, app.logger)
	return nil
}

func (app *App) initAgentLoop() error {
	loopCfg := service.DefaultAgentLoopConfig()
	loopCfg.Model = app.config.Agent.DefaultModel
	if app.config.Agent.MaxIterations > 0 {
		loopCfg.MaxSteps = app.config.Agent.MaxIterations
	}

	maxCtxTokens := app.config.Agent.ContextMaxTokens
	app.agentLoop = service.NewAgentLoop(
		app.router,
		app.toolExec,
		app.retriever,
		contextwindow.Trim,
		maxCtxTokens,
		loopCfg,
		app.logger,
	)
	return nil
}

func (app *App) initInterfaces() error {
	app.httpServer = httpiface.NewServer(
		httpiface.Config{Host: app.config.Server.Host, Port: app.config.Server.Port, Mode: "production"},
		app.agentLoop, app.toolExec, app.router, app.providerStore, app.gate, app.vaultDB, app.retriever,
		app.config.CloudBridge.Token, app.logger,
	)

	grpcPort := app.config.Server.GRPCPort
	if grpcPort == 0 {
		grpcPort = 50051
	}
	app.grpcServer = agentgrpc.NewServer(app.agentLoop, app.toolExec, grpcPort, app.logger)

	if app.config.CloudBridge.Enabled {
		app.bridgeClient = cloudbridge.NewClient(
			app.config.CloudBridge.URL, app.config.CloudBridge.Token,
			app.config.CloudBridge.HeartbeatPeriod, app.config.CloudBridge.ReconnectBackoff,
			app.onDeployAgent, app.logger,
		)
	}
	return nil
}

// onDeployAgent handles a DEPLOY_AGENT frame from Cortex. No teacher
// analogue — the teacher's Cloud Bridge equivalent (websocket.Hub) never
// receives a deploy instruction from its peer. Deploying currently means
// logging the spec, since this module has no agent-spec store yet wired
// to accept one.
func (app *App) onDeployAgent(specID, downloadURL string) {
	app.logger.Info("received deploy instruction from cloud bridge",
		zap.String("spec_id", specID), zap.String("download_url", downloadURL))
}

// Start brings up every interface: HTTP, gRPC, and (if configured) the
// Cloud Bridge client.
func (app *App) Start(ctx context.Context) error {
	if err := app.httpServer.Start(ctx); err != nil {
		return fmt.Errorf("starting http server: %w", err)
	}
	if err := app.grpcServer.Start(); err != nil {
		app.logger.Warn("grpc server failed to start", zap.Error(err))
	}
	if app.bridgeClient != nil {
		bridgeCtx, cancel := context.WithCancel(ctx)
		app.bridgeCancel = cancel
		go app.bridgeClient.Run(bridgeCtx)
	}
	if app.configWatcher != nil {
		app.configWatcher.Start(ctx)
	}
	app.logger.Info("agentd started",
		zap.Int("http_port", app.config.Server.Port),
		zap.Int("grpc_port", app.config.Server.GRPCPort),
		zap.Bool("cloud_bridge", app.bridgeClient != nil),
	)
	return nil
}

// Stop tears down every interface in reverse order, then closes the db.
func (app *App) Stop(ctx context.Context) error {
	if app.bridgeCancel != nil {
		app.bridgeCancel()
	}
	if app.configWatcher != nil {
		if err := app.configWatcher.Close(); err != nil {
			app.logger.Warn("failed to close config watcher", zap.Error(err))
		}
	}
	app.grpcServer.Stop()
	if err := app.httpServer.Stop(ctx); err != nil {
		app.logger.Error("failed to stop http server", zap.Error(err))
	}
	if app.db != nil {
		if sqlDB, err := app.db.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				app.logger.Error("failed to close database", zap.Error(err))
			}
		}
	}
	app.logger.Info("agentd stopped")
	return nil
}

// Router exposes the Router for the CLI's provider management commands.
func (app *App) Router() *router.Router { return app.router }

// AgentLoop exposes the Runtime for the CLI's one-shot run command.
func (app *App) AgentLoop() *service.AgentLoop { return app.agentLoop }

// ToolExecutor exposes the Skill Executor for the CLI's skill command.
func (app *App) ToolExecutor() service.ToolExecutor { return app.toolExec }

// Logger returns the shared zap logger.
func (app *App) Logger() *zap.Logger { return app.logger }
