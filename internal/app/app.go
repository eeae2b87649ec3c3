package app

import (
	"strings"
	"time"

	"github.com/metaversal/asset-portal/internal/auth"
	"github.com/metaversal/asset-portal/internal/client"
	"github.com/metaversal/asset-portal/internal/common"
	"github.com/metaversal/asset-portal/internal/config"
	"github.com/metaversal/asset-portal/internal/handlers"
	"github.com/metaversal/asset-portal/internal/seed"
	"github.com/metaversal/asset-portal/internal/store"
)

const defaultBackendTimeout = 30 * time.Second

// App holds all application components and dependencies.
type App struct {
	Config *config.Config
	Logger *common.Logger

	Client *client.MetaversalClient
	Gate   *auth.Gate
	Store  *store.AssetStore

	// HTTP handlers
	PageHandler      *handlers.PageHandler
	HealthHandler    *handlers.HealthHandler
	VersionHandler   *handlers.VersionHandler
	AuthHandler      *handlers.AuthHandler
	AssetsHandler    *handlers.AssetsHandler
	PortfolioHandler *handlers.PortfolioHandler
	HistoryHandler   *handlers.HistoryHandler
}

// New initializes the application with all dependencies.
func New(cfg *config.Config, logger *common.Logger) (*App, error) {
	a := &App{
		Config: cfg,
		Logger: logger,
	}

	env := strings.ToLower(strings.TrimSpace(cfg.Environment))
	if cfg.IsDevMode() {
		logger.Warn().Msg("RUNNING IN DEV MODE — demo asset seeding enabled, do not use in production")
	} else if env != "prod" && env != "" {
		logger.Warn().
			Str("environment", cfg.Environment).
			Msg("unrecognized environment value, defaulting to prod behavior")
	}

	a.initComponents()

	if cfg.IsDevMode() {
		go seed.DevAssets(a.Client, logger)
	}

	logger.Info().Msg("application initialization complete")

	return a, nil
}

// initComponents initializes the backend client, auth gate, asset store, and
// all HTTP handlers.
func (a *App) initComponents() {
	jwtSecret := []byte(a.Config.Auth.JWTSecret)

	timeout := defaultBackendTimeout
	if t, err := time.ParseDuration(a.Config.Backend.Timeout); err == nil && t > 0 {
		timeout = t
	}

	a.Client = client.NewMetaversalClient(a.Config.Backend.BaseURL, timeout)
	a.Gate = auth.NewGate(a.Client, a.Logger)
	a.Store = store.NewAssetStore(a.Client, a.Logger)

	a.PageHandler = handlers.NewPageHandler(a.Logger, a.Config.IsDevMode(), jwtSecret)
	a.HealthHandler = handlers.NewHealthHandler(a.Logger)
	a.VersionHandler = handlers.NewVersionHandler(a.Logger)
	a.AuthHandler = handlers.NewAuthHandler(
		a.Logger,
		a.Gate,
		a.Config.Auth.ProviderURL,
		a.Config.Auth.ProviderAppID,
		a.Config.Auth.CallbackURL,
	)
	a.AssetsHandler = handlers.NewAssetsHandler(a.Logger, a.Store, a.Client, a.Client, jwtSecret)
	a.PortfolioHandler = handlers.NewPortfolioHandler(a.Logger, a.Store, a.Client, a.Client, a.Client, jwtSecret)
	a.HistoryHandler = handlers.NewHistoryHandler(a.Logger, a.Store, a.Client, jwtSecret)

	a.Logger.Debug().Msg("HTTP handlers initialized")
}

// Close closes all application resources.
func (a *App) Close() error {
	return nil
}
