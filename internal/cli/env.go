package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/fragmede/shopterm/internal/api"
	"github.com/fragmede/shopterm/internal/auth"
	"github.com/fragmede/shopterm/internal/cache"
	"github.com/fragmede/shopterm/internal/config"
	"github.com/fragmede/shopterm/internal/logger"
)

// env holds everything a command needs, built once per invocation.
type env struct {
	cfg     config.Config
	log     zerolog.Logger
	db      *cache.DB
	session *auth.Session
	gateway *api.Gateway
	client  *api.Client
	logFile *os.File
}

// setup loads config, opens the cache and log file, and restores the
// persisted session. The caller must Close the result.
func setup(f *globalFlags) (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if f.apiURL != "" {
		cfg.APIBaseURL = f.apiURL
	}
	if f.logLevel != "" {
		cfg.LogLevel = f.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(cfg.CacheDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache dir: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(cfg.LogPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating log dir: %w", err)
	}
	logFile, err := os.OpenFile(cfg.LogPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}
	log := logger.Init(cfg.LogLevel, cfg.LogFormat, logFile)

	db, err := cache.Open(cfg.DBPath)
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("opening cache: %w", err)
	}

	session := auth.NewSession(sessionStore(cfg, db), log)
	if err := session.Restore(); err != nil {
		// A corrupt or unreadable session only means signing in again.
		log.Warn().Err(err).Msg("could not restore session")
	}

	gw := api.NewGateway(api.GatewayConfig{
		BaseURL:           cfg.APIBaseURL,
		RequestTimeout:    cfg.RequestTimeout,
		RefreshTimeout:    cfg.RefreshTimeout,
		RequestsPerSecond: cfg.RequestsPerSecond,
	}, session, api.WithLogger(log), api.WithSessionTerminated(func(err error) {
		log.Warn().Err(err).Msg("session terminated")
	}))

	log.Debug().
		Str("api", cfg.APIBaseURL).
		Str("session_backend", cfg.SessionBackend).
		Bool("authenticated", session.IsAuthenticated()).
		Msg("starting")

	return &env{
		cfg:     cfg,
		log:     log,
		db:      db,
		session: session,
		gateway: gw,
		client:  api.NewClient(gw),
		logFile: logFile,
	}, nil
}

func sessionStore(cfg config.Config, db *cache.DB) auth.Store {
	if cfg.SessionBackend == config.SessionBackendKeyring {
		return auth.NewKeyringStore(cfg.APIBaseURL)
	}
	return cache.NewSessionStore(db, cfg.APIBaseURL)
}

func (e *env) Close() {
	if err := e.db.Close(); err != nil {
		e.log.Error().Err(err).Msg("closing cache")
	}
	e.logFile.Close()
}
