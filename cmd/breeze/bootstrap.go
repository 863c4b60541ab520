package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"breeze-trading-bot/internal/api"
	"breeze-trading-bot/internal/broker/breeze"
	"breeze-trading-bot/internal/broker/brokerobs"
	"breeze-trading-bot/internal/interfaces"
	"breeze-trading-bot/internal/logger"
	"breeze-trading-bot/internal/sessionlog"
	"breeze-trading-bot/internal/store"
	"breeze-trading-bot/internal/trace"
	"breeze-trading-bot/internal/types"
)

// app holds everything a command needs. It is built once per invocation
// by bootstrap and torn down by shutdown.
type app struct {
	cfg      *store.Config
	creds    types.Credentials
	store    *store.SessionStore
	sessions interfaces.Sessions
	account  interfaces.AccountReader
	journal  *sessionlog.Journal
}

type bootstrapOptions struct {
	configPath string
	envFiles   []string
	noStore    bool
}

// initializeSystem loads .env files and initializes logger and tracer
func initializeSystem(envFiles []string) error {
	// A missing .env is fine; the environment may already be set
	_ = godotenv.Load(envFiles...)

	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	if err := trace.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize tracer: %v\n", err)
	}
	return nil
}

// loadConfig loads and returns the configuration
func loadConfig(ctx context.Context, path string) (*store.Config, error) {
	cfg, err := store.LoadConfig(path)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to load config", err, "path", path)
		return nil, err
	}
	return cfg, nil
}

// openSessionStore opens the badger session store when one is configured.
// A store that cannot be opened is logged and skipped.
func openSessionStore(ctx context.Context, cfg *store.Config) *store.SessionStore {
	if cfg.Session.StorePath == "" {
		return nil
	}
	key, err := store.ParseStoreKey(os.Getenv(cfg.Session.StoreKeyEnv))
	if err != nil {
		logger.Warn(ctx, "Ignoring invalid session store key", "env", cfg.Session.StoreKeyEnv, "error", err)
		key = nil
	}
	if key == nil {
		logger.Warn(ctx, "Session store is not encrypted", "env", cfg.Session.StoreKeyEnv)
	}
	st, err := store.OpenSessionStore(store.SessionStoreOptions{
		Path:          cfg.Session.StorePath,
		EncryptionKey: key,
	})
	if err != nil {
		logger.Warn(ctx, "Session store unavailable - sessions will not be reused", "path", cfg.Session.StorePath, "error", err)
		return nil
	}
	return st
}

// initializeBroker builds the session manager and account client with
// observability
func initializeBroker(cfg *store.Config, creds types.Credentials, st *store.SessionStore) (interfaces.Sessions, interfaces.AccountReader) {
	httpClient := api.NewClient(
		api.WithBaseURL(creds.BaseURL),
		api.WithTimeout(cfg.HTTP.Timeout),
		api.WithHeader("User-Agent", cfg.HTTP.UserAgent),
		api.WithLogging(cfg.HTTP.Debug),
	)

	opts := []breeze.Option{
		breeze.WithEndpoints(cfg.BreezeEndpoints()),
		breeze.WithValidity(cfg.Session.Validity),
	}
	if st != nil {
		opts = append(opts, breeze.WithSessionStore(st))
	}

	manager := breeze.NewSessionManager(httpClient, opts...)
	account := breeze.NewAccountClient(manager)

	return brokerobs.WrapSessions(manager), brokerobs.Wrap(account)
}

func bootstrap(ctx context.Context, opts bootstrapOptions) (*app, error) {
	if err := initializeSystem(opts.envFiles); err != nil {
		return nil, err
	}

	cfg, err := loadConfig(ctx, opts.configPath)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:     cfg,
		creds:   store.LoadCredentials(),
		journal: sessionlog.New(""),
	}
	if !opts.noStore {
		a.store = openSessionStore(ctx, cfg)
	}
	a.sessions, a.account = initializeBroker(cfg, a.creds, a.store)
	return a, nil
}

// ensureSession reuses a stored session when possible and authenticates
// otherwise.
func (a *app) ensureSession(ctx context.Context) (*types.Session, error) {
	if s, ok := a.sessions.CurrentSession(); ok {
		return s, nil
	}
	if s, ok := a.sessions.Restore(ctx, a.creds); ok {
		a.record(ctx, sessionlog.Entry{Event: "restored", UserID: s.UserID, ExpiresAt: s.ExpiresAt().Format("2006-01-02 15:04:05")})
		return s, nil
	}
	return a.login(ctx)
}

func (a *app) login(ctx context.Context) (*types.Session, error) {
	s, err := a.sessions.Authenticate(ctx, a.creds)
	if err != nil {
		a.record(ctx, sessionlog.Entry{Event: "authenticate_failed", Error: err.Error()})
		return nil, err
	}
	a.record(ctx, sessionlog.Entry{Event: "authenticated", UserID: s.UserID, ExpiresAt: s.ExpiresAt().Format("2006-01-02 15:04:05")})
	return s, nil
}

func (a *app) logout(ctx context.Context) error {
	s, _ := a.sessions.CurrentSession()
	err := a.sessions.Logout(ctx)

	e := sessionlog.Entry{Event: "logout"}
	if s != nil {
		e.UserID = s.UserID
	}
	var logoutErr *breeze.LogoutError
	if errors.As(err, &logoutErr) {
		e.Error = logoutErr.Error()
	}
	a.record(ctx, e)
	return err
}

func (a *app) record(ctx context.Context, e sessionlog.Entry) {
	e.Environment = a.creds.Environment
	if err := a.journal.Append(e); err != nil {
		logger.Warn(ctx, "Failed to write session journal", "dir", a.journal.Dir(), "error", err)
	}
}

func (a *app) shutdown(ctx context.Context) {
	if days, ok := retentionDays(ctx); ok {
		if err := a.journal.CompressOlder(days); err != nil {
			logger.Warn(ctx, "Failed to compress old session journals", "error", err)
		}
	}
	if err := a.store.Close(); err != nil {
		logger.Warn(ctx, "Failed to close session store", "error", err)
	}
	if err := trace.Shutdown(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to shutdown tracer: %v\n", err)
	}
	_ = logger.Close()
}

// retentionDays reads BREEZE_SESSION_LOG_RETENTION_DAYS. Unset or invalid
// values disable journal compression; invalid ones are logged.
func retentionDays(ctx context.Context) (int, bool) {
	v := strings.TrimSpace(os.Getenv("BREEZE_SESSION_LOG_RETENTION_DAYS"))
	if v == "" {
		return 0, false
	}
	days, err := strconv.Atoi(v)
	if err != nil || days <= 0 {
		logger.Warn(ctx, "Ignoring invalid BREEZE_SESSION_LOG_RETENTION_DAYS", "value", v)
		return 0, false
	}
	return days, true
}
