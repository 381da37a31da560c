package cli

import (
	"errors"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/kassist/kassist/internal/assistant"
	"github.com/kassist/kassist/internal/config"
	"github.com/kassist/kassist/internal/core"
	"github.com/kassist/kassist/internal/db"
	"github.com/kassist/kassist/internal/llm"
	"github.com/kassist/kassist/internal/logging"
	"github.com/kassist/kassist/internal/session"
)

// app is one fully wired assistant with the resources it owns.
type app struct {
	cfg       config.Config
	logger    *log.Logger
	assistant *assistant.Assistant
	history   *db.DB

	closers []io.Closer
}

// newApp loads configuration and wires a session, its collaborators and the
// orchestrator. Only an unusable output format is fatal: configuration,
// logging and history problems are reported and the app runs without them.
func newApp(cmd *cobra.Command, asker core.Asker) (*app, error) {
	// A missing .env is the normal case.
	_ = godotenv.Load(".env")

	project, err := projectPath()
	if err != nil {
		return nil, err
	}
	cfg, cfgErr := config.Load(config.LoadOptions{
		ProjectDir:    project,
		ConfigPath:    flagConfig,
		FlagOverrides: flagOverrides(),
	})

	a := &app{cfg: cfg}

	logger, logCloser, logErr := logging.New(logging.Options{
		Path:     config.ExpandPath(cfg.Logging.Path),
		Level:    cfg.Logging.Level,
		Fallback: cmd.ErrOrStderr(),
	})
	a.logger = logger
	a.closers = append(a.closers, logCloser)
	if logErr != nil {
		logger.Warn("log file unavailable", "path", cfg.Logging.Path, "err", logErr)
	}
	if cfgErr != nil {
		logger.Warn("configuration problems, using defaults", "err", cfgErr)
	}

	meta := session.Detect()
	sess := session.New(meta, cfg)
	logger.Info("session started", "session", meta.ID, "user", meta.User, "platform", meta.Platform)

	model, err := llm.New(cfg.API.Provider, llm.ProviderConfig{
		Endpoint:    cfg.API.OllamaEndpoint,
		BaseURL:     cfg.API.BaseURL,
		APIKey:      cfg.API.APIKey,
		Model:       cfg.API.Model,
		Temperature: cfg.API.Temperature,
		Timeout:     time.Duration(cfg.API.TimeoutSecs) * time.Second,
	})
	if err != nil {
		// Leaving the model nil makes every query answer with the fallback.
		logger.Error("model provider unavailable", "provider", cfg.API.Provider, "err", err)
	}

	matcher := buildMatcher(cfg.Security.ExtraPatterns, func(pattern string, err error) {
		logger.Warn("ignoring extra pattern", "pattern", pattern, "err", err)
	})

	executor := core.NewExecutor(core.ExecutorOptions{
		Timeout:        time.Duration(cfg.Security.TimeoutSecs) * time.Second,
		MaxOutputBytes: cfg.Security.MaxOutput,
		Shell:          cfg.Security.Shell,
		Dir:            project,
	})

	deps := assistant.Deps{
		Model:  model,
		Runner: executor,
		Asker:  asker,
		Gate:   core.NewGate(matcher),
		Logger: logger,
	}

	if cfg.History.Enabled {
		if history, err := openHistory(cfg, meta); err != nil {
			logger.Warn("command history disabled", "err", err)
		} else {
			a.history = history
			a.closers = append(a.closers, history)
			deps.Recorder = history
		}
	}

	a.assistant = assistant.New(sess, deps)
	return a, nil
}

// openHistory opens the history database and registers the session.
func openHistory(cfg config.Config, meta session.Metadata) (*db.DB, error) {
	history, err := db.OpenAndMigrate(config.ExpandPath(cfg.History.DatabasePath))
	if err != nil {
		return nil, err
	}
	err = history.CreateSession(&db.Session{
		ID:        meta.ID,
		User:      meta.User,
		Platform:  meta.Platform,
		Model:     cfg.API.Model,
		StartedAt: meta.StartTime,
	})
	if err != nil {
		_ = history.Close()
		return nil, err
	}
	return history, nil
}

// Close releases the history database and the log file.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
