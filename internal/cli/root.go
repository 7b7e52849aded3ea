package cli

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/zaziork/photocat-client/internal/api"
	"github.com/zaziork/photocat-client/internal/engine"
	"github.com/zaziork/photocat-client/internal/models"
	"github.com/zaziork/photocat-client/internal/session"
	"github.com/zaziork/photocat-client/internal/store"
	"github.com/zaziork/photocat-client/pkg/cache"
	"github.com/zaziork/photocat-client/pkg/config"
	"github.com/zaziork/photocat-client/pkg/logger"
)

// App holds the wired engine stack shared by all commands.
type App struct {
	cfg       *config.Config
	logger    *zap.Logger
	credStore *session.CredentialStore
	gate      *session.Gate
	engine    *engine.Engine
}

func (a *App) init() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	a.cfg = cfg

	logr, err := logger.New(cfg)
	if err != nil {
		return fmt.Errorf("initialising logger: %w", err)
	}
	a.logger = logr

	credStore, err := session.OpenCredentialStore(cfg.Session.DBPath)
	if err != nil {
		return fmt.Errorf("opening session store: %w", err)
	}
	a.credStore = credStore

	a.gate = session.NewGate(credStore, logr.Named("session"))

	client := api.New(api.Config{
		Route:     cfg.API.Route,
		DataRoute: cfg.API.DataRoute,
		Timeout:   cfg.API.Timeout,
	}, a.gate, a.gate, logr.Named("api"))

	st := store.New(models.RecordMeta{
		Page:  1,
		Limit: cfg.Catalog.PageLimit,
	}, logr.Named("store"))

	suggestions := cache.NewSuggestions(cfg.Cache.Size, cfg.Cache.TTL)

	a.engine = engine.New(client, a.gate, st, suggestions, validator.New(), logr.Named("engine"), engine.Config{
		SearchDebounce: cfg.Catalog.Debounce,
		PageLimit:      cfg.Catalog.PageLimit,
	})

	// Restoring a persisted credential flips the gate, which fires the
	// initial record fetch.
	if err := a.gate.Restore(); err != nil {
		logr.Warn("session restore failed", zap.Error(err))
	}
	return nil
}

func (a *App) close() {
	if a.engine != nil {
		a.engine.Wait()
		a.engine.Close()
	}
	if a.credStore != nil {
		_ = a.credStore.Close()
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}
}

// NewRootCmd assembles the photocat command tree.
func NewRootCmd() *cobra.Command {
	app := &App{}

	cmd := &cobra.Command{
		Use:           "photocat",
		Short:         "Terminal client for the photo management API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return app.init()
	}
	cmd.PersistentPostRun = func(cmd *cobra.Command, args []string) {
		app.close()
	}

	cmd.AddCommand(
		newLoginCmd(app),
		newLogoutCmd(app),
		newPasswdCmd(app),
		newListCmd(app),
		newSuggestCmd(app),
		newTagCmd(app),
		newRotateCmd(app),
		newReprocessCmd(app),
		newProcessCmd(app),
		newReplaceCmd(app),
		newPruneCmd(app),
		newWatchCmd(app),
	)

	return cmd
}
