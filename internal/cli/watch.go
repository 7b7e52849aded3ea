package cli

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/zaziork/photocat-client/internal/engine"
	"github.com/zaziork/photocat-client/pkg/config"
	"github.com/zaziork/photocat-client/pkg/logger"
	"github.com/zaziork/photocat-client/pkg/middleware/requestid"
	"github.com/zaziork/photocat-client/pkg/response"
)

func newWatchCmd(app *App) *cobra.Command {
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Keep the catalog in sync on an interval, with a local status endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd.Context(), app, resolveWatchInterval(interval, app.cfg.Catalog.WatchInterval))
		},
	}

	cmd.Flags().DurationVar(&interval, "interval", 0, "refresh interval (0 uses the configured default)")
	return cmd
}

// resolveWatchInterval prefers the flag, then config, then a one-minute
// floor. The refresh ticker panics on a non-positive interval, and
// WATCH_INTERVAL=0s in the environment parses as a legal zero.
func resolveWatchInterval(flag, configured time.Duration) time.Duration {
	if flag > 0 {
		return flag
	}
	if configured > 0 {
		return configured
	}
	return time.Minute
}

func runWatch(parent context.Context, app *App, interval time.Duration) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var srv *http.Server
	if app.cfg.Debug.Enabled {
		srv = newDebugServer(app)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				app.logger.Error("debug server failed", zap.Error(err))
			}
		}()
		app.logger.Info("debug server listening", zap.String("addr", srv.Addr))
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// First sync happens right away rather than one interval in.
	_ = app.engine.FetchRecords(ctx, engine.GetRecordsOptions{})

	for {
		select {
		case <-ctx.Done():
			if srv != nil {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = srv.Shutdown(shutdownCtx)
			}
			return nil
		case <-ticker.C:
			if err := app.engine.FetchRecords(ctx, engine.GetRecordsOptions{}); err != nil {
				app.logger.Warn("refresh failed", zap.Error(err))
				continue
			}
			rec := app.engine.Store().Snapshot()
			app.logger.Info("catalog refreshed",
				zap.Int("results", len(rec.Results)),
				zap.Int("page", rec.Meta.Page),
				zap.Uint64("revision", rec.Revision))
		}
	}
}

// newDebugServer exposes local health, sync status and metrics. It is an
// observability surface for the running client, not part of the photo API.
func newDebugServer(app *App) *http.Server {
	if app.cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestid.Middleware())
	r.Use(logger.GinMiddleware(app.logger.Named("debug")))

	r.GET("/healthz", func(c *gin.Context) {
		response.JSON(c, http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/status", func(c *gin.Context) {
		rec := app.engine.Store().Snapshot()
		response.JSON(c, http.StatusOK, gin.H{
			"auth":     app.engine.Store().AuthMeta(),
			"meta":     rec.Meta,
			"results":  len(rec.Results),
			"revision": rec.Revision,
			"message":  app.engine.Status(),
		})
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return &http.Server{
		Addr:    fmt.Sprintf(":%d", app.cfg.Debug.Port),
		Handler: r,
	}
}
