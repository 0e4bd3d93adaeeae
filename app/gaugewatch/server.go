package gaugewatch

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// runTimeout bounds a scheduled run so a hung node cannot hold the schedule forever.
const runTimeout = 10 * time.Minute

const readyTimeout = 2 * time.Second

// cronLogger adapts zap to the cron.Logger interface.
type cronLogger struct {
	l *zap.SugaredLogger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debugw(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Errorw(msg, append(keysAndValues, "error", err)...)
}

// SetupScheduler sets up the cron scheduler. Overlapping ticks are skipped, so at most one run
// executes at a time.
func (a *App) SetupScheduler(ctx context.Context, cronSpec string) error {
	logger := cronLogger{l: a.Logger.Sugar()}
	// Seconds field, optional
	a.Cron = cron.New(
		cron.WithSeconds(),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	a.CronSpec = cronSpec

	_, err := a.Cron.AddFunc(cronSpec, func() {
		rctx, cancel := context.WithTimeout(ctx, runTimeout)
		defer cancel()
		_, _ = a.RunOnce(rctx)
	})
	return err
}

// StartCron starts the cron scheduler.
func (a *App) StartCron() {
	a.Cron.Start()
	a.Logger.Info("Cron started", zap.String("cronSpec", a.CronSpec))
}

// StopCron stops the cron scheduler and waits for a running job to finish.
func (a *App) StopCron() {
	if a.Cron != nil {
		<-a.Cron.Stop().Done()
	}
}

// Ready reports whether the last run succeeded. Before the first run the app is ready.
func (a *App) Ready() bool { return !a.lastErr.Load() }

// Router returns the probe routes.
func (a *App) Router() *mux.Router {
	r := mux.NewRouter()

	r.Handle("/healthz", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })).Methods("GET")
	r.Handle("/readyz", http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if !a.Ready() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		if a.Publisher != nil {
			ctx, cancel := context.WithTimeout(req.Context(), readyTimeout)
			defer cancel()
			if err := a.Publisher.Health(ctx); err != nil {
				a.Logger.Warn("Event stream unhealthy", zap.Error(err))
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
	})).Methods("GET")
	r.Handle("/status", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		report, ok := a.LastReport()
		if !ok {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(report)
	})).Methods("GET")

	return r
}

// SetupServer sets up the HTTP server.
func (a *App) SetupServer() {
	// use <ip>:<port> to bind to a specific interface or :<port> to bind to all interfaces
	a.Server = &http.Server{
		Addr:              a.Config.Addr,
		Handler:           a.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// Start serves the probes and blocks until ctx is cancelled, then stops the schedule.
func (a *App) Start(ctx context.Context) {
	go func() {
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Logger.Error("Probe server stopped", zap.Error(err))
		}
	}()
	<-ctx.Done()

	a.Logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = a.Server.Shutdown(shutdownCtx)
	a.StopCron()
	a.Close()
	a.Logger.Info("Bye")
}
