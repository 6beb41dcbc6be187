package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"factorymanager.io/manager/internal/pkg/logger"
)

// defaultDrainTimeout bounds Close when the server config carries none.
const defaultDrainTimeout = 30 * time.Second

// StartJobs begins consuming mirror repair, reference sweep and action log
// retention jobs. Without a River client it is a no-op.
func (a *Application) StartJobs(ctx context.Context) error {
	if a.DB == nil || a.DB.RiverClient == nil {
		return nil
	}
	if err := a.DB.RiverClient.Start(ctx); err != nil {
		return fmt.Errorf("start job queue: %w", err)
	}
	logger.Info("Job queue consuming")
	return nil
}

// Serve runs the HTTP API until ctx is done, then drains in-flight
// requests for at most Server.ShutdownTimeout.
func (a *Application) Serve(ctx context.Context) error {
	if a.Config == nil || a.Router == nil {
		return errors.New("application is not bootstrapped")
	}
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:      a.Router,
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	logger.Info("Listening", zap.String("addr", srv.Addr))

	select {
	case err := <-errCh:
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}

	drainCtx, cancel := context.WithTimeout(context.Background(), a.drainTimeout())
	defer cancel()
	logger.Info("Draining HTTP requests")
	if err := srv.Shutdown(drainCtx); err != nil {
		return fmt.Errorf("drain http: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("listen: %w", err)
	}
	return nil
}

// Close stops the job queue, then the modules, then the store and pools.
// Queued action log writes are drained before the store closes. Jobs still
// running at the drain deadline are cancelled and retried by River later.
func (a *Application) Close(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	stopCtx, cancel := context.WithTimeout(ctx, a.drainTimeout())
	defer cancel()

	if a.DB != nil && a.DB.RiverClient != nil {
		if err := a.DB.RiverClient.Stop(stopCtx); err != nil {
			logger.Warn("Job queue did not stop in time, cancelling running jobs", zap.Error(err))
			if err := a.DB.RiverClient.StopAndCancel(context.Background()); err != nil {
				logger.Error("Failed to cancel running jobs", zap.Error(err))
			}
		}
	}

	for _, mod := range a.Modules {
		if mod == nil {
			continue
		}
		if err := mod.Shutdown(stopCtx); err != nil {
			logger.Warn("Module shutdown failed", zap.String("module", mod.Name()), zap.Error(err))
		}
	}

	switch {
	case a.Infra != nil:
		a.Infra.Close()
	case a.DB != nil:
		if a.Pools != nil {
			a.Pools.Shutdown()
		}
		a.DB.Close()
	case a.Pools != nil:
		a.Pools.Shutdown()
	}
	logger.Info("Application closed")
}

func (a *Application) drainTimeout() time.Duration {
	if a.Config == nil || a.Config.Server.ShutdownTimeout <= 0 {
		return defaultDrainTimeout
	}
	return a.Config.Server.ShutdownTimeout
}
