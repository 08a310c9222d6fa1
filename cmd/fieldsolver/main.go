// Command fieldsolver serves the reference Coulomb solver over HTTP.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pthm-cable/fieldscope/config"
	"github.com/pthm-cable/fieldscope/solver"
)

func main() {
	listen := flag.String("listen", ":8000", "Address to listen on")
	configPath := flag.String("config", "", "Path to config.yaml for grid limits (empty = use defaults)")
	readTimeout := flag.Duration("read-timeout", 10*time.Second, "HTTP read timeout")
	writeTimeout := flag.Duration("write-timeout", 60*time.Second, "HTTP write timeout")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()
	limits := solver.Limits{MaxCount2D: cfg.Grid.MaxCount2D, MaxCount3D: cfg.Grid.MaxCount3D}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := &http.Server{
		Addr:         *listen,
		Handler:      solver.NewHandler(limits, logger),
		ReadTimeout:  *readTimeout,
		WriteTimeout: *writeTimeout,
	}

	// Start server in a goroutine so it doesn't block
	errc := make(chan error, 1)
	go func() {
		slog.Info("solver listening", "addr", *listen, "max_count_2d", limits.MaxCount2D, "max_count_3d", limits.MaxCount3D)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err, ok := <-errc:
		if ok {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
		return
	case <-ctx.Done():
	}

	slog.Info("shutting down solver")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown failed", "error", err)
		if err := server.Close(); err != nil {
			slog.Error("force close failed", "error", err)
		}
	}
}
