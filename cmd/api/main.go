package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"captioner/internal"
)

func main() {
	cfg, err := internal.ReadConfig()
	if err != nil {
		slog.Error("Failed to read config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := internal.NewApp(ctx, cfg)
	if err != nil {
		slog.Error("Failed to create app", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer app.Close()

	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", app.Config.Port),
		Handler: internal.BuildRouter(app),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	slog.Info("Server running", slog.String("addr", server.Addr))
	err = server.ListenAndServe()
	if !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Finishing", slog.String("error", err.Error()))
	}
}
