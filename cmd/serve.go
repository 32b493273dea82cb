package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/portify/internal/models"
	"github.com/desertthunder/portify/internal/repositories"
	"github.com/desertthunder/portify/internal/server"
	"github.com/desertthunder/portify/internal/services"
	"github.com/desertthunder/portify/internal/shared"
	"github.com/desertthunder/portify/internal/tasks"
)

// Serve runs the transfer service HTTP server until interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	config := r.config
	if loadedConfig, err := shared.LoadConfig(configPath); err == nil {
		config = loadedConfig
	} else {
		r.logger.Warn("failed to load config, using defaults", "path", configPath, "error", err)
	}

	db, err := shared.NewDatabase(config.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	shared.ConfigureDatabase(db, config.Database.MaxOpenConns, config.Database.MaxIdleConns)

	if err := shared.RunMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	store := repositories.NewStore(db)
	registry := services.NewRegistry(config.Providers, r.httpClient)
	engine := tasks.NewEngine(store, registry, shared.WithLogger(r.logger, "component", "engine"))
	runner := tasks.NewRunner(shared.WithLogger(r.logger, "component", "runner"))
	handler := server.NewTransferHandler(store, registry, engine, runner, shared.WithLogger(r.logger, "component", "http"))

	httpServer := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port),
		Handler: server.NewService(config.Server.APIToken, handler, r.logger),
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errChan := make(chan error, 1)
	go func() {
		r.logger.Info("server listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	r.logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		r.logger.Error("shutdown error", "error", err)
	}

	// Let scheduled transfer jobs drain before the process exits.
	runner.Wait()
	return nil
}

// Link prints the OAuth authorization URL for one provider.
func (r *Runner) Link(ctx context.Context, cmd *cli.Command) error {
	source, err := models.ParseSource(cmd.String("source"))
	if err != nil {
		return err
	}

	registry := services.NewRegistry(r.config.Providers, r.httpClient)
	client, err := registry.Client(source)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(map[string]string{"source": string(source), "url": client.AuthorizeLink()}, true)
	}
	return r.writePlain("%s\n", client.AuthorizeLink())
}
