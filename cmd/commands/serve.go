package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/dstessier/accord/internal/capture/deepgram"
	"github.com/dstessier/accord/internal/config"
	"github.com/dstessier/accord/internal/dialogue"
	"github.com/dstessier/accord/internal/events"
	"github.com/dstessier/accord/internal/gateway"
	"github.com/dstessier/accord/internal/guide"
	"github.com/dstessier/accord/internal/models"
	"github.com/dstessier/accord/internal/moderation"
)

// NewServeCommand returns the serve subcommand.
func NewServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the accord dialogue server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "host",
				Usage: "Host to listen on",
			},
			&cli.IntFlag{
				Name:  "port",
				Usage: "Port to listen on",
			},
		},
		Action: runServe,
	}
}

func runServe(_ context.Context, cmd *cli.Command) error {
	// Setup debug logging
	if cmd.Bool("debug") {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}

	// Load config
	configPath := cmd.String("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Warn("config not found, using defaults", "path", configPath, "error", err)
		cfg = &config.Config{}
		config.ApplyDefaults(cfg)
	}

	// CLI flags override config
	if cmd.IsSet("host") {
		cfg.Gateway.Host = cmd.String("host")
	}
	if cmd.IsSet("port") {
		cfg.Gateway.Port = cmd.Int("port")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// Event bus
	bus := events.NewBus(cfg.Events.BufferSize)
	defer bus.Close()

	// Model registry and the two gateway roles
	registry := models.NewRegistry(cfg.Models)

	moderationModel, err := registry.GetOrDefault(ctx, cfg.Dialogue.ModerationModel)
	if err != nil {
		return fmt.Errorf("init moderation model: %w", err)
	}
	authoringModel, err := registry.GetOrDefault(ctx, cfg.Dialogue.AuthoringModel)
	if err != nil {
		return fmt.Errorf("init authoring model: %w", err)
	}

	moderationName := cfg.Dialogue.ModerationModel
	if moderationName == "" {
		moderationName = registry.DefaultName()
	}
	authoringName := cfg.Dialogue.AuthoringModel
	if authoringName == "" {
		authoringName = registry.DefaultName()
	}

	moderator := moderation.NewGateway(models.NewCompleter(moderationModel, moderationName, "moderation", bus))
	author := guide.NewGateway(models.NewCompleter(authoringModel, authoringName, "authoring", bus))

	// Orchestrator
	orch := dialogue.NewOrchestrator(moderator, author, bus, dialogue.Config{
		GatewayTimeout: cfg.Dialogue.GatewayTimeout.Duration(),
		TerminalDelay:  cfg.Dialogue.TerminalDelay.Duration(),
	})

	// Gateway server
	server := gateway.NewServer(orch, bus, cfg.Gateway.Host, cfg.Gateway.Port)

	if cfg.Capture.Provider == "deepgram" {
		server.SetTranscriber(deepgram.NewProvider(cfg.Capture.Deepgram))
		slog.Info("transcription enabled", "provider", "deepgram")
	}

	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	// Wait for signal or error
	select {
	case <-ctx.Done():
		slog.Info("shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
