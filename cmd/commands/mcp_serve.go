package commands

import (
	"context"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/dstessier/accord/internal/config"
	"github.com/dstessier/accord/internal/dialogue"
	"github.com/dstessier/accord/internal/events"
	"github.com/dstessier/accord/internal/guide"
	accordmcp "github.com/dstessier/accord/internal/mcp"
	"github.com/dstessier/accord/internal/models"
	"github.com/dstessier/accord/internal/moderation"
)

// NewMCPServeCommand returns the mcp-serve subcommand.
func NewMCPServeCommand() *cli.Command {
	return &cli.Command{
		Name:   "mcp-serve",
		Usage:  "Expose the dialogue session as an MCP server (stdio)",
		Action: runMCPServe,
	}
}

func runMCPServe(_ context.Context, cmd *cli.Command) error {
	// Setup logging to stderr (stdout is used for MCP stdio transport)
	if cmd.Bool("debug") {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	} else {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))
	}

	// Load config
	configPath := cmd.String("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Debug("config not found, using defaults", "path", configPath, "error", err)
		cfg = &config.Config{}
		config.ApplyDefaults(cfg)
	}

	ctx := context.Background()

	bus := events.NewBus(64)
	defer bus.Close()

	registry := models.NewRegistry(cfg.Models)

	moderationModel, err := registry.GetOrDefault(ctx, cfg.Dialogue.ModerationModel)
	if err != nil {
		return err
	}
	authoringModel, err := registry.GetOrDefault(ctx, cfg.Dialogue.AuthoringModel)
	if err != nil {
		return err
	}

	moderator := moderation.NewGateway(models.NewCompleter(moderationModel, cfg.Dialogue.ModerationModel, "moderation", bus))
	author := guide.NewGateway(models.NewCompleter(authoringModel, cfg.Dialogue.AuthoringModel, "authoring", bus))

	orch := dialogue.NewOrchestrator(moderator, author, bus, dialogue.Config{
		GatewayTimeout: cfg.Dialogue.GatewayTimeout.Duration(),
		TerminalDelay:  cfg.Dialogue.TerminalDelay.Duration(),
	})

	server := accordmcp.NewMCPServer(orch)
	return server.Run(ctx, &mcpsdk.StdioTransport{})
}
