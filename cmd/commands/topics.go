package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/dstessier/accord/internal/dialogue"
)

// NewTopicsCommand returns the topics subcommand.
func NewTopicsCommand() *cli.Command {
	return &cli.Command{
		Name:  "topics",
		Usage: "List the conversation topics a session can be opened on",
		Action: func(_ context.Context, _ *cli.Command) error {
			for _, t := range dialogue.Topics() {
				fmt.Println(t)
			}
			return nil
		},
	}
}
