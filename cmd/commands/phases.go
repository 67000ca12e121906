package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/dstessier/accord/internal/phases"
)

// NewPhasesCommand returns the phases subcommand.
func NewPhasesCommand() *cli.Command {
	return &cli.Command{
		Name:  "phases",
		Usage: "List the six phases of the facilitation script",
		Action: func(_ context.Context, _ *cli.Command) error {
			for _, p := range phases.All() {
				fmt.Printf("%d. %s\n   %s\n", p.ID, p.Title, p.Goal)
			}
			return nil
		},
	}
}
