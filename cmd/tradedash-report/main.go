package main

import (
	"os"

	"tradedash/internal/cli"
	"tradedash/internal/commands"
)

func main() {
	cli.LoadEnvFile()

	ctx, stop := cli.ShutdownContext()
	defer stop()

	if err := commands.NewReportCommand().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
