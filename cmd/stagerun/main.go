package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/askiada/go-stagerun/internal/cli"
)

func main() {
	// STAGERUN_* settings may live in a .env file next to the pipeline.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := cli.Execute(ctx, os.Args[1:], os.Stdout, os.Stderr)

	stop()

	if err != nil {
		// One line, no usage.
		msg := strings.Join(strings.Fields(err.Error()), " ")
		if msg == "" {
			msg = "error"
		}

		_, _ = os.Stderr.WriteString(msg + "\n")
		os.Exit(1)
	}
}
