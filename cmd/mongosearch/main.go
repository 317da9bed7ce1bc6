package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/Aleph-Alpha/mongosearch/cmd/mongosearch/cmd"
)

var appVersion = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.NewCmd(appVersion).ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
