package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/swiftvfs/internal/cli"
	"github.com/dmitrijs2005/swiftvfs/internal/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, args, err := config.Load(os.Args[1:])
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	if err := cli.NewApp(cfg).Run(ctx, args); err != nil {
		if !errors.Is(err, cli.ErrUsage) {
			log.Printf("%v", err)
		}
		stop()
		os.Exit(1)
	}
}
