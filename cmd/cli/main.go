package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/fastsearch/internal/buildinfo"
	"github.com/dmitrijs2005/fastsearch/internal/client/cli"
	"github.com/dmitrijs2005/fastsearch/internal/client/config"
)

func main() {

	buildinfo.PrintBuildData(os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Printf("%v", err)
		os.Exit(2)
	}

	app, err := cli.NewApp(cfg)
	if err != nil {
		log.Fatalf("%v", err)
		return
	}

	if err := app.Run(ctx); err != nil {
		log.Printf("%v", err)
	}
}
