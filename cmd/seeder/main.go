package main

import (
	"context"
	"log"
	"os"

	"github.com/dmitrijs2005/fastsearch/internal/buildinfo"
	"github.com/dmitrijs2005/fastsearch/internal/server"
	"github.com/dmitrijs2005/fastsearch/internal/server/config"
)

func main() {
	buildinfo.PrintBuildData(os.Stdout)

	ctx := context.Background()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Printf("%v", err)
		os.Exit(2)
	}

	app, err := server.NewApp(cfg)
	if err != nil {
		log.Printf("%v", err)
		os.Exit(1)
	}
	defer app.Close()

	if err := app.Run(ctx); err != nil {
		app.Close()
		os.Exit(1)
	}
}
