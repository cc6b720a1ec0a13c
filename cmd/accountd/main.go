package main

import (
	"context"
	"log"
	"os"

	"github.com/aonyx-labs/accountd/internal/app"
	"github.com/aonyx-labs/accountd/internal/config"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	a, err := app.New(context.Background(), cfg)
	if err != nil {
		log.Fatalf("init: %v", err)
	}

	if err := a.Run(context.Background()); err != nil {
		log.Fatalf("run: %v", err)
	}
}
