package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	taskhubcmd "github.com/louisbranch/taskhub/internal/cmd/taskhub"
	"github.com/spf13/pflag"
)

func main() {
	cfg, err := taskhubcmd.ParseConfig(pflag.CommandLine, os.Args[1:])
	if err != nil {
		log.Fatalf("parse flags: %v", err)
	}
	log.SetPrefix("[TASKHUB] ")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.HealthCheck {
		if err := taskhubcmd.RunHealthCheck(ctx, cfg); err != nil {
			log.Fatalf("healthcheck: %v", err)
		}
		return
	}
	if err := taskhubcmd.Run(ctx, cfg); err != nil {
		log.Fatalf("failed to serve: %v", err)
	}
}
