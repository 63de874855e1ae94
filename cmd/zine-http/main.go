// Package main starts the standalone HTTP runner.
//
// This process owns the listening socket and serves one instance; put it
// behind a reverse proxy or expose it directly for small blogs.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/zineproject/zine/internal/cmd/zinehttp"
)

func main() {
	cfg, err := zinehttp.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.Fatalf("parse flags: %v", err)
	}
	log.SetPrefix("[HTTP] ")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := zinehttp.Run(ctx, cfg); err != nil {
		log.Fatalf("failed to serve: %v", err)
	}
}
