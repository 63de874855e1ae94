// Package main starts the FastCGI runner.
//
// This process sits behind a front web server speaking FastCGI, either
// on a configured socket or on the one inherited from spawn-fcgi.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/zineproject/zine/internal/cmd/zinefcgi"
)

func main() {
	cfg, err := zinefcgi.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.Fatalf("parse flags: %v", err)
	}
	log.SetPrefix("[FCGI] ")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := zinefcgi.Run(ctx, cfg); err != nil {
		log.Fatalf("failed to serve: %v", err)
	}
}
