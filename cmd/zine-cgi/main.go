// Package main starts the one-shot CGI runner.
//
// The web server execs this binary per request; the whole lifecycle,
// application build included, happens inside that single invocation.
package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/zineproject/zine/internal/cmd/zinecgi"
)

func main() {
	cfg, err := zinecgi.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.Fatalf("parse flags: %v", err)
	}
	log.SetPrefix("[CGI] ")

	if err := zinecgi.Run(context.Background(), cfg); err != nil {
		log.Fatalf("failed to serve: %v", err)
	}
}
