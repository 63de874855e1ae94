// Package main is the zine management CLI.
package main

import (
	"os"

	zinecmd "github.com/zineproject/zine/internal/cmd/zine"
)

func main() {
	if err := zinecmd.Execute(); err != nil {
		os.Exit(1)
	}
}
