// Package runner holds the dispatcher plumbing shared by the protocol
// binaries. Each binary serves exactly one instance through one
// dispatcher; only the transport in front of it differs.
package runner

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/zineproject/zine/internal/dispatcher"
	"github.com/zineproject/zine/internal/instance"
	"github.com/zineproject/zine/internal/platform/httpx"
)

// Open builds the dispatcher for an instance path. Every binary takes
// the path from ZINE_INSTANCE or the -instance flag and refuses to start
// without one, with the same message.
func Open(instancePath string) (*dispatcher.Dispatcher, error) {
	instancePath = strings.TrimSpace(instancePath)
	if instancePath == "" {
		return nil, fmt.Errorf("no instance path: set ZINE_INSTANCE or pass -instance")
	}
	inst, err := instance.Open(instancePath)
	if err != nil {
		return nil, fmt.Errorf("open instance: %w", err)
	}
	return dispatcher.New(inst, dispatcher.Options{}), nil
}

// Handler wraps a dispatcher in the runner middleware stack. RecoverPanic
// sits innermost so the access log still records a 500 when it fires.
func Handler(d *dispatcher.Dispatcher) http.Handler {
	return httpx.Chain(d,
		httpx.RequestID(),
		httpx.LogRequests(),
		httpx.RecoverPanic(),
	)
}
