// Package timeouts defines shared timeout constants used across the
// runners. Centralizing these values prevents drift between binaries and
// makes the durations discoverable.
package timeouts

import "time"

// ReadHeader limits how long an HTTP server waits for request headers.
const ReadHeader = 5 * time.Second

// Shutdown limits how long a runner waits for in-flight requests during
// graceful shutdown.
const Shutdown = 5 * time.Second
