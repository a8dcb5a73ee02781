// Package timeouts defines shared timeout constants used across commands.
package timeouts

import "time"

// ReadHeader limits how long the MCP HTTP server waits for request headers.
const ReadHeader = 5 * time.Second

// Shutdown limits how long the MCP HTTP server waits for in-flight requests
// during graceful shutdown.
const Shutdown = 10 * time.Second

// ScenarioStep caps a single scenario step.
const ScenarioStep = 10 * time.Second

// TelemetryShutdown caps the final span flush when a command exits.
const TelemetryShutdown = 5 * time.Second
