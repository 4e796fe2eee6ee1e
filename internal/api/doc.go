// Package api exposes queue state and operator actions as transport-friendly
// DTOs shared by the HTTP server and the CLI.
package api
