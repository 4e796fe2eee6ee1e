// Package daemon composes the scheduler services behind a single-instance
// lock: the durable queue poller, the stuck-record reclaimer, the worker
// pool with its ephemeral task queue, the HTTP API, and the websocket hub
// that pushes status updates to dashboards.
package daemon
