// Package server assembles the bridge host: registry backend, breaker,
// dispatcher, middleware and the HTTP and WebSocket transports.
package server
