// Package main is the entry point for the appbridge host.
//
// The host answers presence queries and launch requests from the UI layer
// over a named channel, backed by the machine's application registry.
//
// Architecture:
//
//	UI layer → channel (HTTP / WebSocket) → Dispatcher → Registry Adapter
//	                                                  → desktop entries or catalog
//
// Configuration:
//   - Environment variables (12-factor)
//   - CLI flags (override env vars)
//   - Defaults for development
//
// Usage:
//
//	# Desktop entries from the XDG data directories
//	./server -port 8000
//
//	# Static catalog, development logging
//	./server -registry catalog -catalog apps.toml -dev
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown
package main
