// Package config provides 12-factor configuration for the bridge host.
//
// Configuration is loaded from environment variables with defaults.
// CLI flags in cmd/server can override the listen address and channel.
//
// Configuration Sections:
//   - Server: HTTP listener settings
//   - Bridge: channel name and per-call platform timeout
//   - Registry: application registry backend (desktop entries or catalog file)
//   - Breaker: circuit breaker around platform calls
//   - Logging: log level and output format
//   - RateLimit: per-IP rate limiting
//
// Environment Variables:
//   - PORT, HOST, SHUTDOWN_TIMEOUT, HTTP_GZIP
//   - BRIDGE_CHANNEL, BRIDGE_CALL_TIMEOUT
//   - REGISTRY_BACKEND, REGISTRY_CATALOG, REGISTRY_APP_DIRS, REGISTRY_PATTERN
//   - BREAKER_ENABLED, BREAKER_FAILURES, BREAKER_OPEN_TIMEOUT
//   - LOG_LEVEL, LOG_DEV
//   - RATE_LIMIT_RPS, RATE_LIMIT_BURST, RATE_LIMIT_ENABLED
package config
