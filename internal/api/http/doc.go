// Package http exposes the bridge channel over plain HTTP.
//
// Routes (registered by the server package):
//
//	POST /channels/:channel   one MethodCall in, one Reply out
//	GET  /                    service banner
//	GET  /health              breaker state and call counters
//	GET  /apps                registry listing, when supported
//	GET  /metrics/json        call counters as JSON
package http
