// Package middleware provides the HTTP middleware of the bridge host.
//
// Middleware stack includes:
//   - CORS: cross-origin access for the UI layer (gin-contrib/cors)
//   - RateLimit: per-IP token bucket rate limiting with idle sweep
//   - GlobalRateLimit: one token bucket for every client
//   - RequestLogger: zap access log
//   - Recovery: panic recovery with a JSON 500
//
// Example Usage:
//
//	router.Use(middleware.Recovery(logger))
//	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
//	router.Use(middleware.RateLimit(middleware.DefaultRateLimitConfig()))
package middleware
