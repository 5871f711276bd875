/*
Package monitoring provides Prometheus metrics for the bridge host.

# Metrics

  - appbridge_http_requests_total / appbridge_http_request_duration_seconds
  - appbridge_calls_total{method,outcome} / appbridge_call_duration_seconds{method}
  - appbridge_platform_errors_total{method,kind}
  - appbridge_launches_total
  - appbridge_breaker_state{name}
  - appbridge_ws_connections / appbridge_ws_messages_total
  - appbridge_uptime_seconds, plus Go runtime and process collectors

# Usage

	metrics := monitoring.NewMetrics()
	router.Use(monitoring.Middleware(metrics))
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	timer := monitoring.NewTimer(metrics, "openApp")
	// ... dispatch ...
	timer.Stop("true", false)
*/
package monitoring
