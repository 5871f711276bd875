// Package logging provides structured logging using uber/zap.
//
// Two modes:
//   - Production: JSON output for machine parsing
//   - Development: colored console output
//
// Every channel call gets a child logger carrying call_id and method
// (see Logger.ForCall), so one call's lines can be grepped together.
//
// Example Usage:
//
//	logger := logging.NewDefault()
//	logger.Info("Bridge listening", zap.String("channel", "dingtalk_service"))
//	logger.ForCall(callID, "openApp").Warn("platform error", zap.Error(err))
package logging
