// Package logging provides structured logging for the weather station service.
//
// It wraps log/slog so every component logs with the same handler,
// level filtering and default fields (service, version).
//
// Configuration comes from the logging section of config.yaml:
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// Usage:
//
//	logger := logging.New(cfg.Logging, "1.0.0")
//	logger.Info("frame decoded", "topics", 12)
//	logger.Error("station stop failed", "error", err)
//
// Never log secrets, tokens or passwords.
package logging
