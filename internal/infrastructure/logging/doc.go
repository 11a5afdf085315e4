// Package logging provides structured logging using uber/zap.
//
// Production builds write JSON to stdout; development builds use the
// colored console encoder. Components take a *zap.Logger (or Named child)
// and log with structured fields:
//
//	logger := logging.FromSettings(cfg.Logging.Level, cfg.Logging.Development)
//	logger.Info("Server starting", zap.String("addr", addr))
package logging
