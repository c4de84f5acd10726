// Package logging provides structured logging configuration for relayd.
//
// It wraps log/slog so every component logs through the same handler
// with consistent levels and output formats.
//
// Components accept a *slog.Logger in their constructor or options
// struct. When logging is disabled, pass logging.Nop().
//
//	logger := logging.New(logging.Config{
//	    Level:  logging.LevelDebug,
//	    Format: logging.FormatJSON,
//	})
//	logger.Info("listening", "addr", addr)
package logging
