// Package logger provides structured logging on top of zerolog.
//
// It supports JSON and console output, level configuration, a process-wide
// global logger and component-scoped loggers. Record processing logs carry the
// audio id and error kind fields so a dropped record can be traced.
//
// # Configuration
//
//	logging:
//	  level: "info"
//	  format: "json"
//
// # Usage
//
//	log := logger.Get("coordinator")
//	log.Warn("record dropped", logger.Fields(logger.FieldAudioID, id, logger.FieldErrorKind, kind))
package logger
