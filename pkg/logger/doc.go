// Package logger provides the structured logging interface used across the
// scraper.
//
// It wraps zerolog with a small interface so components can take a Logger
// and tests can pass NewTestLogger or NewNopLogger instead.
//
//	err := logger.Initialize(&cfg.Logging)
//	log := logger.GetLogger().WithField("run_id", runID)
//	log.InfoWithFields("Search page fetched", map[string]interface{}{
//	    "page":    3,
//	    "results": 80,
//	})
//
// Console output goes to stderr with colored levels. When LoggingConfig.File
// is set, JSON lines are appended to that file as well.
package logger
