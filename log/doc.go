// Package log provides a simple, leveled logging interface for leadgraph.
//
// Every component that reports progress or degraded behaviour (the graph
// engine, pipeline nodes, record sources, mail delivery) takes a Logger rather
// than writing to stdout directly.
//
// # Log Levels
//
// The package supports five log levels, in order of increasing severity:
//
//   - LogLevelDebug: step-by-step engine traces
//   - LogLevelInfo: one line per processed record
//   - LogLevelWarn: best-effort fallbacks and failed side effects
//   - LogLevelError: failures that abort a run
//   - LogLevelNone: disables all logging output
//
// # Implementations
//
//   - GologLogger wraps a github.com/kataras/golog logger. NewConsoleLogger
//     builds one with the leadgraph prefix; the CLI uses it.
//   - DefaultLogger writes through the standard library log package and is the
//     package-level default.
//   - NoOpLogger discards everything, which is handy in tests.
//
// # Example Usage
//
//	logger := log.NewConsoleLogger(os.Stderr, log.LogLevelDebug)
//	logger.Info("processing %d leads", n)
//
//	// or globally
//	log.SetDefaultLogger(logger)
//	log.Warn("blog scrape failed: %v", err)
package log
