// Package logger provides a small wrapper around zap to offer:
//   - a global sugared logger with a console encoder on stdout or another writer,
//   - an optional JSON copy written to a rotated file,
//   - context helpers (ToContext/FromContext/WithName/WithKV),
//   - level configuration and parsing utilities.
//
// Every operation of the fetcher accepts a context and extracts the logger
// from it, so tests can swap in an observed logger without global state.
package logger
