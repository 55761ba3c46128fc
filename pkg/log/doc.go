// Package log is a small wrapper around the standard library logger used by
// every dominium component.
//
// Each component asks for a named logger once and keeps it:
//
//	l := log.ForService("search")
//	l.Infof("dispatching %s", q.Encode())
//	l.Debugf("debounce window %s", delay)
//
// Lines are prefixed with the logger name, e.g. `[search>] dispatching ...`.
// Per-session loggers are derived with Named, which yields names like
// `realtime/3f2c9a1e`, so debug can be enabled for a single component
// (EnableDebugFor("realtime")) and every session below it follows.
//
// Debug output is off by default. The CLI --debug flag calls SetGlobalDebug.
// Tests redirect all loggers with SetOutput(&buf).
package log
