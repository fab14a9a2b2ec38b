// Package logger wraps zap for the update server:
//   - a global sugared logger with a console encoder on stdout,
//   - optional JSON copy of every entry into a rotated file,
//   - context helpers (ToContext/FromContext/WithName/WithKV),
//   - level parsing and a shared atomic level.
//
// Code receives a context and logs through it, so request handlers and the
// startup pipeline get scoped loggers without passing them around.
package logger
