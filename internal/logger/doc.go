// Package logger wraps zap with a process-wide sugared console logger and
// context helpers (ToContext/FromContext/WithName/WithKV).
//
// Every pipeline stage receives a context and pulls its logger from it, so
// channel and package fields attached upstream show up on every line.
package logger
