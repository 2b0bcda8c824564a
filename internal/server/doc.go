// Package server implements the HTTP API and WebSocket push channel for
// pairchat.
//
// The implementation is organized into specialized files for configuration,
// hub management, sessions, routing, uploads, and HTTP handlers to keep the
// codebase maintainable and testable as the project grows.
package server
