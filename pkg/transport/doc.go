// Package transport provides the HTTP middleware chain and error writing
// shared by keygate's handlers.
//
// # Middleware
//
// Middleware wraps an http.Handler with cross-cutting behavior. Built-in
// middleware provides panic recovery, request ID assignment
// (X-Request-ID), and structured access logging via log/slog. Chain
// composes middleware so the first one listed runs outermost.
//
// # Errors
//
// Errors are written as the OpenAI-style envelope defined in pkg/api.
// HTTPStatusFromError maps an error type to its status code.
package transport
