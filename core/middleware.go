// Package core provides the fundamental building blocks of the quern
// persistence layer. This file defines the execution middleware system,
// which allows cross-cutting concerns (logging, timing, auditing) to be
// applied around every query an engine executes.
package core

import (
	"context"
	"log/slog"
	"time"
)

// ExecHandler is the function signature executed by the engine pipeline.
//
// It receives the context, the query string and the resolved execution
// options, and returns the query's rows. Handlers are composed by
// middlewares to add cross-cutting logic.
type ExecHandler func(ctx context.Context, qs QueryString, cfg ExecConfig) (Rows, error)

// Middleware is a function that wraps an ExecHandler with additional
// logic. Middlewares follow the decorator pattern.
type Middleware func(next ExecHandler) ExecHandler

// Chain applies middlewares to the final handler.
//
// The first middleware in the list is the outermost: it runs first on
// the way in and last on the way out.
func Chain(final ExecHandler, middlewareList ...Middleware) ExecHandler {
	h := final
	for i := len(middlewareList) - 1; i >= 0; i-- {
		h = middlewareList[i](h)
	}
	return h
}

// LogMiddleware logs every query passing through the engine.
//
// It measures execution time and records both success and error cases.
// A nil logger falls back to slog.Default.
//
// Example:
//
//	engine, err := postgres.NewEngine(cfg, postgres.WithMiddleware(core.LogMiddleware(nil)))
func LogMiddleware(logger *slog.Logger) Middleware {
	return func(next ExecHandler) ExecHandler {
		return func(ctx context.Context, qs QueryString, cfg ExecConfig) (Rows, error) {
			l := logger
			if l == nil {
				l = slog.Default()
			}
			start := time.Now()
			rows, err := next(ctx, qs, cfg)
			elapsed := time.Since(start)
			if err != nil {
				l.ErrorContext(ctx, "query failed", "sql", qs.String(), "elapsed", elapsed, "error", err)
				return rows, err
			}
			l.DebugContext(ctx, "query executed", "sql", qs.String(), "elapsed", elapsed, "rows", len(rows))
			return rows, nil
		}
	}
}
