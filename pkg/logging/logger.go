// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package logging provides structured logging for Crystal Ball components.
//
// The service handles GitHub tokens, webhook secrets, and LLM API keys on
// every request, so every log record passes through a redaction layer before
// it reaches any destination. The logger itself is a thin wrapper over Go's
// slog package:
//
//	┌──────────────────────────────────────────────────┐
//	│                    Logger                        │
//	│   ┌────────────────┐     ┌────────────────────┐  │
//	│   │ redact handler │────►│ stderr (text/JSON) │  │
//	│   └────────────────┘     └────────────────────┘  │
//	└──────────────────────────────────────────────────┘
//
// # Basic Usage
//
//	logger := logging.New(logging.Config{Service: "oracle"})
//	logger.Info("webhook received", "repo", repo, "pr", prNumber)
//
// # Security
//
// Redaction is a backstop, not a license to log credentials. Callers should
// still log metadata ("token_present", true) rather than secret material.
package logging

import (
	"context"
	"log/slog"
	"os"
	"regexp"
)

// Level represents log severity, ordered Debug < Info < Warn < Error.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// String returns "DEBUG", "INFO", "WARN" or "ERROR".
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

func (l Level) toSlogLevel() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Config configures the Logger. The zero value logs Info+ to stderr as text.
type Config struct {
	// Level is the minimum level; records below it are discarded.
	Level Level

	// Service is attached to every record as the "service" attribute.
	Service string

	// JSON switches stderr output to JSON objects (machine-parseable).
	JSON bool

	// Writer overrides the output destination. Defaults to os.Stderr.
	// Primarily used by tests to capture output.
	Writer interface{ Write([]byte) (int, error) }
}

// Logger wraps slog.Logger with service attribution and secret redaction.
// Safe for concurrent use.
type Logger struct {
	slog *slog.Logger
}

// New creates a Logger from config. All records pass through the redaction
// handler before reaching the underlying destination.
func New(config Config) *Logger {
	opts := &slog.HandlerOptions{Level: config.Level.toSlogLevel()}

	w := config.Writer
	if w == nil {
		w = os.Stderr
	}

	var inner slog.Handler
	if config.JSON {
		inner = slog.NewJSONHandler(w, opts)
	} else {
		inner = slog.NewTextHandler(w, opts)
	}

	var handler slog.Handler = &redactHandler{inner: inner}
	if config.Service != "" {
		handler = handler.WithAttrs([]slog.Attr{slog.String("service", config.Service)})
	}

	return &Logger{slog: slog.New(handler)}
}

// Default returns a text logger at Info level with service "crystalball".
func Default() *Logger {
	return New(Config{Level: LevelInfo, Service: "crystalball"})
}

// Debug logs at Debug level with key-value attributes.
func (l *Logger) Debug(msg string, args ...any) { l.slog.Debug(msg, args...) }

// Info logs at Info level with key-value attributes.
func (l *Logger) Info(msg string, args ...any) { l.slog.Info(msg, args...) }

// Warn logs at Warn level with key-value attributes.
func (l *Logger) Warn(msg string, args ...any) { l.slog.Warn(msg, args...) }

// Error logs at Error level with key-value attributes.
func (l *Logger) Error(msg string, args ...any) { l.slog.Error(msg, args...) }

// With returns a child logger carrying additional attributes.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{slog: l.slog.With(args...)}
}

// Slog exposes the underlying slog.Logger for packages that want to install
// it process-wide via slog.SetDefault.
func (l *Logger) Slog() *slog.Logger {
	return l.slog
}

// =============================================================================
// Redaction
// =============================================================================

// redactPatterns match credential shapes that must never appear in logs:
// Anthropic/OpenAI keys, GitHub tokens, bearer headers, and quoted secret
// fields in JSON-ish payloads.
var redactPatterns = []struct {
	re          *regexp.Regexp
	replacement string
}{
	{regexp.MustCompile(`sk-[A-Za-z0-9_\-]+`), "[REDACTED_API_KEY]"},
	{regexp.MustCompile(`ghp_[A-Za-z0-9]+`), "[REDACTED_GITHUB_TOKEN]"},
	{regexp.MustCompile(`github_pat_[A-Za-z0-9_]+`), "[REDACTED_GITHUB_TOKEN]"},
	{regexp.MustCompile(`(?i)bearer [A-Za-z0-9\-._~+/]+=*`), "Bearer [REDACTED_TOKEN]"},
	{regexp.MustCompile(`"token":\s*"[^"]+"`), `"token": "[REDACTED]"`},
	{regexp.MustCompile(`"api_key":\s*"[^"]+"`), `"api_key": "[REDACTED]"`},
	{regexp.MustCompile(`"secret":\s*"[^"]+"`), `"secret": "[REDACTED]"`},
}

// Redact replaces credential-shaped substrings with redaction markers.
// Exposed so callers can scrub strings destined for non-log sinks
// (error responses, broadcast payloads).
func Redact(s string) string {
	for _, p := range redactPatterns {
		s = p.re.ReplaceAllString(s, p.replacement)
	}
	return s
}

// redactHandler scrubs the message and every string attribute of a record
// before delegating to the inner handler.
type redactHandler struct {
	inner slog.Handler
}

func (h *redactHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *redactHandler) Handle(ctx context.Context, r slog.Record) error {
	clean := slog.NewRecord(r.Time, r.Level, Redact(r.Message), r.PC)
	r.Attrs(func(a slog.Attr) bool {
		clean.AddAttrs(redactAttr(a))
		return true
	})
	return h.inner.Handle(ctx, clean)
}

func (h *redactHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	scrubbed := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		scrubbed[i] = redactAttr(a)
	}
	return &redactHandler{inner: h.inner.WithAttrs(scrubbed)}
}

func (h *redactHandler) WithGroup(name string) slog.Handler {
	return &redactHandler{inner: h.inner.WithGroup(name)}
}

func redactAttr(a slog.Attr) slog.Attr {
	switch a.Value.Kind() {
	case slog.KindString:
		return slog.String(a.Key, Redact(a.Value.String()))
	case slog.KindGroup:
		group := a.Value.Group()
		scrubbed := make([]any, 0, len(group))
		for _, g := range group {
			scrubbed = append(scrubbed, redactAttr(g))
		}
		return slog.Group(a.Key, scrubbed...)
	default:
		return a
	}
}
