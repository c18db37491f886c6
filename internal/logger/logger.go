// Package logger provides the structured logging adapter shared by the
// catalog and runner packages and the tdp command.
package logger

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	cblog "github.com/charmbracelet/log"
)

// Logger is the structured logging contract used across the engine. All log
// calls take key/value pairs and are safe for concurrent use.
type Logger interface {
	Debug(ctx context.Context, msg string, fields ...interface{})
	Info(ctx context.Context, msg string, fields ...interface{})
	Warn(ctx context.Context, msg string, fields ...interface{})
	Error(ctx context.Context, msg string, fields ...interface{})
	With(fields ...interface{}) Logger
}

// Options describes logger configuration supplied at creation time.
type Options struct {
	Writer        io.Writer
	Level         string
	HumanReadable bool
	Component     string
}

type charmLogger struct {
	base   *cblog.Logger
	fields []interface{}
}

// New creates a configured Logger based on Options.
func New(opts Options) (Logger, error) {
	writer := opts.Writer
	if writer == nil {
		writer = os.Stdout
	}

	level := cblog.InfoLevel
	if opts.Level != "" {
		parsed, err := cblog.ParseLevel(strings.ToLower(opts.Level))
		if err != nil {
			return nil, fmt.Errorf("parse log level: %w", err)
		}
		level = parsed
	}

	formatter := cblog.JSONFormatter
	if opts.HumanReadable {
		formatter = cblog.TextFormatter
	}

	base := cblog.NewWithOptions(writer, cblog.Options{
		Level:           level,
		ReportTimestamp: true,
		Formatter:       formatter,
	})

	var fields []interface{}
	if opts.Component != "" {
		fields = append(fields, "component", opts.Component)
	}

	return &charmLogger{base: base, fields: fields}, nil
}

func (l *charmLogger) Debug(ctx context.Context, msg string, fields ...interface{}) {
	l.log(cblog.DebugLevel, msg, fields...)
}

func (l *charmLogger) Info(ctx context.Context, msg string, fields ...interface{}) {
	l.log(cblog.InfoLevel, msg, fields...)
}

func (l *charmLogger) Warn(ctx context.Context, msg string, fields ...interface{}) {
	l.log(cblog.WarnLevel, msg, fields...)
}

func (l *charmLogger) Error(ctx context.Context, msg string, fields ...interface{}) {
	l.log(cblog.ErrorLevel, msg, fields...)
}

func (l *charmLogger) With(fields ...interface{}) Logger {
	if l == nil {
		return NewNoOp()
	}
	next := make([]interface{}, 0, len(l.fields)+len(fields))
	next = append(next, l.fields...)
	next = append(next, fields...)
	return &charmLogger{base: l.base, fields: next}
}

func (l *charmLogger) log(level cblog.Level, msg string, fields ...interface{}) {
	if l == nil || l.base == nil {
		return
	}
	payload := mergeFields(l.fields, fields)
	switch level {
	case cblog.DebugLevel:
		l.base.Debug(msg, payload...)
	case cblog.WarnLevel:
		l.base.Warn(msg, payload...)
	case cblog.ErrorLevel:
		l.base.Error(msg, payload...)
	default:
		l.base.Info(msg, payload...)
	}
}

// mergeFields keeps the last value seen per key, so a derived logger's own
// fields win over ancestor fields with the same key, and returns the pairs
// sorted by key.
func mergeFields(base, additions []interface{}) []interface{} {
	store := make(map[string]interface{})
	var order []string

	add := func(values []interface{}) {
		for i := 0; i+1 < len(values); i += 2 {
			key, ok := values[i].(string)
			if !ok {
				continue
			}
			if _, exists := store[key]; !exists {
				order = append(order, key)
			}
			store[key] = values[i+1]
		}
	}

	add(base)
	add(additions)

	sort.Strings(order)
	out := make([]interface{}, 0, len(order)*2)
	for _, key := range order {
		out = append(out, key, store[key])
	}
	return out
}

// noOpLogger discards all log entries; useful in tests.
type noOpLogger struct{}

func (noOpLogger) Debug(context.Context, string, ...interface{}) {}
func (noOpLogger) Info(context.Context, string, ...interface{})  {}
func (noOpLogger) Warn(context.Context, string, ...interface{})  {}
func (noOpLogger) Error(context.Context, string, ...interface{}) {}
func (n noOpLogger) With(...interface{}) Logger                  { return n }

// NewNoOp returns a Logger that discards all entries.
func NewNoOp() Logger {
	return noOpLogger{}
}
