package logging

import "log/slog"

// Common field names for consistent logging across the collector.
const (
	FieldComponent = "component"
	FieldSource    = "source"
	FieldHost      = "host"
	FieldPort      = "port"
	FieldCount     = "count"
	FieldError     = "error"
)

// Component returns a slog attribute naming the emitting component.
func Component(name string) slog.Attr {
	return slog.String(FieldComponent, name)
}

// Source returns a slog attribute for the ingestion source.
func Source(name string) slog.Attr {
	return slog.String(FieldSource, name)
}

// Port returns a slog attribute for a listen port.
func Port(port int) slog.Attr {
	return slog.Int(FieldPort, port)
}

// Count returns a slog attribute for a record count.
func Count(n int) slog.Attr {
	return slog.Int(FieldCount, n)
}

// Error returns a slog attribute for an error.
func Error(err error) slog.Attr {
	return slog.String(FieldError, err.Error())
}
