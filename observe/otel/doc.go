// Package otel is the placeholder for an OpenTelemetry observer plugin for
// tamed. Its Nop observer implements every tamed.Observer hook as a no-op;
// it emits no spans or span events.
package otel
