// Package observability provides the broker's logging, metrics, tracing and
// graceful-shutdown plumbing.
//
// Logging is structured JSON on top of stdlib slog. Metrics are prometheus
// collectors covering the HTTP surface, login outcomes per strategy, and
// calls to the Qlik Proxy Service. Tracing is an optional OTLP exporter;
// when disabled the rest of the package works without it.
package observability
