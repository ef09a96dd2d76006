// Package observability wires OpenTelemetry tracing and metrics for
// lifescribe. Exporters speak OTLP over HTTP and are only started when
// observability is enabled; otherwise the global no-op providers stay in
// place and every helper here is free to call.
package observability
