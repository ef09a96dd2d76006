// Package component defines the lifecycle interface shared by lifescribe's
// long-lived infrastructure: the database, the transcript API server and the
// telemetry exporters.
//
// Components are registered with a Registry, started in registration order
// and stopped in reverse order. The bootstrap package drives the registry.
package component
