// Package metrics exposes reconciliation activity to Prometheus.
//
// Sink plugs into the engine as an event sink and into the runner as a pass
// observer. Handler mounts the registry on a Fiber route.
package metrics
