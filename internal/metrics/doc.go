// Package metrics instruments the update server with Prometheus.
//
// Metrics live in a private registry and are exposed on their own listener,
// separate from the update routes.
package metrics
