// Package update implements the HTTP transport of the update server.
//
// It exposes exactly two read-only routes, /update.xml and /update.mar, and
// wraps them with request ids, access logging, panic recovery and metrics.
package update
