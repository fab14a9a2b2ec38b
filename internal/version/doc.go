// Package version exposes build metadata of the server binary.
//
// Version, Commit and BuildTime are injected with -ldflags and keep local
// defaults otherwise. They also feed the build_info metric.
package version
