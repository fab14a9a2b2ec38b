// Package integration holds end-to-end tests that run the update server
// against real archives on disk and talk to it over HTTP.
package integration
