// Package server runs the update server: it builds the update descriptor once,
// then serves it together with the archive until the context is canceled.
package server
