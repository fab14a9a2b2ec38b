// Package archive gives request handlers access to the served MAR file.
//
// Every Open returns a fresh handle, so concurrent downloads never share a
// read position. The file is looked up again on each call: if it is removed
// or replaced after startup, only the affected requests fail.
package archive
