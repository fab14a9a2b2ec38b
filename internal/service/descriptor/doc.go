// Package descriptor assembles the update catalog published for an archive.
//
// It hashes the whole archive, reads the patch kind, version and build id
// from the archive members and falls back to configured defaults for
// anything the archive does not carry.
package descriptor
