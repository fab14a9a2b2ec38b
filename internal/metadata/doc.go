// Package metadata recovers the patch kind, version and build id stored in
// members of an update archive.
//
// Extraction is best effort: every value is a Field that is either present or
// absent, and callers pick a default with Or. Missing or malformed members
// are logged and never reported as errors.
package metadata
