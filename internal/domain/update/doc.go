// Package update contains the descriptor model published to update clients.
//
// A Catalog holds Updates, an Update holds Patches. Enumerations render in
// the lowercase form clients expect (minor, complete, partial, sha512).
package update
