// Package digest hashes whole files in bounded chunks.
package digest
