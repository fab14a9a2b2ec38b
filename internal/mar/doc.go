// Package mar reads Mozilla ARchive (MAR) update packages.
//
// A MAR file has a small fixed layout:
//   - magic "MAR1" followed by the big-endian uint32 offset of the index,
//   - optionally signatures and additional sections (ignored here),
//   - member contents,
//   - the index: a big-endian uint32 byte length followed by entries of
//     uint32 offset, uint32 size, uint32 flags and a NUL-terminated name.
//
// The index gives random access to members by name. Member contents stored
// XZ or BZip2 compressed, as Firefox packages them, are decompressed on read.
package mar
