// Package move holds the data model for on-chain Move package metadata.
//
// It mirrors the shape returned by a Sui full node for normalized modules and
// adds the identities used during resolution.
//
// Key types:
//   - PackageID: canonical package address
//   - NormalizedType: primitive / vector / struct reference / type parameter
//   - Package: module name -> declared structs and enums
//   - QualifiedKey: package id + local "module-Name" name, the dedup identity
//   - EventRef: a struct passed to event::emit
package move
