// Package netdb implements the node directory: the lookup service mapping
// node identifiers to their public keys.
//
// # Semantics
//
// The directory is append-only. Register adds a NodeRecord; registering an
// identifier that already exists replaces its key, so a relay that restarts
// with a new identity is reachable again without manual cleanup. ListNodes
// returns a snapshot ordered by identifier.
//
// # Implementations
//
//   - MemoryNetDB: process lifetime map guarded by a read-write mutex
//   - BadgerNetDB: the same semantics persisted with badger
//   - Client: a NetDB backed by a remote Server over HTTP
//
// Server exposes any NetDB over HTTP with two routes:
//
//	POST /registerNode     {"nodeId": 4001, "pubKey": "..."}
//	GET  /getNodeRegistry  {"nodes": [{"nodeId": 4001, "pubKey": "..."}]}
package netdb
