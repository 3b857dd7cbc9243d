// Package storage persists the membership sets (users, groups) and the
// broadcast run log.
//
// Backends:
//   - mongo: one document per id, keyed by _id
//   - sqlite: single database file (modernc, no cgo)
//   - postgres: lib/pq
//   - memory: process-local, for tests and throwaway runs
package storage
