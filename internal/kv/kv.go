// Package kv provides the durable string-keyed storage the planner pipeline
// writes through. The pipeline treats the medium as opaque: two logical keys
// (the API credential and the serialized trip collection) are all it ever
// touches. A sqlite-backed store is the production medium; the in-memory
// store backs tests and ephemeral embeddings.
package kv

// Store is a durable string-keyed record store. Get reports whether the key
// exists; an absent key is a valid state, not an error.
type Store interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
}
