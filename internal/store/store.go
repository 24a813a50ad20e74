// Package store provides the durable local key-value storage backing
// the sync queue, open scorecards, and the response cache.
package store

// KV is the durable key-value contract shared by all local state.
type KV interface {
	// Get returns the value for key; the bool is false when absent.
	Get(key string) ([]byte, bool, error)
	// Set writes the value durably before returning.
	Set(key string, value []byte) error
	// Delete removes a key. Deleting an absent key is not an error.
	Delete(key string) error
	// Keys lists all keys with the given prefix in lexical order.
	Keys(prefix string) ([]string, error)
	// Close releases underlying resources.
	Close() error
}
