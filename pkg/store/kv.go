package store

// KV is the durable local store consumed by the conversation manager in
// local-only mode. One well-known key holds the full serialized state
// snapshot; the manager never does partial writes.
type KV interface {
	// Get returns the stored value and whether the key was present.
	Get(key string) (string, bool, error)
	// Set stores value under key, overwriting any prior value.
	Set(key string, value string) error
}
