package cache

//go:generate mockgen -source=kv.go -destination=kv_mock.go -package=cache

// KV is the key-value store the Manager keeps entries in.
// Values are opaque JSON documents; freshness is decided by the Manager, not
// the store. Implementations must be safe for concurrent use by multiple
// goroutines.
type KV interface {
	// Get returns the stored value or ErrNotFound.
	Get(key string) ([]byte, error)
	// Set overwrites the value stored under key.
	Set(key string, value []byte) error
	// Remove deletes key. Removing a missing key is not an error.
	Remove(key string) error
}
