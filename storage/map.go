package storage

import "time"

// Map is the keyed TTL-map contract the repositories are built on. A ttl
// of zero means the entry never expires. Implementations must be safe for
// concurrent use.
type Map[K comparable, V any] interface {
	// Get returns the value for k, reporting whether it was present and
	// unexpired.
	Get(k K) (V, bool, error)

	// Set stores v under k with the given time-to-live.
	Set(k K, v V, ttl time.Duration) error

	// SetAll stores every entry with the same time-to-live.
	SetAll(entries map[K]V, ttl time.Duration) error

	// Delete removes k, reporting whether it was present.
	Delete(k K) (bool, error)

	// Has reports whether k is present and unexpired.
	Has(k K) (bool, error)

	// Keys returns all unexpired keys.
	Keys() ([]K, error)

	// GetAll returns the present, unexpired entries among the given keys.
	GetAll(keys []K) (map[K]V, error)

	// Size returns the number of unexpired entries.
	Size() (int, error)

	// Clear removes every entry.
	Clear() error
}
