// Package kvstore persists small string maps under string identifiers.
package kvstore

// Store is a flat key-value store of string maps.
type Store interface {
	// Get returns the map stored under id and whether it exists.
	Get(id string) (map[string]string, bool, error)
	// Set replaces the map stored under id.
	Set(id string, values map[string]string) error
	// Delete removes id. Deleting a missing id is not an error.
	Delete(id string) error
}

func clone(values map[string]string) map[string]string {
	out := make(map[string]string, len(values))
	for k, v := range values {
		out[k] = v
	}
	return out
}
