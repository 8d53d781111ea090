package pipeline

import "fmt"

// StorageKey derives the deterministic row key for a record: the digest of
// title concatenated with price. Two records with identical title and price
// always map to the same key, which is what makes storage writes idempotent.
func StorageKey(h Hasher, record ProductRecord) (string, error) {
	key, err := h.Hash([]byte(record.Title + record.Price))
	if err != nil {
		return "", fmt.Errorf("fingerprint record: %w", err)
	}
	return key, nil
}
