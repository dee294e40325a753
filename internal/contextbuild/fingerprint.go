package contextbuild

import "hash/fnv"

// Fingerprint returns a stable, non-cryptographic 64-bit FNV-1a hash of the
// context string, used to key the embedding cache. Collisions are an accepted
// risk: the worst case is serving the colliding context's embedding, not a
// correctness or security failure.
func Fingerprint(s string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return h.Sum64()
}
