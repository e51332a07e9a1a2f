// Package merkle computes an optional lineage summary root over a sorted
// set of content addresses, recorded in the MTB's lineage_dag section as
// merkle_root. The MTB verifier does not read it: its lineage check (§4.12
// step 5) always scans every address.
package merkle

import (
	"sort"

	"github.com/mk10pro/truthcore/pkg/crypto"
)

// Root computes a binary Merkle root over addrs, sorted lexicographically
// first so the root is independent of collection order. An empty input
// yields the hash of the empty string, never an error — an empty lineage
// is valid (the empty-DAG boundary case).
func Root(addrs []string) (string, error) {
	sorted := append([]string{}, addrs...)
	sort.Strings(sorted)

	if len(sorted) == 0 {
		return crypto.Hash(nil, crypto.SHA256)
	}

	level := make([]string, len(sorted))
	for i, a := range sorted {
		h, err := crypto.Hash([]byte(a), crypto.SHA256)
		if err != nil {
			return "", err
		}
		level[i] = h
	}

	for len(level) > 1 {
		next := make([]string, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			if i+1 == len(level) {
				next = append(next, level[i])
				continue
			}
			h, err := crypto.Hash([]byte(level[i]+level[i+1]), crypto.SHA256)
			if err != nil {
				return "", err
			}
			next = append(next, h)
		}
		level = next
	}
	return level[0], nil
}
