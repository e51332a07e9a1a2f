package engine

import (
	"fmt"

	"github.com/mk10pro/truthcore/pkg/canonical"
	"github.com/mk10pro/truthcore/pkg/crypto"
)

// configFingerprint returns the canonical hash of a node's configuration,
// recorded in each node_execution event so a verifier can confirm two
// claimed-identical runs really used identical config.
func configFingerprint(config map[string]interface{}) (string, error) {
	if config == nil {
		config = map[string]interface{}{}
	}
	enc, err := canonical.Encode(config)
	if err != nil {
		return "", fmt.Errorf("engine: config fingerprint: %w", err)
	}
	return crypto.Hash(enc, crypto.SHA256)
}
