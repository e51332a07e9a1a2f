package mtb

import (
	"fmt"

	"github.com/mk10pro/truthcore/pkg/canonical"
	"github.com/mk10pro/truthcore/pkg/crypto"
)

// SealMismatch is returned when a recomputed seal diverges from the one
// stored in the bundle.
type SealMismatch struct {
	Want string
	Got  string
}

func (e *SealMismatch) Error() string {
	return fmt.Sprintf("seal mismatch: bundle claims %s, recomputed %s", e.Want, e.Got)
}

// Seal removes any existing integrity_proof, computes the canonical hash
// of the remaining bundle, and returns a copy with a fresh integrity_proof
// inserted.
func Seal(b *Bundle) (*Bundle, error) {
	stripped := *b
	stripped.IntegrityProof = nil

	enc, err := canonical.Encode(stripped)
	if err != nil {
		return nil, fmt.Errorf("mtb: seal: canonicalize: %w", err)
	}
	hash, err := crypto.Hash(enc, crypto.SHA256)
	if err != nil {
		return nil, fmt.Errorf("mtb: seal: hash: %w", err)
	}

	sealed := stripped
	sealed.IntegrityProof = &IntegrityProof{Alg: "sha256", Hash: hash}
	return &sealed, nil
}

// VerifySeal strips b's integrity_proof, recomputes the canonical hash,
// and compares it against the stored value.
func VerifySeal(b *Bundle) error {
	if b.IntegrityProof == nil {
		return fmt.Errorf("mtb: verify seal: bundle carries no integrity_proof")
	}
	want := b.IntegrityProof.Hash

	stripped := *b
	stripped.IntegrityProof = nil
	enc, err := canonical.Encode(stripped)
	if err != nil {
		return fmt.Errorf("mtb: verify seal: canonicalize: %w", err)
	}
	got, err := crypto.Hash(enc, crypto.SHA256)
	if err != nil {
		return fmt.Errorf("mtb: verify seal: hash: %w", err)
	}
	if got != want {
		return &SealMismatch{Want: want, Got: got}
	}
	return nil
}
