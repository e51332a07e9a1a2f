package crypto

import (
	"bytes"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"fmt"
)

// pssOptions fixes the salt length so that two signatures over the same
// bytes with the same key are bit-identical — signatures are evidence of
// who signed, not evidence that signing happened more than once.
// SaltLength: 0 is NOT a zero-length salt; crypto/rsa treats it as the
// rsa.PSSSaltLengthAuto sentinel, the maximum possible salt length.
// PSSSaltLengthEqualsHash fixes the salt length at the hash size. rsa.SignPSS
// reads the salt bytes from its rand argument, so Sign supplies a reader
// whose bytes are derived from the digest rather than crypto/rand.
var pssOptions = &rsa.PSSOptions{SaltLength: rsa.PSSSaltLengthEqualsHash, Hash: crypto.SHA256}

// Signer produces signatures over canonical bytes.
type Signer interface {
	Sign(canonicalBytes []byte) (signatureHex string, err error)
	PublicKeyBytes() ([]byte, error)
}

// RSASigner signs with RSA-PSS, SHA-256, and a hash-length salt derived
// from the digest.
type RSASigner struct {
	key *rsa.PrivateKey
}

// NewRSASigner wraps an existing private key.
func NewRSASigner(key *rsa.PrivateKey) *RSASigner {
	return &RSASigner{key: key}
}

// GenerateRSASigner creates a fresh key pair (test/tooling convenience; the
// core never generates keys as part of evidence production — signing is
// optional and key management is an external collaborator's concern).
func GenerateRSASigner(bits int) (*RSASigner, error) {
	key, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, fmt.Errorf("crypto: generate rsa key: %w", err)
	}
	return &RSASigner{key: key}, nil
}

// Sign returns the hex-encoded RSA-PSS signature over sha256(canonicalBytes).
func (s *RSASigner) Sign(canonicalBytes []byte) (string, error) {
	if s.key == nil {
		return "", fmt.Errorf("crypto: signer has no private key")
	}
	digest := sha256.Sum256(canonicalBytes)
	// The salt is SHA-256(digest), so the same bytes always sign identically.
	salt := sha256.Sum256(digest[:])
	sig, err := rsa.SignPSS(bytes.NewReader(salt[:]), s.key, crypto.SHA256, digest[:], pssOptions)
	if err != nil {
		return "", fmt.Errorf("crypto: sign: %w", err)
	}
	return hex.EncodeToString(sig), nil
}

// PublicKeyBytes returns the PEM-encoded PKIX public key.
func (s *RSASigner) PublicKeyBytes() ([]byte, error) {
	der, err := x509.MarshalPKIXPublicKey(&s.key.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("crypto: marshal public key: %w", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}), nil
}
