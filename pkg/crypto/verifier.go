package crypto

import (
	"crypto"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"fmt"
)

// SignatureInvalid is returned when a signature fails to verify against the
// supplied public key.
type SignatureInvalid struct {
	Reason string
}

func (e *SignatureInvalid) Error() string {
	return fmt.Sprintf("signature invalid: %s", e.Reason)
}

// Verify checks a hex-encoded RSA-PSS signature over canonicalBytes using a
// PEM-encoded PKIX public key. It requires no trusted authority beyond the
// key supplied by the caller.
func Verify(publicKeyPEM []byte, signatureHex string, canonicalBytes []byte) error {
	block, _ := pem.Decode(publicKeyPEM)
	if block == nil {
		return &SignatureInvalid{Reason: "no PEM block found in public key"}
	}
	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return &SignatureInvalid{Reason: fmt.Sprintf("parse public key: %v", err)}
	}
	rsaPub, ok := pub.(*rsa.PublicKey)
	if !ok {
		return &SignatureInvalid{Reason: "public key is not RSA"}
	}
	sig, err := hex.DecodeString(signatureHex)
	if err != nil {
		return &SignatureInvalid{Reason: fmt.Sprintf("decode signature hex: %v", err)}
	}
	digest := sha256.Sum256(canonicalBytes)
	if err := rsa.VerifyPSS(rsaPub, crypto.SHA256, digest[:], sig, pssOptions); err != nil {
		return &SignatureInvalid{Reason: fmt.Sprintf("pss verify: %v", err)}
	}
	return nil
}
