// Package signerbackend implements the polymorphic signer capability:
// ensure_ready() / sign(hash). Two tagged implementations are provided,
// selected at bootstrap from WT_PRODUCER_SIGNER_MODE, following the
// same backend-selection-by-config pattern used elsewhere in the
// daemon's bootstrap.
package signerbackend

import (
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"github.com/obycode/stackflow-sub001/internal/apierr"
)

// Backend signs a 32-byte digest on behalf of the operator principal.
// Neither implementation may log the private key or its pre-image;
// only the resulting signature's hex may be logged.
type Backend interface {
	EnsureReady() error
	Sign(hash [32]byte) ([65]byte, error)
}

// LocalKey holds a raw secp256k1 private key in process memory and signs
// with a recoverable ECDSA signature, rotated into a recovery-byte-last
// 65-byte layout (decred's ecdsa.SignCompact natively produces
// recovery-byte-first).
type LocalKey struct {
	priv *secp256k1.PrivateKey
}

// NewLocalKey constructs a LocalKey backend from a raw 32-byte private key.
func NewLocalKey(keyBytes []byte) (*LocalKey, error) {
	if len(keyBytes) != 32 {
		return nil, fmt.Errorf("operator key must be 32 bytes, got %d", len(keyBytes))
	}
	priv := secp256k1.PrivKeyFromBytes(keyBytes)
	return &LocalKey{priv: priv}, nil
}

func (l *LocalKey) EnsureReady() error {
	if l.priv == nil {
		return apierr.SignerDisabled()
	}
	return nil
}

func (l *LocalKey) Sign(hash [32]byte) ([65]byte, error) {
	var out [65]byte
	if l.priv == nil {
		return out, apierr.SignerDisabled()
	}

	// ecdsa.SignCompact returns [recoveryID+27(+4) | R(32) | S(32)].
	compact := ecdsa.SignCompact(l.priv, hash[:], false)
	if len(compact) != 65 {
		return out, fmt.Errorf("unexpected compact signature length %d", len(compact))
	}

	recoveryID := compact[0] - 27
	copy(out[0:64], compact[1:65])
	out[64] = recoveryID
	return out, nil
}

// KMS delegates signing to an external key-management service identified
// by a key id. If no key id is configured, EnsureReady succeeds (the
// backend exists) but Sign fails with SignerDisabled.
type KMS struct {
	keyID string
	sign  func(keyID string, hash [32]byte) ([65]byte, error)
}

// NewKMS constructs a KMS backend. sign is the client call that performs
// the actual remote signing; it is injected so tests can substitute a
// fake without reaching a real KMS endpoint.
func NewKMS(keyID string, sign func(keyID string, hash [32]byte) ([65]byte, error)) *KMS {
	return &KMS{keyID: keyID, sign: sign}
}

func (k *KMS) EnsureReady() error {
	return nil
}

func (k *KMS) Sign(hash [32]byte) ([65]byte, error) {
	var out [65]byte
	if k.keyID == "" {
		return out, apierr.SignerDisabled()
	}
	return k.sign(k.keyID, hash)
}
