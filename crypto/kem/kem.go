// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package kem wraps ML-KEM-768 key encapsulation for session-key
// establishment ahead of the vault collaborator's transport handshake.
package kem

import (
	"fmt"

	"github.com/luxfi/crypto/mlkem"
)

// Mode is the ML-KEM parameter set used by this package.
const Mode = mlkem.MLKEM768

// PrivateKey and PublicKey alias the underlying library types so callers
// never need to import mlkem directly.
type (
	PrivateKey = mlkem.PrivateKey
	PublicKey  = mlkem.PublicKey
)

// SharedSecret is the symmetric key material produced by an encapsulation
// or decapsulation, sized to the mode's shared-secret length.
type SharedSecret []byte

// Ciphertext is the encapsulated key sent to the peer.
type Ciphertext []byte

// Generate returns a fresh ML-KEM-768 key pair.
func Generate() (*PublicKey, *PrivateKey, error) {
	pub, priv, err := mlkem.GenerateKeyPair(Mode)
	if err != nil {
		return nil, nil, fmt.Errorf("generate ml-kem-768 key: %w", err)
	}
	return pub, priv, nil
}

// Encapsulate derives a shared secret under pub and returns it alongside the
// ciphertext to send to the key's owner.
func Encapsulate(pub *PublicKey) (SharedSecret, Ciphertext, error) {
	secret, ct, err := pub.Encapsulate()
	if err != nil {
		return nil, nil, fmt.Errorf("encapsulate: %w", err)
	}
	return SharedSecret(secret), Ciphertext(ct), nil
}

// Decapsulate recovers the shared secret from ct using priv.
func Decapsulate(priv *PrivateKey, ct Ciphertext) (SharedSecret, error) {
	secret, err := priv.Decapsulate(ct)
	if err != nil {
		return nil, fmt.Errorf("decapsulate: %w", err)
	}
	return SharedSecret(secret), nil
}
