/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package core

import (
	"crypto"
)

// CryptoSuite supplies the hashing, signing and randomness used to build
// transactions. It is passed explicitly to every call that needs it.
type CryptoSuite interface {
	// Hash computes the digest of msg with the suite's hash family
	Hash(msg []byte) ([]byte, error)
	// Sign signs a digest previously produced by Hash
	Sign(key crypto.Signer, digest []byte) ([]byte, error)
	// Nonce returns fresh random bytes suitable for a transaction nonce
	Nonce() ([]byte, error)
}

// SigningManager signs messages on behalf of a key holder using a crypto suite
type SigningManager interface {
	Sign(msg []byte, key crypto.Signer) ([]byte, error)
}
