/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package cryptosuite

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/asn1"
	"hash"
	"math/big"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/crypto/sha3"
)

// Hash families
const (
	SHA2 = "SHA2"
	SHA3 = "SHA3"
)

var curveHalfOrders = map[elliptic.Curve]*big.Int{
	elliptic.P224(): new(big.Int).Rsh(elliptic.P224().Params().N, 1),
	elliptic.P256(): new(big.Int).Rsh(elliptic.P256().Params().N, 1),
	elliptic.P384(): new(big.Int).Rsh(elliptic.P384().Params().N, 1),
	elliptic.P521(): new(big.Int).Rsh(elliptic.P521().Params().N, 1),
}

type ecdsaSignature struct {
	R, S *big.Int
}

// Suite is a software crypto suite hashing with SHA2 or SHA3 and signing
// with ECDSA keys. Signatures are normalized to low-S.
type Suite struct {
	family  string
	level   int
	newHash func() hash.Hash
}

// New returns a suite for the given hash family and security level (256 or 384)
func New(family string, level int) (*Suite, error) {
	family = strings.ToUpper(family)

	var newHash func() hash.Hash
	switch {
	case family == SHA2 && level == 256:
		newHash = sha256.New
	case family == SHA2 && level == 384:
		newHash = sha512.New384
	case family == SHA3 && level == 256:
		newHash = sha3.New256
	case family == SHA3 && level == 384:
		newHash = sha3.New384
	default:
		return nil, errors.Errorf("unsupported hash family %s with security level %d", family, level)
	}

	return &Suite{family: family, level: level, newHash: newHash}, nil
}

// GetSuiteByConfig returns a suite matching the crypto configuration
func GetSuiteByConfig(config *Config) (*Suite, error) {
	return New(config.SecurityAlgorithm(), config.SecurityLevel())
}

// Family returns the hash family
func (s *Suite) Family() string {
	return s.family
}

// Level returns the security level
func (s *Suite) Level() int {
	return s.level
}

// Hash computes the digest of msg
func (s *Suite) Hash(msg []byte) ([]byte, error) {
	h := s.newHash()
	if _, err := h.Write(msg); err != nil {
		return nil, errors.Wrap(err, "hash failed")
	}
	return h.Sum(nil), nil
}

// Sign signs digest with key. ECDSA signatures are returned in low-S form.
func (s *Suite) Sign(key crypto.Signer, digest []byte) ([]byte, error) {
	if key == nil {
		return nil, errors.New("signing key is required")
	}
	if len(digest) == 0 {
		return nil, errors.New("digest is required")
	}

	signature, err := key.Sign(rand.Reader, digest, crypto.Hash(0))
	if err != nil {
		return nil, errors.Wrap(err, "signing failed")
	}

	pub, ok := key.Public().(*ecdsa.PublicKey)
	if !ok {
		return signature, nil
	}
	return toLowS(pub, signature)
}

// Nonce returns a random transaction nonce
func (s *Suite) Nonce() ([]byte, error) {
	return GetRandomNonce()
}

// Verify checks an ECDSA signature over digest. High-S signatures are rejected.
func (s *Suite) Verify(pub *ecdsa.PublicKey, signature, digest []byte) (bool, error) {
	sig := &ecdsaSignature{}
	if _, err := asn1.Unmarshal(signature, sig); err != nil {
		return false, errors.Wrap(err, "failed unmarshalling signature")
	}
	if sig.R == nil || sig.S == nil || sig.R.Sign() <= 0 || sig.S.Sign() <= 0 {
		return false, errors.New("invalid signature")
	}

	halfOrder, ok := curveHalfOrders[pub.Curve]
	if !ok {
		return false, errors.New("unsupported curve")
	}
	if sig.S.Cmp(halfOrder) > 0 {
		return false, errors.New("invalid S, must be smaller than half the order")
	}

	return ecdsa.Verify(pub, digest, sig.R, sig.S), nil
}

func toLowS(pub *ecdsa.PublicKey, signature []byte) ([]byte, error) {
	sig := &ecdsaSignature{}
	if _, err := asn1.Unmarshal(signature, sig); err != nil {
		return nil, errors.Wrap(err, "failed unmarshalling signature")
	}

	halfOrder, ok := curveHalfOrders[pub.Curve]
	if !ok {
		return nil, errors.New("unsupported curve")
	}

	if sig.S.Cmp(halfOrder) == 1 {
		sig.S.Sub(pub.Params().N, sig.S)
	}
	return asn1.Marshal(*sig)
}
