/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package cryptosuite

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/asn1"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/sha3"
)

type mapBackend map[string]interface{}

func (b mapBackend) Lookup(key string) (interface{}, bool) {
	v, ok := b[key]
	return v, ok
}

func TestGetDefault(t *testing.T) {
	defSuite := GetDefault()
	require.NotNil(t, defSuite)
	assert.True(t, DefaultInitialized())

	digest, err := defSuite.Hash([]byte("Sample message"))
	require.NoError(t, err)
	expected := sha256.Sum256([]byte("Sample message"))
	assert.Equal(t, expected[:], digest)

	err = SetDefault(nil)
	assert.EqualError(t, err, "default crypto suite is already set")

	//Reset
	defaultCryptoSuite = nil
	atomic.StoreInt32(&initialized, 0)

	err = SetDefault(nil)
	assert.EqualError(t, err, "attempting to set invalid default suite")
}

func TestHashFamilies(t *testing.T) {
	msg := []byte("hello")

	sha384 := sha512.Sum384(msg)
	sha3256 := sha3.Sum256(msg)
	sha3384 := sha3.Sum384(msg)

	tests := []struct {
		family   string
		level    int
		expected []byte
	}{
		{"SHA2", 384, sha384[:]},
		{"sha3", 256, sha3256[:]},
		{"SHA3", 384, sha3384[:]},
	}
	for _, tc := range tests {
		s, err := New(tc.family, tc.level)
		require.NoError(t, err)
		digest, err := s.Hash(msg)
		require.NoError(t, err)
		assert.Equal(t, tc.expected, digest, "%s-%d", tc.family, tc.level)
	}

	_, err := New("SHA0", 256)
	assert.Error(t, err)
	_, err = New("SHA2", 512)
	assert.Error(t, err)
}

func TestSignLowS(t *testing.T) {
	s, err := New(SHA2, 256)
	require.NoError(t, err)

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	halfOrder := curveHalfOrders[elliptic.P256()]
	for i := 0; i < 20; i++ {
		digest, err := s.Hash([]byte{byte(i)})
		require.NoError(t, err)

		signature, err := s.Sign(key, digest)
		require.NoError(t, err)

		sig := &ecdsaSignature{}
		_, err = asn1.Unmarshal(signature, sig)
		require.NoError(t, err)
		assert.True(t, sig.S.Cmp(halfOrder) <= 0, "signature must be low-S")

		valid, err := s.Verify(&key.PublicKey, signature, digest)
		require.NoError(t, err)
		assert.True(t, valid)
	}
}

func TestVerifyRejectsHighS(t *testing.T) {
	s, err := New(SHA2, 256)
	require.NoError(t, err)

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	digest, err := s.Hash([]byte("msg"))
	require.NoError(t, err)
	signature, err := s.Sign(key, digest)
	require.NoError(t, err)

	sig := &ecdsaSignature{}
	_, err = asn1.Unmarshal(signature, sig)
	require.NoError(t, err)
	sig.S.Sub(key.Params().N, sig.S)
	highS, err := asn1.Marshal(*sig)
	require.NoError(t, err)

	_, err = s.Verify(&key.PublicKey, highS, digest)
	assert.Error(t, err)

	_, err = s.Verify(&key.PublicKey, []byte("garbage"), digest)
	assert.Error(t, err)
}

func TestSignErrors(t *testing.T) {
	s, err := New(SHA2, 256)
	require.NoError(t, err)

	_, err = s.Sign(nil, []byte("digest"))
	assert.Error(t, err)

	key, err := ecdsa.GenerateKey(elliptic.P384(), rand.Reader)
	require.NoError(t, err)
	_, err = s.Sign(key, nil)
	assert.Error(t, err)

	// non ECDSA keys are signed without normalization
	_, edKey, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	signature, err := s.Sign(edKey, []byte("message"))
	require.NoError(t, err)
	assert.Len(t, signature, ed25519.SignatureSize)
}

func TestNonce(t *testing.T) {
	s, err := New(SHA2, 256)
	require.NoError(t, err)

	n1, err := s.Nonce()
	require.NoError(t, err)
	n2, err := GetRandomNonce()
	require.NoError(t, err)

	assert.Len(t, n1, NonceSize)
	assert.Len(t, n2, NonceSize)
	assert.False(t, bytes.Equal(n1, n2))
}

func TestConfig(t *testing.T) {
	c := ConfigFromBackend(mapBackend{})
	assert.Equal(t, SHA2, c.SecurityAlgorithm())
	assert.Equal(t, 256, c.SecurityLevel())

	c = ConfigFromBackend(mapBackend{"client.cryptoconfig.family": "SHA3", "client.cryptoconfig.level": "384"})
	s, err := GetSuiteByConfig(c)
	require.NoError(t, err)
	assert.Equal(t, SHA3, s.Family())
	assert.Equal(t, 384, s.Level())
}
