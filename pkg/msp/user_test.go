/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package msp

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"testing"
	"time"

	"github.com/golang/protobuf/proto"
	pb_msp "github.com/hyperledger/fabric-protos-go/msp"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/securekey/fabric-txflow/pkg/common/providers/msp"
	"github.com/securekey/fabric-txflow/pkg/core/config"
	"github.com/securekey/fabric-txflow/pkg/core/config/endpoint"
	"github.com/securekey/fabric-txflow/pkg/core/cryptosuite"
)

func newCredentials(t *testing.T) (certPEM, keyPEM []byte, key *ecdsa.PrivateKey) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	template := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "User1@org1.example.com"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	require.NoError(t, err)

	keyDER, err := x509.MarshalECPrivateKey(key)
	require.NoError(t, err)

	certPEM = pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	keyPEM = pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER})
	return certPEM, keyPEM, key
}

func newSuite(t *testing.T) *cryptosuite.Suite {
	s, err := cryptosuite.New(cryptosuite.SHA2, 256)
	require.NoError(t, err)
	return s
}

func TestNewUser(t *testing.T) {
	certPEM, keyPEM, key := newCredentials(t)
	suite := newSuite(t)

	user, err := NewUser("user1", "Org1MSP", certPEM, keyPEM, suite)
	require.NoError(t, err)
	assert.Equal(t, "user1", user.Identifier())
	assert.Equal(t, "Org1MSP", user.MSPID())
	assert.Equal(t, certPEM, user.EnrollmentCertificate())
	assert.Equal(t, "User1@org1.example.com", user.Certificate().Subject.CommonName)

	serialized, err := user.Serialize()
	require.NoError(t, err)
	identity := &pb_msp.SerializedIdentity{}
	require.NoError(t, proto.Unmarshal(serialized, identity))
	assert.Equal(t, "Org1MSP", identity.Mspid)
	assert.Equal(t, certPEM, identity.IdBytes)

	msg := []byte("message")
	signature, err := user.Sign(msg)
	require.NoError(t, err)
	digest, err := suite.Hash(msg)
	require.NoError(t, err)
	valid, err := suite.Verify(&key.PublicKey, signature, digest)
	require.NoError(t, err)
	assert.True(t, valid)
}

func TestNewUserErrors(t *testing.T) {
	certPEM, keyPEM, _ := newCredentials(t)
	_, otherKeyPEM, _ := newCredentials(t)
	suite := newSuite(t)

	_, err := NewUser("user1", "", certPEM, keyPEM, suite)
	assert.Error(t, err)

	_, err = NewUser("user1", "Org1MSP", certPEM, keyPEM, nil)
	assert.Error(t, err)

	_, err = NewUser("user1", "Org1MSP", []byte("bad cert"), keyPEM, suite)
	assert.Error(t, err)

	_, err = NewUser("user1", "Org1MSP", certPEM, []byte("bad key"), suite)
	assert.Error(t, err)

	_, err = NewUser("user1", "Org1MSP", certPEM, otherKeyPEM, suite)
	assert.Error(t, err)
}

func TestIdentityManager(t *testing.T) {
	certPEM, keyPEM, _ := newCredentials(t)
	userConfig := config.UserConfig{
		MSPID: "Org1MSP",
		Cert:  endpoint.TLSConfig{Pem: string(certPEM)},
		Key:   endpoint.TLSConfig{Pem: string(keyPEM)},
	}
	require.NoError(t, userConfig.Cert.LoadBytes())
	require.NoError(t, userConfig.Key.LoadBytes())

	networkConfig := &config.NetworkConfig{
		Users: map[string]config.UserConfig{
			"user1":  userConfig,
			"broken": {MSPID: "Org1MSP"},
		},
	}

	_, err := NewIdentityManager(nil, newSuite(t))
	assert.Error(t, err)

	mgr, err := NewIdentityManager(networkConfig, newSuite(t))
	require.NoError(t, err)

	id, err := mgr.GetSigningIdentity("User1")
	require.NoError(t, err)
	assert.Equal(t, "Org1MSP", id.MSPID())

	again, err := mgr.GetSigningIdentity("user1")
	require.NoError(t, err)
	assert.True(t, id == again, "identity should be cached")

	_, err = mgr.GetSigningIdentity("nobody")
	assert.Equal(t, msp.ErrUserNotFound, errors.Cause(err))

	_, err = mgr.GetSigningIdentity("broken")
	assert.Error(t, err)
}
