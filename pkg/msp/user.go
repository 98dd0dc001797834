/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package msp

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/x509"

	"github.com/cloudflare/cfssl/helpers"
	"github.com/golang/protobuf/proto"
	pb_msp "github.com/hyperledger/fabric-protos-go/msp"
	"github.com/pkg/errors"

	"github.com/securekey/fabric-txflow/pkg/common/logging"
	"github.com/securekey/fabric-txflow/pkg/common/providers/core"
)

var logger = logging.NewLogger("fabtxflow/msp")

// User is a signing identity backed by an enrollment certificate and its private key
type User struct {
	id                    string
	mspID                 string
	enrollmentCertificate []byte
	certificate           *x509.Certificate
	privateKey            crypto.Signer
	cryptoSuite           core.CryptoSuite
}

// NewUser creates a User from a PEM encoded certificate and private key.
// The key must match the certificate's public key.
func NewUser(id, mspID string, certPEM, keyPEM []byte, cryptoSuite core.CryptoSuite) (*User, error) {
	if mspID == "" {
		return nil, errors.New("MSP ID is required")
	}
	if cryptoSuite == nil {
		return nil, errors.New("crypto suite is required")
	}

	cert, err := helpers.ParseCertificatePEM(certPEM)
	if err != nil {
		return nil, errors.Wrap(err, "parsing enrollment certificate failed")
	}

	key, err := helpers.ParsePrivateKeyPEM(keyPEM)
	if err != nil {
		return nil, errors.Wrap(err, "parsing private key failed")
	}

	if !publicKeysMatch(cert.PublicKey, key.Public()) {
		return nil, errors.Errorf("private key does not match the certificate of user %s", id)
	}

	logger.Debugf("Loaded user %s of %s", id, mspID)

	return &User{
		id:                    id,
		mspID:                 mspID,
		enrollmentCertificate: certPEM,
		certificate:           cert,
		privateKey:            key,
		cryptoSuite:           cryptoSuite,
	}, nil
}

// Identifier returns the user ID
func (u *User) Identifier() string {
	return u.id
}

// MSPID returns the MSP for this user
func (u *User) MSPID() string {
	return u.mspID
}

// EnrollmentCertificate returns the PEM encoded enrollment certificate
func (u *User) EnrollmentCertificate() []byte {
	return u.enrollmentCertificate
}

// Certificate returns the parsed enrollment certificate
func (u *User) Certificate() *x509.Certificate {
	return u.certificate
}

// Serialize returns the user's serialized identity
func (u *User) Serialize() ([]byte, error) {
	serializedIdentity := &pb_msp.SerializedIdentity{
		Mspid:   u.mspID,
		IdBytes: u.enrollmentCertificate,
	}
	identity, err := proto.Marshal(serializedIdentity)
	if err != nil {
		return nil, errors.Wrap(err, "marshal serializedIdentity failed")
	}
	return identity, nil
}

// Sign hashes msg with the crypto suite and signs the digest
func (u *User) Sign(msg []byte) ([]byte, error) {
	digest, err := u.cryptoSuite.Hash(msg)
	if err != nil {
		return nil, errors.WithMessage(err, "hashing message failed")
	}
	return u.cryptoSuite.Sign(u.privateKey, digest)
}

func publicKeysMatch(certKey interface{}, key crypto.PublicKey) bool {
	certECKey, ok := certKey.(*ecdsa.PublicKey)
	if !ok {
		return false
	}
	ecKey, ok := key.(*ecdsa.PublicKey)
	if !ok {
		return false
	}
	return certECKey.Curve == ecKey.Curve && certECKey.X.Cmp(ecKey.X) == 0 && certECKey.Y.Cmp(ecKey.Y) == 0
}
