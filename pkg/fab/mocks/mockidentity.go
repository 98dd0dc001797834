/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package mocks

import (
	"github.com/golang/protobuf/proto"
	mb "github.com/hyperledger/fabric-protos-go/msp"
)

// MockSigningIdentity is a signing identity with a fixed certificate and signature
type MockSigningIdentity struct {
	ID        string
	MSP       string
	Cert      []byte
	Signature []byte
	// SignErr, when set, is returned by Sign
	SignErr error
}

// NewMockSigningIdentity returns a mock identity for the given user and MSP
func NewMockSigningIdentity(id, mspID string) *MockSigningIdentity {
	return &MockSigningIdentity{
		ID:        id,
		MSP:       mspID,
		Cert:      []byte("-----BEGIN CERTIFICATE-----\n" + id + "\n-----END CERTIFICATE-----\n"),
		Signature: []byte("signature"),
	}
}

// Identifier returns the identifier of that identity
func (m *MockSigningIdentity) Identifier() string {
	return m.ID
}

// MSPID returns the MSP ID of the identity
func (m *MockSigningIdentity) MSPID() string {
	return m.MSP
}

// EnrollmentCertificate returns the mock certificate
func (m *MockSigningIdentity) EnrollmentCertificate() []byte {
	return m.Cert
}

// Serialize returns the serialized identity
func (m *MockSigningIdentity) Serialize() ([]byte, error) {
	return proto.Marshal(&mb.SerializedIdentity{Mspid: m.MSP, IdBytes: m.Cert})
}

// Sign returns the mock signature
func (m *MockSigningIdentity) Sign(msg []byte) ([]byte, error) {
	if m.SignErr != nil {
		return nil, m.SignErr
	}
	return m.Signature, nil
}
