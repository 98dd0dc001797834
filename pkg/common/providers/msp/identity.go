/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package msp

import (
	"github.com/pkg/errors"
)

var (
	// ErrUserNotFound indicates the user was not found
	ErrUserNotFound = errors.New("user not found")
)

// Identity represents a client identity
type Identity interface {
	// Identifier returns the enrollment ID
	Identifier() string
	// MSPID returns the MSP the identity belongs to
	MSPID() string
	// EnrollmentCertificate returns the PEM encoded certificate
	EnrollmentCertificate() []byte
	// Serialize returns the serialized identity used as transaction creator
	Serialize() ([]byte, error)
}

// SigningIdentity is an Identity that can sign messages
type SigningIdentity interface {
	Identity
	// Sign hashes and signs msg
	Sign(msg []byte) ([]byte, error)
}

// IdentityManager provides the signing identities known to the client
type IdentityManager interface {
	GetSigningIdentity(name string) (SigningIdentity, error)
}
