/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package endpoint

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestURLHelpers(t *testing.T) {
	assert.True(t, IsTLSEnabled("GRPCS://peer0:7051"))
	assert.False(t, IsTLSEnabled("grpc://peer0:7051"))

	assert.Equal(t, "peer0:7051", ToAddress("grpc://peer0:7051"))
	assert.Equal(t, "peer0:7051", ToAddress("grpcs://peer0:7051"))
	assert.Equal(t, "peer0:7051", ToAddress("peer0:7051"))

	assert.True(t, AttemptSecured("grpcs://peer0:7051", true))
	assert.False(t, AttemptSecured("grpc://peer0:7051", false))
	assert.True(t, AttemptSecured("peer0:7051", false))
	assert.False(t, AttemptSecured("peer0:7051", true))
}

func TestTLSConfig(t *testing.T) {
	empty := &TLSConfig{}
	assert.True(t, empty.IsEmpty())
	require.NoError(t, empty.LoadBytes())
	cert, ok, err := empty.TLSCert()
	assert.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, cert)

	missing := &TLSConfig{Path: "/does/not/exist.pem"}
	assert.Error(t, missing.LoadBytes())

	invalid := &TLSConfig{Pem: "-----BEGIN CERTIFICATE-----\naW52YWxpZA==\n-----END CERTIFICATE-----\n"}
	require.NoError(t, invalid.LoadBytes())
	assert.NotEmpty(t, invalid.Bytes())
	_, _, err = invalid.TLSCert()
	assert.Error(t, err)
}
