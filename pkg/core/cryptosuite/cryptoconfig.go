/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package cryptosuite

import (
	"github.com/spf13/cast"

	"github.com/securekey/fabric-txflow/pkg/common/providers/core"
	"github.com/securekey/fabric-txflow/pkg/core/config/lookup"
)

const (
	defHashAlgorithm = SHA2
	defLevel         = 256
)

//ConfigFromBackend returns the crypto suite config for the given backends
func ConfigFromBackend(coreBackend ...core.ConfigBackend) *Config {
	return &Config{backend: lookup.New(coreBackend...)}
}

// Config represents the crypto suite configuration for the client
type Config struct {
	backend *lookup.ConfigLookup
}

// SecurityAlgorithm returns the hash family
func (c *Config) SecurityAlgorithm() string {
	val, ok := c.backend.Lookup("client.cryptoconfig.family")
	if !ok {
		return defHashAlgorithm
	}
	return cast.ToString(val)
}

// SecurityLevel returns the security level
func (c *Config) SecurityLevel() int {
	val, ok := c.backend.Lookup("client.cryptoconfig.level")
	if !ok {
		return defLevel
	}
	return cast.ToInt(val)
}
