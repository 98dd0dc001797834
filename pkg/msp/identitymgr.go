/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package msp

import (
	"strings"
	"sync"

	"github.com/pkg/errors"

	"github.com/securekey/fabric-txflow/pkg/common/providers/core"
	"github.com/securekey/fabric-txflow/pkg/common/providers/msp"
	"github.com/securekey/fabric-txflow/pkg/core/config"
)

// IdentityManager creates signing identities for the users of the network config
type IdentityManager struct {
	users       map[string]config.UserConfig
	cryptoSuite core.CryptoSuite

	mutex sync.Mutex
	cache map[string]*User
}

// NewIdentityManager creates an identity manager for the configured users
func NewIdentityManager(networkConfig *config.NetworkConfig, cryptoSuite core.CryptoSuite) (*IdentityManager, error) {
	if networkConfig == nil {
		return nil, errors.New("network config is required")
	}
	if cryptoSuite == nil {
		return nil, errors.New("crypto suite is required")
	}
	return &IdentityManager{
		users:       networkConfig.Users,
		cryptoSuite: cryptoSuite,
		cache:       make(map[string]*User),
	}, nil
}

// GetSigningIdentity returns the signing identity of the named user
func (mgr *IdentityManager) GetSigningIdentity(name string) (msp.SigningIdentity, error) {
	key := strings.ToLower(name)

	mgr.mutex.Lock()
	defer mgr.mutex.Unlock()

	if user, ok := mgr.cache[key]; ok {
		return user, nil
	}

	userConfig, ok := mgr.users[key]
	if !ok {
		return nil, errors.Wrapf(msp.ErrUserNotFound, "user %s", name)
	}

	user, err := NewUser(name, userConfig.MSPID, userConfig.Cert.Bytes(), userConfig.Key.Bytes(), mgr.cryptoSuite)
	if err != nil {
		return nil, errors.WithMessagef(err, "failed to load user %s", name)
	}
	mgr.cache[key] = user
	return user, nil
}
