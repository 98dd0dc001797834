/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package cryptosuite

import (
	"crypto/rand"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"

	"github.com/securekey/fabric-txflow/pkg/common/logging"
	"github.com/securekey/fabric-txflow/pkg/common/providers/core"
)

var logger = logging.NewLogger("fabtxflow/core")

// NonceSize is the length of a transaction nonce
const NonceSize = 24

var initOnce sync.Once
var defaultCryptoSuite core.CryptoSuite
var initialized int32

func initSuite(defaultSuite core.CryptoSuite) error {
	if defaultSuite == nil {
		return errors.New("attempting to set invalid default suite")
	}
	initOnce.Do(func() {
		defaultCryptoSuite = defaultSuite
		atomic.StoreInt32(&initialized, 1)
	})
	return nil
}

//GetDefault returns the default suite, creating a SHA2-256 suite if none was set
func GetDefault() core.CryptoSuite {
	if atomic.LoadInt32(&initialized) > 0 {
		return defaultCryptoSuite
	}
	logger.Info("No default cryptosuite found, using SHA2-256")

	s, err := New(SHA2, 256)
	if err != nil {
		logger.Panicf("Could not initialize default cryptosuite: %s", err)
	}
	if err := initSuite(s); err != nil {
		logger.Panicf("Could not set default cryptosuite: %s", err)
	}

	return defaultCryptoSuite
}

//SetDefault sets default suite if one is not already set or created.
//It must be called before the first call to GetDefault.
func SetDefault(newDefaultSuite core.CryptoSuite) error {
	if atomic.LoadInt32(&initialized) > 0 {
		return errors.New("default crypto suite is already set")
	}
	return initSuite(newDefaultSuite)
}

// DefaultInitialized returns true if a default suite has already been set.
func DefaultInitialized() bool {
	return atomic.LoadInt32(&initialized) > 0
}

// GetRandomNonce returns a random byte array of length NonceSize
func GetRandomNonce() ([]byte, error) {
	nonce := make([]byte, NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, errors.Wrap(err, "error getting random bytes")
	}
	return nonce, nil
}
