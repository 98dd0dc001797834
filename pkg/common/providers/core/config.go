/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package core

// ConfigBackend backend for all config types in the client
type ConfigBackend interface {
	Lookup(key string) (interface{}, bool)
}

// ConfigProvider provides config backend for the client
type ConfigProvider func() ([]ConfigBackend, error)
