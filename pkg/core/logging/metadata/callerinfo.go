/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package metadata

import "github.com/securekey/fabric-txflow/pkg/core/logging/api"

type callerInfoKey struct {
	module string
	level  api.Level
}

// CallerInfo toggles caller annotations per module and level.
// Caller info is shown unless hidden for the module or, failing that, for "".
type CallerInfo struct {
	showcaller map[callerInfoKey]bool
}

// ShowCallerInfo enables caller info for given module and level
func (c *CallerInfo) ShowCallerInfo(module string, level api.Level) {
	c.set(module, level, true)
}

// HideCallerInfo disables caller info for given module and level
func (c *CallerInfo) HideCallerInfo(module string, level api.Level) {
	c.set(module, level, false)
}

// IsCallerInfoEnabled returns if caller info is enabled for given module and level
func (c *CallerInfo) IsCallerInfoEnabled(module string, level api.Level) bool {
	if show, ok := c.showcaller[callerInfoKey{module, level}]; ok {
		return show
	}
	if show, ok := c.showcaller[callerInfoKey{"", level}]; ok {
		return show
	}
	return true
}

func (c *CallerInfo) set(module string, level api.Level, show bool) {
	if c.showcaller == nil {
		c.showcaller = make(map[callerInfoKey]bool)
	}
	c.showcaller[callerInfoKey{module, level}] = show
}
