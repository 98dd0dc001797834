/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package metadata

import (
	"strings"

	"github.com/securekey/fabric-txflow/pkg/core/logging/api"
)

// ModuleLevels maintains log levels by module. A module without its own level
// inherits the level of its closest parent ("fabtxflow/txn" falls back to
// "fabtxflow"), then the default level registered under "".
type ModuleLevels struct {
	levels map[string]api.Level
}

// GetLevel returns the log level for the given module.
func (l *ModuleLevels) GetLevel(module string) api.Level {
	for m := module; ; {
		if level, ok := l.levels[m]; ok {
			return level
		}
		i := strings.LastIndex(m, "/")
		if i < 0 {
			break
		}
		m = m[:i]
	}
	if level, ok := l.levels[""]; ok {
		return level
	}
	return api.INFO
}

// SetLevel sets the log level for the given module.
func (l *ModuleLevels) SetLevel(module string, level api.Level) {
	if l.levels == nil {
		l.levels = make(map[string]api.Level)
	}
	l.levels[module] = level
}

// IsEnabledFor will return true if logging is enabled for the given module.
func (l *ModuleLevels) IsEnabledFor(module string, level api.Level) bool {
	return level <= l.GetLevel(module)
}
