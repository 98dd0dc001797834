/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package logging is the module logger facade used throughout fabric-txflow.
//
//  Basic Flow:
//  1) Optionally call Initialize with a custom api.LoggerProvider
//  2) Create a logger per module with NewLogger
//  3) Log through the leveled methods
package logging

import (
	"sync"

	"github.com/securekey/fabric-txflow/pkg/core/logging/api"
	"github.com/securekey/fabric-txflow/pkg/core/logging/metadata"
	"github.com/securekey/fabric-txflow/pkg/core/logging/modlog"
)

// Logger is a lazily bound module logger
type Logger struct {
	instance api.Logger // access only via Logger.logger()
	module   string
	once     sync.Once
}

// access only via loggerProvider()
var loggerProviderInstance api.LoggerProvider
var loggerProviderOnce sync.Once

// Level defines all available log levels for log messages.
type Level int

// Log levels.
const (
	CRITICAL Level = iota
	ERROR
	WARNING
	INFO
	DEBUG
)

const loggerModule = "fabtxflow/common"

// NewLogger creates a Logger for the module. The underlying logger is created on first use.
func NewLogger(module string) *Logger {
	return &Logger{module: module}
}

func loggerProvider() api.LoggerProvider {
	loggerProviderOnce.Do(func() {
		loggerProviderInstance = modlog.LoggerProvider()
		loggerProviderInstance.GetLogger(loggerModule).Debug("Default zap logger initialized")
	})
	return loggerProviderInstance
}

// Initialize sets the logger provider. It must be called before any logging.
func Initialize(l api.LoggerProvider) {
	loggerProviderOnce.Do(func() {
		loggerProviderInstance = l
		loggerProviderInstance.GetLogger(loggerModule).Debug("Logger provider initialized")
	})
}

// SetLevel sets the log level for the given module
func SetLevel(module string, level Level) {
	modlog.SetLevel(module, api.Level(level))
}

// GetLevel returns the log level for the given module
func GetLevel(module string) Level {
	return Level(modlog.GetLevel(module))
}

// IsEnabledFor checks if the given log level is enabled for the given module
func IsEnabledFor(module string, level Level) bool {
	return modlog.IsEnabledFor(module, api.Level(level))
}

// LogLevel returns the log level from a string representation.
func LogLevel(level string) (Level, error) {
	l, err := metadata.ParseLevel(level)
	return Level(l), err
}

// Fatal calls Fatal function of underlying logger
func (l *Logger) Fatal(args ...interface{}) {
	l.logger().Fatal(args...)
}

// Fatalf calls Fatalf function of underlying logger
func (l *Logger) Fatalf(format string, args ...interface{}) {
	l.logger().Fatalf(format, args...)
}

// Panic calls Panic function of underlying logger
func (l *Logger) Panic(args ...interface{}) {
	l.logger().Panic(args...)
}

// Panicf calls Panicf function of underlying logger
func (l *Logger) Panicf(format string, args ...interface{}) {
	l.logger().Panicf(format, args...)
}

// Debug calls Debug function of underlying logger
func (l *Logger) Debug(args ...interface{}) {
	l.logger().Debug(args...)
}

// Debugf calls Debugf function of underlying logger
func (l *Logger) Debugf(format string, args ...interface{}) {
	l.logger().Debugf(format, args...)
}

// Info calls Info function of underlying logger
func (l *Logger) Info(args ...interface{}) {
	l.logger().Info(args...)
}

// Infof calls Infof function of underlying logger
func (l *Logger) Infof(format string, args ...interface{}) {
	l.logger().Infof(format, args...)
}

// Warn calls Warn function of underlying logger
func (l *Logger) Warn(args ...interface{}) {
	l.logger().Warn(args...)
}

// Warnf calls Warnf function of underlying logger
func (l *Logger) Warnf(format string, args ...interface{}) {
	l.logger().Warnf(format, args...)
}

// Error calls Error function of underlying logger
func (l *Logger) Error(args ...interface{}) {
	l.logger().Error(args...)
}

// Errorf calls Errorf function of underlying logger
func (l *Logger) Errorf(format string, args ...interface{}) {
	l.logger().Errorf(format, args...)
}

func (l *Logger) logger() api.Logger {
	l.once.Do(func() {
		l.instance = loggerProvider().GetLogger(l.module)
	})
	return l.instance
}
