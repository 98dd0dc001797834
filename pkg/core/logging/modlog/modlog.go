/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package modlog is the default module logger. Messages are filtered by the
// per-module levels kept here and written through a zap console core.
package modlog

import (
	"io"
	"os"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/securekey/fabric-txflow/pkg/core/logging/api"
	"github.com/securekey/fabric-txflow/pkg/core/logging/metadata"
)

// frames between the zap call and the caller of the logging facade
const callerSkip = 2

var rwmutex = &sync.RWMutex{}
var moduleLevels = &metadata.ModuleLevels{}
var callerInfos = &metadata.CallerInfo{}
var output zapcore.WriteSyncer = zapcore.Lock(os.Stdout)

var useCustomLogger int32
var loggerProviderInstance api.LoggerProvider
var loggerProviderOnce sync.Once

// Provider is the default logger provider
type Provider struct {
}

// GetLogger returns a zap backed logger for the module
func (p *Provider) GetLogger(module string) api.Logger {
	rwmutex.RLock()
	ws := output
	rwmutex.RUnlock()

	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	base := zap.New(zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), ws, zapcore.DebugLevel)).Named(module)

	return &Log{
		module:     module,
		plain:      base.WithOptions(zap.AddCallerSkip(callerSkip)).Sugar(),
		withCaller: base.WithOptions(zap.AddCaller(), zap.AddCallerSkip(callerSkip)).Sugar(),
	}
}

// LoggerProvider returns the default logger provider
func LoggerProvider() api.LoggerProvider {
	return &Provider{}
}

// InitLogger sets a custom logger provider which will be used instead of zap.
// It must be called before any logging.
func InitLogger(l api.LoggerProvider) {
	loggerProviderOnce.Do(func() {
		loggerProviderInstance = l
		atomic.StoreInt32(&useCustomLogger, 1)
	})
}

// SetOutput changes the destination of loggers created after the call.
func SetOutput(w io.Writer) {
	rwmutex.Lock()
	defer rwmutex.Unlock()
	output = zapcore.AddSync(w)
}

// SetLevel sets the log level for given module
func SetLevel(module string, level api.Level) {
	rwmutex.Lock()
	defer rwmutex.Unlock()
	moduleLevels.SetLevel(module, level)
}

// GetLevel returns the log level for given module
func GetLevel(module string) api.Level {
	rwmutex.RLock()
	defer rwmutex.RUnlock()
	return moduleLevels.GetLevel(module)
}

// IsEnabledFor checks if given log level is enabled for given module
func IsEnabledFor(module string, level api.Level) bool {
	rwmutex.RLock()
	defer rwmutex.RUnlock()
	return moduleLevels.IsEnabledFor(module, level)
}

// ShowCallerInfo shows caller info in log lines for given module and level
func ShowCallerInfo(module string, level api.Level) {
	rwmutex.Lock()
	defer rwmutex.Unlock()
	callerInfos.ShowCallerInfo(module, level)
}

// HideCallerInfo hides caller info in log lines for given module and level
func HideCallerInfo(module string, level api.Level) {
	rwmutex.Lock()
	defer rwmutex.Unlock()
	callerInfos.HideCallerInfo(module, level)
}

type loggerOpts struct {
	levelEnabled      bool
	callerInfoEnabled bool
}

func getLoggerOpts(module string, level api.Level) loggerOpts {
	rwmutex.RLock()
	defer rwmutex.RUnlock()
	return loggerOpts{
		levelEnabled:      moduleLevels.IsEnabledFor(module, level),
		callerInfoEnabled: callerInfos.IsCallerInfoEnabled(module, level),
	}
}

// Log is the default module logger
type Log struct {
	module       string
	plain        *zap.SugaredLogger
	withCaller   *zap.SugaredLogger
	customLogger api.Logger
	custom       bool
	once         sync.Once
}

// Fatal is a CRITICAL log followed by a call to os.Exit(1).
func (l *Log) Fatal(args ...interface{}) {
	opts := getLoggerOpts(l.module, api.CRITICAL)
	if l.loadCustomLogger() {
		l.customLogger.Fatal(args...)
		return
	}
	l.sugar(opts).Fatal(args...)
}

// Fatalf is a formatted CRITICAL log followed by a call to os.Exit(1).
func (l *Log) Fatalf(format string, args ...interface{}) {
	opts := getLoggerOpts(l.module, api.CRITICAL)
	if l.loadCustomLogger() {
		l.customLogger.Fatalf(format, args...)
		return
	}
	l.sugar(opts).Fatalf(format, args...)
}

// Panic is a CRITICAL log followed by a call to panic().
func (l *Log) Panic(args ...interface{}) {
	opts := getLoggerOpts(l.module, api.CRITICAL)
	if l.loadCustomLogger() {
		l.customLogger.Panic(args...)
		return
	}
	l.sugar(opts).Panic(args...)
}

// Panicf is a formatted CRITICAL log followed by a call to panic().
func (l *Log) Panicf(format string, args ...interface{}) {
	opts := getLoggerOpts(l.module, api.CRITICAL)
	if l.loadCustomLogger() {
		l.customLogger.Panicf(format, args...)
		return
	}
	l.sugar(opts).Panicf(format, args...)
}

// Debug logs at DEBUG level
func (l *Log) Debug(args ...interface{}) {
	opts := getLoggerOpts(l.module, api.DEBUG)
	if !opts.levelEnabled {
		return
	}
	if l.loadCustomLogger() {
		l.customLogger.Debug(args...)
		return
	}
	l.sugar(opts).Debug(args...)
}

// Debugf logs at DEBUG level
func (l *Log) Debugf(format string, args ...interface{}) {
	opts := getLoggerOpts(l.module, api.DEBUG)
	if !opts.levelEnabled {
		return
	}
	if l.loadCustomLogger() {
		l.customLogger.Debugf(format, args...)
		return
	}
	l.sugar(opts).Debugf(format, args...)
}

// Info logs at INFO level
func (l *Log) Info(args ...interface{}) {
	opts := getLoggerOpts(l.module, api.INFO)
	if !opts.levelEnabled {
		return
	}
	if l.loadCustomLogger() {
		l.customLogger.Info(args...)
		return
	}
	l.sugar(opts).Info(args...)
}

// Infof logs at INFO level
func (l *Log) Infof(format string, args ...interface{}) {
	opts := getLoggerOpts(l.module, api.INFO)
	if !opts.levelEnabled {
		return
	}
	if l.loadCustomLogger() {
		l.customLogger.Infof(format, args...)
		return
	}
	l.sugar(opts).Infof(format, args...)
}

// Warn logs at WARNING level
func (l *Log) Warn(args ...interface{}) {
	opts := getLoggerOpts(l.module, api.WARNING)
	if !opts.levelEnabled {
		return
	}
	if l.loadCustomLogger() {
		l.customLogger.Warn(args...)
		return
	}
	l.sugar(opts).Warn(args...)
}

// Warnf logs at WARNING level
func (l *Log) Warnf(format string, args ...interface{}) {
	opts := getLoggerOpts(l.module, api.WARNING)
	if !opts.levelEnabled {
		return
	}
	if l.loadCustomLogger() {
		l.customLogger.Warnf(format, args...)
		return
	}
	l.sugar(opts).Warnf(format, args...)
}

// Error logs at ERROR level
func (l *Log) Error(args ...interface{}) {
	opts := getLoggerOpts(l.module, api.ERROR)
	if !opts.levelEnabled {
		return
	}
	if l.loadCustomLogger() {
		l.customLogger.Error(args...)
		return
	}
	l.sugar(opts).Error(args...)
}

// Errorf logs at ERROR level
func (l *Log) Errorf(format string, args ...interface{}) {
	opts := getLoggerOpts(l.module, api.ERROR)
	if !opts.levelEnabled {
		return
	}
	if l.loadCustomLogger() {
		l.customLogger.Errorf(format, args...)
		return
	}
	l.sugar(opts).Errorf(format, args...)
}

// Sync flushes buffered log entries
func (l *Log) Sync() error {
	return l.plain.Sync()
}

func (l *Log) sugar(opts loggerOpts) *zap.SugaredLogger {
	if opts.callerInfoEnabled {
		return l.withCaller
	}
	return l.plain
}

func (l *Log) loadCustomLogger() bool {
	l.once.Do(func() {
		if atomic.LoadInt32(&useCustomLogger) > 0 {
			l.customLogger = loggerProviderInstance.GetLogger(l.module)
			l.custom = true
		}
	})
	return l.custom
}
