/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package config

import (
	"bytes"
	"io"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cast"
	"github.com/spf13/viper"

	"github.com/securekey/fabric-txflow/pkg/common/logging"
	"github.com/securekey/fabric-txflow/pkg/common/providers/core"
)

var logger = logging.NewLogger("fabtxflow/config")

var logModules = [...]string{"fabtxflow/common", "fabtxflow/config", "fabtxflow/core", "fabtxflow/msp",
	"fabtxflow/comm", "fabtxflow/peer", "fabtxflow/orderer", "fabtxflow/txn", "fabtxflow/eventhub",
	"fabtxflow/peergroups", "fabtxflow/retry", "fabtxflow/gateway", "fabtxflow/resmgmt", "fabtxflow/metrics"}

type options struct {
	envPrefix    string
	templatePath string
}

const (
	cmdRoot = "FABTXFLOW"
)

// Option configures the package.
type Option func(opts *options) error

// FromReader loads configuration from in.
// configType can be "json" or "yaml".
func FromReader(in io.Reader, configType string, opts ...Option) core.ConfigProvider {
	return func() ([]core.ConfigBackend, error) {
		return initFromReader(in, configType, opts...)
	}
}

// FromFile reads from named config file
func FromFile(name string, opts ...Option) core.ConfigProvider {
	return func() ([]core.ConfigBackend, error) {
		if name == "" {
			return nil, errors.New("filename is required")
		}

		backend, err := newBackend(opts...)
		if err != nil {
			return nil, err
		}

		backend.configViper.SetConfigFile(name)
		if err := backend.configViper.MergeInConfig(); err != nil {
			return nil, errors.Wrapf(err, "loading config file failed: %s", name)
		}

		setLogLevel(backend)

		return []core.ConfigBackend{backend}, nil
	}
}

// FromRaw will initialize the configs from a byte array
func FromRaw(configBytes []byte, configType string, opts ...Option) core.ConfigProvider {
	return func() ([]core.ConfigBackend, error) {
		return initFromReader(bytes.NewBuffer(configBytes), configType, opts...)
	}
}

func initFromReader(in io.Reader, configType string, opts ...Option) ([]core.ConfigBackend, error) {
	if configType == "" {
		return nil, errors.New("empty config type")
	}

	backend, err := newBackend(opts...)
	if err != nil {
		return nil, err
	}

	// viper needs the config type to unmarshal a reader
	backend.configViper.SetConfigType(configType)
	if err := backend.configViper.MergeConfig(in); err != nil {
		return nil, errors.Wrap(err, "loading config failed")
	}
	setLogLevel(backend)

	return []core.ConfigBackend{backend}, nil
}

// WithEnvPrefix defines the prefix for environment variable overrides.
// See viper SetEnvPrefix for more information.
func WithEnvPrefix(prefix string) Option {
	return func(opts *options) error {
		opts.envPrefix = prefix
		return nil
	}
}

// WithTemplatePath loads the config files found in path before the configuration
// given to FromFile, FromRaw or FromReader.
func WithTemplatePath(path string) Option {
	return func(opts *options) error {
		if path == "" {
			return errors.New("template path is empty")
		}
		opts.templatePath = path
		return nil
	}
}

func newBackend(opts ...Option) (*defConfigBackend, error) {
	o := options{
		envPrefix: cmdRoot,
	}

	for _, option := range opts {
		if err := option(&o); err != nil {
			return nil, errors.WithMessage(err, "Error in options passed to create new config backend")
		}
	}

	backend := &defConfigBackend{
		configViper: newViper(o.envPrefix),
		opts:        o,
	}

	if err := backend.loadTemplateConfig(); err != nil {
		return nil, err
	}

	return backend, nil
}

func newViper(cmdRootPrefix string) *viper.Viper {
	myViper := viper.New()
	myViper.SetEnvPrefix(cmdRootPrefix)
	myViper.AutomaticEnv()
	replacer := strings.NewReplacer(".", "_")
	myViper.SetEnvKeyReplacer(replacer)
	return myViper
}

// setLogLevel will set the log level of the client
func setLogLevel(backend core.ConfigBackend) {
	logLevel := logging.INFO
	if levelString, ok := backend.Lookup("client.logging.level"); ok {
		var err error
		logLevel, err = logging.LogLevel(cast.ToString(levelString))
		if err != nil {
			logger.Warnf("Ignoring logging level: %s", err)
			return
		}
	}

	for _, logModule := range logModules {
		logging.SetLevel(logModule, logLevel)
	}
}
