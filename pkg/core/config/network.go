/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package config

import (
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/securekey/fabric-txflow/pkg/common/errors/txerrors"
	"github.com/securekey/fabric-txflow/pkg/common/providers/core"
	"github.com/securekey/fabric-txflow/pkg/core/config/endpoint"
	"github.com/securekey/fabric-txflow/pkg/core/config/lookup"
)

const (
	defaultDialTimeout      = 3 * time.Second
	defaultProposalTimeout  = 10 * time.Second
	defaultBroadcastTimeout = 10 * time.Second
	defaultCommitTimeout    = 30 * time.Second
)

// NetworkConfig is the typed view of the network configuration.
// Map keys are lower case since the backend is case insensitive.
type NetworkConfig struct {
	Client     ClientConfig
	Peers      map[string]PeerConfig
	Orderers   map[string]OrdererConfig
	Users      map[string]UserConfig
	Chaincodes map[string]ChaincodeConfig
	Channels   map[string]ChannelConfig
	Gateways   map[string]GatewayConfig
}

// ClientConfig holds the client wide settings
type ClientConfig struct {
	Logging      LoggingType
	CryptoConfig CryptoConfig
	Timeouts     TimeoutConfig
}

// LoggingType defines the level of logging
type LoggingType struct {
	Level string
}

// CryptoConfig selects the hash family and security level of the crypto suite
type CryptoConfig struct {
	Family string
	Level  int
}

// TimeoutConfig holds the default timeouts of the client
type TimeoutConfig struct {
	Dial      time.Duration
	Proposal  time.Duration
	Broadcast time.Duration
	Commit    time.Duration
}

// PeerConfig defines a peer endpoint
type PeerConfig struct {
	URL         string
	MSPID       string
	TLSCACert   endpoint.TLSConfig
	GRPCOptions map[string]interface{}
}

// OrdererConfig defines an orderer endpoint
type OrdererConfig struct {
	URL         string
	TLSCACert   endpoint.TLSConfig
	GRPCOptions map[string]interface{}
}

// UserConfig defines a signing identity
type UserConfig struct {
	MSPID string
	Cert  endpoint.TLSConfig
	Key   endpoint.TLSConfig
}

// ChaincodeConfig describes a deployed chaincode
type ChaincodeConfig struct {
	Name    string
	Version string
	Path    string
	Lang    string
}

// ChannelConfig lists the endpoints serving a channel
type ChannelConfig struct {
	Orderers []string
	Peers    []string
}

// RetryConfig configures proposal retries
type RetryConfig struct {
	Attempts       int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	BackoffFactor  float64
}

// GatewayConfig configures one transaction gateway. Endorsement is either a
// fixed list of Endorsers or Groups combined with Layouts.
type GatewayConfig struct {
	Channel    string
	Chaincode  string
	User       string
	Endorsers  []string
	Groups     map[string][]string
	Layouts    []map[string]int
	Orderers   []string
	EventPeers []string
	Policy     string
	Timeout    time.Duration
	Retry      RetryConfig
}

// NetworkConfigFromBackend loads the network configuration from the given backends
func NetworkConfigFromBackend(backends ...core.ConfigBackend) (*NetworkConfig, error) {
	l := lookup.New(backends...)

	c := &NetworkConfig{}
	sections := []struct {
		key string
		val interface{}
	}{
		{"client", &c.Client},
		{"peers", &c.Peers},
		{"orderers", &c.Orderers},
		{"users", &c.Users},
		{"chaincodes", &c.Chaincodes},
		{"channels", &c.Channels},
		{"gateways", &c.Gateways},
	}
	for _, s := range sections {
		if err := l.UnmarshalKey(s.key, s.val); err != nil {
			return nil, errors.WithMessagef(err, "failed to parse '%s' config section", s.key)
		}
	}

	c.applyDefaults()

	if err := c.loadPEMs(); err != nil {
		return nil, err
	}

	logger.Debugf("Loaded network config with %d peers, %d orderers and %d gateways", len(c.Peers), len(c.Orderers), len(c.Gateways))
	return c, nil
}

func (c *NetworkConfig) applyDefaults() {
	t := &c.Client.Timeouts
	if t.Dial == 0 {
		t.Dial = defaultDialTimeout
	}
	if t.Proposal == 0 {
		t.Proposal = defaultProposalTimeout
	}
	if t.Broadcast == 0 {
		t.Broadcast = defaultBroadcastTimeout
	}
	if t.Commit == 0 {
		t.Commit = defaultCommitTimeout
	}
	if c.Client.CryptoConfig.Family == "" {
		c.Client.CryptoConfig.Family = "SHA2"
	}
	if c.Client.CryptoConfig.Level == 0 {
		c.Client.CryptoConfig.Level = 256
	}

	for name, gw := range c.Gateways {
		if gw.Timeout == 0 {
			gw.Timeout = t.Commit
		}
		// keys inside lists keep their case
		for i, layout := range gw.Layouts {
			lower := make(map[string]int, len(layout))
			for group, count := range layout {
				lower[strings.ToLower(group)] = count
			}
			gw.Layouts[i] = lower
		}
		c.Gateways[name] = gw
	}
}

func (c *NetworkConfig) loadPEMs() error {
	for name, p := range c.Peers {
		if err := p.TLSCACert.LoadBytes(); err != nil {
			return errors.WithMessagef(err, "peer %s", name)
		}
		c.Peers[name] = p
	}
	for name, o := range c.Orderers {
		if err := o.TLSCACert.LoadBytes(); err != nil {
			return errors.WithMessagef(err, "orderer %s", name)
		}
		c.Orderers[name] = o
	}
	for name, u := range c.Users {
		if err := u.Cert.LoadBytes(); err != nil {
			return errors.WithMessagef(err, "user %s", name)
		}
		if err := u.Key.LoadBytes(); err != nil {
			return errors.WithMessagef(err, "user %s", name)
		}
		c.Users[name] = u
	}
	return nil
}

// PeerConfig returns the named peer
func (c *NetworkConfig) PeerConfig(name string) (*PeerConfig, bool) {
	p, ok := c.Peers[strings.ToLower(name)]
	return &p, ok
}

// OrdererConfig returns the named orderer
func (c *NetworkConfig) OrdererConfig(name string) (*OrdererConfig, bool) {
	o, ok := c.Orderers[strings.ToLower(name)]
	return &o, ok
}

// UserConfig returns the named user
func (c *NetworkConfig) UserConfig(name string) (*UserConfig, bool) {
	u, ok := c.Users[strings.ToLower(name)]
	return &u, ok
}

// GatewayConfig returns the named gateway after checking that every peer,
// orderer and user it references is defined.
func (c *NetworkConfig) GatewayConfig(name string) (*GatewayConfig, error) {
	gw, ok := c.Gateways[strings.ToLower(name)]
	if !ok {
		return nil, txerrors.NewConfigurationError("gateway not found", name)
	}

	if len(gw.Endorsers) == 0 && len(gw.Groups) == 0 {
		return nil, txerrors.NewConfigurationError("gateway has no endorsers", name)
	}
	if len(gw.Groups) > 0 && len(gw.Layouts) == 0 {
		return nil, txerrors.NewConfigurationError("gateway has endorsement groups but no layouts", name)
	}

	var missing []string
	checkPeers := func(names []string) {
		for _, n := range names {
			if _, ok := c.PeerConfig(n); !ok {
				missing = append(missing, n)
			}
		}
	}
	checkPeers(gw.Endorsers)
	checkPeers(gw.EventPeers)
	for _, peers := range gw.Groups {
		checkPeers(peers)
	}
	for _, n := range gw.Orderers {
		if _, ok := c.OrdererConfig(n); !ok {
			missing = append(missing, n)
		}
	}
	if gw.User != "" {
		if _, ok := c.UserConfig(gw.User); !ok {
			missing = append(missing, gw.User)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, txerrors.NewConfigurationError("gateway references undefined entities", missing...)
	}

	return &gw, nil
}
