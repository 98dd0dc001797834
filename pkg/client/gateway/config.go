/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package gateway

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/securekey/fabric-txflow/pkg/client/common/selection/peergroups"
	"github.com/securekey/fabric-txflow/pkg/common/errors/retry"
	"github.com/securekey/fabric-txflow/pkg/common/errors/txerrors"
	"github.com/securekey/fabric-txflow/pkg/common/providers/core"
	"github.com/securekey/fabric-txflow/pkg/common/providers/fab"
	"github.com/securekey/fabric-txflow/pkg/core/config"
	"github.com/securekey/fabric-txflow/pkg/core/cryptosuite"
	"github.com/securekey/fabric-txflow/pkg/fab/comm"
	"github.com/securekey/fabric-txflow/pkg/fab/orderer"
	"github.com/securekey/fabric-txflow/pkg/fab/peer"
	"github.com/securekey/fabric-txflow/pkg/fab/policy"
	mspimpl "github.com/securekey/fabric-txflow/pkg/msp"
)

// NewFromConfigProvider loads the network configuration and returns the named gateway
func NewFromConfigProvider(configProvider core.ConfigProvider, name string, opts ...Option) (*Gateway, error) {
	backends, err := configProvider()
	if err != nil {
		return nil, errors.WithMessage(err, "failed to load config")
	}
	netConfig, err := config.NetworkConfigFromBackend(backends...)
	if err != nil {
		return nil, err
	}
	return NewFromConfig(netConfig, name, opts...)
}

// NewFromConfig returns the gateway defined under name in the network
// configuration. Options given here override the configured values.
func NewFromConfig(netConfig *config.NetworkConfig, name string, opts ...Option) (*Gateway, error) {
	gwConfig, err := netConfig.GatewayConfig(name)
	if err != nil {
		return nil, err
	}
	if gwConfig.User == "" {
		return nil, txerrors.NewConfigurationError("gateway has no user", name)
	}

	suite, err := cryptosuite.New(netConfig.Client.CryptoConfig.Family, netConfig.Client.CryptoConfig.Level)
	if err != nil {
		return nil, errors.WithMessage(err, "failed to create crypto suite")
	}

	identityMgr, err := mspimpl.NewIdentityManager(netConfig, suite)
	if err != nil {
		return nil, err
	}
	requestor, err := identityMgr.GetSigningIdentity(gwConfig.User)
	if err != nil {
		return nil, err
	}

	b := &endpointBuilder{
		netConfig: netConfig,
		connOpts:  []comm.Option{comm.WithConnectTimeout(netConfig.Client.Timeouts.Dial)},
		peers:     make(map[string]*peer.Peer),
	}

	gwOpts := []Option{
		WithChaincode(gwConfig.Chaincode),
		WithCryptoSuite(suite),
		WithTimeout(gwConfig.Timeout),
	}

	var eventPeers []fab.Peer
	if len(gwConfig.Groups) > 0 {
		provider, groupPeers, err := b.endorserProvider(gwConfig)
		if err != nil {
			return nil, err
		}
		gwOpts = append(gwOpts, WithEndorserProvider(provider))
		eventPeers = groupPeers
	} else {
		endorsers, err := b.peerList(gwConfig.Endorsers)
		if err != nil {
			return nil, err
		}
		processors := make([]fab.ProposalProcessor, len(endorsers))
		for i, p := range endorsers {
			processors[i] = p
		}
		gwOpts = append(gwOpts, WithEndorsers(processors...))
		eventPeers = endorsers
	}

	// commits are confirmed by the endorsers unless event peers are configured
	if len(gwConfig.EventPeers) > 0 {
		if eventPeers, err = b.peerList(gwConfig.EventPeers); err != nil {
			return nil, err
		}
	}
	gwOpts = append(gwOpts, WithEventPeers(eventPeers...))

	orderers, err := b.ordererList(gwConfig.Orderers)
	if err != nil {
		return nil, err
	}
	gwOpts = append(gwOpts, WithOrderers(orderers...))

	if gwConfig.Policy != "" {
		p, err := policy.FromString(gwConfig.Policy)
		if err != nil {
			return nil, errors.WithMessagef(err, "invalid endorsement policy for gateway %s", name)
		}
		gwOpts = append(gwOpts, WithPolicy(p))
	}

	if gwConfig.Retry.Attempts > 0 {
		gwOpts = append(gwOpts, WithRetry(retry.Opts{
			Attempts:       gwConfig.Retry.Attempts,
			InitialBackoff: gwConfig.Retry.InitialBackoff,
			MaxBackoff:     gwConfig.Retry.MaxBackoff,
			BackoffFactor:  gwConfig.Retry.BackoffFactor,
		}))
	}

	logger.Debugf("Creating gateway %s on channel %s", name, gwConfig.Channel)
	return New(gwConfig.Channel, requestor, append(gwOpts, opts...)...)
}

// endpointBuilder creates each configured peer once so that endorsers and
// event peers share their connections.
type endpointBuilder struct {
	netConfig *config.NetworkConfig
	connOpts  []comm.Option
	peers     map[string]*peer.Peer
}

func (b *endpointBuilder) peer(name string) (*peer.Peer, error) {
	if p, ok := b.peers[name]; ok {
		return p, nil
	}
	peerConfig, ok := b.netConfig.PeerConfig(name)
	if !ok {
		return nil, txerrors.NewConfigurationError("peer not found", name)
	}
	p, err := peer.New(peer.WithConnectionOptions(b.connOpts...), peer.FromPeerConfig(peerConfig))
	if err != nil {
		return nil, errors.WithMessagef(err, "failed to create peer %s", name)
	}
	b.peers[name] = p
	return p, nil
}

func (b *endpointBuilder) peerList(names []string) ([]fab.Peer, error) {
	peers := make([]fab.Peer, 0, len(names))
	for _, n := range names {
		p, err := b.peer(n)
		if err != nil {
			return nil, err
		}
		peers = append(peers, p)
	}
	return peers, nil
}

func (b *endpointBuilder) ordererList(names []string) ([]fab.Broadcaster, error) {
	orderers := make([]fab.Broadcaster, 0, len(names))
	for _, n := range names {
		ordererConfig, ok := b.netConfig.OrdererConfig(n)
		if !ok {
			return nil, txerrors.NewConfigurationError("orderer not found", n)
		}
		o, err := orderer.New(orderer.WithConnectionOptions(b.connOpts...), orderer.FromOrdererConfig(ordererConfig))
		if err != nil {
			return nil, errors.WithMessagef(err, "failed to create orderer %s", n)
		}
		orderers = append(orderers, o)
	}
	return orderers, nil
}

// endorserProvider builds the peer groups in name order and returns the
// provider together with every group peer, each listed once.
func (b *endpointBuilder) endorserProvider(gwConfig *config.GatewayConfig) (*peergroups.Provider, []fab.Peer, error) {
	names := make([]string, 0, len(gwConfig.Groups))
	for name := range gwConfig.Groups {
		names = append(names, name)
	}
	sort.Strings(names)

	var all []fab.Peer
	seen := make(map[string]struct{})
	groups := make([]peergroups.PeerGroup, 0, len(names))
	for _, name := range names {
		peers, err := b.peerList(gwConfig.Groups[name])
		if err != nil {
			return nil, nil, err
		}
		groups = append(groups, peergroups.PeerGroup{Name: name, Peers: peers})
		for _, p := range peers {
			if _, ok := seen[p.URL()]; !ok {
				seen[p.URL()] = struct{}{}
				all = append(all, p)
			}
		}
	}

	layouts := make([]peergroups.Layout, len(gwConfig.Layouts))
	for i, l := range gwConfig.Layouts {
		layouts[i] = peergroups.Layout(l)
	}

	provider, err := peergroups.New(groups, layouts)
	if err != nil {
		return nil, nil, err
	}
	return provider, all, nil
}
