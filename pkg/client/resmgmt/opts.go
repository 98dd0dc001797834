/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package resmgmt

import (
	"github.com/securekey/fabric-txflow/pkg/common/errors/txerrors"
	"github.com/securekey/fabric-txflow/pkg/common/providers/fab"
)

// requestOptions holds the endpoints used by a chaincode deployment
type requestOptions struct {
	Targets    []fab.Peer
	Orderers   []fab.Broadcaster
	EventPeers []fab.Peer
}

// RequestOption func for each Opts argument
type RequestOption func(opts *requestOptions) error

// WithTargets sets the peers that endorse the request. They also watch for
// the commit unless WithEventPeers is given.
func WithTargets(targets ...fab.Peer) RequestOption {
	return func(opts *requestOptions) error {
		for _, t := range targets {
			if t == nil {
				return txerrors.NewConfigurationError("target peer is nil")
			}
		}
		opts.Targets = targets
		return nil
	}
}

// WithOrderers sets the orderers the deployment is broadcast to, in failover order
func WithOrderers(orderers ...fab.Broadcaster) RequestOption {
	return func(opts *requestOptions) error {
		opts.Orderers = orderers
		return nil
	}
}

// WithEventPeers sets the peers watched for the commit, in failover order
func WithEventPeers(peers ...fab.Peer) RequestOption {
	return func(opts *requestOptions) error {
		opts.EventPeers = peers
		return nil
	}
}

func prepareRequestOpts(options ...RequestOption) (requestOptions, error) {
	opts := requestOptions{}
	for _, option := range options {
		if err := option(&opts); err != nil {
			return opts, err
		}
	}

	if len(opts.Targets) == 0 {
		return opts, txerrors.NewConfigurationError("at least one target peer is required")
	}
	if len(opts.Orderers) == 0 {
		return opts, txerrors.NewConfigurationError("at least one orderer is required")
	}
	if len(opts.EventPeers) == 0 {
		opts.EventPeers = opts.Targets
	}
	return opts, nil
}
