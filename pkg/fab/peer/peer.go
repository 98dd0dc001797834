/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package peer

import (
	"crypto/x509"

	"github.com/pkg/errors"

	"github.com/securekey/fabric-txflow/pkg/common/logging"
	"github.com/securekey/fabric-txflow/pkg/core/config"
	"github.com/securekey/fabric-txflow/pkg/fab/comm"
)

var logger = logging.NewLogger("fabtxflow/peer")

// Peer represents a node in the target blockchain network to which
// the client sends endorsement proposals and from which it receives blocks.
type Peer struct {
	url       string
	mspID     string
	connOpts  []comm.Option
	connector comm.Connector
}

// Option describes a functional parameter for the New constructor
type Option func(*Peer) error

// New Returns a new Peer instance
func New(opts ...Option) (*Peer, error) {
	peer := &Peer{}

	for _, opt := range opts {
		if err := opt(peer); err != nil {
			return nil, err
		}
	}

	if peer.url == "" {
		return nil, errors.New("peer URL is required")
	}
	if peer.connector == nil {
		peer.connector = comm.DefaultConnector()
	}

	return peer, nil
}

// WithURL is a functional option for the peer.New constructor that configures the peer's URL
func WithURL(url string) Option {
	return func(p *Peer) error {
		p.url = url
		return nil
	}
}

// WithMSPID is a functional option for the peer.New constructor that configures the peer's msp ID
func WithMSPID(mspID string) Option {
	return func(p *Peer) error {
		p.mspID = mspID
		return nil
	}
}

// WithTLSCert is a functional option for the peer.New constructor that configures the peer's TLS certificate
func WithTLSCert(certificate *x509.Certificate) Option {
	return func(p *Peer) error {
		p.connOpts = append(p.connOpts, comm.WithCertificate(certificate))
		return nil
	}
}

// WithServerName is a functional option for the peer.New constructor that configures the peer's server name
func WithServerName(serverName string) Option {
	return func(p *Peer) error {
		p.connOpts = append(p.connOpts, comm.WithHostOverride(serverName))
		return nil
	}
}

// WithInsecure is a functional option for the peer.New constructor that configures the peer's grpc insecure option
func WithInsecure() Option {
	return func(p *Peer) error {
		p.connOpts = append(p.connOpts, comm.WithInsecure())
		return nil
	}
}

// WithConnector sets the connector used to dial the peer
func WithConnector(connector comm.Connector) Option {
	return func(p *Peer) error {
		p.connector = connector
		return nil
	}
}

// WithConnectionOptions appends connection options
func WithConnectionOptions(opts ...comm.Option) Option {
	return func(p *Peer) error {
		p.connOpts = append(p.connOpts, opts...)
		return nil
	}
}

// FromPeerConfig is a functional option for the peer.New constructor that configures a new peer
// from a config.PeerConfig struct
func FromPeerConfig(peerCfg *config.PeerConfig) Option {
	return func(p *Peer) error {
		p.url = peerCfg.URL
		p.mspID = peerCfg.MSPID

		cert, ok, err := peerCfg.TLSCACert.TLSCert()
		if err != nil {
			return errors.WithMessagef(err, "invalid TLS certificate for peer %s", peerCfg.URL)
		}
		if ok {
			p.connOpts = append(p.connOpts, comm.WithCertificate(cert))
		}
		p.connOpts = append(p.connOpts, comm.OptionsFromConfig(peerCfg.GRPCOptions)...)
		return nil
	}
}

// MSPID gets the Peer mspID.
func (p *Peer) MSPID() string {
	return p.mspID
}

// URL gets the Peer URL. Required property for the instance objects.
func (p *Peer) URL() string {
	return p.url
}

func (p *Peer) String() string {
	return p.url
}
