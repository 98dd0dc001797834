/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package gateway

import (
	"time"

	pb "github.com/hyperledger/fabric-protos-go/peer"
	"github.com/pkg/errors"

	"github.com/securekey/fabric-txflow/pkg/common/errors/retry"
	"github.com/securekey/fabric-txflow/pkg/common/metrics"
	"github.com/securekey/fabric-txflow/pkg/common/providers/core"
	"github.com/securekey/fabric-txflow/pkg/common/providers/fab"
	"github.com/securekey/fabric-txflow/pkg/fab/policy"
)

// DefaultTimeout bounds the wait for a commit when no other timeout is configured
const DefaultTimeout = 30 * time.Second

// Request contains the parameters of a chaincode invocation. ChaincodeID
// defaults to the gateway's chaincode.
type Request struct {
	ChaincodeID  string
	Fcn          string
	Args         [][]byte
	TransientMap map[string][]byte
	IsInit       bool
}

// StringArgs converts string arguments to the byte form of Request.Args
func StringArgs(args ...string) [][]byte {
	b := make([][]byte, len(args))
	for i, a := range args {
		b[i] = []byte(a)
	}
	return b
}

// Response is the outcome of Invoke or Query
type Response struct {
	*fab.EndorsedTransaction
	// Payload is the chaincode response of the first successful endorser
	Payload []byte
	// TxValidationCode and BlockNumber are set once the commit is confirmed
	TxValidationCode pb.TxValidationCode
	BlockNumber      uint64
}

// Option configures a Gateway
type Option func(gw *Gateway) error

// WithChaincode sets the chaincode used by requests that do not name one
func WithChaincode(chaincodeID string) Option {
	return func(gw *Gateway) error {
		gw.chaincodeID = chaincodeID
		return nil
	}
}

// WithEndorsers sends every proposal to all of the given peers
func WithEndorsers(peers ...fab.ProposalProcessor) Option {
	return func(gw *Gateway) error {
		gw.endorsers = peers
		return nil
	}
}

// WithEndorserProvider selects the endorsers of every proposal through the provider
func WithEndorserProvider(provider fab.EndorserProvider) Option {
	return func(gw *Gateway) error {
		gw.provider = provider
		return nil
	}
}

// WithOrderers sets the orderers, tried in order when submitting
func WithOrderers(orderers ...fab.Broadcaster) Option {
	return func(gw *Gateway) error {
		gw.orderers = orderers
		return nil
	}
}

// WithEventPeers sets the peers observed for commit events, in failover order
func WithEventPeers(peers ...fab.Peer) Option {
	return func(gw *Gateway) error {
		gw.eventPeers = peers
		return nil
	}
}

// WithPolicy sets the endorsement policy of the gateway's chaincode
func WithPolicy(p *policy.EndorsementPolicy) Option {
	return func(gw *Gateway) error {
		gw.policy = p
		return nil
	}
}

// WithTimeout sets the default commit timeout
func WithTimeout(timeout time.Duration) Option {
	return func(gw *Gateway) error {
		if timeout <= 0 {
			return errors.Errorf("invalid timeout %s", timeout)
		}
		gw.timeout = timeout
		return nil
	}
}

// WithCryptoSuite sets the suite used for nonces and transaction IDs
func WithCryptoSuite(suite core.CryptoSuite) Option {
	return func(gw *Gateway) error {
		gw.suite = suite
		return nil
	}
}

// WithMetrics records the flow in m
func WithMetrics(m *metrics.ClientMetrics) Option {
	return func(gw *Gateway) error {
		gw.metrics = m
		return nil
	}
}

// WithRetry re-sends proposals that fail with a retryable status
func WithRetry(opts retry.Opts) Option {
	return func(gw *Gateway) error {
		gw.retryOpts = &opts
		return nil
	}
}
