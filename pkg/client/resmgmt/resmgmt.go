/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package resmgmt performs administrative operations on a Fabric network:
// creating and joining channels, instantiating chaincode and querying the
// chaincodes and channels known to a peer.
//
// Basic Flow:
// 1) Prepare a client with the admin identity
// 2) Create the channel and fetch its genesis block
// 3) Join peers to the channel
// 4) Instantiate chaincode on the channel
//
//  client, err := resmgmt.New(admin)
//  _, err = client.CreateChannel(ctx, resmgmt.CreateChannelRequest{ChannelID: "mychannel", ConfigPath: "mychannel.tx"}, orderers)
//  block, err := client.GenesisBlock(ctx, "mychannel", orderer)
//  err = client.JoinChannel(ctx, block, peers...)
package resmgmt

import (
	reqContext "context"
	"time"

	"github.com/pkg/errors"

	"github.com/securekey/fabric-txflow/pkg/common/errors/retry"
	"github.com/securekey/fabric-txflow/pkg/common/errors/txerrors"
	"github.com/securekey/fabric-txflow/pkg/common/logging"
	"github.com/securekey/fabric-txflow/pkg/common/providers/core"
	"github.com/securekey/fabric-txflow/pkg/common/providers/fab"
	"github.com/securekey/fabric-txflow/pkg/common/providers/msp"
	"github.com/securekey/fabric-txflow/pkg/core/cryptosuite"
	"github.com/securekey/fabric-txflow/pkg/fab/txn"
)

// DefaultTimeout bounds every resource management operation, including the commit wait
const DefaultTimeout = 180 * time.Second

var logger = logging.NewLogger("fabtxflow/resmgmt")

// Client enables managing resources in Fabric network.
type Client struct {
	requestor msp.SigningIdentity
	suite     core.CryptoSuite
	timeout   time.Duration
	retryOpts *retry.Opts
}

// ClientOption describes a functional parameter for the New constructor
type ClientOption func(*Client) error

// WithCryptoSuite sets the suite used for nonces and hashing
func WithCryptoSuite(suite core.CryptoSuite) ClientOption {
	return func(rc *Client) error {
		rc.suite = suite
		return nil
	}
}

// WithTimeout bounds each operation of the client
func WithTimeout(timeout time.Duration) ClientOption {
	return func(rc *Client) error {
		if timeout <= 0 {
			return txerrors.NewConfigurationError("timeout must be positive")
		}
		rc.timeout = timeout
		return nil
	}
}

// WithRetry retries peer proposals that fail with a retryable status
func WithRetry(opts retry.Opts) ClientOption {
	return func(rc *Client) error {
		rc.retryOpts = &opts
		return nil
	}
}

// New returns a resource management client acting as requestor
func New(requestor msp.SigningIdentity, opts ...ClientOption) (*Client, error) {
	if requestor == nil {
		return nil, txerrors.NewConfigurationError("requestor identity is required")
	}

	rc := &Client{
		requestor: requestor,
		timeout:   DefaultTimeout,
	}
	for _, opt := range opts {
		if err := opt(rc); err != nil {
			return nil, err
		}
	}
	if rc.suite == nil {
		rc.suite = cryptosuite.GetDefault()
	}
	return rc, nil
}

// sendProposal generates a system chaincode proposal and sends it to every
// target. Every target has to endorse it.
func (rc *Client) sendProposal(ctx reqContext.Context, request fab.ChaincodeInvokeRequest, targets []fab.ProposalProcessor) (*fab.EndorsedTransaction, error) {
	tx, err := txn.GenerateTransaction(ctx, rc.requestor, rc.suite, request)
	if err != nil {
		return nil, errors.WithMessage(err, "creating proposal failed")
	}

	send := func() (interface{}, error) {
		endorsed, err := txn.SendProposal(ctx, tx, targets)
		if err != nil {
			return nil, err
		}
		if !endorsed.FullyEndorsed() {
			return endorsed, &txerrors.ProposalError{Transaction: endorsed}
		}
		return endorsed, nil
	}

	var resp interface{}
	if rc.retryOpts == nil {
		resp, err = send()
	} else {
		invoker := retry.NewInvoker(retry.New(*rc.retryOpts), retry.WithBeforeRetry(func(err error) {
			logger.Infof("Retrying %s:%s proposal on error %s", request.ChaincodeID, request.Fcn, err)
		}))
		resp, err = invoker.Invoke(ctx, send)
	}
	if err != nil {
		return nil, err
	}
	return resp.(*fab.EndorsedTransaction), nil
}

// query sends a proposal to a single peer and returns its payload
func (rc *Client) query(ctx reqContext.Context, request fab.ChaincodeInvokeRequest, target fab.ProposalProcessor) ([]byte, error) {
	if target == nil {
		return nil, txerrors.NewConfigurationError("query target is required")
	}

	reqCtx, cancel := reqContext.WithTimeout(ctx, rc.timeout)
	defer cancel()

	endorsed, err := rc.sendProposal(reqCtx, request, []fab.ProposalProcessor{target})
	if err != nil {
		return nil, err
	}
	return endorsed.ResponsePayload()
}
