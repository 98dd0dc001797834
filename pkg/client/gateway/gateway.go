/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package gateway runs chaincode transactions on a channel: proposals are
// endorsed, submitted for ordering and confirmed from the peers' event streams.
//
// Basic usage:
//
//	gw, err := gateway.New("mychannel", user,
//		gateway.WithChaincode("mycc"),
//		gateway.WithEndorsers(peer0, peer1),
//		gateway.WithOrderers(orderer0),
//		gateway.WithEventPeers(peer0))
//	resp, err := gw.Invoke(ctx, gateway.Request{Fcn: "move", Args: gateway.StringArgs("a", "b", "10")})
package gateway

import (
	reqContext "context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/securekey/fabric-txflow/pkg/common/errors/retry"
	"github.com/securekey/fabric-txflow/pkg/common/errors/status"
	"github.com/securekey/fabric-txflow/pkg/common/errors/txerrors"
	"github.com/securekey/fabric-txflow/pkg/common/logging"
	"github.com/securekey/fabric-txflow/pkg/common/metrics"
	"github.com/securekey/fabric-txflow/pkg/common/providers/core"
	"github.com/securekey/fabric-txflow/pkg/common/providers/fab"
	"github.com/securekey/fabric-txflow/pkg/common/providers/msp"
	"github.com/securekey/fabric-txflow/pkg/core/cryptosuite"
	"github.com/securekey/fabric-txflow/pkg/fab/events/eventhub"
	"github.com/securekey/fabric-txflow/pkg/fab/policy"
)

var logger = logging.NewLogger("fabtxflow/gateway")

// Gateway runs transactions on one channel on behalf of one requestor
type Gateway struct {
	channelID   string
	requestor   msp.SigningIdentity
	chaincodeID string

	endorsers  []fab.ProposalProcessor
	provider   fab.EndorserProvider
	orderers   []fab.Broadcaster
	eventPeers []fab.Peer
	eventHub   *eventhub.EventHub

	policy    *policy.EndorsementPolicy
	timeout   time.Duration
	suite     core.CryptoSuite
	metrics   *metrics.ClientMetrics
	retryOpts *retry.Opts
}

// New returns a Gateway for channelID. Endorsement uses either a fixed list of
// endorsers or an endorser provider, never both.
func New(channelID string, requestor msp.SigningIdentity, opts ...Option) (*Gateway, error) {
	gw := &Gateway{
		channelID: channelID,
		requestor: requestor,
		timeout:   DefaultTimeout,
	}
	for _, opt := range opts {
		if err := opt(gw); err != nil {
			return nil, errors.WithMessage(err, "failed to apply gateway option")
		}
	}

	if gw.channelID == "" {
		return nil, txerrors.NewConfigurationError("gateway requires a channel")
	}
	if gw.requestor == nil {
		return nil, txerrors.NewConfigurationError("gateway requires a requestor")
	}
	if len(gw.endorsers) == 0 && gw.provider == nil {
		return nil, txerrors.NewConfigurationError("gateway requires endorsers or an endorser provider")
	}
	if len(gw.endorsers) > 0 && gw.provider != nil {
		return nil, txerrors.NewConfigurationError("gateway takes either fixed endorsers or an endorser provider")
	}

	if gw.suite == nil {
		gw.suite = cryptosuite.GetDefault()
	}
	if gw.metrics == nil {
		gw.metrics = metrics.NewDisabledClientMetrics()
	}

	if len(gw.eventPeers) > 0 {
		hub, err := eventhub.New(gw.channelID, gw.requestor, gw.suite, gw.eventPeers)
		if err != nil {
			return nil, err
		}
		gw.eventHub = hub
	}

	return gw, nil
}

// ChannelID returns the gateway's channel
func (gw *Gateway) ChannelID() string {
	return gw.channelID
}

// Requestor returns the identity signing the gateway's transactions
func (gw *Gateway) Requestor() msp.SigningIdentity {
	return gw.requestor
}

// Chaincode returns the default chaincode
func (gw *Gateway) Chaincode() string {
	return gw.chaincodeID
}

// Endorsers returns the fixed endorsers, if any
func (gw *Gateway) Endorsers() []fab.ProposalProcessor {
	return gw.endorsers
}

// Orderers returns the orderers in failover order
func (gw *Gateway) Orderers() []fab.Broadcaster {
	return gw.orderers
}

// EventHub returns the commit monitor, nil if no event peers are configured
func (gw *Gateway) EventHub() *eventhub.EventHub {
	return gw.eventHub
}

// Policy returns the endorsement policy applied when the gateway deploys its chaincode
func (gw *Gateway) Policy() *policy.EndorsementPolicy {
	return gw.policy
}

// Timeout returns the default commit timeout
func (gw *Gateway) Timeout() time.Duration {
	return gw.timeout
}

// CryptoSuite returns the suite used to create transaction IDs
func (gw *Gateway) CryptoSuite() core.CryptoSuite {
	return gw.suite
}

// Transact starts a transaction for req. Nothing is sent until Run is called
// on the returned builder.
func (gw *Gateway) Transact(req Request) *TxBuilder {
	if req.ChaincodeID == "" {
		req.ChaincodeID = gw.chaincodeID
	}
	return newTxBuilder(gw, req)
}

// Invoke proposes req, requires every endorsement to succeed, submits the
// transaction and waits up to the gateway timeout for a valid commit.
func (gw *Gateway) Invoke(ctx reqContext.Context, req Request) (*Response, error) {
	tb := gw.Transact(req)
	endorsed, err := tb.Propose(true).Submit().WaitForCommit(gw.timeout).Run(ctx)
	if err != nil {
		return nil, err
	}

	payload, err := endorsed.ResponsePayload()
	if err != nil {
		return nil, err
	}

	resp := &Response{EndorsedTransaction: endorsed, Payload: payload}
	if committed := tb.Committed(); committed != nil {
		resp.TxValidationCode = committed.ValidationCode
		resp.BlockNumber = committed.BlockNumber
	}
	return resp, nil
}

// Query proposes req and returns the endorsers' answer without submitting it.
func (gw *Gateway) Query(ctx reqContext.Context, req Request) (*Response, error) {
	endorsed, err := gw.Transact(req).Propose(true).Run(ctx)
	if err != nil {
		return nil, err
	}

	payload, err := endorsed.ResponsePayload()
	if err != nil {
		return nil, err
	}
	return &Response{EndorsedTransaction: endorsed, Payload: payload}, nil
}

func (gw *Gateway) newRetryInvoker(req Request) *retry.RetryableInvoker {
	if gw.retryOpts == nil {
		return nil
	}
	return retry.NewInvoker(retry.New(*gw.retryOpts), retry.WithBeforeRetry(func(err error) {
		logger.Infof("Retrying proposal for %s:%s on error %s", req.ChaincodeID, req.Fcn, err)
	}))
}

// failReason labels a failure metric the way status groups and codes are reported
func failReason(err error) string {
	if txerrors.IsTimeout(err) {
		return "timeout"
	}
	if s, ok := status.FromError(err); ok {
		return fmt.Sprintf("Error - Group:%s - Code:%d", s.Group.String(), s.Code)
	}
	return fmt.Sprintf("Error - Generic: %s", err)
}
