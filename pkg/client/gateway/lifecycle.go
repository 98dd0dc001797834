/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package gateway

import (
	reqContext "context"

	"github.com/pkg/errors"

	"github.com/securekey/fabric-txflow/pkg/client/resmgmt"
	"github.com/securekey/fabric-txflow/pkg/common/errors/txerrors"
	"github.com/securekey/fabric-txflow/pkg/common/providers/fab"
)

// InstantiateCC instantiates installed chaincode on the gateway's channel.
// The request's name and policy default to the gateway's chaincode and
// endorsement policy. The fixed endorsers endorse the deployment.
func (gw *Gateway) InstantiateCC(ctx reqContext.Context, req resmgmt.InstantiateCCRequest) (resmgmt.InstantiateCCResponse, error) {
	rc, opts, err := gw.lifecycleClient(&req)
	if err != nil {
		return resmgmt.InstantiateCCResponse{}, err
	}
	return rc.InstantiateCC(ctx, gw.channelID, req, opts...)
}

// UpgradeCC upgrades the chaincode on the gateway's channel, with the same
// defaults as InstantiateCC.
func (gw *Gateway) UpgradeCC(ctx reqContext.Context, req resmgmt.UpgradeCCRequest) (resmgmt.UpgradeCCResponse, error) {
	instantiateReq := resmgmt.InstantiateCCRequest(req)
	rc, opts, err := gw.lifecycleClient(&instantiateReq)
	if err != nil {
		return resmgmt.UpgradeCCResponse{}, err
	}
	return rc.UpgradeCC(ctx, gw.channelID, resmgmt.UpgradeCCRequest(instantiateReq), opts...)
}

func (gw *Gateway) lifecycleClient(req *resmgmt.InstantiateCCRequest) (*resmgmt.Client, []resmgmt.RequestOption, error) {
	if req.Name == "" {
		req.Name = gw.chaincodeID
	}
	if req.Policy == nil {
		req.Policy = gw.policy
	}
	if req.Policy == nil {
		return nil, nil, txerrors.NewConfigurationError("chaincode deployment requires an endorsement policy")
	}

	targets := make([]fab.Peer, 0, len(gw.endorsers))
	for _, e := range gw.endorsers {
		peer, ok := e.(fab.Peer)
		if !ok {
			return nil, nil, txerrors.NewConfigurationError("chaincode deployment requires peer endorsers", e.URL())
		}
		targets = append(targets, peer)
	}
	if len(targets) == 0 {
		return nil, nil, txerrors.NewConfigurationError("chaincode deployment requires fixed endorsers")
	}

	clientOpts := []resmgmt.ClientOption{resmgmt.WithCryptoSuite(gw.suite)}
	if gw.retryOpts != nil {
		clientOpts = append(clientOpts, resmgmt.WithRetry(*gw.retryOpts))
	}
	rc, err := resmgmt.New(gw.requestor, clientOpts...)
	if err != nil {
		return nil, nil, errors.WithMessage(err, "creating resource management client failed")
	}

	opts := []resmgmt.RequestOption{resmgmt.WithTargets(targets...), resmgmt.WithOrderers(gw.orderers...)}
	if len(gw.eventPeers) > 0 {
		opts = append(opts, resmgmt.WithEventPeers(gw.eventPeers...))
	}
	return rc, opts, nil
}
