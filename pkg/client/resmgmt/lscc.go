/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package resmgmt

import (
	reqContext "context"
	"time"

	"github.com/golang/protobuf/proto"
	pb "github.com/hyperledger/fabric-protos-go/peer"
	"github.com/pkg/errors"

	"github.com/securekey/fabric-txflow/pkg/common/errors/txerrors"
	"github.com/securekey/fabric-txflow/pkg/common/providers/fab"
	"github.com/securekey/fabric-txflow/pkg/fab/events/eventhub"
	"github.com/securekey/fabric-txflow/pkg/fab/policy"
	"github.com/securekey/fabric-txflow/pkg/fab/txn"
)

const (
	lscc                = "lscc"
	lsccDeploy          = "deploy"
	lsccUpgrade         = "upgrade"
	lsccInstalledCCs    = "getinstalledchaincodes"
	lsccInstantiatedCCs = "getchaincodes"
	escc                = "escc"
	vscc                = "vscc"
)

// chaincodeProposalType reflects transitions in the chaincode lifecycle
type chaincodeProposalType int

// Define chaincode proposal types
const (
	InstantiateChaincode chaincodeProposalType = iota
	UpgradeChaincode
)

func (t chaincodeProposalType) fcn() string {
	if t == UpgradeChaincode {
		return lsccUpgrade
	}
	return lsccDeploy
}

// InstantiateCCRequest contains instantiate chaincode request parameters.
// Args carries the init function followed by its arguments.
type InstantiateCCRequest struct {
	Name    string
	Path    string
	Version string
	Lang    pb.ChaincodeSpec_Type
	Args    [][]byte
	Policy  *policy.EndorsementPolicy
}

// InstantiateCCResponse contains response parameters for Instantiate
type InstantiateCCResponse struct {
	TransactionID fab.TransactionID
	BlockNumber   uint64
}

// UpgradeCCRequest contains upgrade chaincode request parameters
type UpgradeCCRequest InstantiateCCRequest

// UpgradeCCResponse contains response parameters for Upgrade
type UpgradeCCResponse InstantiateCCResponse

// InstantiateCC deploys installed chaincode on the channel. The deployment is
// endorsed by every target, ordered and awaited on the event peers.
func (rc *Client) InstantiateCC(ctx reqContext.Context, channelID string, req InstantiateCCRequest, options ...RequestOption) (InstantiateCCResponse, error) {
	return rc.sendCCProposal(ctx, InstantiateChaincode, channelID, req, options...)
}

// UpgradeCC upgrades instantiated chaincode to a new version
func (rc *Client) UpgradeCC(ctx reqContext.Context, channelID string, req UpgradeCCRequest, options ...RequestOption) (UpgradeCCResponse, error) {
	resp, err := rc.sendCCProposal(ctx, UpgradeChaincode, channelID, InstantiateCCRequest(req), options...)
	return UpgradeCCResponse(resp), err
}

// QueryInstalledChaincodes returns the chaincodes installed on the peer
func (rc *Client) QueryInstalledChaincodes(ctx reqContext.Context, peer fab.ProposalProcessor) (*pb.ChaincodeQueryResponse, error) {
	payload, err := rc.query(ctx, fab.ChaincodeInvokeRequest{ChaincodeID: lscc, Fcn: lsccInstalledCCs}, peer)
	if err != nil {
		return nil, errors.WithMessage(err, "lscc.getinstalledchaincodes failed")
	}
	return unmarshalChaincodeQueryResponse(payload)
}

// QueryInstantiatedChaincodes returns the chaincodes instantiated on the channel, as seen by the peer
func (rc *Client) QueryInstantiatedChaincodes(ctx reqContext.Context, channelID string, peer fab.ProposalProcessor) (*pb.ChaincodeQueryResponse, error) {
	if channelID == "" {
		return nil, txerrors.NewConfigurationError("must provide channel ID")
	}
	payload, err := rc.query(ctx, fab.ChaincodeInvokeRequest{ChannelID: channelID, ChaincodeID: lscc, Fcn: lsccInstantiatedCCs}, peer)
	if err != nil {
		return nil, errors.WithMessage(err, "lscc.getchaincodes failed")
	}
	return unmarshalChaincodeQueryResponse(payload)
}

func unmarshalChaincodeQueryResponse(payload []byte) (*pb.ChaincodeQueryResponse, error) {
	response := &pb.ChaincodeQueryResponse{}
	if err := proto.Unmarshal(payload, response); err != nil {
		return nil, errors.Wrap(err, "unmarshal ChaincodeQueryResponse failed")
	}
	return response, nil
}

// sendCCProposal sends proposal for type Instantiate, Upgrade
func (rc *Client) sendCCProposal(ctx reqContext.Context, ccProposalType chaincodeProposalType, channelID string, req InstantiateCCRequest, options ...RequestOption) (InstantiateCCResponse, error) {
	if err := checkRequiredCCProposalParams(channelID, req); err != nil {
		return InstantiateCCResponse{}, err
	}

	opts, err := prepareRequestOpts(options...)
	if err != nil {
		return InstantiateCCResponse{}, err
	}

	hub, err := eventhub.New(channelID, rc.requestor, rc.suite, opts.EventPeers)
	if err != nil {
		return InstantiateCCResponse{}, err
	}

	request, err := createChaincodeDeployRequest(ccProposalType, channelID, req)
	if err != nil {
		return InstantiateCCResponse{}, err
	}

	reqCtx, cancel := reqContext.WithTimeout(ctx, rc.timeout)
	defer cancel()

	targets := make([]fab.ProposalProcessor, len(opts.Targets))
	for i, t := range opts.Targets {
		targets[i] = t
	}

	endorsed, err := rc.sendProposal(reqCtx, request, targets)
	if err != nil {
		return InstantiateCCResponse{}, errors.WithMessage(err, "sending deploy transaction proposal failed")
	}
	txID := endorsed.TxID()

	if _, err := txn.Commit(reqCtx, endorsed, rc.requestor, opts.Orderers); err != nil {
		return InstantiateCCResponse{TransactionID: txID}, errors.WithMessage(err, "CreateAndSendTransaction failed")
	}

	remaining := rc.timeout
	if deadline, ok := reqCtx.Deadline(); ok {
		remaining = time.Until(deadline)
	}
	tx, err := hub.CheckTransaction(ctx, txID, remaining)
	if err != nil {
		return InstantiateCCResponse{TransactionID: txID}, err
	}

	logger.Debugf("Chaincode %s:%s %s committed in block %d", req.Name, req.Version, ccProposalType.fcn(), tx.BlockNumber)
	return InstantiateCCResponse{TransactionID: txID, BlockNumber: tx.BlockNumber}, nil
}

func checkRequiredCCProposalParams(channelID string, req InstantiateCCRequest) error {
	if channelID == "" {
		return txerrors.NewConfigurationError("must provide channel ID")
	}
	if req.Name == "" || req.Version == "" || req.Path == "" || req.Policy == nil {
		return txerrors.NewConfigurationError("chaincode name, version, path and policy are required")
	}
	return nil
}

// createChaincodeDeployRequest builds the lscc invocation that instantiates or upgrades chaincode
func createChaincodeDeployRequest(ccProposalType chaincodeProposalType, channelID string, req InstantiateCCRequest) (fab.ChaincodeInvokeRequest, error) {
	ccds := &pb.ChaincodeDeploymentSpec{ChaincodeSpec: &pb.ChaincodeSpec{
		Type: req.Lang,
		ChaincodeId: &pb.ChaincodeID{
			Name:    req.Name,
			Path:    req.Path,
			Version: req.Version,
		},
		Input: &pb.ChaincodeInput{Args: req.Args},
	}}
	ccdsBytes, err := proto.Marshal(ccds)
	if err != nil {
		return fab.ChaincodeInvokeRequest{}, errors.Wrap(err, "marshal of chaincode deployment spec failed")
	}

	envelope, err := policy.Envelope(req.Policy)
	if err != nil {
		return fab.ChaincodeInvokeRequest{}, errors.WithMessage(err, "invalid chaincode policy")
	}
	policyBytes, err := proto.Marshal(envelope)
	if err != nil {
		return fab.ChaincodeInvokeRequest{}, errors.Wrap(err, "marshal of chaincode policy failed")
	}

	return fab.ChaincodeInvokeRequest{
		ChannelID:   channelID,
		ChaincodeID: lscc,
		Fcn:         ccProposalType.fcn(),
		Args:        [][]byte{[]byte(channelID), ccdsBytes, policyBytes, []byte(escc), []byte(vscc)},
	}, nil
}
