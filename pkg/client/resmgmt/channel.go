/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package resmgmt

import (
	reqContext "context"
	"io/ioutil"

	"github.com/golang/protobuf/proto"
	"github.com/hyperledger/fabric-protos-go/common"
	pb "github.com/hyperledger/fabric-protos-go/peer"
	"github.com/pkg/errors"

	"github.com/securekey/fabric-txflow/pkg/common/errors/txerrors"
	"github.com/securekey/fabric-txflow/pkg/common/providers/fab"
	"github.com/securekey/fabric-txflow/pkg/common/providers/msp"
	"github.com/securekey/fabric-txflow/pkg/fab/events/seek"
	"github.com/securekey/fabric-txflow/pkg/fab/txn"
)

const (
	cscc         = "cscc"
	csccJoin     = "JoinChain"
	csccChannels = "GetChannels"
)

// CreateChannelRequest holds the channel configuration transaction produced by configtxgen
type CreateChannelRequest struct {
	ChannelID  string
	Config     []byte                // serialized configuration envelope
	ConfigPath string                // read when Config is empty
	Signers    []msp.SigningIdentity // the client's identity signs when empty
}

// CreateChannelResponse contains response parameters for CreateChannel
type CreateChannelResponse struct {
	TransactionID fab.TransactionID
}

// CreateChannel signs the configuration update in req and broadcasts it to
// the orderers, trying them in order until one answers.
func (rc *Client) CreateChannel(ctx reqContext.Context, req CreateChannelRequest, orderers []fab.Broadcaster) (CreateChannelResponse, error) {
	if req.ChannelID == "" {
		return CreateChannelResponse{}, txerrors.NewConfigurationError("must provide channel ID")
	}

	configTx := req.Config
	if len(configTx) == 0 {
		if req.ConfigPath == "" {
			return CreateChannelResponse{}, txerrors.NewConfigurationError("must provide channel config")
		}
		var err error
		configTx, err = ioutil.ReadFile(req.ConfigPath)
		if err != nil {
			return CreateChannelResponse{}, errors.Wrap(err, "reading channel config file failed")
		}
	}

	configUpdate, err := ExtractChannelConfig(configTx)
	if err != nil {
		return CreateChannelResponse{}, errors.WithMessage(err, "extracting channel config failed")
	}

	signers := req.Signers
	if len(signers) == 0 {
		signers = []msp.SigningIdentity{rc.requestor}
	}

	var signatures []*common.ConfigSignature
	for _, signer := range signers {
		sig, err := rc.CreateConfigSignature(signer, configUpdate)
		if err != nil {
			return CreateChannelResponse{}, errors.WithMessage(err, "signing configuration failed")
		}
		signatures = append(signatures, sig)
	}

	logger.Debugf("creating channel: %s", req.ChannelID)

	envelope, txID, err := rc.createConfigUpdateEnvelope(req.ChannelID, configUpdate, signatures)
	if err != nil {
		return CreateChannelResponse{}, err
	}

	reqCtx, cancel := reqContext.WithTimeout(ctx, rc.timeout)
	defer cancel()

	if _, err := txn.BroadcastEnvelope(reqCtx, envelope, txID, orderers); err != nil {
		return CreateChannelResponse{}, errors.WithMessage(err, "create channel failed")
	}
	return CreateChannelResponse{TransactionID: txID}, nil
}

// ExtractChannelConfig returns the serialized ConfigUpdate held by a
// configuration transaction envelope.
func ExtractChannelConfig(configEnvelope []byte) ([]byte, error) {
	envelope := &common.Envelope{}
	if err := proto.Unmarshal(configEnvelope, envelope); err != nil {
		return nil, errors.Wrap(err, "unmarshal config envelope failed")
	}

	payload := &common.Payload{}
	if err := proto.Unmarshal(envelope.Payload, payload); err != nil {
		return nil, errors.Wrap(err, "unmarshal envelope payload failed")
	}

	configUpdateEnvelope := &common.ConfigUpdateEnvelope{}
	if err := proto.Unmarshal(payload.Data, configUpdateEnvelope); err != nil {
		return nil, errors.Wrap(err, "unmarshal config update envelope failed")
	}
	if len(configUpdateEnvelope.ConfigUpdate) == 0 {
		return nil, errors.New("config update envelope holds no config update")
	}
	return configUpdateEnvelope.ConfigUpdate, nil
}

// CreateConfigSignature signs the configuration update as signer
func (rc *Client) CreateConfigSignature(signer msp.SigningIdentity, configUpdate []byte) (*common.ConfigSignature, error) {
	txCtx, err := txn.NewTransactionContext(signer, rc.suite)
	if err != nil {
		return nil, err
	}

	signatureHeader, err := proto.Marshal(&common.SignatureHeader{
		Creator: txCtx.Identity,
		Nonce:   txCtx.Nonce,
	})
	if err != nil {
		return nil, errors.Wrap(err, "marshal signature header failed")
	}

	// the signature covers the header followed by the update
	signingBytes := make([]byte, 0, len(signatureHeader)+len(configUpdate))
	signingBytes = append(signingBytes, signatureHeader...)
	signingBytes = append(signingBytes, configUpdate...)

	signature, err := signer.Sign(signingBytes)
	if err != nil {
		return nil, errors.WithMessage(err, "signing config update failed")
	}

	return &common.ConfigSignature{SignatureHeader: signatureHeader, Signature: signature}, nil
}

func (rc *Client) createConfigUpdateEnvelope(channelID string, configUpdate []byte, signatures []*common.ConfigSignature) (*common.Envelope, fab.TransactionID, error) {
	data, err := proto.Marshal(&common.ConfigUpdateEnvelope{ConfigUpdate: configUpdate, Signatures: signatures})
	if err != nil {
		return nil, fab.EmptyTransactionID, errors.Wrap(err, "marshal config update envelope failed")
	}

	txCtx, err := txn.NewTransactionContext(rc.requestor, rc.suite)
	if err != nil {
		return nil, fab.EmptyTransactionID, err
	}

	chdr, err := txn.CreateChannelHeader(common.HeaderType_CONFIG_UPDATE, txn.ChannelHeaderOpts{ChannelID: channelID, TxnID: txCtx.ID})
	if err != nil {
		return nil, fab.EmptyTransactionID, err
	}

	payload, err := txn.CreatePayload(txCtx, chdr, data)
	if err != nil {
		return nil, fab.EmptyTransactionID, err
	}

	envelope, err := txn.SignPayload(rc.requestor, payload)
	if err != nil {
		return nil, fab.EmptyTransactionID, err
	}
	return envelope, txCtx.ID, nil
}

// GenesisBlock fetches block 0 of the channel from the orderer
func (rc *Client) GenesisBlock(ctx reqContext.Context, channelID string, orderer fab.Orderer) (*common.Block, error) {
	if channelID == "" {
		return nil, txerrors.NewConfigurationError("must provide channel ID")
	}
	if orderer == nil {
		return nil, txerrors.NewConfigurationError("orderer is required")
	}

	envelope, err := seek.Envelope(rc.requestor, rc.suite, channelID, seek.InfoBlock(0))
	if err != nil {
		return nil, errors.WithMessage(err, "creating deliver envelope failed")
	}

	reqCtx, cancel := reqContext.WithTimeout(ctx, rc.timeout)
	defer cancel()

	blocks, errs := orderer.SendDeliver(reqCtx, envelope)
	if block, ok := <-blocks; ok {
		logger.Debugf("Received genesis block of channel %s from %s", channelID, orderer.URL())
		return block, nil
	}

	if err := <-errs; err != nil {
		return nil, errors.WithMessage(err, "genesis block retrieval failed")
	}
	if reqCtx.Err() != nil {
		return nil, errors.Wrap(reqCtx.Err(), "genesis block retrieval failed")
	}
	return nil, &txerrors.StreamExhaustedError{Endpoint: orderer.URL()}
}

// JoinChannel asks every peer to join the channel created with the given
// genesis block. Every peer has to accept.
func (rc *Client) JoinChannel(ctx reqContext.Context, genesisBlock *common.Block, peers ...fab.ProposalProcessor) error {
	if genesisBlock == nil {
		return txerrors.NewConfigurationError("genesis block is required")
	}
	if len(peers) == 0 {
		return txerrors.NewConfigurationError("at least one peer is required to join the channel")
	}

	blockBytes, err := proto.Marshal(genesisBlock)
	if err != nil {
		return errors.Wrap(err, "marshal genesis block failed")
	}

	reqCtx, cancel := reqContext.WithTimeout(ctx, rc.timeout)
	defer cancel()

	request := fab.ChaincodeInvokeRequest{
		ChaincodeID: cscc,
		Fcn:         csccJoin,
		Args:        [][]byte{blockBytes},
	}
	if _, err := rc.sendProposal(reqCtx, request, peers); err != nil {
		return errors.WithMessage(err, "join channel failed")
	}
	return nil
}

// QueryChannels returns the channels the peer has joined
func (rc *Client) QueryChannels(ctx reqContext.Context, peer fab.ProposalProcessor) (*pb.ChannelQueryResponse, error) {
	payload, err := rc.query(ctx, fab.ChaincodeInvokeRequest{ChaincodeID: cscc, Fcn: csccChannels}, peer)
	if err != nil {
		return nil, errors.WithMessage(err, "cscc.GetChannels failed")
	}

	response := &pb.ChannelQueryResponse{}
	if err := proto.Unmarshal(payload, response); err != nil {
		return nil, errors.Wrap(err, "unmarshal ChannelQueryResponse failed")
	}
	return response, nil
}
