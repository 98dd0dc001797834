/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package txn

import (
	"bytes"
	reqContext "context"
	"encoding/hex"
	"time"

	"github.com/golang/protobuf/proto"
	"github.com/golang/protobuf/ptypes"
	"github.com/hyperledger/fabric-protos-go/common"
	pb "github.com/hyperledger/fabric-protos-go/peer"
	"github.com/pkg/errors"

	"github.com/securekey/fabric-txflow/pkg/common/providers/core"
	"github.com/securekey/fabric-txflow/pkg/common/providers/fab"
	"github.com/securekey/fabric-txflow/pkg/common/providers/msp"
)

// NewTransactionContext creates a fresh nonce for identity and derives the
// transaction ID from it.
func NewTransactionContext(identity msp.Identity, suite core.CryptoSuite) (*fab.TransactionContext, error) {
	nonce, err := suite.Nonce()
	if err != nil {
		return nil, errors.WithMessage(err, "nonce creation failed")
	}

	creator, err := identity.Serialize()
	if err != nil {
		return nil, errors.WithMessage(err, "identity serialization failed")
	}

	id, err := computeTxnID(nonce, creator, suite)
	if err != nil {
		return nil, errors.WithMessage(err, "txn ID computation failed")
	}

	return &fab.TransactionContext{
		Identity: creator,
		Nonce:    nonce,
		ID:       id,
	}, nil
}

func computeTxnID(nonce, creator []byte, suite core.CryptoSuite) (fab.TransactionID, error) {
	b := make([]byte, 0, len(nonce)+len(creator))
	b = append(b, nonce...)
	b = append(b, creator...)

	digest, err := suite.Hash(b)
	if err != nil {
		return fab.EmptyTransactionID, err
	}
	return fab.TransactionID(hex.EncodeToString(digest)), nil
}

// ChannelHeaderOpts holds the parameters to create a ChannelHeader.
type ChannelHeaderOpts struct {
	ChannelID   string
	TxnID       fab.TransactionID
	Epoch       uint64
	ChaincodeID string
	Timestamp   time.Time
	TLSCertHash []byte
}

// CreateChannelHeader is a utility method to build a common chain header
func CreateChannelHeader(headerType common.HeaderType, opts ChannelHeaderOpts) (*common.ChannelHeader, error) {
	logger.Debugf("buildChannelHeader - headerType: %s channelID: %s txID: %s epoch: %d chaincodeID: %s", headerType, opts.ChannelID, opts.TxnID, opts.Epoch, opts.ChaincodeID)
	channelHeader := &common.ChannelHeader{
		Type:        int32(headerType),
		ChannelId:   opts.ChannelID,
		TxId:        string(opts.TxnID),
		Epoch:       opts.Epoch,
		TlsCertHash: opts.TLSCertHash,
	}

	if opts.Timestamp.IsZero() {
		opts.Timestamp = time.Now()
	}

	ts, err := ptypes.TimestampProto(opts.Timestamp)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create timestamp in channel header")
	}
	channelHeader.Timestamp = ts

	if opts.ChaincodeID != "" {
		headerExt := &pb.ChaincodeHeaderExtension{
			ChaincodeId: &pb.ChaincodeID{Name: opts.ChaincodeID},
		}
		headerExtBytes, err := proto.Marshal(headerExt)
		if err != nil {
			return nil, errors.Wrap(err, "marshal header extension failed")
		}
		channelHeader.Extension = headerExtBytes
	}
	return channelHeader, nil
}

// createHeader creates a Header from a ChannelHeader.
func createHeader(txCtx *fab.TransactionContext, channelHeader *common.ChannelHeader) (*common.Header, error) {
	sh, err := proto.Marshal(&common.SignatureHeader{
		Creator: txCtx.Identity,
		Nonce:   txCtx.Nonce,
	})
	if err != nil {
		return nil, errors.Wrap(err, "marshal signatureHeader failed")
	}
	ch, err := proto.Marshal(channelHeader)
	if err != nil {
		return nil, errors.Wrap(err, "marshal channelHeader failed")
	}
	return &common.Header{SignatureHeader: sh, ChannelHeader: ch}, nil
}

// CreatePayload creates a payload from a ChannelHeader and a data slice.
func CreatePayload(txCtx *fab.TransactionContext, channelHeader *common.ChannelHeader, data []byte) (*common.Payload, error) {
	header, err := createHeader(txCtx, channelHeader)
	if err != nil {
		return nil, errors.Wrap(err, "header creation failed")
	}
	return &common.Payload{Header: header, Data: data}, nil
}

// SignPayload marshals and signs the payload into an envelope
func SignPayload(identity msp.SigningIdentity, payload *common.Payload) (*common.Envelope, error) {
	payloadBytes, err := proto.Marshal(payload)
	if err != nil {
		return nil, errors.WithMessage(err, "marshaling of payload failed")
	}

	signature, err := identity.Sign(payloadBytes)
	if err != nil {
		return nil, errors.WithMessage(err, "signing of payload failed")
	}
	return &common.Envelope{Payload: payloadBytes, Signature: signature}, nil
}

// CreateSignedEnvelope wraps msg in a payload of the given header type, under a
// new transaction context, and signs it.
func CreateSignedEnvelope(identity msp.SigningIdentity, suite core.CryptoSuite, headerType common.HeaderType, channelID string, msg proto.Message) (*common.Envelope, error) {
	txCtx, err := NewTransactionContext(identity, suite)
	if err != nil {
		return nil, err
	}

	chdr, err := CreateChannelHeader(headerType, ChannelHeaderOpts{ChannelID: channelID, TxnID: txCtx.ID})
	if err != nil {
		return nil, err
	}

	data, err := proto.Marshal(msg)
	if err != nil {
		return nil, errors.Wrap(err, "marshal of envelope data failed")
	}

	payload, err := CreatePayload(txCtx, chdr, data)
	if err != nil {
		return nil, err
	}
	return SignPayload(identity, payload)
}

// GenerateTransaction builds and signs a chaincode invocation proposal for identity.
func GenerateTransaction(ctx reqContext.Context, identity msp.SigningIdentity, suite core.CryptoSuite, request fab.ChaincodeInvokeRequest) (*fab.GeneratedTransaction, error) {
	if request.ChaincodeID == "" {
		return nil, errors.New("ChaincodeID is required")
	}
	if request.Fcn == "" {
		return nil, errors.New("Fcn is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, "transaction generation aborted")
	}

	txCtx, err := NewTransactionContext(identity, suite)
	if err != nil {
		return nil, err
	}

	proposal, header, err := createChaincodeProposal(txCtx, request)
	if err != nil {
		return nil, err
	}

	signedProposal, err := signProposal(identity, proposal)
	if err != nil {
		return nil, errors.WithMessage(err, "sign proposal failed")
	}

	logger.Debugf("Generated transaction %s for %s:%s on channel [%s]", txCtx.ID, request.ChaincodeID, request.Fcn, request.ChannelID)

	return &fab.GeneratedTransaction{
		Context:        txCtx,
		ChannelID:      request.ChannelID,
		Proposal:       proposal,
		SignedProposal: signedProposal,
		Header:         header,
	}, nil
}

func createChaincodeProposal(txCtx *fab.TransactionContext, request fab.ChaincodeInvokeRequest) (*pb.Proposal, *common.Header, error) {
	// the function name is the first argument
	argsArray := make([][]byte, len(request.Args)+1)
	argsArray[0] = []byte(request.Fcn)
	copy(argsArray[1:], request.Args)

	ccis := &pb.ChaincodeInvocationSpec{ChaincodeSpec: &pb.ChaincodeSpec{
		Type:        request.Lang,
		ChaincodeId: &pb.ChaincodeID{Name: request.ChaincodeID},
		Input:       &pb.ChaincodeInput{Args: argsArray, IsInit: request.IsInit},
	}}
	cisBytes, err := proto.Marshal(ccis)
	if err != nil {
		return nil, nil, errors.Wrap(err, "marshal of chaincode invocation spec failed")
	}

	ccPayload, err := proto.Marshal(&pb.ChaincodeProposalPayload{Input: cisBytes, TransientMap: request.TransientMap})
	if err != nil {
		return nil, nil, errors.Wrap(err, "marshal of chaincode proposal payload failed")
	}

	chdr, err := CreateChannelHeader(common.HeaderType_ENDORSER_TRANSACTION, ChannelHeaderOpts{
		ChannelID:   request.ChannelID,
		TxnID:       txCtx.ID,
		Epoch:       txCtx.Epoch,
		ChaincodeID: request.ChaincodeID,
	})
	if err != nil {
		return nil, nil, err
	}

	header, err := createHeader(txCtx, chdr)
	if err != nil {
		return nil, nil, err
	}
	headerBytes, err := proto.Marshal(header)
	if err != nil {
		return nil, nil, errors.Wrap(err, "marshal of proposal header failed")
	}

	return &pb.Proposal{Header: headerBytes, Payload: ccPayload}, header, nil
}

func signProposal(identity msp.SigningIdentity, proposal *pb.Proposal) (*pb.SignedProposal, error) {
	proposalBytes, err := proto.Marshal(proposal)
	if err != nil {
		return nil, errors.Wrap(err, "mashal proposal failed")
	}

	signature, err := identity.Sign(proposalBytes)
	if err != nil {
		return nil, errors.WithMessage(err, "sign failed")
	}

	return &pb.SignedProposal{ProposalBytes: proposalBytes, Signature: signature}, nil
}

// CreateCommitEnvelope assembles the successful endorsements of tx into a
// transaction envelope signed by identity. The endorsements must agree on the
// proposal response payload.
func CreateCommitEnvelope(tx *fab.EndorsedTransaction, identity msp.SigningIdentity) (*common.Envelope, error) {
	if tx == nil || tx.Transaction == nil || tx.Transaction.Proposal == nil || tx.Transaction.Header == nil {
		return nil, errors.New("endorsed transaction is incomplete")
	}

	var endorsed []*fab.TransactionProposalResponse
	for _, r := range tx.Responses {
		if r.Succeeded() {
			endorsed = append(endorsed, r)
		}
	}
	if len(endorsed) == 0 {
		return nil, errors.Errorf("transaction %s has no successful endorsement", tx.TxID())
	}

	responsePayload := endorsed[0].ProposalResponse.Payload
	endorsements := make([]*pb.Endorsement, len(endorsed))
	for i, r := range endorsed {
		if !bytes.Equal(responsePayload, r.ProposalResponse.Payload) {
			return nil, errors.Errorf("proposal response payloads from %s and %s differ", endorsed[0].Endorser, r.Endorser)
		}
		endorsements[i] = r.ProposalResponse.Endorsement
	}

	ccPayload := &pb.ChaincodeProposalPayload{}
	if err := proto.Unmarshal(tx.Transaction.Proposal.Payload, ccPayload); err != nil {
		return nil, errors.Wrap(err, "unmarshal proposal payload failed")
	}
	// transient data never reaches the ledger
	ccPayloadBytes, err := proto.Marshal(&pb.ChaincodeProposalPayload{Input: ccPayload.Input})
	if err != nil {
		return nil, errors.Wrap(err, "marshal of proposal payload failed")
	}

	capBytes, err := proto.Marshal(&pb.ChaincodeActionPayload{
		ChaincodeProposalPayload: ccPayloadBytes,
		Action: &pb.ChaincodeEndorsedAction{
			ProposalResponsePayload: responsePayload,
			Endorsements:            endorsements,
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, "marshal of chaincode action payload failed")
	}

	txBytes, err := proto.Marshal(&pb.Transaction{
		Actions: []*pb.TransactionAction{{Header: tx.Transaction.Header.SignatureHeader, Payload: capBytes}},
	})
	if err != nil {
		return nil, errors.Wrap(err, "marshal of transaction failed")
	}

	return SignPayload(identity, &common.Payload{Header: tx.Transaction.Header, Data: txBytes})
}
