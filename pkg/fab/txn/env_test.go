/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package txn

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/golang/protobuf/proto"
	"github.com/hyperledger/fabric-protos-go/common"
	po "github.com/hyperledger/fabric-protos-go/orderer"
	pb "github.com/hyperledger/fabric-protos-go/peer"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/securekey/fabric-txflow/pkg/common/providers/fab"
	"github.com/securekey/fabric-txflow/pkg/core/cryptosuite"
	"github.com/securekey/fabric-txflow/pkg/fab/mocks"
)

const testChannel = "testchannel"

func testRequest() fab.ChaincodeInvokeRequest {
	return fab.ChaincodeInvokeRequest{
		ChannelID:    testChannel,
		ChaincodeID:  "example_cc",
		Fcn:          "move",
		Args:         [][]byte{[]byte("a"), []byte("b"), []byte("10")},
		TransientMap: map[string][]byte{"secret": []byte("value")},
	}
}

func generate(t *testing.T) (*fab.GeneratedTransaction, *mocks.MockSigningIdentity) {
	identity := mocks.NewMockSigningIdentity("user1", "Org1MSP")
	tx, err := GenerateTransaction(context.Background(), identity, cryptosuite.GetDefault(), testRequest())
	require.NoError(t, err)
	return tx, identity
}

func TestNewTransactionContext(t *testing.T) {
	identity := mocks.NewMockSigningIdentity("user1", "Org1MSP")
	txCtx, err := NewTransactionContext(identity, cryptosuite.GetDefault())
	require.NoError(t, err)

	assert.Len(t, txCtx.Nonce, cryptosuite.NonceSize)
	creator, err := identity.Serialize()
	require.NoError(t, err)
	assert.Equal(t, creator, txCtx.Identity)

	digest := sha256.Sum256(append(append([]byte{}, txCtx.Nonce...), creator...))
	assert.Equal(t, fab.TransactionID(hex.EncodeToString(digest[:])), txCtx.ID)

	other, err := NewTransactionContext(identity, cryptosuite.GetDefault())
	require.NoError(t, err)
	assert.NotEqual(t, txCtx.ID, other.ID)
}

func TestGenerateTransaction(t *testing.T) {
	tx, identity := generate(t)

	assert.Equal(t, testChannel, tx.ChannelID)
	assert.Equal(t, identity.Signature, tx.SignedProposal.Signature)

	proposal := &pb.Proposal{}
	require.NoError(t, proto.Unmarshal(tx.SignedProposal.ProposalBytes, proposal))
	assert.True(t, proto.Equal(tx.Proposal, proposal))

	chdr := &common.ChannelHeader{}
	require.NoError(t, proto.Unmarshal(tx.Header.ChannelHeader, chdr))
	assert.Equal(t, string(tx.Context.ID), chdr.TxId)
	assert.Equal(t, testChannel, chdr.ChannelId)
	assert.Equal(t, int32(common.HeaderType_ENDORSER_TRANSACTION), chdr.Type)
	assert.NotNil(t, chdr.Timestamp)

	ext := &pb.ChaincodeHeaderExtension{}
	require.NoError(t, proto.Unmarshal(chdr.Extension, ext))
	assert.Equal(t, "example_cc", ext.ChaincodeId.Name)

	shdr := &common.SignatureHeader{}
	require.NoError(t, proto.Unmarshal(tx.Header.SignatureHeader, shdr))
	assert.Equal(t, tx.Context.Nonce, shdr.Nonce)
	assert.Equal(t, tx.Context.Identity, shdr.Creator)

	ccPayload := &pb.ChaincodeProposalPayload{}
	require.NoError(t, proto.Unmarshal(proposal.Payload, ccPayload))
	assert.Equal(t, []byte("value"), ccPayload.TransientMap["secret"])

	cis := &pb.ChaincodeInvocationSpec{}
	require.NoError(t, proto.Unmarshal(ccPayload.Input, cis))
	assert.Equal(t, [][]byte{[]byte("move"), []byte("a"), []byte("b"), []byte("10")}, cis.ChaincodeSpec.Input.Args)
}

func TestGenerateTransactionErrors(t *testing.T) {
	identity := mocks.NewMockSigningIdentity("user1", "Org1MSP")
	suite := cryptosuite.GetDefault()

	req := testRequest()
	req.ChaincodeID = ""
	_, err := GenerateTransaction(context.Background(), identity, suite, req)
	assert.EqualError(t, err, "ChaincodeID is required")

	req = testRequest()
	req.Fcn = ""
	_, err = GenerateTransaction(context.Background(), identity, suite, req)
	assert.EqualError(t, err, "Fcn is required")

	identity.SignErr = errors.New("no key")
	_, err = GenerateTransaction(context.Background(), identity, suite, testRequest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no key")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = GenerateTransaction(ctx, mocks.NewMockSigningIdentity("user1", "Org1MSP"), suite, testRequest())
	assert.Error(t, err)
}

func endorse(t *testing.T, tx *fab.GeneratedTransaction, peers ...*mocks.MockPeer) *fab.EndorsedTransaction {
	endorsed := &fab.EndorsedTransaction{Transaction: tx}
	for _, p := range peers {
		resp, err := p.ProcessTransactionProposal(context.Background(), tx.SignedProposal)
		require.NoError(t, err)
		endorsed.Responses = append(endorsed.Responses, resp)
	}
	return endorsed
}

func TestCreateCommitEnvelope(t *testing.T) {
	tx, identity := generate(t)

	failing := mocks.NewMockPeer("peer2")
	failing.Status = 500
	endorsed := endorse(t, tx, mocks.NewMockPeer("peer0"), failing, mocks.NewMockPeer("peer1"))

	env, err := CreateCommitEnvelope(endorsed, identity)
	require.NoError(t, err)
	assert.Equal(t, identity.Signature, env.Signature)

	payload := &common.Payload{}
	require.NoError(t, proto.Unmarshal(env.Payload, payload))
	assert.True(t, proto.Equal(tx.Header, payload.Header))

	transaction := &pb.Transaction{}
	require.NoError(t, proto.Unmarshal(payload.Data, transaction))
	require.Len(t, transaction.Actions, 1)
	assert.Equal(t, tx.Header.SignatureHeader, transaction.Actions[0].Header)

	actionPayload := &pb.ChaincodeActionPayload{}
	require.NoError(t, proto.Unmarshal(transaction.Actions[0].Payload, actionPayload))
	assert.Len(t, actionPayload.Action.Endorsements, 2, "only successful endorsements are included")
	assert.Equal(t, []byte("proposal response payload"), actionPayload.Action.ProposalResponsePayload)

	ccPayload := &pb.ChaincodeProposalPayload{}
	require.NoError(t, proto.Unmarshal(actionPayload.ChaincodeProposalPayload, ccPayload))
	assert.Empty(t, ccPayload.TransientMap)
	assert.NotEmpty(t, ccPayload.Input)
}

func TestCreateCommitEnvelopeErrors(t *testing.T) {
	tx, identity := generate(t)

	_, err := CreateCommitEnvelope(&fab.EndorsedTransaction{}, identity)
	assert.Error(t, err)

	failing := mocks.NewMockPeer("peer0")
	failing.Status = 400
	_, err = CreateCommitEnvelope(endorse(t, tx, failing), identity)
	assert.Error(t, err)

	endorsed := endorse(t, tx, mocks.NewMockPeer("peer0"), mocks.NewMockPeer("peer1"))
	endorsed.Responses[1].ProposalResponse.Payload = []byte("different")
	_, err = CreateCommitEnvelope(endorsed, identity)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "differ")
}

func TestCreateSignedEnvelope(t *testing.T) {
	identity := mocks.NewMockSigningIdentity("user1", "Org1MSP")
	seekInfo := &po.SeekInfo{Behavior: po.SeekInfo_BLOCK_UNTIL_READY}

	env, err := CreateSignedEnvelope(identity, cryptosuite.GetDefault(), common.HeaderType_DELIVER_SEEK_INFO, testChannel, seekInfo)
	require.NoError(t, err)

	payload := &common.Payload{}
	require.NoError(t, proto.Unmarshal(env.Payload, payload))
	chdr := &common.ChannelHeader{}
	require.NoError(t, proto.Unmarshal(payload.Header.ChannelHeader, chdr))
	assert.Equal(t, int32(common.HeaderType_DELIVER_SEEK_INFO), chdr.Type)
	assert.Equal(t, testChannel, chdr.ChannelId)
	assert.NotEmpty(t, chdr.TxId)

	decoded := &po.SeekInfo{}
	require.NoError(t, proto.Unmarshal(payload.Data, decoded))
	assert.Equal(t, po.SeekInfo_BLOCK_UNTIL_READY, decoded.Behavior)
}
