/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package resmgmt

import (
	reqContext "context"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang/protobuf/proto"
	"github.com/hyperledger/fabric-protos-go/common"
	pb "github.com/hyperledger/fabric-protos-go/peer"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/securekey/fabric-txflow/pkg/common/errors/retry"
	"github.com/securekey/fabric-txflow/pkg/common/errors/txerrors"
	"github.com/securekey/fabric-txflow/pkg/common/providers/fab"
	"github.com/securekey/fabric-txflow/pkg/common/providers/msp"
	"github.com/securekey/fabric-txflow/pkg/core/cryptosuite"
	"github.com/securekey/fabric-txflow/pkg/fab/mocks"
	"github.com/securekey/fabric-txflow/pkg/fab/policy"
)

const channelID = "mychannel"

func setupClient(t *testing.T, opts ...ClientOption) *Client {
	suite, err := cryptosuite.New(cryptosuite.SHA2, 256)
	require.NoError(t, err)

	opts = append([]ClientOption{WithCryptoSuite(suite), WithTimeout(5 * time.Second)}, opts...)
	rc, err := New(mocks.NewMockSigningIdentity("admin", "Org1MSP"), opts...)
	require.NoError(t, err)
	return rc
}

func configTx(t *testing.T, update string) []byte {
	data, err := proto.Marshal(&common.ConfigUpdateEnvelope{ConfigUpdate: []byte(update)})
	require.NoError(t, err)
	payload, err := proto.Marshal(&common.Payload{Header: &common.Header{}, Data: data})
	require.NoError(t, err)
	env, err := proto.Marshal(&common.Envelope{Payload: payload})
	require.NoError(t, err)
	return env
}

// invocationArgs decodes the chaincode arguments of a signed proposal
func invocationArgs(t *testing.T, sp *pb.SignedProposal) (string, [][]byte) {
	proposal := &pb.Proposal{}
	require.NoError(t, proto.Unmarshal(sp.ProposalBytes, proposal))
	header := &common.Header{}
	require.NoError(t, proto.Unmarshal(proposal.Header, header))
	chdr := &common.ChannelHeader{}
	require.NoError(t, proto.Unmarshal(header.ChannelHeader, chdr))

	ccPayload := &pb.ChaincodeProposalPayload{}
	require.NoError(t, proto.Unmarshal(proposal.Payload, ccPayload))
	cis := &pb.ChaincodeInvocationSpec{}
	require.NoError(t, proto.Unmarshal(ccPayload.Input, cis))
	return chdr.ChannelId, cis.ChaincodeSpec.Input.Args
}

func TestNew(t *testing.T) {
	_, err := New(nil)
	assert.True(t, txerrors.IsConfigurationError(err))

	_, err = New(mocks.NewMockSigningIdentity("admin", "Org1MSP"), WithTimeout(0))
	assert.True(t, txerrors.IsConfigurationError(err))

	rc, err := New(mocks.NewMockSigningIdentity("admin", "Org1MSP"))
	require.NoError(t, err)
	assert.Equal(t, DefaultTimeout, rc.timeout)
	assert.NotNil(t, rc.suite)
}

func TestCreateChannel(t *testing.T) {
	rc := setupClient(t)
	down := mocks.NewMockOrderer("grpc://orderer0:7050")
	down.BroadcastError = errors.New("connection refused")
	orderer := mocks.NewMockOrderer("grpc://orderer1:7050")

	req := CreateChannelRequest{
		ChannelID: channelID,
		Config:    configTx(t, "config update"),
		Signers: []msp.SigningIdentity{
			mocks.NewMockSigningIdentity("admin", "Org1MSP"),
			mocks.NewMockSigningIdentity("admin", "Org2MSP"),
		},
	}
	resp, err := rc.CreateChannel(reqContext.Background(), req, []fab.Broadcaster{down, orderer})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.TransactionID)

	require.Len(t, down.Envelopes(), 1)
	require.Len(t, orderer.Envelopes(), 1)
	env := orderer.Envelopes()[0]

	chdr, err := mocks.ChannelHeader(env)
	require.NoError(t, err)
	assert.Equal(t, int32(common.HeaderType_CONFIG_UPDATE), chdr.Type)
	assert.Equal(t, channelID, chdr.ChannelId)
	assert.Equal(t, string(resp.TransactionID), chdr.TxId)

	payload := &common.Payload{}
	require.NoError(t, proto.Unmarshal(env.Payload, payload))
	cue := &common.ConfigUpdateEnvelope{}
	require.NoError(t, proto.Unmarshal(payload.Data, cue))
	assert.Equal(t, []byte("config update"), cue.ConfigUpdate)
	require.Len(t, cue.Signatures, 2)

	sigHeader := &common.SignatureHeader{}
	require.NoError(t, proto.Unmarshal(cue.Signatures[1].SignatureHeader, sigHeader))
	assert.Len(t, sigHeader.Nonce, 24)
	assert.Equal(t, []byte("signature"), cue.Signatures[1].Signature)
}

func TestCreateChannelFromFile(t *testing.T) {
	dir, err := ioutil.TempDir("", "resmgmt")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "mychannel.tx")
	require.NoError(t, ioutil.WriteFile(path, configTx(t, "from file"), 0600))

	rc := setupClient(t)
	orderer := mocks.NewMockOrderer("grpc://orderer0:7050")
	_, err = rc.CreateChannel(reqContext.Background(), CreateChannelRequest{ChannelID: channelID, ConfigPath: path}, []fab.Broadcaster{orderer})
	require.NoError(t, err)

	payload := &common.Payload{}
	require.NoError(t, proto.Unmarshal(orderer.Envelopes()[0].Payload, payload))
	cue := &common.ConfigUpdateEnvelope{}
	require.NoError(t, proto.Unmarshal(payload.Data, cue))
	assert.Equal(t, []byte("from file"), cue.ConfigUpdate)
	// the client's identity signs when no signer is given
	assert.Len(t, cue.Signatures, 1)
}

func TestCreateChannelErrors(t *testing.T) {
	rc := setupClient(t)
	orderer := mocks.NewMockOrderer("grpc://orderer0:7050")
	orderers := []fab.Broadcaster{orderer}
	ctx := reqContext.Background()

	_, err := rc.CreateChannel(ctx, CreateChannelRequest{Config: configTx(t, "u")}, orderers)
	assert.True(t, txerrors.IsConfigurationError(err))

	_, err = rc.CreateChannel(ctx, CreateChannelRequest{ChannelID: channelID}, orderers)
	assert.True(t, txerrors.IsConfigurationError(err))

	_, err = rc.CreateChannel(ctx, CreateChannelRequest{ChannelID: channelID, ConfigPath: "/does/not/exist.tx"}, orderers)
	assert.Error(t, err)

	_, err = rc.CreateChannel(ctx, CreateChannelRequest{ChannelID: channelID, Config: []byte("garbage")}, orderers)
	assert.Error(t, err)

	_, err = rc.CreateChannel(ctx, CreateChannelRequest{ChannelID: channelID, Config: configTx(t, "u")}, nil)
	assert.True(t, txerrors.IsConfigurationError(err))

	orderer.BroadcastStatus = common.Status_BAD_REQUEST
	orderer.BroadcastInfo = "channel exists"
	_, err = rc.CreateChannel(ctx, CreateChannelRequest{ChannelID: channelID, Config: configTx(t, "u")}, orderers)
	assert.True(t, txerrors.IsCommitError(err))
}

func TestExtractChannelConfig(t *testing.T) {
	update, err := ExtractChannelConfig(configTx(t, "update"))
	require.NoError(t, err)
	assert.Equal(t, []byte("update"), update)

	_, err = ExtractChannelConfig(configTx(t, ""))
	assert.Error(t, err)
}

func TestGenesisBlock(t *testing.T) {
	rc := setupClient(t)
	ctx := reqContext.Background()

	orderer := mocks.NewMockOrderer("grpc://orderer0:7050")
	orderer.Blocks = []*common.Block{mocks.NewBlock(channelID, 0)}

	block, err := rc.GenesisBlock(ctx, channelID, orderer)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), block.Header.Number)

	_, err = rc.GenesisBlock(ctx, "", orderer)
	assert.True(t, txerrors.IsConfigurationError(err))

	_, err = rc.GenesisBlock(ctx, channelID, nil)
	assert.True(t, txerrors.IsConfigurationError(err))

	empty := mocks.NewMockOrderer("grpc://orderer1:7050")
	_, err = rc.GenesisBlock(ctx, channelID, empty)
	assert.True(t, txerrors.IsStreamExhausted(err))

	failing := mocks.NewMockOrderer("grpc://orderer2:7050")
	failing.DeliverError = &txerrors.BlockRetrievalError{Endpoint: failing.URL(), Code: common.Status_NOT_FOUND}
	_, err = rc.GenesisBlock(ctx, channelID, failing)
	assert.True(t, txerrors.IsBlockRetrievalError(err))
}

func TestJoinChannel(t *testing.T) {
	rc := setupClient(t)
	genesis := mocks.NewBlock(channelID, 0, mocks.NewTransaction("config", pb.TxValidationCode_VALID))
	peer0 := mocks.NewMockPeer("grpc://peer0:7051")
	peer1 := mocks.NewMockPeer("grpc://peer1:7051")

	require.NoError(t, rc.JoinChannel(reqContext.Background(), genesis, peer0, peer1))
	require.Equal(t, 1, peer0.ProcessProposalCalls())
	require.Equal(t, 1, peer1.ProcessProposalCalls())

	ch, args := invocationArgs(t, peer0.Proposals()[0])
	assert.Empty(t, ch)
	require.Len(t, args, 2)
	assert.Equal(t, "JoinChain", string(args[0]))

	block := &common.Block{}
	require.NoError(t, proto.Unmarshal(args[1], block))
	assert.Equal(t, genesis.Header.Number, block.Header.Number)
	assert.Equal(t, genesis.Data.Data, block.Data.Data)
}

func TestJoinChannelFailures(t *testing.T) {
	rc := setupClient(t)
	ctx := reqContext.Background()
	genesis := mocks.NewBlock(channelID, 0)

	err := rc.JoinChannel(ctx, nil, mocks.NewMockPeer("grpc://peer0:7051"))
	assert.True(t, txerrors.IsConfigurationError(err))

	err = rc.JoinChannel(ctx, genesis)
	assert.True(t, txerrors.IsConfigurationError(err))

	rejecting := mocks.NewMockPeer("grpc://peer1:7051")
	rejecting.Status = 500
	rejecting.ResponseMessage = "already joined"
	err = rc.JoinChannel(ctx, genesis, mocks.NewMockPeer("grpc://peer0:7051"), rejecting)
	require.Error(t, err)
	assert.True(t, txerrors.IsProposalError(err))
}

func TestJoinChannelRetry(t *testing.T) {
	rc := setupClient(t, WithRetry(retry.Opts{
		Attempts:       2,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     2 * time.Millisecond,
		BackoffFactor:  2,
	}))

	unreachable := mocks.NewMockPeer("grpc://peer0:7051")
	unreachable.Error = errors.New("connection refused")

	err := rc.JoinChannel(reqContext.Background(), mocks.NewBlock(channelID, 0), unreachable)
	assert.True(t, txerrors.IsConnectionError(err))
	assert.Equal(t, 3, unreachable.ProcessProposalCalls())

	// rejections are not retried
	rejecting := mocks.NewMockPeer("grpc://peer1:7051")
	rejecting.Status = 500
	err = rc.JoinChannel(reqContext.Background(), mocks.NewBlock(channelID, 0), rejecting)
	assert.True(t, txerrors.IsProposalError(err))
	assert.Equal(t, 1, rejecting.ProcessProposalCalls())
}

func TestQueryChaincodes(t *testing.T) {
	rc := setupClient(t)
	ctx := reqContext.Background()

	payload, err := proto.Marshal(&pb.ChaincodeQueryResponse{Chaincodes: []*pb.ChaincodeInfo{{Name: "mycc", Version: "v1", Path: "github.com/example_cc"}}})
	require.NoError(t, err)
	peer := mocks.NewMockPeer("grpc://peer0:7051")
	peer.Payload = payload

	installed, err := rc.QueryInstalledChaincodes(ctx, peer)
	require.NoError(t, err)
	require.Len(t, installed.Chaincodes, 1)
	assert.Equal(t, "mycc", installed.Chaincodes[0].Name)

	ch, args := invocationArgs(t, peer.Proposals()[0])
	assert.Empty(t, ch)
	assert.Equal(t, "getinstalledchaincodes", string(args[0]))

	instantiated, err := rc.QueryInstantiatedChaincodes(ctx, channelID, peer)
	require.NoError(t, err)
	assert.Equal(t, "v1", instantiated.Chaincodes[0].Version)

	ch, args = invocationArgs(t, peer.Proposals()[1])
	assert.Equal(t, channelID, ch)
	assert.Equal(t, "getchaincodes", string(args[0]))

	_, err = rc.QueryInstantiatedChaincodes(ctx, "", peer)
	assert.True(t, txerrors.IsConfigurationError(err))

	_, err = rc.QueryInstalledChaincodes(ctx, nil)
	assert.True(t, txerrors.IsConfigurationError(err))

	failing := mocks.NewMockPeer("grpc://peer1:7051")
	failing.Status = 500
	_, err = rc.QueryInstalledChaincodes(ctx, failing)
	assert.True(t, txerrors.IsProposalError(err))
}

func TestQueryChannels(t *testing.T) {
	rc := setupClient(t)

	payload, err := proto.Marshal(&pb.ChannelQueryResponse{Channels: []*pb.ChannelInfo{{ChannelId: channelID}}})
	require.NoError(t, err)
	peer := mocks.NewMockPeer("grpc://peer0:7051")
	peer.Payload = payload

	channels, err := rc.QueryChannels(reqContext.Background(), peer)
	require.NoError(t, err)
	require.Len(t, channels.Channels, 1)
	assert.Equal(t, channelID, channels.Channels[0].ChannelId)

	_, args := invocationArgs(t, peer.Proposals()[0])
	assert.Equal(t, "GetChannels", string(args[0]))
}

func instantiateRequest(t *testing.T) InstantiateCCRequest {
	ccPolicy, err := policy.FromString("OR('Org1MSP.member','Org2MSP.member')")
	require.NoError(t, err)
	return InstantiateCCRequest{
		Name:    "mycc",
		Path:    "github.com/example_cc",
		Version: "v0",
		Lang:    pb.ChaincodeSpec_GOLANG,
		Args:    [][]byte{[]byte("init"), []byte("a"), []byte("100")},
		Policy:  ccPolicy,
	}
}

// commitOn makes the event peers report every transaction accepted by the
// orderer as committed in block 3 with the given code.
func commitOn(o *mocks.MockOrderer, code pb.TxValidationCode, peers ...*mocks.MockPeer) {
	o.OnBroadcast = func(txID string) {
		for _, p := range peers {
			p.FilteredBlocks = append(p.FilteredBlocks, mocks.NewFilteredBlock(channelID, 3, mocks.NewFilteredTx(txID, code)))
		}
	}
}

func TestInstantiateCC(t *testing.T) {
	rc := setupClient(t)
	peer := mocks.NewMockPeer("grpc://peer0:7051")
	orderer := mocks.NewMockOrderer("grpc://orderer0:7050")
	commitOn(orderer, pb.TxValidationCode_VALID, peer)

	resp, err := rc.InstantiateCC(reqContext.Background(), channelID, instantiateRequest(t), WithTargets(peer), WithOrderers(orderer))
	require.NoError(t, err)
	assert.NotEmpty(t, resp.TransactionID)
	assert.Equal(t, uint64(3), resp.BlockNumber)

	ch, args := invocationArgs(t, peer.Proposals()[0])
	assert.Equal(t, channelID, ch)
	require.Len(t, args, 6)
	assert.Equal(t, "deploy", string(args[0]))
	assert.Equal(t, channelID, string(args[1]))
	assert.Equal(t, "escc", string(args[4]))
	assert.Equal(t, "vscc", string(args[5]))

	ccds := &pb.ChaincodeDeploymentSpec{}
	require.NoError(t, proto.Unmarshal(args[2], ccds))
	assert.Equal(t, "mycc", ccds.ChaincodeSpec.ChaincodeId.Name)
	assert.Equal(t, "v0", ccds.ChaincodeSpec.ChaincodeId.Version)
	assert.Equal(t, "init", string(ccds.ChaincodeSpec.Input.Args[0]))

	envelope := &common.SignaturePolicyEnvelope{}
	require.NoError(t, proto.Unmarshal(args[3], envelope))
	assert.Len(t, envelope.Identities, 2)

	require.Len(t, orderer.Envelopes(), 1)
	chdr, err := mocks.ChannelHeader(orderer.Envelopes()[0])
	require.NoError(t, err)
	assert.Equal(t, string(resp.TransactionID), chdr.TxId)
}

func TestUpgradeCC(t *testing.T) {
	rc := setupClient(t)
	peer := mocks.NewMockPeer("grpc://peer0:7051")
	eventPeer := mocks.NewMockPeer("grpc://peer1:7051")
	orderer := mocks.NewMockOrderer("grpc://orderer0:7050")
	commitOn(orderer, pb.TxValidationCode_ENDORSEMENT_POLICY_FAILURE, eventPeer)

	req := UpgradeCCRequest(instantiateRequest(t))
	req.Version = "v1"
	resp, err := rc.UpgradeCC(reqContext.Background(), channelID, req, WithTargets(peer), WithOrderers(orderer), WithEventPeers(eventPeer))
	require.Error(t, err)
	assert.True(t, txerrors.IsValidationError(err))
	assert.NotEmpty(t, resp.TransactionID)
	assert.Equal(t, 0, peer.DeliverCalls())

	_, args := invocationArgs(t, peer.Proposals()[0])
	assert.Equal(t, "upgrade", string(args[0]))
}

func TestInstantiateCCErrors(t *testing.T) {
	rc := setupClient(t)
	ctx := reqContext.Background()
	peer := mocks.NewMockPeer("grpc://peer0:7051")
	orderer := mocks.NewMockOrderer("grpc://orderer0:7050")

	_, err := rc.InstantiateCC(ctx, "", instantiateRequest(t), WithTargets(peer), WithOrderers(orderer))
	assert.True(t, txerrors.IsConfigurationError(err))

	req := instantiateRequest(t)
	req.Policy = nil
	_, err = rc.InstantiateCC(ctx, channelID, req, WithTargets(peer), WithOrderers(orderer))
	assert.True(t, txerrors.IsConfigurationError(err))

	_, err = rc.InstantiateCC(ctx, channelID, instantiateRequest(t), WithOrderers(orderer))
	assert.True(t, txerrors.IsConfigurationError(err))

	_, err = rc.InstantiateCC(ctx, channelID, instantiateRequest(t), WithTargets(peer))
	assert.True(t, txerrors.IsConfigurationError(err))

	_, err = rc.InstantiateCC(ctx, channelID, instantiateRequest(t), WithTargets(nil), WithOrderers(orderer))
	assert.True(t, txerrors.IsConfigurationError(err))

	assert.Equal(t, 0, peer.ProcessProposalCalls())

	orderer.BroadcastStatus = common.Status_SERVICE_UNAVAILABLE
	_, err = rc.InstantiateCC(ctx, channelID, instantiateRequest(t), WithTargets(peer), WithOrderers(orderer))
	assert.True(t, txerrors.IsCommitError(err))
	assert.Equal(t, 0, peer.DeliverCalls())
}

func TestInstantiateCCCommitTimeout(t *testing.T) {
	rc := setupClient(t, WithTimeout(50*time.Millisecond))
	peer := mocks.NewMockPeer("grpc://peer0:7051")
	peer.HoldStream = true
	orderer := mocks.NewMockOrderer("grpc://orderer0:7050")

	_, err := rc.InstantiateCC(reqContext.Background(), channelID, instantiateRequest(t), WithTargets(peer), WithOrderers(orderer))
	require.Error(t, err)
	assert.True(t, txerrors.IsTimeout(err))
}
