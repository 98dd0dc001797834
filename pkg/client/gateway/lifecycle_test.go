/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package gateway

import (
	reqContext "context"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/golang/protobuf/proto"
	"github.com/hyperledger/fabric-protos-go/common"
	pb "github.com/hyperledger/fabric-protos-go/peer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/securekey/fabric-txflow/pkg/client/common/selection/peergroups"
	"github.com/securekey/fabric-txflow/pkg/client/resmgmt"
	"github.com/securekey/fabric-txflow/pkg/common/errors/txerrors"
	"github.com/securekey/fabric-txflow/pkg/common/providers/fab"
	"github.com/securekey/fabric-txflow/pkg/common/providers/test/mockfab"
	"github.com/securekey/fabric-txflow/pkg/fab/mocks"
	"github.com/securekey/fabric-txflow/pkg/fab/policy"
)

func deployRequest() resmgmt.InstantiateCCRequest {
	return resmgmt.InstantiateCCRequest{
		Path:    "github.com/example_cc",
		Version: "v0",
		Lang:    pb.ChaincodeSpec_GOLANG,
		Args:    [][]byte{[]byte("init"), []byte("a"), []byte("100")},
	}
}

// deployArgs decodes the lscc arguments of a signed deployment proposal
func deployArgs(t *testing.T, sp *pb.SignedProposal) [][]byte {
	proposal := &pb.Proposal{}
	require.NoError(t, proto.Unmarshal(sp.ProposalBytes, proposal))
	ccPayload := &pb.ChaincodeProposalPayload{}
	require.NoError(t, proto.Unmarshal(proposal.Payload, ccPayload))
	cis := &pb.ChaincodeInvocationSpec{}
	require.NoError(t, proto.Unmarshal(ccPayload.Input, cis))
	return cis.ChaincodeSpec.Input.Args
}

func TestInstantiateCCUsesGatewayPolicy(t *testing.T) {
	ccPolicy, err := policy.FromString("AND('Org1MSP.member','Org2MSP.member','Org3MSP.member')")
	require.NoError(t, err)

	peer := mocks.NewMockPeer("grpc://peer0:7051")
	orderer := mocks.NewMockOrderer("grpc://orderer0:7050")
	commitOn(orderer, pb.TxValidationCode_VALID, peer)

	gw := newGateway(t, WithEndorsers(peer), WithOrderers(orderer), WithEventPeers(peer), WithPolicy(ccPolicy))

	resp, err := gw.InstantiateCC(reqContext.Background(), deployRequest())
	require.NoError(t, err)
	assert.NotEmpty(t, resp.TransactionID)
	assert.Equal(t, uint64(7), resp.BlockNumber)

	args := deployArgs(t, peer.Proposals()[0])
	require.Len(t, args, 6)
	assert.Equal(t, "deploy", string(args[0]))

	ccds := &pb.ChaincodeDeploymentSpec{}
	require.NoError(t, proto.Unmarshal(args[2], ccds))
	assert.Equal(t, chaincodeID, ccds.ChaincodeSpec.ChaincodeId.Name)

	envelope := &common.SignaturePolicyEnvelope{}
	require.NoError(t, proto.Unmarshal(args[3], envelope))
	assert.Len(t, envelope.Identities, 3)
}

func TestUpgradeCCRequestPolicy(t *testing.T) {
	gwPolicy, err := policy.FromString("AND('Org1MSP.member','Org2MSP.member')")
	require.NoError(t, err)
	reqPolicy, err := policy.FromString("OR('Org1MSP.member')")
	require.NoError(t, err)

	peer := mocks.NewMockPeer("grpc://peer0:7051")
	orderer := mocks.NewMockOrderer("grpc://orderer0:7050")
	commitOn(orderer, pb.TxValidationCode_VALID, peer)

	gw := newGateway(t, WithEndorsers(peer), WithOrderers(orderer), WithPolicy(gwPolicy))

	req := resmgmt.UpgradeCCRequest(deployRequest())
	req.Name = "othercc"
	req.Version = "v1"
	req.Policy = reqPolicy
	_, err = gw.UpgradeCC(reqContext.Background(), req)
	require.NoError(t, err)

	args := deployArgs(t, peer.Proposals()[0])
	require.Len(t, args, 6)
	assert.Equal(t, "upgrade", string(args[0]))

	ccds := &pb.ChaincodeDeploymentSpec{}
	require.NoError(t, proto.Unmarshal(args[2], ccds))
	assert.Equal(t, "othercc", ccds.ChaincodeSpec.ChaincodeId.Name)

	envelope := &common.SignaturePolicyEnvelope{}
	require.NoError(t, proto.Unmarshal(args[3], envelope))
	assert.Len(t, envelope.Identities, 1)
}

func TestInstantiateCCErrors(t *testing.T) {
	mockCtrl := gomock.NewController(t)
	defer mockCtrl.Finish()

	ccPolicy, err := policy.FromString("OR('Org1MSP.member')")
	require.NoError(t, err)
	peer := mocks.NewMockPeer("grpc://peer0:7051")
	orderer := mocks.NewMockOrderer("grpc://orderer0:7050")

	gw := newGateway(t, WithEndorsers(peer), WithOrderers(orderer))
	_, err = gw.InstantiateCC(reqContext.Background(), deployRequest())
	assert.True(t, txerrors.IsConfigurationError(err), "no policy")

	gw = newGateway(t, WithEndorsers(mockfab.EndorsingProcessor(mockCtrl, "grpc://peer1:7051", 200)), WithOrderers(orderer), WithPolicy(ccPolicy))
	_, err = gw.InstantiateCC(reqContext.Background(), deployRequest())
	assert.True(t, txerrors.IsConfigurationError(err), "endorser is not a peer")

	provider, err := peergroups.New([]peergroups.PeerGroup{{Name: "a", Peers: []fab.Peer{peer}}}, []peergroups.Layout{{"a": 1}})
	require.NoError(t, err)
	gw = newGateway(t, WithEndorserProvider(provider), WithOrderers(orderer), WithPolicy(ccPolicy))
	_, err = gw.UpgradeCC(reqContext.Background(), resmgmt.UpgradeCCRequest(deployRequest()))
	assert.True(t, txerrors.IsConfigurationError(err), "no fixed endorsers")

	assert.Zero(t, peer.ProcessProposalCalls())
	assert.Empty(t, orderer.Envelopes())
}
