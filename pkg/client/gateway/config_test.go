/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package gateway

import (
	reqContext "context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"
	"math/big"
	"strings"
	"testing"
	"time"

	pb "github.com/hyperledger/fabric-protos-go/peer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/securekey/fabric-txflow/pkg/common/errors/txerrors"
	"github.com/securekey/fabric-txflow/pkg/core/config"
	"github.com/securekey/fabric-txflow/pkg/fab/mocks"
)

const networkTemplate = `
client:
  timeouts:
    dial: 2s
peers:
  peer0.org1.example.com:
    url: %[1]s
    mspid: Org1MSP
  peer0.org2.example.com:
    url: grpc://peer0.org2.example.com:9051
    mspid: Org2MSP
orderers:
  orderer0.example.com:
    url: %[2]s
users:
  user1:
    mspid: Org1MSP
    cert:
      pem: |
%[3]s
    key:
      pem: |
%[4]s
gateways:
  fixed:
    channel: mychannel
    chaincode: mycc
    user: user1
    endorsers: [peer0.org1.example.com]
    orderers: [orderer0.example.com]
    policy: "OR('Org1MSP.member','Org2MSP.member')"
    retry:
      attempts: 2
      initialBackoff: 10ms
      maxBackoff: 50ms
      backoffFactor: 2.0
  grouped:
    channel: mychannel
    chaincode: mycc
    user: user1
    groups:
      Org1: [peer0.org1.example.com]
      Org2: [peer0.org2.example.com]
    layouts:
      - Org1: 1
        Org2: 1
    orderers: [orderer0.example.com]
    eventPeers: [peer0.org2.example.com]
    timeout: 45s
  anonymous:
    channel: mychannel
    endorsers: [peer0.org1.example.com]
  badpolicy:
    channel: mychannel
    user: user1
    endorsers: [peer0.org1.example.com]
    policy: "AND("
`

func newCredentials(t *testing.T) (certPEM, keyPEM []byte) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	template := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "User1@org1.example.com"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	require.NoError(t, err)
	keyDER, err := x509.MarshalECPrivateKey(key)
	require.NoError(t, err)

	return pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}),
		pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER})
}

func indent(b []byte, prefix string) string {
	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	for i, l := range lines {
		lines[i] = prefix + l
	}
	return strings.Join(lines, "\n")
}

func networkConfig(t *testing.T, peerURL, ordererURL string) []byte {
	certPEM, keyPEM := newCredentials(t)
	return []byte(fmt.Sprintf(networkTemplate, peerURL, ordererURL, indent(certPEM, "        "), indent(keyPEM, "        ")))
}

func loadNetworkConfig(t *testing.T, raw []byte) *config.NetworkConfig {
	backends, err := config.FromRaw(raw, "yaml")()
	require.NoError(t, err)
	netConfig, err := config.NetworkConfigFromBackend(backends...)
	require.NoError(t, err)
	return netConfig
}

func TestNewFromConfig(t *testing.T) {
	netConfig := loadNetworkConfig(t, networkConfig(t, "grpc://peer0.org1.example.com:7051", "grpc://orderer0.example.com:7050"))

	gw, err := NewFromConfig(netConfig, "fixed")
	require.NoError(t, err)
	assert.Equal(t, "mychannel", gw.ChannelID())
	assert.Equal(t, "mycc", gw.Chaincode())
	assert.Equal(t, "Org1MSP", gw.Requestor().MSPID())
	require.Len(t, gw.Endorsers(), 1)
	assert.Equal(t, "grpc://peer0.org1.example.com:7051", gw.Endorsers()[0].URL())
	require.Len(t, gw.Orderers(), 1)
	assert.Equal(t, "grpc://orderer0.example.com:7050", gw.Orderers()[0].URL())
	require.NotNil(t, gw.EventHub())
	require.Len(t, gw.EventHub().Peers(), 1)
	assert.Equal(t, gw.Endorsers()[0], gw.EventHub().Peers()[0])
	require.NotNil(t, gw.Policy())
	assert.Len(t, gw.Policy().AllRoles(), 2)
	require.NotNil(t, gw.retryOpts)
	assert.Equal(t, 2, gw.retryOpts.Attempts)
	assert.Equal(t, 30*time.Second, gw.Timeout())

	gw, err = NewFromConfig(netConfig, "grouped", WithTimeout(time.Minute))
	require.NoError(t, err)
	assert.Empty(t, gw.Endorsers())
	require.NotNil(t, gw.provider)
	groups := gw.provider.EndorsingGroups()
	require.Len(t, groups, 2)
	assert.Equal(t, "org1", groups[0].Group)
	assert.Equal(t, "org2", groups[1].Group)
	require.Len(t, gw.EventHub().Peers(), 1)
	assert.Equal(t, "grpc://peer0.org2.example.com:9051", gw.EventHub().Peers()[0].URL())
	assert.Equal(t, time.Minute, gw.Timeout())
}

func TestNewFromConfigErrors(t *testing.T) {
	netConfig := loadNetworkConfig(t, networkConfig(t, "grpc://peer0.org1.example.com:7051", "grpc://orderer0.example.com:7050"))

	_, err := NewFromConfig(netConfig, "missing")
	assert.True(t, txerrors.IsConfigurationError(err))

	_, err = NewFromConfig(netConfig, "anonymous")
	assert.True(t, txerrors.IsConfigurationError(err))

	_, err = NewFromConfig(netConfig, "badpolicy")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid endorsement policy")
}

func TestConfiguredGatewayOverGRPC(t *testing.T) {
	peerServer := &mocks.MockPeerServer{}
	peerServer.Endorser.Payload = []byte("moved")
	peerURL := "grpc://" + peerServer.Start("127.0.0.1:0")
	defer peerServer.Stop()

	ordererServer := &mocks.MockBroadcastServer{}
	ordererURL := "grpc://" + ordererServer.Start("127.0.0.1:0")
	defer ordererServer.Stop()

	gw, err := NewFromConfigProvider(config.FromRaw(networkConfig(t, peerURL, ordererURL), "yaml"), "fixed")
	require.NoError(t, err)

	tb := gw.Transact(invokeRequest())
	peerServer.Deliver.FilteredBlocks = []*pb.FilteredBlock{
		mocks.NewFilteredBlock("mychannel", 12, mocks.NewFilteredTx(string(tb.TransactionID()), pb.TxValidationCode_VALID)),
	}

	ctx, cancel := reqContext.WithTimeout(reqContext.Background(), 10*time.Second)
	defer cancel()

	endorsed, err := tb.Propose(true).Submit().WaitForCommit(5 * time.Second).Run(ctx)
	require.NoError(t, err)
	assert.True(t, endorsed.FullyEndorsed())
	payload, err := endorsed.ResponsePayload()
	require.NoError(t, err)
	assert.Equal(t, "moved", string(payload))
	assert.Equal(t, uint64(12), tb.Committed().BlockNumber)

	assert.Len(t, peerServer.Endorser.Proposals(), 1)
	require.Len(t, ordererServer.Envelopes(), 1)
	chdr, err := mocks.ChannelHeader(ordererServer.Envelopes()[0])
	require.NoError(t, err)
	assert.Equal(t, string(tb.TransactionID()), chdr.TxId)
}
