/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package txn

import (
	"context"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/hyperledger/fabric-protos-go/common"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/securekey/fabric-txflow/pkg/common/errors/txerrors"
	"github.com/securekey/fabric-txflow/pkg/common/providers/fab"
	"github.com/securekey/fabric-txflow/pkg/common/providers/test/mockfab"
	"github.com/securekey/fabric-txflow/pkg/fab/mocks"
)

func endorsedTx(t *testing.T) (*fab.EndorsedTransaction, *mocks.MockSigningIdentity) {
	tx, identity := generate(t)
	return endorse(t, tx, mocks.NewMockPeer("peer0")), identity
}

func unreachableOrderer(url string) *mocks.MockOrderer {
	o := mocks.NewMockOrderer(url)
	o.BroadcastError = errors.New("connection refused")
	return o
}

func TestCommitFailsOver(t *testing.T) {
	endorsed, identity := endorsedTx(t)
	o1 := unreachableOrderer("orderer1")
	o2 := mocks.NewMockOrderer("orderer2")

	resp, err := Commit(context.Background(), endorsed, identity, []fab.Broadcaster{o1, o2})
	require.NoError(t, err)
	assert.Equal(t, common.Status_SUCCESS, resp.Status)
	assert.Len(t, o1.Envelopes(), 1)
	assert.Len(t, o2.Envelopes(), 1)
}

func TestCommitRejected(t *testing.T) {
	mockCtrl := gomock.NewController(t)
	defer mockCtrl.Finish()

	endorsed, identity := endorsedTx(t)
	o1 := mocks.NewMockOrderer("orderer1")
	o1.BroadcastStatus = common.Status_BAD_REQUEST
	o1.BroadcastInfo = "bad signature"

	// never reached
	o2 := mockfab.NewMockBroadcaster(mockCtrl)
	o2.EXPECT().URL().Return("orderer2").AnyTimes()

	_, err := Commit(context.Background(), endorsed, identity, []fab.Broadcaster{o1, o2})
	require.True(t, txerrors.IsCommitError(err))

	commitErr := errors.Cause(err).(*txerrors.CommitError)
	assert.Equal(t, endorsed.TxID(), commitErr.TxID)
	assert.Equal(t, "orderer1", commitErr.Orderer)
	assert.Equal(t, common.Status_BAD_REQUEST, commitErr.Code)
	assert.Equal(t, "bad signature", commitErr.Info)
}

func TestCommitAllUnreachable(t *testing.T) {
	endorsed, identity := endorsedTx(t)

	_, err := Commit(context.Background(), endorsed, identity, []fab.Broadcaster{unreachableOrderer("orderer1"), unreachableOrderer("orderer2")})
	require.True(t, txerrors.IsConnectionError(err))

	connErr := errors.Cause(err).(*txerrors.ConnectionError)
	assert.Equal(t, "orderer2", connErr.Endpoint)
	assert.Equal(t, endorsed.TxID(), connErr.TxID)
}

func TestCommitOtherError(t *testing.T) {
	mockCtrl := gomock.NewController(t)
	defer mockCtrl.Finish()

	endorsed, identity := endorsedTx(t)

	o1 := mockfab.NewMockBroadcaster(mockCtrl)
	o1.EXPECT().URL().Return("orderer1").AnyTimes()
	o1.EXPECT().SendBroadcast(gomock.Any(), gomock.Any()).Return(nil, errors.New("malformed response"))
	o2 := mockfab.AcceptingBroadcaster(mockCtrl, "orderer2", common.Status_SUCCESS)

	_, err := Commit(context.Background(), endorsed, identity, []fab.Broadcaster{o1, o2})
	assert.EqualError(t, err, "malformed response")
}

func TestCommitValidation(t *testing.T) {
	endorsed, identity := endorsedTx(t)

	_, err := Commit(context.Background(), endorsed, identity, nil)
	assert.True(t, txerrors.IsConfigurationError(err))

	_, err = Commit(context.Background(), &fab.EndorsedTransaction{}, identity, []fab.Broadcaster{mocks.NewMockOrderer("orderer1")})
	assert.Error(t, err)
}
