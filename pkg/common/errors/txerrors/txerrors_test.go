/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package txerrors

import (
	"testing"
	"time"

	"github.com/hyperledger/fabric-protos-go/common"
	pb "github.com/hyperledger/fabric-protos-go/peer"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/securekey/fabric-txflow/pkg/common/errors/status"
	"github.com/securekey/fabric-txflow/pkg/common/providers/fab"
)

func TestConfigurationError(t *testing.T) {
	err := NewConfigurationError("layout references undeclared groups", "org3", "org4")
	assert.Equal(t, "configuration error: layout references undeclared groups [org3, org4]", err.Error())
	assert.True(t, IsConfigurationError(errors.Wrap(err, "creating provider")))
	assert.False(t, IsConnectionError(err))

	s, ok := status.FromError(err)
	require.True(t, ok)
	assert.EqualValues(t, status.InvalidConfiguration, s.Code)

	assert.Equal(t, "configuration error: no peers", NewConfigurationError("no peers").Error())
}

func TestConnectionError(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewConnectionError(status.EndorserClientStatus, "peer0:7051", "tx1", cause)

	wrapped := errors.WithMessage(err, "proposal failed")
	assert.True(t, IsConnectionError(wrapped))
	assert.True(t, IsFailoverError(wrapped))
	assert.Equal(t, cause, err.Unwrap())
	assert.Contains(t, err.Error(), "peer0:7051")
	assert.Contains(t, err.Error(), "tx1")

	s, ok := status.FromError(wrapped)
	require.True(t, ok)
	assert.Equal(t, status.EndorserClientStatus, s.Group)
	assert.EqualValues(t, status.ConnectionFailed, s.Code)
}

func TestProposalError(t *testing.T) {
	endorsed := &fab.EndorsedTransaction{
		Transaction: &fab.GeneratedTransaction{Context: &fab.TransactionContext{ID: "tx9"}},
		Responses: []*fab.TransactionProposalResponse{
			{Endorser: "peer0", Status: 200, ProposalResponse: &pb.ProposalResponse{Response: &pb.Response{Status: 200}}},
			{Endorser: "peer1", Status: 500, ProposalResponse: &pb.ProposalResponse{Response: &pb.Response{Status: 500, Message: "chaincode error"}}},
		},
	}
	err := &ProposalError{Transaction: endorsed}
	assert.True(t, IsProposalError(err))
	assert.Contains(t, err.Error(), "tx9")
	assert.Contains(t, err.Error(), "1 of 2")
	assert.Contains(t, err.Error(), "peer1: status 500 chaincode error")

	s, ok := status.FromError(err)
	require.True(t, ok)
	assert.Equal(t, status.EndorserServerStatus, s.Group)
	assert.EqualValues(t, 500, s.Code)
}

func TestCommitAndValidationErrors(t *testing.T) {
	commitErr := &CommitError{TxID: "tx1", Orderer: "orderer0:7050", Code: common.Status_BAD_REQUEST, Info: "bad envelope"}
	assert.True(t, IsCommitError(commitErr))
	assert.Contains(t, commitErr.Error(), "BAD_REQUEST")
	assert.False(t, IsFailoverError(commitErr))

	validationErr := &ValidationError{TxID: "tx1", Peer: "peer0:7051", Code: pb.TxValidationCode_MVCC_READ_CONFLICT, BlockNum: 7}
	assert.True(t, IsValidationError(validationErr))
	assert.Contains(t, validationErr.Error(), "MVCC_READ_CONFLICT")
	s, ok := status.FromError(validationErr)
	require.True(t, ok)
	assert.Equal(t, status.ValidationStatus, s.Group)
}

func TestStreamErrors(t *testing.T) {
	retrievalErr := &BlockRetrievalError{Endpoint: "peer0:7051", Code: common.Status_FORBIDDEN}
	assert.True(t, IsBlockRetrievalError(retrievalErr))
	assert.True(t, IsFailoverError(retrievalErr))

	exhausted := &StreamExhaustedError{Endpoint: "peer0:7051", TxID: "tx1"}
	assert.True(t, IsStreamExhausted(exhausted))
	assert.True(t, IsFailoverError(exhausted))

	timeout := &TimeoutError{TxID: "tx1", Timeout: time.Second, Last: exhausted}
	assert.True(t, IsTimeout(timeout))
	assert.Contains(t, timeout.Error(), "last error")
}

func TestFlowErrors(t *testing.T) {
	assert.True(t, IsSequencingError(&SequencingError{Message: "must propose before submit"}))
	assert.True(t, IsFlowError(errors.WithStack(&FlowError{Message: "transaction never proposed"})))
	assert.EqualError(t, &FlowError{Message: "transaction never proposed"}, "transaction never proposed")
}
