/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package fab

import (
	reqContext "context"

	"github.com/hyperledger/fabric-protos-go/common"
	pb "github.com/hyperledger/fabric-protos-go/peer"
	"github.com/pkg/errors"
)

// TransactionID provides the identifier of a transaction proposal.
type TransactionID string

// EmptyTransactionID represents a non-existing transaction (usually due to error).
const EmptyTransactionID = TransactionID("")

// TransactionContext holds the values that identify one transaction attempt.
// TransactionContext is immutable once created.
type TransactionContext struct {
	// Identity is the serialized creator identity
	Identity []byte
	// Nonce is the random value mixed into the transaction ID
	Nonce []byte
	// ID is hex(hash(Nonce || Identity))
	ID TransactionID
	// Epoch is always zero for the current ledger protocol
	Epoch uint64
}

// ChaincodeInvokeRequest contains the parameters for generating a transaction proposal.
type ChaincodeInvokeRequest struct {
	ChannelID    string
	ChaincodeID  string
	Lang         pb.ChaincodeSpec_Type
	Fcn          string
	Args         [][]byte
	TransientMap map[string][]byte
	IsInit       bool
}

// GeneratedTransaction is a signed proposal ready to be sent to endorsers.
type GeneratedTransaction struct {
	Context        *TransactionContext
	ChannelID      string
	Proposal       *pb.Proposal
	SignedProposal *pb.SignedProposal
	Header         *common.Header
}

// ProposalProcessor simulates a transaction proposal, so that a client can submit the result for ordering.
type ProposalProcessor interface {
	Endpoint
	ProcessTransactionProposal(ctx reqContext.Context, proposal *pb.SignedProposal) (*TransactionProposalResponse, error)
}

// TransactionProposalResponse represents the result of one endorser processing a proposal.
// A response either carries the endorser's ProposalResponse or, when the call
// could not complete, the error that prevented it.
type TransactionProposalResponse struct {
	Endorser string
	// Status is the endorser's response status
	Status int32
	*pb.ProposalResponse
	// Err is set when no response could be obtained from the endorser
	Err error
}

// Succeeded returns true if the endorser returned a success status
func (r *TransactionProposalResponse) Succeeded() bool {
	return r.Err == nil && r.ProposalResponse != nil && r.Status >= int32(common.Status_SUCCESS) && r.Status < int32(common.Status_BAD_REQUEST)
}

// Payload returns the chaincode response payload, if any
func (r *TransactionProposalResponse) Payload() []byte {
	if r.ProposalResponse == nil || r.ProposalResponse.Response == nil {
		return nil
	}
	return r.ProposalResponse.Response.Payload
}

// EndorsedTransaction aggregates the responses collected for a generated transaction.
type EndorsedTransaction struct {
	Transaction *GeneratedTransaction
	Responses   []*TransactionProposalResponse
}

// TxID returns the ID of the endorsed transaction
func (e *EndorsedTransaction) TxID() TransactionID {
	if e.Transaction == nil || e.Transaction.Context == nil {
		return EmptyTransactionID
	}
	return e.Transaction.Context.ID
}

// FullyEndorsed returns true if every response has a success status
func (e *EndorsedTransaction) FullyEndorsed() bool {
	for _, r := range e.Responses {
		if !r.Succeeded() {
			return false
		}
	}
	return true
}

// ErrorResponses returns the responses without a success status, in order
func (e *EndorsedTransaction) ErrorResponses() []*TransactionProposalResponse {
	var failed []*TransactionProposalResponse
	for _, r := range e.Responses {
		if !r.Succeeded() {
			failed = append(failed, r)
		}
	}
	return failed
}

// ResponsePayload returns the payload of the first success response
func (e *EndorsedTransaction) ResponsePayload() ([]byte, error) {
	for _, r := range e.Responses {
		if r.Succeeded() {
			return r.Payload(), nil
		}
	}
	return nil, errors.Errorf("transaction %s has no successful endorsement", e.TxID())
}
