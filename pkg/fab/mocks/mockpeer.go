/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package mocks

import (
	reqContext "context"
	"sync"
	"time"

	"github.com/hyperledger/fabric-protos-go/common"
	pb "github.com/hyperledger/fabric-protos-go/peer"

	"github.com/securekey/fabric-txflow/pkg/common/errors/status"
	"github.com/securekey/fabric-txflow/pkg/common/errors/txerrors"
	"github.com/securekey/fabric-txflow/pkg/common/providers/fab"
)

// MockPeer is an in-memory fab.Peer
type MockPeer struct {
	mutex           sync.RWMutex
	MockURL         string
	MockMSP         string
	Status          int32
	Payload         []byte
	ResponseMessage string
	// Error, when set, is returned as a connection error by ProcessTransactionProposal
	Error error
	// Delay is applied before a proposal response is returned
	Delay time.Duration

	// FilteredBlocks are delivered in order by DeliverFiltered
	FilteredBlocks []*pb.FilteredBlock
	// Blocks are delivered in order by Deliver
	Blocks []*common.Block
	// DeliverError, when set, is reported once the blocks have been delivered
	DeliverError error
	// HoldStream keeps the stream open after the blocks until ctx is done
	HoldStream bool

	processProposalCalls int
	deliverCalls         int
	proposals            []*pb.SignedProposal
}

// NewMockPeer creates a mock peer that endorses successfully
func NewMockPeer(url string) *MockPeer {
	return &MockPeer{MockURL: url, MockMSP: "Org1MSP", Status: 200}
}

// URL returns the mock peer's URL
func (p *MockPeer) URL() string {
	return p.MockURL
}

// MSPID gets the Peer mspID.
func (p *MockPeer) MSPID() string {
	return p.MockMSP
}

// ProcessProposalCalls returns the number of proposals received
func (p *MockPeer) ProcessProposalCalls() int {
	p.mutex.RLock()
	defer p.mutex.RUnlock()
	return p.processProposalCalls
}

// DeliverCalls returns the number of block streams opened
func (p *MockPeer) DeliverCalls() int {
	p.mutex.RLock()
	defer p.mutex.RUnlock()
	return p.deliverCalls
}

// Proposals returns the proposals received
func (p *MockPeer) Proposals() []*pb.SignedProposal {
	p.mutex.RLock()
	defer p.mutex.RUnlock()
	return p.proposals
}

// ProcessTransactionProposal returns a response built from the mock's Status and Payload
func (p *MockPeer) ProcessTransactionProposal(ctx reqContext.Context, proposal *pb.SignedProposal) (*fab.TransactionProposalResponse, error) {
	p.mutex.Lock()
	p.processProposalCalls++
	p.proposals = append(p.proposals, proposal)
	p.mutex.Unlock()

	if p.Delay > 0 {
		select {
		case <-time.After(p.Delay):
		case <-ctx.Done():
			return nil, txerrors.NewConnectionError(status.EndorserClientStatus, p.MockURL, "", ctx.Err())
		}
	}

	if p.Error != nil {
		return nil, txerrors.NewConnectionError(status.EndorserClientStatus, p.MockURL, "", p.Error)
	}

	return &fab.TransactionProposalResponse{
		Endorser: p.MockURL,
		Status:   p.Status,
		ProposalResponse: &pb.ProposalResponse{
			Response: &pb.Response{
				Message: p.ResponseMessage,
				Status:  p.Status,
				Payload: p.Payload,
			},
			Endorsement: &pb.Endorsement{
				Endorser:  []byte(p.MockMSP),
				Signature: []byte("signature"),
			},
			Payload: []byte("proposal response payload"),
		},
	}, nil
}

// DeliverFiltered streams the mock's filtered blocks
func (p *MockPeer) DeliverFiltered(ctx reqContext.Context, envelope *common.Envelope) (<-chan *pb.FilteredBlock, <-chan error) {
	p.mutex.Lock()
	p.deliverCalls++
	p.mutex.Unlock()

	blocks := make(chan *pb.FilteredBlock)
	errs := make(chan error, 1)
	go func() {
		defer close(blocks)
		defer close(errs)
		for _, b := range p.FilteredBlocks {
			select {
			case blocks <- b:
			case <-ctx.Done():
				return
			}
		}
		p.endStream(ctx, errs)
	}()
	return blocks, errs
}

// Deliver streams the mock's blocks
func (p *MockPeer) Deliver(ctx reqContext.Context, envelope *common.Envelope) (<-chan *common.Block, <-chan error) {
	p.mutex.Lock()
	p.deliverCalls++
	p.mutex.Unlock()

	blocks := make(chan *common.Block)
	errs := make(chan error, 1)
	go func() {
		defer close(blocks)
		defer close(errs)
		for _, b := range p.Blocks {
			select {
			case blocks <- b:
			case <-ctx.Done():
				return
			}
		}
		p.endStream(ctx, errs)
	}()
	return blocks, errs
}

func (p *MockPeer) endStream(ctx reqContext.Context, errs chan<- error) {
	if p.DeliverError != nil {
		errs <- p.DeliverError
		return
	}
	if p.HoldStream {
		<-ctx.Done()
	}
}
