/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package mocks

import (
	"context"
	"sync"

	pb "github.com/hyperledger/fabric-protos-go/peer"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
)

// MockEndorserServer answers endorsement proposals
type MockEndorserServer struct {
	Creds credentials.TransportCredentials
	// ProposalError, when set, is returned as a gRPC error
	ProposalError error
	// Status of the endorsement response, 200 when unset
	Status  int32
	Message string
	Payload []byte

	mutex     sync.Mutex
	proposals []*pb.SignedProposal
	srv       *grpc.Server
	wg        sync.WaitGroup
}

// ProcessProposal returns an endorsement with the configured status
func (m *MockEndorserServer) ProcessProposal(ctx context.Context, proposal *pb.SignedProposal) (*pb.ProposalResponse, error) {
	m.mutex.Lock()
	m.proposals = append(m.proposals, proposal)
	m.mutex.Unlock()

	if m.ProposalError != nil {
		return nil, m.ProposalError
	}

	status := m.Status
	if status == 0 {
		status = 200
	}
	return &pb.ProposalResponse{
		Response:    &pb.Response{Status: status, Message: m.Message, Payload: m.Payload},
		Endorsement: &pb.Endorsement{Endorser: []byte("endorser"), Signature: []byte("signature")},
		Payload:     []byte("proposal response payload"),
	}, nil
}

// Proposals returns the proposals received
func (m *MockEndorserServer) Proposals() []*pb.SignedProposal {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return m.proposals
}

// Start the mock endorser server
func (m *MockEndorserServer) Start(address string) string {
	if m.srv != nil {
		panic("MockEndorserServer already started")
	}
	m.srv = newServer(m.Creds)
	pb.RegisterEndorserServer(m.srv, m)
	return serve(m.srv, &m.wg, address, "MockEndorserServer")
}

// Stop the mock endorser server and wait for completion.
func (m *MockEndorserServer) Stop() {
	if m.srv == nil {
		panic("MockEndorserServer not started")
	}
	m.srv.Stop()
	m.wg.Wait()
	m.srv = nil
}
