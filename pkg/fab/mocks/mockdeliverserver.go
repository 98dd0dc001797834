/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package mocks

import (
	"fmt"
	"sync"

	"github.com/hyperledger/fabric-protos-go/common"
	po "github.com/hyperledger/fabric-protos-go/orderer"
	pb "github.com/hyperledger/fabric-protos-go/peer"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
)

// MockDeliverServer is a peer deliver service
type MockDeliverServer struct {
	Creds credentials.TransportCredentials
	// Blocks are sent to Deliver streams
	Blocks []*common.Block
	// FilteredBlocks are sent to DeliverFiltered streams
	FilteredBlocks []*pb.FilteredBlock
	// Status is sent after the blocks; when unset the stream stays open until the client leaves
	Status common.Status

	mutex sync.Mutex
	seeks []*common.Envelope
	srv   *grpc.Server
	wg    sync.WaitGroup
}

// Deliver streams Blocks
func (m *MockDeliverServer) Deliver(server pb.Deliver_DeliverServer) error {
	if err := m.recvSeek(server); err != nil {
		return err
	}
	for _, block := range m.Blocks {
		if err := server.Send(&pb.DeliverResponse{Type: &pb.DeliverResponse_Block{Block: block}}); err != nil {
			return err
		}
	}
	return m.finish(server)
}

// DeliverFiltered streams FilteredBlocks
func (m *MockDeliverServer) DeliverFiltered(server pb.Deliver_DeliverFilteredServer) error {
	if err := m.recvSeek(server); err != nil {
		return err
	}
	for _, block := range m.FilteredBlocks {
		if err := server.Send(&pb.DeliverResponse{Type: &pb.DeliverResponse_FilteredBlock{FilteredBlock: block}}); err != nil {
			return err
		}
	}
	return m.finish(server)
}

// DeliverWithPrivateData is not supported by the mock
func (m *MockDeliverServer) DeliverWithPrivateData(server pb.Deliver_DeliverWithPrivateDataServer) error {
	if err := m.recvSeek(server); err != nil {
		return err
	}
	return server.Send(&pb.DeliverResponse{Type: &pb.DeliverResponse_Status{Status: common.Status_NOT_IMPLEMENTED}})
}

// SeekInfo returns the seek info of the n-th request
func (m *MockDeliverServer) SeekInfo(n int) (*po.SeekInfo, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if n >= len(m.seeks) {
		return nil, fmt.Errorf("only %d deliver requests received", len(m.seeks))
	}
	return seekInfo(m.seeks[n])
}

type envelopeReceiver interface {
	Recv() (*common.Envelope, error)
}

type deliverSender interface {
	Send(*pb.DeliverResponse) error
	grpc.ServerStream
}

func (m *MockDeliverServer) recvSeek(server envelopeReceiver) error {
	seek, err := server.Recv()
	if err != nil {
		return err
	}
	m.mutex.Lock()
	m.seeks = append(m.seeks, seek)
	m.mutex.Unlock()
	return nil
}

func (m *MockDeliverServer) finish(server deliverSender) error {
	if m.Status == common.Status_UNKNOWN {
		<-server.Context().Done()
		return nil
	}
	return server.Send(&pb.DeliverResponse{Type: &pb.DeliverResponse_Status{Status: m.Status}})
}

// Start the mock deliver server
func (m *MockDeliverServer) Start(address string) string {
	if m.srv != nil {
		panic("MockDeliverServer already started")
	}
	m.srv = newServer(m.Creds)
	pb.RegisterDeliverServer(m.srv, m)
	return serve(m.srv, &m.wg, address, "MockDeliverServer")
}

// Stop the mock deliver server and wait for completion.
func (m *MockDeliverServer) Stop() {
	if m.srv == nil {
		panic("MockDeliverServer not started")
	}
	m.srv.Stop()
	m.wg.Wait()
	m.srv = nil
}
