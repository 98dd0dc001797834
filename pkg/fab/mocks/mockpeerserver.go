/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package mocks

import (
	"sync"

	pb "github.com/hyperledger/fabric-protos-go/peer"
	"google.golang.org/grpc"
)

// MockPeerServer serves the endorser and deliver services on one address
type MockPeerServer struct {
	Endorser MockEndorserServer
	Deliver  MockDeliverServer

	srv *grpc.Server
	wg  sync.WaitGroup
}

// Start the mock peer server
func (m *MockPeerServer) Start(address string) string {
	if m.srv != nil {
		panic("MockPeerServer already started")
	}
	m.srv = newServer(m.Endorser.Creds)
	pb.RegisterEndorserServer(m.srv, &m.Endorser)
	pb.RegisterDeliverServer(m.srv, &m.Deliver)
	return serve(m.srv, &m.wg, address, "MockPeerServer")
}

// Stop the mock peer server and wait for completion.
func (m *MockPeerServer) Stop() {
	if m.srv == nil {
		panic("MockPeerServer not started")
	}
	m.srv.Stop()
	m.wg.Wait()
	m.srv = nil
}
