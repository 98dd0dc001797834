/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package mocks

import (
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/golang/protobuf/proto"
	"github.com/hyperledger/fabric-protos-go/common"
	po "github.com/hyperledger/fabric-protos-go/orderer"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"

	"github.com/securekey/fabric-txflow/pkg/common/logging"
)

var logger = logging.NewLogger("fabtxflow/mocks")

// MockBroadcastServer is an ordering service answering Broadcast and Deliver
type MockBroadcastServer struct {
	Creds          credentials.TransportCredentials
	BroadcastError error
	// BroadcastStatus is returned for each envelope, SUCCESS when unset
	BroadcastStatus common.Status
	BroadcastInfo   string
	// DeliverBlocks are sent in order to each Deliver stream, followed by DeliverStatus
	DeliverBlocks []*common.Block
	DeliverStatus common.Status
	DeliverError  error

	mutex     sync.Mutex
	envelopes []*common.Envelope
	seeks     []*common.Envelope
	srv       *grpc.Server
	wg        sync.WaitGroup
}

// Broadcast answers every envelope received on the stream
func (m *MockBroadcastServer) Broadcast(server po.AtomicBroadcast_BroadcastServer) error {
	for {
		env, err := server.Recv()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		m.mutex.Lock()
		m.envelopes = append(m.envelopes, env)
		m.mutex.Unlock()

		if m.BroadcastError != nil {
			return m.BroadcastError
		}

		status := m.BroadcastStatus
		if status == common.Status_UNKNOWN {
			status = common.Status_SUCCESS
		}
		if err := server.Send(&po.BroadcastResponse{Status: status, Info: m.BroadcastInfo}); err != nil {
			return err
		}
	}
}

// Deliver sends DeliverBlocks followed by a status message
func (m *MockBroadcastServer) Deliver(server po.AtomicBroadcast_DeliverServer) error {
	seek, err := server.Recv()
	if err != nil {
		return err
	}

	m.mutex.Lock()
	m.seeks = append(m.seeks, seek)
	m.mutex.Unlock()

	if m.DeliverError != nil {
		return m.DeliverError
	}

	for _, block := range m.DeliverBlocks {
		if err := server.Send(&po.DeliverResponse{Type: &po.DeliverResponse_Block{Block: block}}); err != nil {
			return err
		}
	}

	status := m.DeliverStatus
	if status == common.Status_UNKNOWN {
		status = common.Status_SUCCESS
	}
	return server.Send(&po.DeliverResponse{Type: &po.DeliverResponse_Status{Status: status}})
}

// Envelopes returns the envelopes received by Broadcast
func (m *MockBroadcastServer) Envelopes() []*common.Envelope {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return m.envelopes
}

// SeekInfo returns the seek info of the n-th Deliver request
func (m *MockBroadcastServer) SeekInfo(n int) (*po.SeekInfo, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if n >= len(m.seeks) {
		return nil, fmt.Errorf("only %d deliver requests received", len(m.seeks))
	}
	return seekInfo(m.seeks[n])
}

// Start the mock broadcast server
func (m *MockBroadcastServer) Start(address string) string {
	if m.srv != nil {
		panic("MockBroadcastServer already started")
	}
	m.srv = newServer(m.Creds)
	po.RegisterAtomicBroadcastServer(m.srv, m)
	return serve(m.srv, &m.wg, address, "MockBroadcastServer")
}

// Stop the mock broadcast server and wait for completion.
func (m *MockBroadcastServer) Stop() {
	if m.srv == nil {
		panic("MockBroadcastServer not started")
	}
	m.srv.Stop()
	m.wg.Wait()
	m.srv = nil
}

func newServer(creds credentials.TransportCredentials) *grpc.Server {
	if creds != nil {
		return grpc.NewServer(grpc.Creds(creds))
	}
	return grpc.NewServer()
}

func serve(srv *grpc.Server, wg *sync.WaitGroup, address, name string) string {
	lis, err := net.Listen("tcp", address)
	if err != nil {
		panic(fmt.Sprintf("Error starting %s: %s", name, err))
	}
	addr := lis.Addr().String()

	logger.Debugf("Starting %s [%s]", name, addr)
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := srv.Serve(lis); err != nil {
			logger.Debugf("%s stopped [%s]", name, err)
		}
	}()
	return addr
}

func seekInfo(env *common.Envelope) (*po.SeekInfo, error) {
	payload := &common.Payload{}
	if err := proto.Unmarshal(env.Payload, payload); err != nil {
		return nil, err
	}
	info := &po.SeekInfo{}
	if err := proto.Unmarshal(payload.Data, info); err != nil {
		return nil, err
	}
	return info, nil
}
