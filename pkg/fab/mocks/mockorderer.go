/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package mocks

import (
	reqContext "context"
	"sync"

	"github.com/hyperledger/fabric-protos-go/common"
	po "github.com/hyperledger/fabric-protos-go/orderer"

	"github.com/securekey/fabric-txflow/pkg/common/errors/status"
	"github.com/securekey/fabric-txflow/pkg/common/errors/txerrors"
)

// MockOrderer is an in-memory fab.Orderer
type MockOrderer struct {
	mutex   sync.RWMutex
	MockURL string
	// BroadcastStatus is the status returned by SendBroadcast, SUCCESS by default
	BroadcastStatus common.Status
	BroadcastInfo   string
	// BroadcastError, when set, is returned as a connection error
	BroadcastError error
	// Blocks are streamed by SendDeliver
	Blocks       []*common.Block
	DeliverError error
	// OnBroadcast is called with the transaction ID of every envelope accepted for delivery
	OnBroadcast func(txID string)

	envelopes []*common.Envelope
}

// NewMockOrderer creates a mock orderer that accepts every envelope
func NewMockOrderer(url string) *MockOrderer {
	return &MockOrderer{MockURL: url, BroadcastStatus: common.Status_SUCCESS}
}

// URL returns the mock orderer's URL
func (o *MockOrderer) URL() string {
	return o.MockURL
}

// Envelopes returns the envelopes received by SendBroadcast
func (o *MockOrderer) Envelopes() []*common.Envelope {
	o.mutex.RLock()
	defer o.mutex.RUnlock()
	return o.envelopes
}

// SendBroadcast records the envelope and returns the configured status
func (o *MockOrderer) SendBroadcast(ctx reqContext.Context, envelope *common.Envelope) (*po.BroadcastResponse, error) {
	o.mutex.Lock()
	o.envelopes = append(o.envelopes, envelope)
	o.mutex.Unlock()

	if o.BroadcastError != nil {
		return nil, txerrors.NewConnectionError(status.OrdererClientStatus, o.MockURL, "", o.BroadcastError)
	}
	if o.OnBroadcast != nil {
		if chdr, err := ChannelHeader(envelope); err == nil {
			o.OnBroadcast(chdr.TxId)
		}
	}
	return &po.BroadcastResponse{Status: o.BroadcastStatus, Info: o.BroadcastInfo}, nil
}

// SendDeliver streams the mock's blocks
func (o *MockOrderer) SendDeliver(ctx reqContext.Context, envelope *common.Envelope) (<-chan *common.Block, <-chan error) {
	blocks := make(chan *common.Block)
	errs := make(chan error, 1)
	go func() {
		defer close(blocks)
		defer close(errs)
		for _, b := range o.Blocks {
			select {
			case blocks <- b:
			case <-ctx.Done():
				return
			}
		}
		if o.DeliverError != nil {
			errs <- o.DeliverError
		}
	}()
	return blocks, errs
}
