/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package fab

import (
	reqContext "context"

	"github.com/hyperledger/fabric-protos-go/common"
	"github.com/hyperledger/fabric-protos-go/orderer"
)

// Broadcaster submits envelopes for ordering
type Broadcaster interface {
	Endpoint
	SendBroadcast(ctx reqContext.Context, envelope *common.Envelope) (*orderer.BroadcastResponse, error)
}

// Orderer represents an ordering service node. Its deliver stream follows the
// channel contract of RawBlockSource.
type Orderer interface {
	Broadcaster
	SendDeliver(ctx reqContext.Context, envelope *common.Envelope) (<-chan *common.Block, <-chan error)
}
