/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package seek builds the SeekInfo messages and signed envelopes that open
// deliver streams on peers and orderers.
package seek

import (
	"math"

	cb "github.com/hyperledger/fabric-protos-go/common"
	ab "github.com/hyperledger/fabric-protos-go/orderer"

	"github.com/securekey/fabric-txflow/pkg/common/providers/core"
	"github.com/securekey/fabric-txflow/pkg/common/providers/msp"
	"github.com/securekey/fabric-txflow/pkg/fab/txn"
)

// Type is the type of Seek request to perform.
type Type string

const (
	// Oldest seeks from the first block
	Oldest Type = "oldest"
	// Newest seeks from the last block
	Newest Type = "newest"
	// FromBlock seeks from a specific block
	FromBlock Type = "from"
)

// Position is where a stream starts or stops
type Position struct {
	Type  Type
	Block uint64
}

// NewestPosition is the default start of a commit stream
var NewestPosition = Position{Type: Newest}

// OldestPosition starts a stream at the genesis block
var OldestPosition = Position{Type: Oldest}

// BlockPosition returns the position of the given block number
func BlockPosition(n uint64) Position {
	return Position{Type: FromBlock, Block: n}
}

// MaxPosition never ends a stream
var MaxPosition = BlockPosition(math.MaxUint64)

func (p Position) toProto() *ab.SeekPosition {
	switch p.Type {
	case Oldest:
		return &ab.SeekPosition{Type: &ab.SeekPosition_Oldest{Oldest: &ab.SeekOldest{}}}
	case FromBlock:
		return &ab.SeekPosition{Type: &ab.SeekPosition_Specified{Specified: &ab.SeekSpecified{Number: p.Block}}}
	default:
		return &ab.SeekPosition{Type: &ab.SeekPosition_Newest{Newest: &ab.SeekNewest{}}}
	}
}

// Info returns a SeekInfo from start to stop. When failIfNotReady is set the
// deliver service answers NOT_FOUND instead of waiting for missing blocks.
func Info(start, stop Position, failIfNotReady bool) *ab.SeekInfo {
	behavior := ab.SeekInfo_BLOCK_UNTIL_READY
	if failIfNotReady {
		behavior = ab.SeekInfo_FAIL_IF_NOT_READY
	}
	return &ab.SeekInfo{
		Start:    start.toProto(),
		Stop:     stop.toProto(),
		Behavior: behavior,
	}
}

// InfoNewest returns a SeekInfo struct that indicates to the deliver server
// that we just want the latest blocks
func InfoNewest() *ab.SeekInfo {
	return Info(NewestPosition, MaxPosition, false)
}

// InfoFrom returns a SeekInfo struct that indicates to the deliver server
// that we want all blocks starting from the given block number
func InfoFrom(fromBlock uint64) *ab.SeekInfo {
	return Info(BlockPosition(fromBlock), MaxPosition, false)
}

// InfoBlock requests exactly one block, failing if it does not exist yet
func InfoBlock(n uint64) *ab.SeekInfo {
	return Info(BlockPosition(n), BlockPosition(n), true)
}

// Envelope signs seekInfo for channelID into a deliver request envelope
func Envelope(identity msp.SigningIdentity, suite core.CryptoSuite, channelID string, seekInfo *ab.SeekInfo) (*cb.Envelope, error) {
	return txn.CreateSignedEnvelope(identity, suite, cb.HeaderType_DELIVER_SEEK_INFO, channelID, seekInfo)
}
