/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package fab

import (
	reqContext "context"

	"github.com/hyperledger/fabric-protos-go/common"
	pb "github.com/hyperledger/fabric-protos-go/peer"
)

// Endpoint is an addressable remote node
type Endpoint interface {
	URL() string
}

// FilteredBlockSource streams filtered blocks from a peer's deliver service.
//
// The block channel is closed when the stream ends. At most one error is sent
// on the error channel before it is closed. Cancelling ctx closes the stream.
type FilteredBlockSource interface {
	Endpoint
	DeliverFiltered(ctx reqContext.Context, envelope *common.Envelope) (<-chan *pb.FilteredBlock, <-chan error)
}

// RawBlockSource streams full blocks. It follows the same channel contract as
// FilteredBlockSource.
type RawBlockSource interface {
	Endpoint
	Deliver(ctx reqContext.Context, envelope *common.Envelope) (<-chan *common.Block, <-chan error)
}

// Peer represents a peer in the target network to which endorsement proposals
// are sent and from which commit events are observed.
type Peer interface {
	ProposalProcessor
	FilteredBlockSource
	RawBlockSource
	// MSPID gets the Peer mspID.
	MSPID() string
}

// CandidateSource lazily yields candidate endorsers. Next returns false once
// the source is exhausted.
type CandidateSource interface {
	Next() (Peer, bool)
}

// EndorsingGroup requires Required endorsements from the peers yielded by Candidates
type EndorsingGroup struct {
	Group      string
	Required   int
	Candidates CandidateSource
}

// EndorserProvider supplies the endorsing groups for one proposal attempt
type EndorserProvider interface {
	EndorsingGroups() []*EndorsingGroup
}
