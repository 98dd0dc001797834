/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package fab

import (
	"github.com/hyperledger/fabric-protos-go/common"
	pb "github.com/hyperledger/fabric-protos-go/peer"
)

// FilteredTransaction is the commit notification for one transaction
type FilteredTransaction struct {
	TxID           TransactionID
	BlockNumber    uint64
	Type           common.HeaderType
	ValidationCode pb.TxValidationCode
	Actions        []*pb.FilteredChaincodeAction
}

// Valid returns true if the transaction passed validation
func (t *FilteredTransaction) Valid() bool {
	return t.ValidationCode == pb.TxValidationCode_VALID
}

// BlockTransaction is a transaction decoded from a full block
type BlockTransaction struct {
	TxID           TransactionID
	ChannelID      string
	Type           common.HeaderType
	ValidationCode pb.TxValidationCode
	Creator        []byte
	Envelope       *common.Envelope
}

// DecodedBlock is a full block with its transactions decoded
type DecodedBlock struct {
	Number       uint64
	PreviousHash []byte
	DataHash     []byte
	Transactions []*BlockTransaction
}

// FilteredBlockEvent is a decoded filtered block and the peer that delivered it
type FilteredBlockEvent struct {
	Number       uint64
	ChannelID    string
	Transactions []*FilteredTransaction
	SourceURL    string
}

// BlockEvent is a decoded block and the peer that delivered it
type BlockEvent struct {
	Block     *DecodedBlock
	SourceURL string
}
