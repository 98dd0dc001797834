/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package mocks

import (
	"github.com/golang/protobuf/proto"
	"github.com/hyperledger/fabric-protos-go/common"
	pb "github.com/hyperledger/fabric-protos-go/peer"
	"github.com/pkg/errors"
)

// NewFilteredTx returns a filtered transaction with the given ID and validation code
func NewFilteredTx(txID string, code pb.TxValidationCode) *pb.FilteredTransaction {
	return &pb.FilteredTransaction{
		Txid:             txID,
		Type:             common.HeaderType_ENDORSER_TRANSACTION,
		TxValidationCode: code,
	}
}

// NewFilteredBlock returns a filtered block holding the given transactions
func NewFilteredBlock(channelID string, number uint64, txs ...*pb.FilteredTransaction) *pb.FilteredBlock {
	return &pb.FilteredBlock{
		ChannelId:            channelID,
		Number:               number,
		FilteredTransactions: txs,
	}
}

// TxInfo describes one transaction of a mock block
type TxInfo struct {
	TxID           string
	ValidationCode pb.TxValidationCode
	HeaderType     common.HeaderType
}

// NewTransaction returns the description of an endorser transaction
func NewTransaction(txID string, code pb.TxValidationCode) TxInfo {
	return TxInfo{TxID: txID, ValidationCode: code, HeaderType: common.HeaderType_ENDORSER_TRANSACTION}
}

// NewBlock returns a block whose data holds one envelope per transaction and
// whose metadata carries the transactions filter.
func NewBlock(channelID string, number uint64, txs ...TxInfo) *common.Block {
	data := make([][]byte, len(txs))
	filter := make([]byte, len(txs))
	for i, tx := range txs {
		data[i] = marshalOrPanic(newEnvelope(channelID, tx))
		filter[i] = byte(tx.ValidationCode)
	}

	metadata := make([][]byte, len(common.BlockMetadataIndex_name))
	metadata[common.BlockMetadataIndex_TRANSACTIONS_FILTER] = filter

	return &common.Block{
		Header:   &common.BlockHeader{Number: number},
		Data:     &common.BlockData{Data: data},
		Metadata: &common.BlockMetadata{Metadata: metadata},
	}
}

func newEnvelope(channelID string, tx TxInfo) *common.Envelope {
	chdr := &common.ChannelHeader{
		Type:      int32(tx.HeaderType),
		ChannelId: channelID,
		TxId:      tx.TxID,
	}
	payload := &common.Payload{
		Header: &common.Header{
			ChannelHeader:   marshalOrPanic(chdr),
			SignatureHeader: marshalOrPanic(&common.SignatureHeader{Creator: []byte("creator")}),
		},
	}
	return &common.Envelope{Payload: marshalOrPanic(payload)}
}

func marshalOrPanic(msg proto.Message) []byte {
	b, err := proto.Marshal(msg)
	if err != nil {
		panic(err)
	}
	return b
}

// ChannelHeader extracts the channel header of a signed envelope
func ChannelHeader(env *common.Envelope) (*common.ChannelHeader, error) {
	payload := &common.Payload{}
	if err := proto.Unmarshal(env.Payload, payload); err != nil {
		return nil, err
	}
	if payload.Header == nil {
		return nil, errors.New("envelope payload has no header")
	}
	chdr := &common.ChannelHeader{}
	if err := proto.Unmarshal(payload.Header.ChannelHeader, chdr); err != nil {
		return nil, err
	}
	return chdr, nil
}
