/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package blockdecoder turns delivered blocks into the transaction records
// used to confirm commits.
package blockdecoder

import (
	"github.com/golang/protobuf/proto"
	cb "github.com/hyperledger/fabric-protos-go/common"
	pb "github.com/hyperledger/fabric-protos-go/peer"
	"github.com/pkg/errors"

	"github.com/securekey/fabric-txflow/pkg/common/logging"
	"github.com/securekey/fabric-txflow/pkg/common/providers/fab"
)

var logger = logging.NewLogger("fabtxflow/eventhub")

// DecodeFiltered returns the transactions of a filtered block in block order
func DecodeFiltered(fblock *pb.FilteredBlock) []*fab.FilteredTransaction {
	if fblock == nil {
		return nil
	}

	txs := make([]*fab.FilteredTransaction, 0, len(fblock.FilteredTransactions))
	for _, ftx := range fblock.FilteredTransactions {
		txs = append(txs, &fab.FilteredTransaction{
			TxID:           fab.TransactionID(ftx.Txid),
			BlockNumber:    fblock.Number,
			Type:           ftx.Type,
			ValidationCode: ftx.TxValidationCode,
			Actions:        ftx.GetTransactionActions().GetChaincodeActions(),
		})
	}
	return txs
}

// DecodeBlock unpacks the envelopes of a block. The validation code of each
// transaction is read from the block's transactions filter; transactions the
// filter does not cover are reported as NOT_VALIDATED.
func DecodeBlock(block *cb.Block) (*fab.DecodedBlock, error) {
	if block == nil || block.Header == nil {
		return nil, errors.New("block has no header")
	}

	decoded := &fab.DecodedBlock{
		Number:       block.Header.Number,
		PreviousHash: block.Header.PreviousHash,
		DataHash:     block.Header.DataHash,
	}
	if block.Data == nil {
		return decoded, nil
	}

	filter := transactionsFilter(block)
	for i, data := range block.Data.Data {
		tx, err := decodeEnvelope(data)
		if err != nil {
			return nil, errors.WithMessagef(err, "invalid transaction %d in block %d", i, block.Header.Number)
		}
		tx.ValidationCode = pb.TxValidationCode_NOT_VALIDATED
		if i < len(filter) {
			tx.ValidationCode = pb.TxValidationCode(filter[i])
		}
		decoded.Transactions = append(decoded.Transactions, tx)
	}
	return decoded, nil
}

// HasHeaderType returns true if the block carries at least one envelope of
// one of the given header types
func HasHeaderType(block *cb.Block, headerTypes ...cb.HeaderType) bool {
	if block == nil || block.Data == nil {
		return false
	}
	for i, data := range block.Data.Data {
		tx, err := decodeEnvelope(data)
		if err != nil {
			logger.Warnf("error extracting envelope %d from block: %s", i, err)
			continue
		}
		for _, headerType := range headerTypes {
			if tx.Type == headerType {
				return true
			}
		}
	}
	return false
}

func decodeEnvelope(data []byte) (*fab.BlockTransaction, error) {
	env := &cb.Envelope{}
	if err := proto.Unmarshal(data, env); err != nil {
		return nil, errors.Wrap(err, "unmarshal envelope failed")
	}
	payload := &cb.Payload{}
	if err := proto.Unmarshal(env.Payload, payload); err != nil {
		return nil, errors.Wrap(err, "unmarshal payload failed")
	}
	if payload.Header == nil {
		return nil, errors.New("payload has no header")
	}
	chdr := &cb.ChannelHeader{}
	if err := proto.Unmarshal(payload.Header.ChannelHeader, chdr); err != nil {
		return nil, errors.Wrap(err, "unmarshal channel header failed")
	}
	shdr := &cb.SignatureHeader{}
	if err := proto.Unmarshal(payload.Header.SignatureHeader, shdr); err != nil {
		return nil, errors.Wrap(err, "unmarshal signature header failed")
	}

	return &fab.BlockTransaction{
		TxID:      fab.TransactionID(chdr.TxId),
		ChannelID: chdr.ChannelId,
		Type:      cb.HeaderType(chdr.Type),
		Creator:   shdr.Creator,
		Envelope:  env,
	}, nil
}

func transactionsFilter(block *cb.Block) []byte {
	if block.Metadata == nil || len(block.Metadata.Metadata) <= int(cb.BlockMetadataIndex_TRANSACTIONS_FILTER) {
		return nil
	}
	return block.Metadata.Metadata[cb.BlockMetadataIndex_TRANSACTIONS_FILTER]
}
