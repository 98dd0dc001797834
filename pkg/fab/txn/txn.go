/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package txn creates, endorses and sends transactions to peers and orderers.
package txn

import (
	reqContext "context"

	"github.com/hyperledger/fabric-protos-go/common"
	po "github.com/hyperledger/fabric-protos-go/orderer"

	"github.com/securekey/fabric-txflow/pkg/common/errors/txerrors"
	"github.com/securekey/fabric-txflow/pkg/common/logging"
	"github.com/securekey/fabric-txflow/pkg/common/providers/fab"
	"github.com/securekey/fabric-txflow/pkg/common/providers/msp"
)

var logger = logging.NewLogger("fabtxflow/txn")

// Commit builds the commit envelope for tx, signed by identity, and
// broadcasts it to the orderers.
func Commit(ctx reqContext.Context, tx *fab.EndorsedTransaction, identity msp.SigningIdentity, orderers []fab.Broadcaster) (*po.BroadcastResponse, error) {
	if len(orderers) == 0 {
		return nil, txerrors.NewConfigurationError("at least one orderer is required")
	}

	envelope, err := CreateCommitEnvelope(tx, identity)
	if err != nil {
		return nil, err
	}

	return BroadcastEnvelope(ctx, envelope, tx.TxID(), orderers)
}

// BroadcastEnvelope sends the envelope to the orderers strictly in order. An
// orderer that cannot be reached is skipped; the first orderer that answers
// decides the outcome. A non-success answer is returned as a CommitError. If no
// orderer could be reached the last connection error is returned.
func BroadcastEnvelope(ctx reqContext.Context, envelope *common.Envelope, txID fab.TransactionID, orderers []fab.Broadcaster) (*po.BroadcastResponse, error) {
	if len(orderers) == 0 {
		return nil, txerrors.NewConfigurationError("at least one orderer is required")
	}

	var lastErr error
	for _, o := range orderers {
		logger.Debugf("Broadcasting transaction %s to orderer %s", txID, o.URL())

		resp, err := o.SendBroadcast(ctx, envelope)
		if err != nil {
			err = withTxID(err, txID)
			if !txerrors.IsConnectionError(err) {
				return nil, err
			}
			logger.Debugf("Orderer %s unreachable: %s", o.URL(), err)
			lastErr = err
			continue
		}

		if resp.Status != common.Status_SUCCESS {
			return resp, &txerrors.CommitError{TxID: txID, Orderer: o.URL(), Code: resp.Status, Info: resp.Info}
		}

		logger.Debugf("Orderer %s accepted transaction %s", o.URL(), txID)
		return resp, nil
	}

	return nil, lastErr
}
