/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package eventhub confirms transaction commits by scanning the filtered block
// stream of a channel's peers, and streams decoded blocks.
package eventhub

import (
	reqContext "context"
	"time"

	"github.com/pkg/errors"

	"github.com/securekey/fabric-txflow/pkg/common/errors/txerrors"
	"github.com/securekey/fabric-txflow/pkg/common/logging"
	"github.com/securekey/fabric-txflow/pkg/common/providers/core"
	"github.com/securekey/fabric-txflow/pkg/common/providers/fab"
	"github.com/securekey/fabric-txflow/pkg/common/providers/msp"
	"github.com/securekey/fabric-txflow/pkg/fab/events/blockdecoder"
	"github.com/securekey/fabric-txflow/pkg/fab/events/seek"
)

var logger = logging.NewLogger("fabtxflow/eventhub")

// EventHub watches the blocks committed on one channel. Peers are tried in
// the configured order.
type EventHub struct {
	channelID      string
	identity       msp.SigningIdentity
	suite          core.CryptoSuite
	peers          []fab.Peer
	start          seek.Position
	failIfNotReady bool
}

// Option configures an EventHub
type Option func(*EventHub)

// WithStartPosition sets where CheckTransaction starts scanning. Defaults to the newest block.
func WithStartPosition(pos seek.Position) Option {
	return func(h *EventHub) {
		h.start = pos
	}
}

// WithFailIfNotReady makes streams fail with NOT_FOUND instead of waiting for blocks
func WithFailIfNotReady() Option {
	return func(h *EventHub) {
		h.failIfNotReady = true
	}
}

// New returns an EventHub for channelID which opens streams as identity
func New(channelID string, identity msp.SigningIdentity, suite core.CryptoSuite, peers []fab.Peer, opts ...Option) (*EventHub, error) {
	if len(peers) == 0 {
		return nil, txerrors.NewConfigurationError("at least one event peer is required")
	}
	if channelID == "" {
		return nil, txerrors.NewConfigurationError("channel is required for the event hub")
	}
	if identity == nil || suite == nil {
		return nil, txerrors.NewConfigurationError("identity and crypto suite are required for the event hub")
	}

	h := &EventHub{
		channelID: channelID,
		identity:  identity,
		suite:     suite,
		peers:     peers,
		start:     seek.NewestPosition,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// Peers returns the event peers in failover order
func (h *EventHub) Peers() []fab.Peer {
	return h.peers
}

// GetTransaction scans the filtered blocks of the first event peer from start
// and returns the first transaction with the given ID, whatever its validation
// code. It has no timeout of its own.
func (h *EventHub) GetTransaction(ctx reqContext.Context, txID fab.TransactionID, start seek.Position) (*fab.FilteredTransaction, error) {
	return h.getTransaction(ctx, h.peers[0], txID, start)
}

// CheckTransaction waits until txID is committed and returns its record. Peers
// are tried in order while their streams fail; the last stream failure is
// returned once every peer was tried. A committed but invalidated transaction
// yields a ValidationError. The whole operation is bounded by timeout.
func (h *EventHub) CheckTransaction(ctx reqContext.Context, txID fab.TransactionID, timeout time.Duration) (*fab.FilteredTransaction, error) {
	checkCtx, cancel := reqContext.WithTimeout(ctx, timeout)
	defer cancel()

	var lastErr error
	for _, p := range h.peers {
		tx, err := h.getTransaction(checkCtx, p, txID, h.start)
		if err == nil {
			if !tx.Valid() {
				return tx, &txerrors.ValidationError{TxID: txID, Peer: p.URL(), Code: tx.ValidationCode, BlockNum: tx.BlockNumber}
			}
			logger.Debugf("Transaction %s committed in block %d", txID, tx.BlockNumber)
			return tx, nil
		}

		if checkCtx.Err() != nil {
			if ctx.Err() != nil {
				return nil, errors.Wrapf(ctx.Err(), "waiting for commit of transaction %s abandoned", txID)
			}
			return nil, &txerrors.TimeoutError{TxID: txID, Timeout: timeout, Last: lastErr}
		}
		if !txerrors.IsFailoverError(err) {
			return nil, err
		}
		logger.Debugf("Event stream from %s failed, trying next peer: %s", p.URL(), err)
		lastErr = err
	}

	return nil, lastErr
}

func (h *EventHub) getTransaction(ctx reqContext.Context, source fab.FilteredBlockSource, txID fab.TransactionID, start seek.Position) (*fab.FilteredTransaction, error) {
	envelope, err := seek.Envelope(h.identity, h.suite, h.channelID, seek.Info(start, seek.MaxPosition, h.failIfNotReady))
	if err != nil {
		return nil, errors.WithMessage(err, "creating deliver envelope failed")
	}

	streamCtx, cancel := reqContext.WithCancel(ctx)
	defer cancel()

	blocks, errs := source.DeliverFiltered(streamCtx, envelope)
	for fblock := range blocks {
		for _, tx := range blockdecoder.DecodeFiltered(fblock) {
			if tx.TxID == txID {
				return tx, nil
			}
		}
	}

	if err := <-errs; err != nil {
		return nil, err
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	return nil, &txerrors.StreamExhaustedError{Endpoint: source.URL(), TxID: txID}
}

// StreamFilteredBlocks streams the decoded filtered blocks of the first event
// peer between start and stop. The event channel is closed when the stream
// ends; at most one error is sent.
func (h *EventHub) StreamFilteredBlocks(ctx reqContext.Context, start, stop seek.Position) (<-chan *fab.FilteredBlockEvent, <-chan error) {
	events := make(chan *fab.FilteredBlockEvent)
	errch := make(chan error, 1)

	source := h.peers[0]
	envelope, err := seek.Envelope(h.identity, h.suite, h.channelID, seek.Info(start, stop, h.failIfNotReady))
	if err != nil {
		errch <- errors.WithMessage(err, "creating deliver envelope failed")
		close(events)
		close(errch)
		return events, errch
	}

	go func() {
		defer close(errch)
		defer close(events)

		streamCtx, cancel := reqContext.WithCancel(ctx)
		defer cancel()

		blocks, errs := source.DeliverFiltered(streamCtx, envelope)
		for fblock := range blocks {
			event := &fab.FilteredBlockEvent{
				Number:       fblock.Number,
				ChannelID:    fblock.ChannelId,
				Transactions: blockdecoder.DecodeFiltered(fblock),
				SourceURL:    source.URL(),
			}
			select {
			case events <- event:
			case <-ctx.Done():
				return
			}
		}
		if err := <-errs; err != nil {
			errch <- err
		}
	}()

	return events, errch
}

// StreamBlocks streams the decoded blocks of the first event peer between
// start and stop, with the same channel contract as StreamFilteredBlocks.
func (h *EventHub) StreamBlocks(ctx reqContext.Context, start, stop seek.Position) (<-chan *fab.BlockEvent, <-chan error) {
	events := make(chan *fab.BlockEvent)
	errch := make(chan error, 1)

	source := h.peers[0]
	envelope, err := seek.Envelope(h.identity, h.suite, h.channelID, seek.Info(start, stop, h.failIfNotReady))
	if err != nil {
		errch <- errors.WithMessage(err, "creating deliver envelope failed")
		close(events)
		close(errch)
		return events, errch
	}

	go func() {
		defer close(errch)
		defer close(events)

		streamCtx, cancel := reqContext.WithCancel(ctx)
		defer cancel()

		blocks, errs := source.Deliver(streamCtx, envelope)
		for block := range blocks {
			decoded, err := blockdecoder.DecodeBlock(block)
			if err != nil {
				errch <- err
				return
			}
			select {
			case events <- &fab.BlockEvent{Block: decoded, SourceURL: source.URL()}:
			case <-ctx.Done():
				return
			}
		}
		if err := <-errs; err != nil {
			errch <- err
		}
	}()

	return events, errch
}
