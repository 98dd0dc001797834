/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package peer

import (
	reqContext "context"
	"io"

	"github.com/hyperledger/fabric-protos-go/common"
	pb "github.com/hyperledger/fabric-protos-go/peer"
	"github.com/pkg/errors"

	"github.com/securekey/fabric-txflow/pkg/common/errors/status"
	"github.com/securekey/fabric-txflow/pkg/common/errors/txerrors"
	"github.com/securekey/fabric-txflow/pkg/common/providers/fab"
)

type deliverStream interface {
	Send(*common.Envelope) error
	Recv() (*pb.DeliverResponse, error)
	CloseSend() error
}

type streamOpener func(ctx reqContext.Context, client pb.DeliverClient) (deliverStream, error)

// DeliverFiltered opens a filtered block stream with the given seek envelope
func (p *Peer) DeliverFiltered(ctx reqContext.Context, envelope *common.Envelope) (<-chan *pb.FilteredBlock, <-chan error) {
	blocks := make(chan *pb.FilteredBlock)

	errs := p.deliver(ctx, envelope,
		func(ctx reqContext.Context, client pb.DeliverClient) (deliverStream, error) {
			return client.DeliverFiltered(ctx)
		},
		func(resp *pb.DeliverResponse) (bool, error) {
			fb, ok := resp.Type.(*pb.DeliverResponse_FilteredBlock)
			if !ok {
				return false, nil
			}
			select {
			case blocks <- fb.FilteredBlock:
				return true, nil
			case <-ctx.Done():
				return false, ctx.Err()
			}
		},
		func() { close(blocks) },
	)

	return blocks, errs
}

// Deliver opens a block stream with the given seek envelope
func (p *Peer) Deliver(ctx reqContext.Context, envelope *common.Envelope) (<-chan *common.Block, <-chan error) {
	blocks := make(chan *common.Block)

	errs := p.deliver(ctx, envelope,
		func(ctx reqContext.Context, client pb.DeliverClient) (deliverStream, error) {
			return client.Deliver(ctx)
		},
		func(resp *pb.DeliverResponse) (bool, error) {
			b, ok := resp.Type.(*pb.DeliverResponse_Block)
			if !ok {
				return false, nil
			}
			select {
			case blocks <- b.Block:
				return true, nil
			case <-ctx.Done():
				return false, ctx.Err()
			}
		},
		func() { close(blocks) },
	)

	return blocks, errs
}

// deliver runs the stream in a goroutine. handle returns true when it consumed
// the response as a block. closeBlocks is called once the stream is over.
func (p *Peer) deliver(ctx reqContext.Context, envelope *common.Envelope, open streamOpener, handle func(*pb.DeliverResponse) (bool, error), closeBlocks func()) <-chan error {
	errs := make(chan error, 1)

	go func() {
		defer close(errs)
		defer closeBlocks()

		if err := p.receive(ctx, envelope, open, handle); err != nil {
			if ctx.Err() != nil {
				logger.Debugf("Deliver stream from %s closed by client", p.url)
				return
			}
			errs <- err
		}
	}()

	return errs
}

func (p *Peer) receive(ctx reqContext.Context, envelope *common.Envelope, open streamOpener, handle func(*pb.DeliverResponse) (bool, error)) error {
	conn, err := p.connector.Dial(ctx, p.url, p.connOpts...)
	if err != nil {
		return txerrors.NewConnectionError(status.DeliverServerStatus, p.url, fab.EmptyTransactionID, err)
	}

	streamCtx, cancel := reqContext.WithCancel(ctx)
	defer cancel()

	stream, err := open(streamCtx, pb.NewDeliverClient(conn))
	if err != nil {
		return txerrors.NewConnectionError(status.DeliverServerStatus, p.url, fab.EmptyTransactionID, err)
	}

	if err := stream.Send(envelope); err != nil {
		return txerrors.NewConnectionError(status.DeliverServerStatus, p.url, fab.EmptyTransactionID, err)
	}
	if err := stream.CloseSend(); err != nil {
		logger.Debugf("CloseSend on deliver stream from %s failed: %s", p.url, err)
	}

	for {
		resp, err := stream.Recv()
		if err == io.EOF {
			logger.Debugf("Deliver stream from %s ended", p.url)
			return nil
		}
		if err != nil {
			return txerrors.NewConnectionError(status.DeliverServerStatus, p.url, fab.EmptyTransactionID, err)
		}

		if s, ok := resp.Type.(*pb.DeliverResponse_Status); ok {
			if s.Status != common.Status_SUCCESS {
				return &txerrors.BlockRetrievalError{Endpoint: p.url, Code: s.Status}
			}
			logger.Debugf("Deliver stream from %s completed", p.url)
			return nil
		}

		consumed, err := handle(resp)
		if err != nil {
			return err
		}
		if !consumed {
			return errors.Errorf("unexpected deliver response type %T from %s", resp.Type, p.url)
		}
	}
}
