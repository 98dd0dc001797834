/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package peer

import (
	reqContext "context"

	pb "github.com/hyperledger/fabric-protos-go/peer"
	"github.com/pkg/errors"
	grpcstatus "google.golang.org/grpc/status"

	"github.com/securekey/fabric-txflow/pkg/common/errors/status"
	"github.com/securekey/fabric-txflow/pkg/common/errors/txerrors"
	"github.com/securekey/fabric-txflow/pkg/common/providers/fab"
	"github.com/securekey/fabric-txflow/pkg/fab/comm"
)

// ProcessTransactionProposal sends the transaction proposal to the peer and returns the response.
// An endorsement with a failure status is returned as a response; a ConnectionError
// is returned when the peer could not be reached.
func (p *Peer) ProcessTransactionProposal(ctx reqContext.Context, proposal *pb.SignedProposal) (*fab.TransactionProposalResponse, error) {
	logger.Debugf("Processing proposal using endorser: %s", p.url)

	conn, err := p.connector.Dial(ctx, p.url, p.connOpts...)
	if err != nil {
		return nil, txerrors.NewConnectionError(status.EndorserClientStatus, p.url, fab.EmptyTransactionID, err)
	}

	resp, err := pb.NewEndorserClient(conn).ProcessProposal(ctx, proposal)
	if err != nil {
		logger.Debugf("process proposal failed [%s]", err)
		if comm.IsTransportError(err) {
			return nil, txerrors.NewConnectionError(status.EndorserClientStatus, p.url, fab.EmptyTransactionID, err)
		}
		if rpcStatus, ok := grpcstatus.FromError(err); ok {
			return nil, errors.WithMessagef(status.NewFromGRPCStatus(rpcStatus), "endorser %s", p.url)
		}
		return nil, errors.Wrapf(err, "endorser %s", p.url)
	}

	if resp.Response == nil {
		return nil, errors.Errorf("endorser %s returned a proposal response without response", p.url)
	}

	return &fab.TransactionProposalResponse{
		Endorser:         p.url,
		Status:           resp.Response.Status,
		ProposalResponse: resp,
	}, nil
}
