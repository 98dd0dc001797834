/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package mockfab

import (
	"github.com/golang/mock/gomock"
	"github.com/hyperledger/fabric-protos-go/common"
	"github.com/hyperledger/fabric-protos-go/orderer"
	pb "github.com/hyperledger/fabric-protos-go/peer"

	"github.com/securekey/fabric-txflow/pkg/common/providers/fab"
)

// EndorsingProcessor returns a processor at url answering every proposal with status
func EndorsingProcessor(mockCtrl *gomock.Controller, url string, status int32) *MockProposalProcessor {
	proc := NewMockProposalProcessor(mockCtrl)
	proc.EXPECT().URL().Return(url).AnyTimes()
	proc.EXPECT().ProcessTransactionProposal(gomock.Any(), gomock.Any()).Return(
		&fab.TransactionProposalResponse{
			Endorser: url,
			Status:   status,
			ProposalResponse: &pb.ProposalResponse{
				Response:    &pb.Response{Status: status, Payload: []byte(url)},
				Endorsement: &pb.Endorsement{Endorser: []byte(url), Signature: []byte("signature")},
				Payload:     []byte("proposal response payload"),
			},
		}, nil).AnyTimes()
	return proc
}

// FailingProcessor returns a processor at url failing every proposal with err
func FailingProcessor(mockCtrl *gomock.Controller, url string, err error) *MockProposalProcessor {
	proc := NewMockProposalProcessor(mockCtrl)
	proc.EXPECT().URL().Return(url).AnyTimes()
	proc.EXPECT().ProcessTransactionProposal(gomock.Any(), gomock.Any()).Return(nil, err).AnyTimes()
	return proc
}

// AcceptingBroadcaster returns an orderer at url answering every broadcast with status
func AcceptingBroadcaster(mockCtrl *gomock.Controller, url string, status common.Status) *MockBroadcaster {
	b := NewMockBroadcaster(mockCtrl)
	b.EXPECT().URL().Return(url).AnyTimes()
	b.EXPECT().SendBroadcast(gomock.Any(), gomock.Any()).Return(&orderer.BroadcastResponse{Status: status}, nil).AnyTimes()
	return b
}
