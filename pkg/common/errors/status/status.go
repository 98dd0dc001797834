/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package status attaches structured metadata to the errors returned while a
// transaction moves through endorsement, ordering and commit confirmation.
// A Status names the component that produced it (its Group) and the code that
// component reported, so callers and the retry package can decide how to react
// without parsing error strings.
package status

import (
	"fmt"

	"github.com/hyperledger/fabric-protos-go/common"
	pb "github.com/hyperledger/fabric-protos-go/peer"
	"github.com/pkg/errors"
	grpcstatus "google.golang.org/grpc/status"

	"github.com/securekey/fabric-txflow/pkg/common/errors/multi"
)

// Status describes an unsuccessful step of the transaction flow.
type Status struct {
	// Group identifies the component that reported the status
	Group Group
	// Code is the component specific code
	Code int32
	// Message is the human readable description
	Message string
	// Details holds endpoint names, payloads or nested errors
	Details []interface{}
}

// Provider is implemented by errors that can describe themselves as a Status.
type Provider interface {
	Status() *Status
}

// Group of status
type Group int32

const (
	// UnknownStatus unknown status group
	UnknownStatus Group = iota
	// GRPCTransportStatus is returned by the gRPC transport
	GRPCTransportStatus
	// EndorserServerStatus is returned by a peer's endorser service
	EndorserServerStatus
	// OrdererServerStatus is returned by the ordering service
	OrdererServerStatus
	// DeliverServerStatus is returned by a peer or orderer deliver service
	DeliverServerStatus
	// ValidationStatus is the validation code committed for a transaction
	ValidationStatus
	// EndorserClientStatus is inferred by the client while endorsing
	EndorserClientStatus
	// OrdererClientStatus is inferred by the client while broadcasting
	OrdererClientStatus
	// ClientStatus is a generic client status
	ClientStatus
	// TestStatus is used by tests to create retryable codes
	TestStatus
)

// GroupName maps groups to human readable strings
var GroupName = map[int32]string{
	0: "Unknown",
	1: "gRPC Transport Status",
	2: "Endorser Server Status",
	3: "Orderer Server Status",
	4: "Deliver Server Status",
	5: "Transaction Validation Status",
	6: "Endorser Client Status",
	7: "Orderer Client Status",
	8: "Client Status",
	9: "Test Status",
}

func (g Group) String() string {
	if s, ok := GroupName[int32(g)]; ok {
		return s
	}
	return UnknownStatus.String()
}

// New returns a Status with the given parameters
func New(group Group, code int32, msg string, details []interface{}) *Status {
	return &Status{Group: group, Code: code, Message: msg, Details: details}
}

// FromError returns the Status carried by err. Wrapped errors are unwrapped
// with errors.Cause and multi.Errors are reported as MultipleErrors with each
// error in the details.
func FromError(err error) (s *Status, ok bool) {
	if err == nil {
		return &Status{Code: OK.ToInt32()}, true
	}

	cause := errors.Cause(err)
	switch e := cause.(type) {
	case *Status:
		return e, true
	case Provider:
		if s := e.Status(); s != nil {
			return s, true
		}
	case multi.Errors:
		details := make([]interface{}, len(e))
		for i, err := range e {
			details[i] = err
		}
		return New(ClientStatus, MultipleErrors.ToInt32(), e.Error(), details), true
	}

	return nil, false
}

func (s *Status) Error() string {
	return fmt.Sprintf("%s Code: (%d) %s. Description: %s", s.Group, s.Code, s.codeString(), s.Message)
}

func (s *Status) codeString() string {
	switch s.Group {
	case GRPCTransportStatus:
		return ToGRPCStatusCode(s.Code).String()
	case EndorserServerStatus, OrdererServerStatus, DeliverServerStatus:
		return ToFabricCommonStatusCode(s.Code).String()
	case ValidationStatus:
		return ToTransactionValidationCode(s.Code).String()
	case EndorserClientStatus, OrdererClientStatus, ClientStatus, TestStatus:
		return Code(s.Code).String()
	default:
		return Unknown.String()
	}
}

// NewFromProposalResponse creates a status from the response returned by an endorser
func NewFromProposalResponse(res *pb.ProposalResponse, endorser string) *Status {
	if res == nil || res.Response == nil {
		return nil
	}
	details := []interface{}{endorser, res.Response.Payload}

	return New(EndorserServerStatus, res.Response.Status, res.Response.Message, details)
}

// NewFromBroadcastResponse creates a status from the response returned by an orderer
func NewFromBroadcastResponse(status common.Status, info string, orderer string) *Status {
	return New(OrdererServerStatus, int32(status), info, []interface{}{orderer})
}

// NewFromDeliverStatus creates a status from a deliver stream status message
func NewFromDeliverStatus(status common.Status, endpoint string) *Status {
	return New(DeliverServerStatus, int32(status), "deliver stream returned "+status.String(), []interface{}{endpoint})
}

// NewFromValidationCode creates a status from the validation code committed for a transaction
func NewFromValidationCode(code pb.TxValidationCode, txID string) *Status {
	return New(ValidationStatus, int32(code), "transaction "+txID+" was invalidated", []interface{}{txID})
}

// NewFromGRPCStatus new Status from gRPC status response
func NewFromGRPCStatus(s *grpcstatus.Status) *Status {
	if s == nil {
		return nil
	}
	details := make([]interface{}, len(s.Proto().Details))
	for i, detail := range s.Proto().Details {
		details[i] = detail
	}

	return &Status{Group: GRPCTransportStatus, Code: s.Proto().Code, Message: s.Message(), Details: details}
}
