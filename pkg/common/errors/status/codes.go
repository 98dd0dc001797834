/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package status

import (
	"strconv"

	"github.com/hyperledger/fabric-protos-go/common"
	pb "github.com/hyperledger/fabric-protos-go/peer"
	grpcCodes "google.golang.org/grpc/codes"
)

// Code represents a client status code
type Code uint32

const (
	// OK is returned on success.
	OK Code = 0

	// Unknown represents status codes that are uncategorized
	Unknown Code = 1

	// ConnectionFailed is returned when a remote call could not complete at the transport level
	ConnectionFailed Code = 2

	// InvalidConfiguration is returned when the caller supplied invalid or incomplete inputs
	InvalidConfiguration Code = 3

	// EndorsementFailed is returned when one or more endorsers rejected a proposal
	EndorsementFailed Code = 4

	// Timeout operation timed out
	Timeout Code = 5

	// NoPeersFound no endorsing peers were configured or could be selected
	NoPeersFound Code = 6

	// MultipleErrors multiple errors occurred
	MultipleErrors Code = 7

	// BlockRetrievalFailed is returned when a deliver stream reports a non-success status
	BlockRetrievalFailed Code = 8

	// StreamExhausted is returned when a deliver stream ends before the transaction is found
	StreamExhausted Code = 9

	// CommitRejected is returned when the ordering service rejects an envelope
	CommitRejected Code = 10

	// SequencingFailed is returned when flow steps are chained out of order
	SequencingFailed Code = 11

	// GenericTransient is used by tests to indicate that a retry is possible
	GenericTransient Code = 12
)

// CodeName maps the codes in this package to human readable strings
var CodeName = map[int32]string{
	0:  "OK",
	1:  "UNKNOWN",
	2:  "CONNECTION_FAILED",
	3:  "INVALID_CONFIGURATION",
	4:  "ENDORSEMENT_FAILED",
	5:  "TIMEOUT",
	6:  "NO_PEERS_FOUND",
	7:  "MULTIPLE_ERRORS",
	8:  "BLOCK_RETRIEVAL_FAILED",
	9:  "STREAM_EXHAUSTED",
	10: "COMMIT_REJECTED",
	11: "SEQUENCING_FAILED",
	12: "GENERIC_TRANSIENT",
}

// ToInt32 cast to int32
func (c Code) ToInt32() int32 {
	return int32(c)
}

// String representation of the code
func (c Code) String() string {
	if s, ok := CodeName[c.ToInt32()]; ok {
		return s
	}
	return strconv.Itoa(int(c))
}

// ToGRPCStatusCode cast to gRPC status code
func ToGRPCStatusCode(c int32) grpcCodes.Code {
	return grpcCodes.Code(c)
}

// ToFabricCommonStatusCode cast to common.Status
func ToFabricCommonStatusCode(c int32) common.Status {
	return common.Status(c)
}

// ToTransactionValidationCode cast to transaction validation code
func ToTransactionValidationCode(c int32) pb.TxValidationCode {
	return pb.TxValidationCode(c)
}
