/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package txerrors defines the errors raised while a transaction is proposed,
// committed and confirmed. Every error keeps the transaction ID, the endpoint
// involved and the raw status, and converts to a status.Status so it can be
// classified by the retry package.
//
// Errors may be wrapped with github.com/pkg/errors; the Is* helpers unwrap
// with errors.Cause.
package txerrors

import (
	"fmt"
	"strings"
	"time"

	"github.com/hyperledger/fabric-protos-go/common"
	pb "github.com/hyperledger/fabric-protos-go/peer"
	"github.com/pkg/errors"

	"github.com/securekey/fabric-txflow/pkg/common/errors/status"
	"github.com/securekey/fabric-txflow/pkg/common/providers/fab"
)

// ConfigurationError is returned when the caller supplied invalid or incomplete inputs.
type ConfigurationError struct {
	Message string
	// Names lists the offending items (group names, roles, keys)
	Names []string
}

// NewConfigurationError returns a ConfigurationError naming the offending items
func NewConfigurationError(msg string, names ...string) *ConfigurationError {
	return &ConfigurationError{Message: msg, Names: names}
}

func (e *ConfigurationError) Error() string {
	if len(e.Names) == 0 {
		return "configuration error: " + e.Message
	}
	return fmt.Sprintf("configuration error: %s [%s]", e.Message, strings.Join(e.Names, ", "))
}

// Status implements status.Provider
func (e *ConfigurationError) Status() *status.Status {
	return status.New(status.ClientStatus, status.InvalidConfiguration.ToInt32(), e.Error(), nil)
}

// ConnectionError is returned when a remote call could not complete at the transport level.
type ConnectionError struct {
	Endpoint string
	TxID     fab.TransactionID
	// Group is the client status group of the failing role (endorser, orderer, deliver)
	Group status.Group
	Err   error
}

// NewConnectionError wraps a transport failure against endpoint
func NewConnectionError(group status.Group, endpoint string, txID fab.TransactionID, err error) *ConnectionError {
	return &ConnectionError{Group: group, Endpoint: endpoint, TxID: txID, Err: err}
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connection to %s failed (txid %s): %s", e.Endpoint, e.TxID, e.Err)
}

// Unwrap returns the transport error
func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// Status implements status.Provider
func (e *ConnectionError) Status() *status.Status {
	return status.New(e.Group, status.ConnectionFailed.ToInt32(), e.Error(), []interface{}{e.Endpoint})
}

// ProposalError is returned when one or more endorsers returned a non-success endorsement.
// It carries the full EndorsedTransaction so the individual failures can be inspected.
type ProposalError struct {
	Transaction *fab.EndorsedTransaction
}

func (e *ProposalError) Error() string {
	failed := e.Transaction.ErrorResponses()
	msgs := make([]string, 0, len(failed))
	for _, r := range failed {
		msgs = append(msgs, describeResponse(r))
	}
	return fmt.Sprintf("transaction %s failed endorsement on %d of %d peers: %s",
		e.Transaction.TxID(), len(failed), len(e.Transaction.Responses), strings.Join(msgs, "; "))
}

// Status implements status.Provider. The status of the first failed endorser
// is reported so that retry decisions follow the endorser's verdict.
func (e *ProposalError) Status() *status.Status {
	for _, r := range e.Transaction.ErrorResponses() {
		if r.Err != nil {
			if s, ok := status.FromError(r.Err); ok {
				return s
			}
			continue
		}
		if s := status.NewFromProposalResponse(r.ProposalResponse, r.Endorser); s != nil {
			return s
		}
	}
	return status.New(status.EndorserClientStatus, status.EndorsementFailed.ToInt32(), e.Error(), nil)
}

func describeResponse(r *fab.TransactionProposalResponse) string {
	if r.Err != nil {
		return fmt.Sprintf("%s: %s", r.Endorser, r.Err)
	}
	msg := ""
	if r.ProposalResponse != nil && r.ProposalResponse.Response != nil {
		msg = r.ProposalResponse.Response.Message
	}
	return fmt.Sprintf("%s: status %d %s", r.Endorser, r.Status, msg)
}

// CommitError is returned when the orderer that responded rejected the envelope.
type CommitError struct {
	TxID    fab.TransactionID
	Orderer string
	Code    common.Status
	Info    string
}

func (e *CommitError) Error() string {
	return fmt.Sprintf("orderer %s rejected transaction %s: %s %s", e.Orderer, e.TxID, e.Code, e.Info)
}

// Status implements status.Provider
func (e *CommitError) Status() *status.Status {
	return status.NewFromBroadcastResponse(e.Code, e.Info, e.Orderer)
}

// ValidationError is returned when the ledger invalidated a committed transaction.
type ValidationError struct {
	TxID     fab.TransactionID
	Peer     string
	Code     pb.TxValidationCode
	BlockNum uint64
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("transaction %s was invalidated in block %d with code %s (reported by %s)", e.TxID, e.BlockNum, e.Code, e.Peer)
}

// Status implements status.Provider
func (e *ValidationError) Status() *status.Status {
	return status.NewFromValidationCode(e.Code, string(e.TxID))
}

// TimeoutError is returned when commit confirmation did not complete in time.
type TimeoutError struct {
	TxID    fab.TransactionID
	Timeout time.Duration
	// Last is the most recent failover error, if any
	Last error
}

func (e *TimeoutError) Error() string {
	msg := fmt.Sprintf("timed out after %s waiting for commit of transaction %s", e.Timeout, e.TxID)
	if e.Last != nil {
		msg += ": last error: " + e.Last.Error()
	}
	return msg
}

// Status implements status.Provider
func (e *TimeoutError) Status() *status.Status {
	return status.New(status.ClientStatus, status.Timeout.ToInt32(), e.Error(), nil)
}

// BlockRetrievalError is returned when a deliver stream answers with a non-success status.
type BlockRetrievalError struct {
	Endpoint string
	TxID     fab.TransactionID
	Code     common.Status
}

func (e *BlockRetrievalError) Error() string {
	return fmt.Sprintf("block retrieval from %s failed with status %s", e.Endpoint, e.Code)
}

// Status implements status.Provider
func (e *BlockRetrievalError) Status() *status.Status {
	return status.NewFromDeliverStatus(e.Code, e.Endpoint)
}

// StreamExhaustedError is returned when a block stream ends without the awaited transaction.
type StreamExhaustedError struct {
	Endpoint string
	TxID     fab.TransactionID
}

func (e *StreamExhaustedError) Error() string {
	return fmt.Sprintf("block stream from %s ended before transaction %s was found", e.Endpoint, e.TxID)
}

// Status implements status.Provider
func (e *StreamExhaustedError) Status() *status.Status {
	return status.New(status.ClientStatus, status.StreamExhausted.ToInt32(), e.Error(), []interface{}{e.Endpoint})
}

// SequencingError is returned when flow steps are chained out of order.
type SequencingError struct {
	Message string
}

func (e *SequencingError) Error() string {
	return e.Message
}

// Status implements status.Provider
func (e *SequencingError) Status() *status.Status {
	return status.New(status.ClientStatus, status.SequencingFailed.ToInt32(), e.Message, nil)
}

// FlowError is returned when a transaction flow is run in an invalid state.
type FlowError struct {
	Message string
}

func (e *FlowError) Error() string {
	return e.Message
}

// Status implements status.Provider
func (e *FlowError) Status() *status.Status {
	return status.New(status.ClientStatus, status.SequencingFailed.ToInt32(), e.Message, nil)
}

// IsConfigurationError returns true if the cause of err is a ConfigurationError
func IsConfigurationError(err error) bool {
	_, ok := errors.Cause(err).(*ConfigurationError)
	return ok
}

// IsConnectionError returns true if the cause of err is a ConnectionError
func IsConnectionError(err error) bool {
	_, ok := errors.Cause(err).(*ConnectionError)
	return ok
}

// IsProposalError returns true if the cause of err is a ProposalError
func IsProposalError(err error) bool {
	_, ok := errors.Cause(err).(*ProposalError)
	return ok
}

// IsCommitError returns true if the cause of err is a CommitError
func IsCommitError(err error) bool {
	_, ok := errors.Cause(err).(*CommitError)
	return ok
}

// IsValidationError returns true if the cause of err is a ValidationError
func IsValidationError(err error) bool {
	_, ok := errors.Cause(err).(*ValidationError)
	return ok
}

// IsTimeout returns true if the cause of err is a TimeoutError
func IsTimeout(err error) bool {
	_, ok := errors.Cause(err).(*TimeoutError)
	return ok
}

// IsBlockRetrievalError returns true if the cause of err is a BlockRetrievalError
func IsBlockRetrievalError(err error) bool {
	_, ok := errors.Cause(err).(*BlockRetrievalError)
	return ok
}

// IsStreamExhausted returns true if the cause of err is a StreamExhaustedError
func IsStreamExhausted(err error) bool {
	_, ok := errors.Cause(err).(*StreamExhaustedError)
	return ok
}

// IsSequencingError returns true if the cause of err is a SequencingError
func IsSequencingError(err error) bool {
	_, ok := errors.Cause(err).(*SequencingError)
	return ok
}

// IsFlowError returns true if the cause of err is a FlowError
func IsFlowError(err error) bool {
	_, ok := errors.Cause(err).(*FlowError)
	return ok
}

// IsFailoverError returns true for the errors that allow trying the next node:
// connection failures and deliver stream failures.
func IsFailoverError(err error) bool {
	return IsConnectionError(err) || IsBlockRetrievalError(err) || IsStreamExhausted(err)
}
