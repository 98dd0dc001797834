/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package gateway

import (
	reqContext "context"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/securekey/fabric-txflow/pkg/common/errors/txerrors"
	"github.com/securekey/fabric-txflow/pkg/common/metrics"
	"github.com/securekey/fabric-txflow/pkg/common/providers/fab"
	"github.com/securekey/fabric-txflow/pkg/fab/txn"
)

// StepKind identifies a queued transaction step
type StepKind int

const (
	// StepPropose sends the proposal to the endorsers
	StepPropose StepKind = iota
	// StepSubmit sends the endorsed transaction to the orderers
	StepSubmit
	// StepWaitForCommit waits for the transaction to be committed
	StepWaitForCommit
)

func (k StepKind) String() string {
	switch k {
	case StepPropose:
		return "propose"
	case StepSubmit:
		return "submit"
	case StepWaitForCommit:
		return "wait for commit"
	default:
		return "unknown"
	}
}

type step struct {
	kind           StepKind
	raiseOnFailure bool
	timeout        time.Duration
}

// TxBuilder queues the steps of one transaction and runs them once. The
// proposal is generated, and its transaction ID fixed, when the builder is
// created.
type TxBuilder struct {
	gw     *Gateway
	req    Request
	tx     *fab.GeneratedTransaction
	genErr error
	steps  []step

	mutex sync.Mutex
	ran   bool

	endorsed  *fab.EndorsedTransaction
	submitted bool
	committed *fab.FilteredTransaction
}

func newTxBuilder(gw *Gateway, req Request) *TxBuilder {
	tb := &TxBuilder{gw: gw, req: req}
	tb.tx, tb.genErr = txn.GenerateTransaction(reqContext.Background(), gw.requestor, gw.suite, fab.ChaincodeInvokeRequest{
		ChannelID:    gw.channelID,
		ChaincodeID:  req.ChaincodeID,
		Fcn:          req.Fcn,
		Args:         req.Args,
		TransientMap: req.TransientMap,
		IsInit:       req.IsInit,
	})
	return tb
}

// TransactionID returns the ID of the generated transaction, empty if generation failed
func (tb *TxBuilder) TransactionID() fab.TransactionID {
	if tb.tx == nil {
		return fab.EmptyTransactionID
	}
	return tb.tx.Context.ID
}

// Steps returns the queued steps in order
func (tb *TxBuilder) Steps() []StepKind {
	kinds := make([]StepKind, len(tb.steps))
	for i, s := range tb.steps {
		kinds[i] = s.kind
	}
	return kinds
}

// Propose queues the endorsement step. With raiseOnFailure the step fails with
// a ProposalError unless every endorsement succeeded.
func (tb *TxBuilder) Propose(raiseOnFailure bool) *TxBuilder {
	tb.steps = append(tb.steps, step{kind: StepPropose, raiseOnFailure: raiseOnFailure})
	return tb
}

// Submit queues the ordering step
func (tb *TxBuilder) Submit() *TxBuilder {
	tb.steps = append(tb.steps, step{kind: StepSubmit})
	return tb
}

// WaitForCommit queues the commit confirmation step. A zero timeout uses the
// gateway timeout.
func (tb *TxBuilder) WaitForCommit(timeout time.Duration) *TxBuilder {
	tb.steps = append(tb.steps, step{kind: StepWaitForCommit, timeout: timeout})
	return tb
}

// Committed returns the commit record once a WaitForCommit step succeeded
func (tb *TxBuilder) Committed() *fab.FilteredTransaction {
	return tb.committed
}

// Run executes the queued steps in order and stops at the first error. It
// returns the endorsed transaction produced by the propose step. A builder
// runs at most once.
func (tb *TxBuilder) Run(ctx reqContext.Context) (*fab.EndorsedTransaction, error) {
	tb.mutex.Lock()
	if tb.ran {
		tb.mutex.Unlock()
		return nil, &txerrors.FlowError{Message: "transaction already run"}
	}
	tb.ran = true
	tb.mutex.Unlock()

	if len(tb.steps) == 0 {
		return nil, &txerrors.FlowError{Message: "transaction never proposed"}
	}
	if tb.genErr != nil {
		return nil, errors.WithMessage(tb.genErr, "transaction generation failed")
	}

	start := time.Now()
	for _, s := range tb.steps {
		logger.Debugf("Running step [%s] of transaction %s", s.kind, tb.TransactionID())

		var err error
		switch s.kind {
		case StepPropose:
			err = tb.propose(ctx, s.raiseOnFailure)
		case StepSubmit:
			err = tb.submit(ctx)
		case StepWaitForCommit:
			err = tb.waitForCommit(ctx, s.timeout)
		default:
			err = errors.Errorf("unknown step %d", s.kind)
		}
		if err != nil {
			return nil, err
		}
	}
	tb.gw.metrics.TransactionDuration.With(tb.labels()...).Observe(time.Since(start).Seconds())

	if tb.endorsed == nil {
		return nil, &txerrors.FlowError{Message: "transaction never proposed"}
	}
	return tb.endorsed, nil
}

func (tb *TxBuilder) propose(ctx reqContext.Context, raiseOnFailure bool) error {
	tb.gw.metrics.Proposals.With(tb.labels()...).Add(1)

	invocation := func() (interface{}, error) {
		endorsed, err := tb.dispatch(ctx)
		if err != nil {
			return nil, err
		}
		if raiseOnFailure && !endorsed.FullyEndorsed() {
			return nil, &txerrors.ProposalError{Transaction: endorsed}
		}
		return endorsed, nil
	}

	var result interface{}
	var err error
	if invoker := tb.gw.newRetryInvoker(tb.req); invoker != nil {
		result, err = invoker.Invoke(ctx, invocation)
	} else {
		result, err = invocation()
	}
	if err != nil {
		tb.gw.metrics.ProposalFailures.With(tb.failLabels(err)...).Add(1)
		return err
	}

	tb.endorsed = result.(*fab.EndorsedTransaction)
	return nil
}

func (tb *TxBuilder) dispatch(ctx reqContext.Context) (*fab.EndorsedTransaction, error) {
	if tb.gw.provider != nil {
		return txn.SendProposalToGroups(ctx, tb.tx, tb.gw.provider)
	}
	return txn.SendProposal(ctx, tb.tx, tb.gw.endorsers)
}

func (tb *TxBuilder) submit(ctx reqContext.Context) error {
	if tb.endorsed == nil {
		return &txerrors.SequencingError{Message: "must propose before submit"}
	}

	tb.gw.metrics.Broadcasts.With(tb.labels()...).Add(1)
	if _, err := txn.Commit(ctx, tb.endorsed, tb.gw.requestor, tb.gw.orderers); err != nil {
		tb.gw.metrics.BroadcastFailures.With(tb.failLabels(err)...).Add(1)
		return err
	}

	tb.submitted = true
	return nil
}

func (tb *TxBuilder) waitForCommit(ctx reqContext.Context, timeout time.Duration) error {
	if !tb.submitted {
		return &txerrors.SequencingError{Message: "must submit before waiting for commit"}
	}
	if tb.gw.eventHub == nil {
		return txerrors.NewConfigurationError("gateway has no event peers to confirm the commit")
	}
	if timeout <= 0 {
		timeout = tb.gw.timeout
	}

	start := time.Now()
	committed, err := tb.gw.eventHub.CheckTransaction(ctx, tb.endorsed.TxID(), timeout)
	tb.gw.metrics.CommitWaitDuration.With(tb.labels()...).Observe(time.Since(start).Seconds())
	if err != nil {
		return err
	}

	tb.committed = committed
	return nil
}

func (tb *TxBuilder) labels() []string {
	return metrics.Labels(tb.req.ChaincodeID, tb.req.Fcn)
}

func (tb *TxBuilder) failLabels(err error) []string {
	return metrics.FailLabels(tb.req.ChaincodeID, tb.req.Fcn, failReason(err))
}
