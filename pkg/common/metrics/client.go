/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package metrics

import (
	kitmetrics "github.com/go-kit/kit/metrics"
)

const subsystem = "gateway"

var (
	proposals = CounterOpts{
		Subsystem:  subsystem,
		Name:       "proposals_total",
		Help:       "The number of transaction proposals sent to endorsers.",
		LabelNames: []string{"chaincode", "fcn"},
	}
	proposalFailures = CounterOpts{
		Subsystem:  subsystem,
		Name:       "proposal_failures_total",
		Help:       "The number of transaction proposals that were not endorsed.",
		LabelNames: []string{"chaincode", "fcn", "fail"},
	}
	broadcasts = CounterOpts{
		Subsystem:  subsystem,
		Name:       "broadcasts_total",
		Help:       "The number of endorsed transactions submitted for ordering.",
		LabelNames: []string{"chaincode", "fcn"},
	}
	broadcastFailures = CounterOpts{
		Subsystem:  subsystem,
		Name:       "broadcast_failures_total",
		Help:       "The number of submissions rejected by or not delivered to the orderers.",
		LabelNames: []string{"chaincode", "fcn", "fail"},
	}
	commitWaitDuration = HistogramOpts{
		Subsystem:  subsystem,
		Name:       "commit_wait_duration_seconds",
		Help:       "The time spent waiting for a transaction to be committed.",
		LabelNames: []string{"chaincode", "fcn"},
	}
	transactionDuration = HistogramOpts{
		Subsystem:  subsystem,
		Name:       "transactions_duration_seconds",
		Help:       "The time to run a transaction flow end to end.",
		LabelNames: []string{"chaincode", "fcn"},
	}
)

// ClientMetrics contains the instruments of the transaction flow
type ClientMetrics struct {
	Proposals           kitmetrics.Counter
	ProposalFailures    kitmetrics.Counter
	Broadcasts          kitmetrics.Counter
	BroadcastFailures   kitmetrics.Counter
	CommitWaitDuration  kitmetrics.Histogram
	TransactionDuration kitmetrics.Histogram
}

// NewClientMetrics creates the flow instruments from p
func NewClientMetrics(p Provider) *ClientMetrics {
	return &ClientMetrics{
		Proposals:           p.NewCounter(proposals),
		ProposalFailures:    p.NewCounter(proposalFailures),
		Broadcasts:          p.NewCounter(broadcasts),
		BroadcastFailures:   p.NewCounter(broadcastFailures),
		CommitWaitDuration:  p.NewHistogram(commitWaitDuration),
		TransactionDuration: p.NewHistogram(transactionDuration),
	}
}

// NewDisabledClientMetrics returns flow instruments that record nothing
func NewDisabledClientMetrics() *ClientMetrics {
	return NewClientMetrics(DisabledProvider{})
}

// Labels returns the label values identifying a chaincode function
func Labels(chaincodeID, fcn string) []string {
	return []string{"chaincode", chaincodeID, "fcn", fcn}
}

// FailLabels returns Labels plus the failure reason
func FailLabels(chaincodeID, fcn, reason string) []string {
	return append(Labels(chaincodeID, fcn), "fail", reason)
}
