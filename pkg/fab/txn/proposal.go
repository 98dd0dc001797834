/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package txn

import (
	reqContext "context"
	"sync"

	"github.com/pkg/errors"

	"github.com/securekey/fabric-txflow/pkg/common/errors/multi"
	"github.com/securekey/fabric-txflow/pkg/common/errors/txerrors"
	"github.com/securekey/fabric-txflow/pkg/common/providers/fab"
)

// SendProposal sends the signed proposal of tx to every target concurrently and
// waits for all of them. A target that fails is recorded as a failed response.
// An error is returned only when every target failed with a connection error.
func SendProposal(ctx reqContext.Context, tx *fab.GeneratedTransaction, targets []fab.ProposalProcessor) (*fab.EndorsedTransaction, error) {
	if tx == nil || tx.SignedProposal == nil {
		return nil, errors.New("signed proposal is required")
	}
	if len(targets) == 0 {
		return nil, txerrors.NewConfigurationError("at least one endorsing peer is required")
	}
	for _, p := range targets {
		if p == nil {
			return nil, txerrors.NewConfigurationError("endorsing peer is nil")
		}
	}

	responses := make([]*fab.TransactionProposalResponse, len(targets))

	var wg sync.WaitGroup
	for i, p := range targets {
		wg.Add(1)
		go func(i int, processor fab.ProposalProcessor) {
			defer wg.Done()
			responses[i] = processProposal(ctx, tx, processor)
		}(i, p)
	}
	wg.Wait()

	endorsed := &fab.EndorsedTransaction{Transaction: tx, Responses: responses}

	var errs multi.Errors
	for _, r := range responses {
		if r.Err == nil || !txerrors.IsConnectionError(r.Err) {
			return endorsed, nil
		}
		errs = append(errs, r.Err)
	}

	logger.Debugf("No endorser could be reached for transaction %s", tx.Context.ID)
	return nil, errs.ToError()
}

// SendProposalToGroups asks the provider for the endorsing groups of this
// attempt and runs, for every group, one first-success search per required
// endorsement over the group's shared candidates. All searches run
// concurrently. A search that finds no success yields the last failed
// response; a search with no candidate at all fails the dispatch.
func SendProposalToGroups(ctx reqContext.Context, tx *fab.GeneratedTransaction, provider fab.EndorserProvider) (*fab.EndorsedTransaction, error) {
	if tx == nil || tx.SignedProposal == nil {
		return nil, errors.New("signed proposal is required")
	}
	if provider == nil {
		return nil, txerrors.NewConfigurationError("endorser provider is required")
	}

	groups := provider.EndorsingGroups()
	if len(groups) == 0 {
		return nil, txerrors.NewConfigurationError("endorser provider returned no endorsing groups")
	}

	type slot struct {
		group string
		resp  *fab.TransactionProposalResponse
	}

	var slots []*slot
	var wg sync.WaitGroup
	for _, g := range groups {
		for i := 0; i < g.Required; i++ {
			s := &slot{group: g.Group}
			slots = append(slots, s)

			wg.Add(1)
			go func(candidates fab.CandidateSource) {
				defer wg.Done()
				s.resp = firstSuccess(ctx, tx, candidates)
			}(g.Candidates)
		}
	}
	wg.Wait()

	var exhausted []string
	responses := make([]*fab.TransactionProposalResponse, 0, len(slots))
	for _, s := range slots {
		if s.resp == nil {
			exhausted = append(exhausted, s.group)
			continue
		}
		responses = append(responses, s.resp)
	}
	if len(exhausted) > 0 {
		return nil, txerrors.NewConfigurationError("not enough candidate peers in endorsing group", dedupe(exhausted)...)
	}

	return &fab.EndorsedTransaction{Transaction: tx, Responses: responses}, nil
}

// firstSuccess returns the first successful response from the candidates, the
// last failure if none succeeded, or nil if there was no candidate.
func firstSuccess(ctx reqContext.Context, tx *fab.GeneratedTransaction, candidates fab.CandidateSource) *fab.TransactionProposalResponse {
	var last *fab.TransactionProposalResponse
	for {
		peer, ok := candidates.Next()
		if !ok {
			return last
		}
		resp := processProposal(ctx, tx, peer)
		if resp.Succeeded() {
			return resp
		}
		logger.Debugf("Endorser %s did not endorse transaction %s, trying next candidate", peer.URL(), tx.Context.ID)
		last = resp
	}
}

func processProposal(ctx reqContext.Context, tx *fab.GeneratedTransaction, processor fab.ProposalProcessor) *fab.TransactionProposalResponse {
	resp, err := processor.ProcessTransactionProposal(ctx, tx.SignedProposal)
	if err != nil {
		logger.Debugf("Received error response from txn proposal processing: %s", err)
		return &fab.TransactionProposalResponse{Endorser: processor.URL(), Err: withTxID(err, tx.Context.ID)}
	}
	if resp == nil {
		return &fab.TransactionProposalResponse{Endorser: processor.URL(), Err: errors.Errorf("endorser %s returned no response", processor.URL())}
	}
	return resp
}

// withTxID records the transaction ID on connection errors raised below this layer
func withTxID(err error, txID fab.TransactionID) error {
	if ce, ok := errors.Cause(err).(*txerrors.ConnectionError); ok && ce.TxID == fab.EmptyTransactionID {
		ce.TxID = txID
	}
	return err
}

func dedupe(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	var unique []string
	for _, n := range names {
		if _, ok := seen[n]; !ok {
			seen[n] = struct{}{}
			unique = append(unique, n)
		}
	}
	return unique
}
