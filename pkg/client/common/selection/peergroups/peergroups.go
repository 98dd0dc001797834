/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package peergroups selects endorsing peers when the endorsement requirement
// is expressed as named groups of peers and one or more layouts, each layout
// mapping group names to the number of endorsements required from that group.
//
// Every call to EndorsingGroups moves to the next layout and, for each group
// of that layout, returns a lazy candidate sequence drawn from the group's own
// rotation. Sequences handed out by different calls never share a position.
package peergroups

import (
	"fmt"
	"sort"
	"sync"

	"github.com/securekey/fabric-txflow/pkg/common/errors/txerrors"
	"github.com/securekey/fabric-txflow/pkg/common/logging"
	"github.com/securekey/fabric-txflow/pkg/common/providers/fab"
)

var logger = logging.NewLogger("fabtxflow/peergroups")

// PeerGroup is a named set of candidate peers
type PeerGroup struct {
	Name  string
	Peers []fab.Peer
}

// Layout maps group names to the number of endorsements required from the group
type Layout map[string]int

// Cursors is a snapshot of the rotation state
type Cursors struct {
	Layout int
	Groups map[string]int
}

// Provider rotates through layouts and through the peers of each group.
// It is safe for concurrent use.
type Provider struct {
	mutex        sync.Mutex
	groups       map[string][]fab.Peer
	layouts      []Layout
	layoutCursor int
	groupCursors map[string]int
}

// New validates the groups and layouts and returns a Provider. Duplicate group
// names, layouts that reference undeclared groups and non-positive counts are
// rejected, as is an empty layout list.
func New(groups []PeerGroup, layouts []Layout) (*Provider, error) {
	p := &Provider{
		groups:       make(map[string][]fab.Peer, len(groups)),
		groupCursors: make(map[string]int, len(groups)),
	}

	var dups []string
	for _, g := range groups {
		if _, exists := p.groups[g.Name]; exists {
			dups = append(dups, g.Name)
			continue
		}
		p.groups[g.Name] = g.Peers
		p.groupCursors[g.Name] = 0
	}
	if len(dups) > 0 {
		return nil, txerrors.NewConfigurationError("duplicate group names found in endorsement config", dedupe(dups)...)
	}

	if len(layouts) == 0 {
		return nil, txerrors.NewConfigurationError("at least one layout is required")
	}

	var missing, invalid []string
	for _, layout := range layouts {
		for name, count := range layout {
			if _, ok := p.groups[name]; !ok {
				missing = append(missing, name)
			}
			if count < 1 {
				invalid = append(invalid, fmt.Sprintf("%s=%d", name, count))
			}
		}
	}
	if len(missing) > 0 {
		return nil, txerrors.NewConfigurationError("missing groups in endorsement config", dedupe(missing)...)
	}
	if len(invalid) > 0 {
		return nil, txerrors.NewConfigurationError("layout counts must be at least 1", dedupe(invalid)...)
	}

	p.layouts = make([]Layout, len(layouts))
	for i, layout := range layouts {
		p.layouts[i] = copyLayout(layout)
	}

	return p, nil
}

// EndorsingGroups advances to the next layout and returns one EndorsingGroup
// per group of that layout, ordered by group name. Each group's cursor moves
// by one, so consecutive calls start their candidates at different peers.
func (p *Provider) EndorsingGroups() []*fab.EndorsingGroup {
	p.mutex.Lock()
	layout := p.layouts[p.layoutCursor]
	p.layoutCursor = (p.layoutCursor + 1) % len(p.layouts)

	names := make([]string, 0, len(layout))
	for name := range layout {
		names = append(names, name)
	}
	sort.Strings(names)

	groups := make([]*fab.EndorsingGroup, len(names))
	for i, name := range names {
		groups[i] = &fab.EndorsingGroup{
			Group:      name,
			Required:   layout[name],
			Candidates: p.candidates(name),
		}
	}
	p.mutex.Unlock()

	logger.Debugf("Providing endorsing groups %v", names)
	return groups
}

// candidates snapshots the group's cursor into a new sequence and advances
// the cursor. The caller holds the mutex.
func (p *Provider) candidates(group string) *CandidateSequence {
	peers := p.groups[group]
	start := p.groupCursors[group]
	if len(peers) > 0 {
		p.groupCursors[group] = (start + 1) % len(peers)
	}
	return &CandidateSequence{peers: peers, start: start, yielded: make(map[string]struct{})}
}

// Cursors returns the current rotation state
func (p *Provider) Cursors() Cursors {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	c := Cursors{Layout: p.layoutCursor, Groups: make(map[string]int, len(p.groupCursors))}
	for name, cursor := range p.groupCursors {
		c.Groups[name] = cursor
	}
	return c
}

// Reset moves every cursor back to the start
func (p *Provider) Reset() {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	p.layoutCursor = 0
	for name := range p.groupCursors {
		p.groupCursors[name] = 0
	}
}

// CandidateSequence lazily yields the distinct peers of a group, starting at
// the peer under the group's cursor when the sequence was created. It ends
// once the whole group has been cycled through. It is safe for concurrent
// use; each peer is yielded at most once.
type CandidateSequence struct {
	mutex   sync.Mutex
	peers   []fab.Peer
	start   int
	pulled  int
	yielded map[string]struct{}
}

// Next returns the next candidate, or false when the sequence is exhausted
func (s *CandidateSequence) Next() (fab.Peer, bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for s.pulled < len(s.peers) {
		peer := s.peers[(s.start+s.pulled)%len(s.peers)]
		s.pulled++
		if _, seen := s.yielded[peer.URL()]; seen {
			continue
		}
		s.yielded[peer.URL()] = struct{}{}
		return peer, true
	}
	return nil, false
}

func copyLayout(l Layout) Layout {
	c := make(Layout, len(l))
	for k, v := range l {
		c[k] = v
	}
	return c
}

func dedupe(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	var result []string
	for _, n := range names {
		if _, ok := seen[n]; !ok {
			seen[n] = struct{}{}
			result = append(result, n)
		}
	}
	sort.Strings(result)
	return result
}
