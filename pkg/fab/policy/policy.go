/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package policy models endorsement policies as boolean trees over MSP roles
// and maps them to the signature policy structures verified by the ledger.
package policy

import (
	"fmt"
	"sort"
	"strings"

	"github.com/golang/protobuf/proto"
	"github.com/hyperledger/fabric-protos-go/common"
	mb "github.com/hyperledger/fabric-protos-go/msp"
	"github.com/pkg/errors"

	"github.com/securekey/fabric-txflow/pkg/common/errors/txerrors"
)

// Expression is the boolean operator of a policy node
type Expression int

const (
	// And requires every role and sub-policy of the node
	And Expression = iota
	// Or requires exactly one role or sub-policy of the node
	Or
	// OutOf requires the node's explicit OutOf count
	OutOf
)

func (e Expression) String() string {
	switch e {
	case And:
		return "AND"
	case Or:
		return "OR"
	case OutOf:
		return "OutOf"
	default:
		return fmt.Sprintf("Expression(%d)", int(e))
	}
}

var roleTypes = map[string]mb.MSPRole_MSPRoleType{
	"member": mb.MSPRole_MEMBER,
	"admin":  mb.MSPRole_ADMIN,
	"client": mb.MSPRole_CLIENT,
	"peer":   mb.MSPRole_PEER,
}

// Role is an MSP role reference such as Org1MSP.member
type Role struct {
	MSPID string
	Role  string
}

// NewRole returns a role; the role name is lower-cased
func NewRole(mspID, role string) Role {
	return Role{MSPID: mspID, Role: strings.ToLower(role)}
}

// ParseRole parses "<mspid>.<role>"
func ParseRole(s string) (Role, error) {
	i := strings.LastIndex(s, ".")
	if i <= 0 || i == len(s)-1 {
		return Role{}, txerrors.NewConfigurationError("invalid role reference, expecting <mspid>.<role>", s)
	}
	return NewRole(s[:i], s[i+1:]), nil
}

func (r Role) String() string {
	return r.MSPID + "." + r.Role
}

func (r Role) less(o Role) bool {
	if r.MSPID != o.MSPID {
		return r.MSPID < o.MSPID
	}
	return r.Role < o.Role
}

func (r Role) roleType() (mb.MSPRole_MSPRoleType, error) {
	t, ok := roleTypes[r.Role]
	if !ok {
		return 0, txerrors.NewConfigurationError("unknown role", r.String())
	}
	return t, nil
}

// EndorsementPolicy is one node of an endorsement policy tree
type EndorsementPolicy struct {
	Expr Expression
	// OutOf is the required count of an OutOf node; zero means unset
	OutOf    int
	Roles    []Role
	Policies []*EndorsementPolicy
}

// NewAnd returns a policy requiring all roles and sub-policies
func NewAnd(roles []Role, policies ...*EndorsementPolicy) *EndorsementPolicy {
	return &EndorsementPolicy{Expr: And, Roles: roles, Policies: policies}
}

// NewOr returns a policy requiring any one of its roles or sub-policies
func NewOr(roles []Role, policies ...*EndorsementPolicy) *EndorsementPolicy {
	return &EndorsementPolicy{Expr: Or, Roles: roles, Policies: policies}
}

// NewOutOf returns a policy requiring n of its roles and sub-policies
func NewOutOf(n int, roles []Role, policies ...*EndorsementPolicy) *EndorsementPolicy {
	return &EndorsementPolicy{Expr: OutOf, OutOf: n, Roles: roles, Policies: policies}
}

// AllRoles returns the roles of the whole tree, deduplicated and sorted by
// MSP ID then role name. A role's position is its signature index.
func (p *EndorsementPolicy) AllRoles() []Role {
	seen := make(map[Role]struct{})
	p.collectRoles(seen)

	roles := make([]Role, 0, len(seen))
	for r := range seen {
		roles = append(roles, r)
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i].less(roles[j]) })
	return roles
}

func (p *EndorsementPolicy) collectRoles(seen map[Role]struct{}) {
	for _, r := range p.Roles {
		seen[r] = struct{}{}
	}
	for _, sub := range p.Policies {
		sub.collectRoles(seen)
	}
}

// requiredCount resolves how many of the node's rules must be satisfied
func (p *EndorsementPolicy) requiredCount() (int32, error) {
	rules := len(p.Roles) + len(p.Policies)
	if rules == 0 {
		return 0, txerrors.NewConfigurationError(fmt.Sprintf("%s policy has no roles or sub-policies", p.Expr))
	}

	switch p.Expr {
	case And:
		return int32(rules), nil
	case Or:
		return 1, nil
	case OutOf:
		if p.OutOf <= 0 {
			return 0, txerrors.NewConfigurationError("OutOf policy must supply out_of")
		}
		if p.OutOf > rules {
			return 0, txerrors.NewConfigurationError(fmt.Sprintf("OutOf policy requires %d of only %d rules", p.OutOf, rules))
		}
		return int32(p.OutOf), nil
	default:
		return 0, txerrors.NewConfigurationError("unrecognized policy expression", p.Expr.String())
	}
}

// Build returns the signature policy for p. Role indexes follow p.AllRoles()
// and are shared by every node of the tree.
func Build(p *EndorsementPolicy) (*common.SignaturePolicy, error) {
	if p == nil {
		return nil, txerrors.NewConfigurationError("endorsement policy is required")
	}

	index := make(map[Role]int32)
	for i, r := range p.AllRoles() {
		if _, err := r.roleType(); err != nil {
			return nil, err
		}
		index[r] = int32(i)
	}
	return build(p, index)
}

func build(p *EndorsementPolicy, index map[Role]int32) (*common.SignaturePolicy, error) {
	n, err := p.requiredCount()
	if err != nil {
		return nil, err
	}

	rules := make([]*common.SignaturePolicy, 0, len(p.Roles)+len(p.Policies))
	for _, r := range p.Roles {
		rules = append(rules, signedBy(index[r]))
	}
	for _, sub := range p.Policies {
		rule, err := build(sub, index)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}

	return nOutOf(n, rules...), nil
}

// Envelope returns the signature policy envelope for p, with one ROLE
// principal per entry of p.AllRoles().
func Envelope(p *EndorsementPolicy) (*common.SignaturePolicyEnvelope, error) {
	rule, err := Build(p)
	if err != nil {
		return nil, err
	}

	roles := p.AllRoles()
	identities := make([]*mb.MSPPrincipal, len(roles))
	for i, r := range roles {
		principal, err := newRolePrincipal(r)
		if err != nil {
			return nil, err
		}
		identities[i] = principal
	}

	return &common.SignaturePolicyEnvelope{
		Version:    0,
		Rule:       rule,
		Identities: identities,
	}, nil
}

func newRolePrincipal(r Role) (*mb.MSPPrincipal, error) {
	roleType, err := r.roleType()
	if err != nil {
		return nil, err
	}
	principal, err := proto.Marshal(&mb.MSPRole{Role: roleType, MspIdentifier: r.MSPID})
	if err != nil {
		return nil, errors.Wrap(err, "marshal of MSPRole failed")
	}
	return &mb.MSPPrincipal{
		PrincipalClassification: mb.MSPPrincipal_ROLE,
		Principal:               principal,
	}, nil
}

func signedBy(index int32) *common.SignaturePolicy {
	return &common.SignaturePolicy{
		Type: &common.SignaturePolicy_SignedBy{
			SignedBy: index,
		}}
}

func nOutOf(n int32, rules ...*common.SignaturePolicy) *common.SignaturePolicy {
	return &common.SignaturePolicy{
		Type: &common.SignaturePolicy_NOutOf_{
			NOutOf: &common.SignaturePolicy_NOutOf{
				N:     n,
				Rules: rules,
			}}}
}

// String renders p in the policy language accepted by FromString
func (p *EndorsementPolicy) String() string {
	args := make([]string, 0, len(p.Roles)+len(p.Policies)+1)
	if p.Expr == OutOf {
		args = append(args, fmt.Sprintf("%d", p.OutOf))
	}
	for _, r := range p.Roles {
		args = append(args, "'"+r.String()+"'")
	}
	for _, sub := range p.Policies {
		args = append(args, sub.String())
	}
	return p.Expr.String() + "(" + strings.Join(args, ", ") + ")"
}
