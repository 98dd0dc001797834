/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package policy

import (
	"github.com/Knetic/govaluate"
	"github.com/pkg/errors"

	"github.com/securekey/fabric-txflow/pkg/common/errors/txerrors"
)

// FromString parses a policy expression such as
//
//  AND('Org1MSP.member', OR('Org2MSP.peer', 'Org3MSP.admin'))
//  OutOf(2, 'Org1MSP.member', 'Org2MSP.member', 'Org3MSP.member')
//
// Role references must be quoted.
func FromString(expr string) (*EndorsementPolicy, error) {
	functions := map[string]govaluate.ExpressionFunction{
		"AND":   nodeFunc(And),
		"and":   nodeFunc(And),
		"OR":    nodeFunc(Or),
		"or":    nodeFunc(Or),
		"OutOf": outOfFunc,
		"outof": outOfFunc,
	}

	expression, err := govaluate.NewEvaluableExpressionWithFunctions(expr, functions)
	if err != nil {
		return nil, txerrors.NewConfigurationError("unparsable policy: "+err.Error(), expr)
	}

	result, err := expression.Evaluate(nil)
	if err != nil {
		if txerrors.IsConfigurationError(err) {
			return nil, err
		}
		return nil, txerrors.NewConfigurationError("invalid policy: "+err.Error(), expr)
	}

	p, ok := result.(*EndorsementPolicy)
	if !ok {
		return nil, txerrors.NewConfigurationError("policy expression must be AND, OR or OutOf", expr)
	}
	return p, nil
}

func nodeFunc(e Expression) govaluate.ExpressionFunction {
	return func(args ...interface{}) (interface{}, error) {
		p := &EndorsementPolicy{Expr: e}
		if err := addRules(p, args); err != nil {
			return nil, err
		}
		return p, nil
	}
}

func outOfFunc(args ...interface{}) (interface{}, error) {
	if len(args) < 2 {
		return nil, txerrors.NewConfigurationError("OutOf expects a count followed by roles or policies")
	}

	var n int
	switch v := args[0].(type) {
	case float64:
		n = int(v)
		if float64(n) != v {
			return nil, txerrors.NewConfigurationError("OutOf count must be an integer")
		}
	case int:
		n = v
	default:
		return nil, txerrors.NewConfigurationError("OutOf count must be a number")
	}

	p := &EndorsementPolicy{Expr: OutOf, OutOf: n}
	if err := addRules(p, args[1:]); err != nil {
		return nil, err
	}
	return p, nil
}

func addRules(p *EndorsementPolicy, args []interface{}) error {
	for _, arg := range args {
		switch v := arg.(type) {
		case string:
			role, err := ParseRole(v)
			if err != nil {
				return err
			}
			if _, err := role.roleType(); err != nil {
				return err
			}
			p.Roles = append(p.Roles, role)
		case *EndorsementPolicy:
			p.Policies = append(p.Policies, v)
		default:
			return errors.Errorf("unexpected argument %v of type %T", arg, arg)
		}
	}
	return nil
}
