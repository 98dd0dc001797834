/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package multi aggregates the errors of an operation that fans out to several
// nodes, such as a proposal sent to many endorsers.
package multi

import (
	"strings"
)

// Errors holds the errors collected from several nodes
type Errors []error

// New returns nil when every given error is nil, the error itself when only
// one is non-nil, and an Errors otherwise.
func New(errs ...error) error {
	var m Errors
	for _, err := range errs {
		if err != nil {
			m = append(m, err)
		}
	}
	return m.ToError()
}

// Append adds err to errs. If errs is not an Errors it is wrapped in one.
func Append(errs error, err error) error {
	m, ok := errs.(Errors)
	if !ok {
		return New(errs, err)
	}
	if err == nil {
		return errs
	}
	return append(m, err)
}

// Last returns the final error held by errs, or errs itself if it is not an Errors
func Last(errs error) error {
	if m, ok := errs.(Errors); ok {
		if len(m) == 0 {
			return nil
		}
		return m[len(m)-1]
	}
	return errs
}

// ToError returns nil, the single error or errs depending on how many errors are held
func (errs Errors) ToError() error {
	switch len(errs) {
	case 0:
		return nil
	case 1:
		return errs[0]
	default:
		return errs
	}
}

func (errs Errors) Error() string {
	switch len(errs) {
	case 0:
		return ""
	case 1:
		return errs[0].Error()
	}

	msgs := make([]string, 0, len(errs)+1)
	msgs = append(msgs, "Multiple errors occurred:")
	for _, err := range errs {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, " - ")
}
