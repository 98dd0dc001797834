/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package retry decides whether a failed step of the transaction flow should
// be attempted again. Retries are never applied implicitly: the gateway only
// consults a Handler when the caller configured one with WithRetry.
package retry

import (
	"time"

	"github.com/securekey/fabric-txflow/pkg/common/errors/status"
)

// Opts defines the retry parameters
type Opts struct {
	// Attempts the number retry attempts
	Attempts int
	// InitialBackoff the backoff interval for the first retry attempt
	InitialBackoff time.Duration
	// MaxBackoff the maximum backoff interval for any retry attempt
	MaxBackoff time.Duration
	// BackoffFactor the factor by which the InitialBackoff is exponentially
	// incremented for consecutive retry attempts.
	BackoffFactor float64
	// RetryableCodes defines the status codes, mapped by group, that warrant a retry.
	// Defaults to DefaultRetryableCodes.
	RetryableCodes map[status.Group][]status.Code
}

// Handler decides whether a retry is required for the given error
type Handler interface {
	Required(err error) bool
	// Backoff returns the delay to apply before the next attempt
	Backoff() time.Duration
}

type impl struct {
	opts    Opts
	retries int
}

// New retry Handler with the given opts
func New(opts Opts) Handler {
	if len(opts.RetryableCodes) == 0 {
		opts.RetryableCodes = DefaultRetryableCodes
	}
	return &impl{opts: opts}
}

// WithDefaults new retry Handler with default opts
func WithDefaults() Handler {
	return &impl{opts: DefaultOpts}
}

// WithAttempts new retry Handler with given attempts. Other opts are set to default.
func WithAttempts(attempts int) Handler {
	opts := DefaultOpts
	opts.Attempts = attempts
	return &impl{opts: opts}
}

// Required determines if retry is required for the given error and, if so,
// counts the attempt.
func (i *impl) Required(err error) bool {
	if i.retries >= i.opts.Attempts {
		return false
	}

	s, ok := status.FromError(err)
	if !ok || !i.isRetryable(s.Group, s.Code) {
		return false
	}

	i.retries++
	return true
}

// Backoff returns the backoff for the attempt most recently counted by Required
func (i *impl) Backoff() time.Duration {
	backoff, max := float64(i.opts.InitialBackoff), float64(i.opts.MaxBackoff)
	for j := 1; j < i.retries && backoff < max; j++ {
		backoff *= i.opts.BackoffFactor
	}
	if backoff > max {
		backoff = max
	}
	return time.Duration(backoff)
}

func (i *impl) isRetryable(g status.Group, c int32) bool {
	for _, code := range i.opts.RetryableCodes[g] {
		if status.Code(c) == code {
			return true
		}
	}
	return false
}
