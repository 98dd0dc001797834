/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package retry

import (
	reqContext "context"
	"time"

	"github.com/pkg/errors"

	"github.com/securekey/fabric-txflow/pkg/common/errors/multi"
	"github.com/securekey/fabric-txflow/pkg/common/logging"
)

var logger = logging.NewLogger("fabtxflow/retry")

// Invocation is the function to be invoked.
type Invocation func() (interface{}, error)

// BeforeRetryHandler is a function that's invoked before a retry attempt.
type BeforeRetryHandler func(error)

// RetryableInvoker invokes a function and retries it on transient errors.
type RetryableInvoker struct {
	handler     Handler
	beforeRetry BeforeRetryHandler
}

// InvokerOpt is an invoker option
type InvokerOpt func(invoker *RetryableInvoker)

// WithBeforeRetry specifies a function to call before a retry attempt
func WithBeforeRetry(beforeRetry BeforeRetryHandler) InvokerOpt {
	return func(invoker *RetryableInvoker) {
		invoker.beforeRetry = beforeRetry
	}
}

// NewInvoker creates a new RetryableInvoker
func NewInvoker(handler Handler, opts ...InvokerOpt) *RetryableInvoker {
	invoker := &RetryableInvoker{handler: handler}
	for _, opt := range opts {
		opt(invoker)
	}
	return invoker
}

// Invoke calls invocation until it succeeds, the handler declines a retry, or
// ctx is done. The backoff between attempts is interrupted by ctx.
func (ri *RetryableInvoker) Invoke(ctx reqContext.Context, invocation Invocation) (interface{}, error) {
	for attempt := 1; ; attempt++ {
		retval, err := invocation()
		if err == nil {
			if attempt > 1 {
				logger.Debugf("Succeeded on attempt #%d", attempt)
			}
			return retval, nil
		}

		if !ri.resolveRetry(err) {
			logger.Debugf("Retry for err [%s] is not warranted after %d attempt(s)", err, attempt)
			return nil, err
		}

		backoff := ri.handler.Backoff()
		logger.Debugf("Retrying after %s on err [%s]", backoff, err)

		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return nil, errors.Wrapf(err, "retry abandoned: %s", ctx.Err())
		}
	}
}

func (ri *RetryableInvoker) resolveRetry(err error) bool {
	errs, ok := errors.Cause(err).(multi.Errors)
	if !ok {
		errs = multi.Errors{err}
	}
	for _, e := range errs {
		if ri.handler.Required(e) {
			if ri.beforeRetry != nil {
				ri.beforeRetry(err)
			}
			return true
		}
	}
	return false
}
