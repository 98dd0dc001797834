/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package retry

import (
	reqContext "context"
	"fmt"
	"testing"
	"time"

	"github.com/hyperledger/fabric-protos-go/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/securekey/fabric-txflow/pkg/common/errors/multi"
	"github.com/securekey/fabric-txflow/pkg/common/errors/status"
)

var testOpts = Opts{
	Attempts:       3,
	BackoffFactor:  2,
	InitialBackoff: time.Millisecond,
	MaxBackoff:     10 * time.Millisecond,
	RetryableCodes: TestRetryableCodes,
}

func transientErr() error {
	return status.New(status.TestStatus, status.GenericTransient.ToInt32(), "transient", nil)
}

func TestRetryRequired(t *testing.T) {
	nonTransient := status.New(status.EndorserServerStatus, int32(common.Status_BAD_REQUEST), "", nil)

	r := New(testOpts)
	for i := 1; i <= testOpts.Attempts; i++ {
		assert.True(t, r.Required(transientErr()))
	}
	assert.False(t, r.Required(transientErr()), "attempts exhausted")

	assert.False(t, WithDefaults().Required(nonTransient))
	assert.False(t, WithAttempts(2).Required(fmt.Errorf("unknown")))

	unavailable := status.New(status.EndorserServerStatus, int32(common.Status_SERVICE_UNAVAILABLE), "", nil)
	assert.True(t, WithDefaults().Required(unavailable))
}

func TestBackoff(t *testing.T) {
	r := New(Opts{
		Attempts:       10,
		BackoffFactor:  3,
		InitialBackoff: time.Second,
		MaxBackoff:     5 * time.Second,
	}).(*impl)

	r.retries = 1
	assert.Equal(t, time.Second, r.Backoff())
	r.retries = 2
	assert.Equal(t, 3*time.Second, r.Backoff())
	r.retries = 3
	assert.Equal(t, 5*time.Second, r.Backoff(), "capped at max backoff")
}

func TestInvoker(t *testing.T) {
	calls := 0
	beforeRetry := 0
	invoker := NewInvoker(New(testOpts), WithBeforeRetry(func(error) { beforeRetry++ }))

	val, err := invoker.Invoke(reqContext.Background(), func() (interface{}, error) {
		calls++
		if calls < 3 {
			return nil, transientErr()
		}
		return "done", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "done", val)
	assert.Equal(t, 3, calls)
	assert.Equal(t, 2, beforeRetry)
}

func TestInvokerMultiErrors(t *testing.T) {
	calls := 0
	invoker := NewInvoker(New(testOpts))

	_, err := invoker.Invoke(reqContext.Background(), func() (interface{}, error) {
		calls++
		return nil, multi.New(fmt.Errorf("permanent"), transientErr())
	})
	require.Error(t, err)
	assert.Equal(t, testOpts.Attempts+1, calls)
}

func TestInvokerNotRetryable(t *testing.T) {
	calls := 0
	invoker := NewInvoker(New(testOpts))

	_, err := invoker.Invoke(reqContext.Background(), func() (interface{}, error) {
		calls++
		return nil, fmt.Errorf("permanent")
	})
	assert.EqualError(t, err, "permanent")
	assert.Equal(t, 1, calls)
}

func TestInvokerContextDone(t *testing.T) {
	ctx, cancel := reqContext.WithCancel(reqContext.Background())
	cancel()

	invoker := NewInvoker(New(Opts{Attempts: 5, InitialBackoff: time.Minute, MaxBackoff: time.Minute, BackoffFactor: 1, RetryableCodes: TestRetryableCodes}))
	_, err := invoker.Invoke(ctx, func() (interface{}, error) {
		return nil, transientErr()
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "retry abandoned")
}
