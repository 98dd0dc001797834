/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package comm

import (
	"context"
	"sync"
	"time"

	"github.com/bluele/gcache"
	"github.com/pkg/errors"
	"google.golang.org/grpc"
	"google.golang.org/grpc/connectivity"

	"github.com/securekey/fabric-txflow/pkg/common/logging"
	"github.com/securekey/fabric-txflow/pkg/core/config/endpoint"
)

var logger = logging.NewLogger("fabtxflow/comm")

const (
	// DefaultCacheSize is the number of connections kept open by default
	DefaultCacheSize = 100
	// DefaultExpiration is how long a connection stays cached by default
	DefaultExpiration = 10 * time.Minute
)

// CachingConnector dials GRPC connections and caches them by target.
// Connections are closed when they are evicted from the cache, either because
// the cache is full or because they expired.
//
// This component is safe for concurrent use.
type CachingConnector struct {
	lock   sync.Mutex
	conns  gcache.Cache
	closed bool
}

// NewCachingConnector creates a connection cache holding at most size
// connections. A zero expiration keeps connections until they are evicted by size.
func NewCachingConnector(size int, expiration time.Duration) *CachingConnector {
	if size <= 0 {
		size = DefaultCacheSize
	}

	builder := gcache.New(size).LRU().
		EvictedFunc(func(key, value interface{}) {
			logger.Debugf("connection evicted [%s]", key)
			closeConn(value.(*grpc.ClientConn))
		})
	if expiration > 0 {
		builder = builder.Expiration(expiration)
	}

	return &CachingConnector{conns: builder.Build()}
}

// Dial returns a connection to url. url may carry a grpc:// or grpcs:// prefix
// which selects the transport security.
func (cc *CachingConnector) Dial(ctx context.Context, url string, opts ...Option) (*grpc.ClientConn, error) {
	if url == "" {
		return nil, errors.New("server URL not specified")
	}

	p := defaultParams()
	for _, opt := range opts {
		opt(p)
	}

	dialOpts, err := newDialOpts(url, p)
	if err != nil {
		return nil, err
	}

	dialCtx, cancel := context.WithTimeout(ctx, p.connectTimeout)
	defer cancel()

	return cc.DialContext(dialCtx, endpoint.ToAddress(url), dialOpts...)
}

// DialContext is a wrapper for grpc.DialContext where connections are cached.
func (cc *CachingConnector) DialContext(ctx context.Context, target string, opts ...grpc.DialOption) (*grpc.ClientConn, error) {
	if conn, ok := cc.loadConn(target); ok {
		return conn, nil
	}

	logger.Debugf("creating connection [%s]", target)
	conn, err := grpc.DialContext(ctx, target, append(opts, grpc.WithBlock())...)
	if err != nil {
		return nil, errors.Wrapf(err, "dialing connection failed [%s]", target)
	}

	cc.lock.Lock()
	defer cc.lock.Unlock()

	if cc.closed {
		closeConn(conn)
		return nil, errors.New("connector is closed")
	}

	// another caller may have connected in the meantime
	if existing, err := cc.conns.GetIFPresent(target); err == nil {
		existingConn := existing.(*grpc.ClientConn)
		if existingConn.GetState() != connectivity.Shutdown {
			closeConn(conn)
			return existingConn, nil
		}
	}

	if err := cc.conns.Set(target, conn); err != nil {
		closeConn(conn)
		return nil, errors.Wrapf(err, "caching connection failed [%s]", target)
	}
	return conn, nil
}

// Close closes all cached connections. The connector may not be used afterwards.
func (cc *CachingConnector) Close() {
	cc.lock.Lock()
	defer cc.lock.Unlock()

	if cc.closed {
		logger.Warn("Trying to close connector after already closed")
		return
	}
	cc.closed = true

	logger.Debug("closing caching GRPC connector")
	for _, key := range cc.conns.Keys() {
		cc.conns.Remove(key)
	}
}

// Len returns the number of cached connections
func (cc *CachingConnector) Len() int {
	return cc.conns.Len()
}

func (cc *CachingConnector) loadConn(target string) (*grpc.ClientConn, bool) {
	cc.lock.Lock()
	defer cc.lock.Unlock()

	value, err := cc.conns.GetIFPresent(target)
	if err != nil {
		return nil, false
	}

	conn := value.(*grpc.ClientConn)
	if conn.GetState() == connectivity.Shutdown {
		logger.Debugf("removing shutdown connection [%s]", target)
		cc.conns.Remove(target)
		return nil, false
	}

	logger.Debugf("using cached connection [%s]", target)
	return conn, true
}

func closeConn(conn *grpc.ClientConn) {
	if err := conn.Close(); err != nil {
		logger.Debugf("unable to close connection [%s]", err)
	}
}
