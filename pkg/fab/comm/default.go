/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package comm

import (
	"context"
	"sync"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
)

// Connector dials GRPC connections to remote endpoints
type Connector interface {
	Dial(ctx context.Context, url string, opts ...Option) (*grpc.ClientConn, error)
}

var defaultConnector *CachingConnector
var defaultConnectorOnce sync.Once

// DefaultConnector returns the connector shared by endpoints that were not
// given one explicitly
func DefaultConnector() *CachingConnector {
	defaultConnectorOnce.Do(func() {
		defaultConnector = NewCachingConnector(DefaultCacheSize, DefaultExpiration)
	})
	return defaultConnector
}

// IsTransportError returns true if err is a GRPC status reporting that the
// remote endpoint could not be reached
func IsTransportError(err error) bool {
	s, ok := grpcstatus.FromError(err)
	if !ok {
		return false
	}
	switch s.Code() {
	case codes.Unavailable, codes.DeadlineExceeded, codes.Canceled:
		return true
	default:
		return false
	}
}
