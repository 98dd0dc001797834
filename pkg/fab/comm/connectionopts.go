/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package comm

import (
	"crypto/tls"
	"crypto/x509"
	"time"

	"github.com/spf13/cast"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/keepalive"

	"github.com/securekey/fabric-txflow/pkg/core/config/endpoint"
)

const defaultConnectTimeout = 3 * time.Second

type params struct {
	hostOverride    string
	certificate     *x509.Certificate
	keepAliveParams keepalive.ClientParameters
	failFast        bool
	insecure        bool
	connectTimeout  time.Duration
}

func defaultParams() *params {
	return &params{
		failFast:       true,
		connectTimeout: defaultConnectTimeout,
	}
}

// Option sets a connection parameter
type Option func(p *params)

// WithHostOverride sets the host name that will be used to resolve the TLS certificate
func WithHostOverride(value string) Option {
	return func(p *params) {
		logger.Debugf("HostOverride: %s", value)
		p.hostOverride = value
	}
}

// WithCertificate sets the X509 certificate used for the TLS connection
func WithCertificate(value *x509.Certificate) Option {
	return func(p *params) {
		if value != nil {
			logger.Debugf("setting certificate [subject: %s, serial: %s]", value.Subject, value.SerialNumber)
		}
		p.certificate = value
	}
}

// WithKeepAliveParams sets the GRPC keep-alive parameters
func WithKeepAliveParams(value keepalive.ClientParameters) Option {
	return func(p *params) {
		p.keepAliveParams = value
	}
}

// WithFailFast sets the GRPC fail-fast parameter
func WithFailFast(value bool) Option {
	return func(p *params) {
		p.failFast = value
	}
}

// WithConnectTimeout sets the GRPC connection timeout
func WithConnectTimeout(value time.Duration) Option {
	return func(p *params) {
		if value > 0 {
			p.connectTimeout = value
		}
	}
}

// WithInsecure indicates to fall back to an insecure connection if the
// connection URL does not specify a protocol
func WithInsecure() Option {
	return func(p *params) {
		p.insecure = true
	}
}

// OptionsFromConfig converts the grpcOptions section of a peer or orderer
// config into connection options.
func OptionsFromConfig(grpcOptions map[string]interface{}) []Option {
	var opts []Option

	if v, ok := grpcOptions["ssl-target-name-override"]; ok {
		opts = append(opts, WithHostOverride(cast.ToString(v)))
	}
	if v, ok := grpcOptions["fail-fast"]; ok {
		opts = append(opts, WithFailFast(cast.ToBool(v)))
	}
	if v, ok := grpcOptions["allow-insecure"]; ok && cast.ToBool(v) {
		opts = append(opts, WithInsecure())
	}
	if v, ok := grpcOptions["connect-timeout"]; ok {
		opts = append(opts, WithConnectTimeout(cast.ToDuration(v)))
	}

	kap := keepalive.ClientParameters{}
	if v, ok := grpcOptions["keep-alive-time"]; ok {
		kap.Time = cast.ToDuration(v)
	}
	if v, ok := grpcOptions["keep-alive-timeout"]; ok {
		kap.Timeout = cast.ToDuration(v)
	}
	if v, ok := grpcOptions["keep-alive-permit"]; ok {
		kap.PermitWithoutStream = cast.ToBool(v)
	}
	if kap.Time > 0 || kap.Timeout > 0 || kap.PermitWithoutStream {
		opts = append(opts, WithKeepAliveParams(kap))
	}

	return opts
}

func newDialOpts(url string, p *params) ([]grpc.DialOption, error) {
	var dialOpts []grpc.DialOption

	if p.keepAliveParams.Time > 0 || p.keepAliveParams.Timeout > 0 {
		dialOpts = append(dialOpts, grpc.WithKeepaliveParams(p.keepAliveParams))
	}
	dialOpts = append(dialOpts, grpc.WithDefaultCallOptions(grpc.WaitForReady(!p.failFast)))

	if endpoint.AttemptSecured(url, p.insecure) {
		tlsConfig, err := newTLSConfig(p.certificate, p.hostOverride)
		if err != nil {
			return nil, err
		}
		logger.Debugf("Creating a secure connection to [%s] with TLS HostOverride [%s]", url, p.hostOverride)
		dialOpts = append(dialOpts, grpc.WithTransportCredentials(credentials.NewTLS(tlsConfig)))
	} else {
		logger.Debugf("Creating an insecure connection [%s]", url)
		dialOpts = append(dialOpts, grpc.WithInsecure())
	}

	return dialOpts, nil
}

func newTLSConfig(cert *x509.Certificate, serverName string) (*tls.Config, error) {
	pool, err := x509.SystemCertPool()
	if err != nil {
		logger.Debugf("System cert pool unavailable: %s", err)
		pool = x509.NewCertPool()
	}
	if cert != nil {
		pool.AddCert(cert)
	}
	return &tls.Config{RootCAs: pool, ServerName: serverName}, nil
}
