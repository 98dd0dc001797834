/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package orderer

import (
	reqContext "context"
	"crypto/x509"
	"io"

	"github.com/hyperledger/fabric-protos-go/common"
	ab "github.com/hyperledger/fabric-protos-go/orderer"
	"github.com/pkg/errors"

	"github.com/securekey/fabric-txflow/pkg/common/errors/status"
	"github.com/securekey/fabric-txflow/pkg/common/errors/txerrors"
	"github.com/securekey/fabric-txflow/pkg/common/logging"
	"github.com/securekey/fabric-txflow/pkg/common/providers/fab"
	"github.com/securekey/fabric-txflow/pkg/core/config"
	"github.com/securekey/fabric-txflow/pkg/fab/comm"
)

var logger = logging.NewLogger("fabtxflow/orderer")

// Orderer allows a client to broadcast a transaction.
type Orderer struct {
	url       string
	connOpts  []comm.Option
	connector comm.Connector
}

// Option describes a functional parameter for the New constructor
type Option func(*Orderer) error

// New Returns a Orderer instance
func New(opts ...Option) (*Orderer, error) {
	orderer := &Orderer{}
	for _, opt := range opts {
		if err := opt(orderer); err != nil {
			return nil, err
		}
	}

	if orderer.url == "" {
		return nil, errors.New("orderer URL is required")
	}
	if orderer.connector == nil {
		orderer.connector = comm.DefaultConnector()
	}
	return orderer, nil
}

// WithURL is a functional option for the orderer.New constructor that configures the orderer's URL.
func WithURL(url string) Option {
	return func(o *Orderer) error {
		o.url = url
		return nil
	}
}

// WithTLSCert is a functional option for the orderer.New constructor that configures the orderer's TLS certificate
func WithTLSCert(certificate *x509.Certificate) Option {
	return func(o *Orderer) error {
		o.connOpts = append(o.connOpts, comm.WithCertificate(certificate))
		return nil
	}
}

// WithServerName is a functional option for the orderer.New constructor that configures the orderer's server name
func WithServerName(serverName string) Option {
	return func(o *Orderer) error {
		o.connOpts = append(o.connOpts, comm.WithHostOverride(serverName))
		return nil
	}
}

// WithInsecure is a functional option for the orderer.New constructor that configures the orderer's grpc insecure option
func WithInsecure() Option {
	return func(o *Orderer) error {
		o.connOpts = append(o.connOpts, comm.WithInsecure())
		return nil
	}
}

// WithConnector sets the connector used to dial the orderer
func WithConnector(connector comm.Connector) Option {
	return func(o *Orderer) error {
		o.connector = connector
		return nil
	}
}

// WithConnectionOptions appends connection options
func WithConnectionOptions(opts ...comm.Option) Option {
	return func(o *Orderer) error {
		o.connOpts = append(o.connOpts, opts...)
		return nil
	}
}

// FromOrdererConfig is a functional option for the orderer.New constructor that configures a new orderer
// from a config.OrdererConfig struct
func FromOrdererConfig(ordererCfg *config.OrdererConfig) Option {
	return func(o *Orderer) error {
		o.url = ordererCfg.URL

		cert, ok, err := ordererCfg.TLSCACert.TLSCert()
		if err != nil {
			return errors.WithMessagef(err, "invalid TLS certificate for orderer %s", ordererCfg.URL)
		}
		if ok {
			o.connOpts = append(o.connOpts, comm.WithCertificate(cert))
		}
		o.connOpts = append(o.connOpts, comm.OptionsFromConfig(ordererCfg.GRPCOptions)...)
		return nil
	}
}

// URL Get the Orderer url. Required property for the instance objects.
func (o *Orderer) URL() string {
	return o.url
}

func (o *Orderer) String() string {
	return o.url
}

// SendBroadcast sends the envelope to the orderer and returns its response.
// A ConnectionError is returned when no response could be obtained.
func (o *Orderer) SendBroadcast(ctx reqContext.Context, envelope *common.Envelope) (*ab.BroadcastResponse, error) {
	conn, err := o.connector.Dial(ctx, o.url, o.connOpts...)
	if err != nil {
		return nil, txerrors.NewConnectionError(status.OrdererClientStatus, o.url, fab.EmptyTransactionID, err)
	}

	streamCtx, cancel := reqContext.WithCancel(ctx)
	defer cancel()

	broadcastClient, err := ab.NewAtomicBroadcastClient(conn).Broadcast(streamCtx)
	if err != nil {
		return nil, txerrors.NewConnectionError(status.OrdererClientStatus, o.url, fab.EmptyTransactionID, err)
	}

	if err := broadcastClient.Send(envelope); err != nil {
		return nil, txerrors.NewConnectionError(status.OrdererClientStatus, o.url, fab.EmptyTransactionID, err)
	}

	resp, err := broadcastClient.Recv()
	if err != nil {
		if err == io.EOF {
			err = errors.New("broadcast stream closed without response")
		}
		return nil, txerrors.NewConnectionError(status.OrdererClientStatus, o.url, fab.EmptyTransactionID, err)
	}

	if err := broadcastClient.CloseSend(); err != nil {
		logger.Debugf("unable to close broadcast client [%s]", err)
	}

	logger.Debugf("Orderer %s answered broadcast with %s", o.url, resp.Status)
	return resp, nil
}

// SendDeliver sends a deliver request to the ordering service and streams the
// blocks received. The block channel is closed when the stream ends; at most
// one error is sent on the error channel.
func (o *Orderer) SendDeliver(ctx reqContext.Context, envelope *common.Envelope) (<-chan *common.Block, <-chan error) {
	blocks := make(chan *common.Block)
	errs := make(chan error, 1)

	go func() {
		defer close(errs)
		defer close(blocks)

		if err := o.deliver(ctx, envelope, blocks); err != nil {
			if ctx.Err() != nil {
				logger.Debugf("Deliver stream from %s closed by client", o.url)
				return
			}
			errs <- err
		}
	}()

	return blocks, errs
}

func (o *Orderer) deliver(ctx reqContext.Context, envelope *common.Envelope, blocks chan<- *common.Block) error {
	conn, err := o.connector.Dial(ctx, o.url, o.connOpts...)
	if err != nil {
		return txerrors.NewConnectionError(status.OrdererClientStatus, o.url, fab.EmptyTransactionID, err)
	}

	streamCtx, cancel := reqContext.WithCancel(ctx)
	defer cancel()

	stream, err := ab.NewAtomicBroadcastClient(conn).Deliver(streamCtx)
	if err != nil {
		return txerrors.NewConnectionError(status.OrdererClientStatus, o.url, fab.EmptyTransactionID, err)
	}

	if err := stream.Send(envelope); err != nil {
		return txerrors.NewConnectionError(status.OrdererClientStatus, o.url, fab.EmptyTransactionID, err)
	}
	if err := stream.CloseSend(); err != nil {
		logger.Debugf("unable to close deliver client [%s]", err)
	}

	for {
		resp, err := stream.Recv()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return txerrors.NewConnectionError(status.OrdererClientStatus, o.url, fab.EmptyTransactionID, err)
		}

		switch t := resp.Type.(type) {
		case *ab.DeliverResponse_Block:
			select {
			case blocks <- t.Block:
			case <-ctx.Done():
				return ctx.Err()
			}
		case *ab.DeliverResponse_Status:
			if t.Status != common.Status_SUCCESS {
				return &txerrors.BlockRetrievalError{Endpoint: o.url, Code: t.Status}
			}
			return nil
		default:
			return errors.Errorf("unknown response type from ordering service %T", resp.Type)
		}
	}
}
