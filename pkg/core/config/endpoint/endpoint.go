/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package endpoint

import (
	"crypto/x509"
	"encoding/pem"
	"io/ioutil"
	"regexp"
	"strings"

	"github.com/pkg/errors"
)

var securedProtocol = regexp.MustCompile("^(?i)[a-z]+s://")

// IsTLSEnabled is a generic function that expects a URL and verifies if it has
// a prefix HTTPS or GRPCS to return true for TLS Enabled URLs or false otherwise
func IsTLSEnabled(url string) bool {
	tlsURL := strings.ToLower(url)
	return strings.HasPrefix(tlsURL, "https://") || strings.HasPrefix(tlsURL, "grpcs://")
}

// ToAddress is a utility function to trim the GRPC protocol prefix as it is not needed by GO
// if the GRPC protocol is not found, the url is returned unchanged
func ToAddress(url string) string {
	if strings.HasPrefix(url, "grpc://") {
		return strings.TrimPrefix(url, "grpc://")
	}
	if strings.HasPrefix(url, "grpcs://") {
		return strings.TrimPrefix(url, "grpcs://")
	}
	return url
}

//AttemptSecured is a utility function which verifies URL and returns if secured connections needs to established
// for protocol 'grpcs' in URL returns true
// for protocol 'grpc' in URL returns false
// for no protocol mentioned, returns !allowInSecure
func AttemptSecured(url string, allowInSecure bool) bool {
	if securedProtocol.MatchString(url) {
		return true
	}
	if strings.Contains(url, "://") {
		return false
	}
	return !allowInSecure
}

// TLSConfig holds a PEM encoded certificate or key, given either inline or by path.
// If both are set, Pem takes precedence.
type TLSConfig struct {
	Path string
	Pem  string
	//bytes from Pem/Path
	bytes []byte
}

// Bytes returns the loaded PEM bytes
func (cfg *TLSConfig) Bytes() []byte {
	return cfg.bytes
}

// IsEmpty returns true when neither Pem nor Path is set
func (cfg *TLSConfig) IsEmpty() bool {
	return cfg.Pem == "" && cfg.Path == ""
}

//LoadBytes preloads bytes from Pem/Path
func (cfg *TLSConfig) LoadBytes() error {
	var err error
	if cfg.Pem != "" {
		cfg.bytes = []byte(cfg.Pem)
	} else if cfg.Path != "" {
		cfg.bytes, err = ioutil.ReadFile(cfg.Path)
		if err != nil {
			return errors.Wrapf(err, "failed to load pem bytes from path %s", cfg.Path)
		}
	}
	return nil
}

// TLSCert returns the loaded certificate, and false if none is configured
func (cfg *TLSConfig) TLSCert() (*x509.Certificate, bool, error) {
	block, _ := pem.Decode(cfg.bytes)
	if block == nil {
		return nil, false, nil
	}

	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, false, errors.Wrap(err, "certificate parsing failed")
	}
	return cert, true, nil
}
