package httpservice

import (
	"crypto/tls"
	"fmt"
	"net"
	"os"
	"path/filepath"
)

const (
	tlsKeyFile  = "key.pem"
	tlsCertFile = "cert.pem"
	tlsFolder   = "tls"
)

type Config struct {
	Datadir string
	Port    uint32
	NoTLS   bool
	// DevLedger exposes the in-process ledger under /v1/ledger.
	DevLedger bool
}

func (c Config) Validate() error {
	lis, err := net.Listen("tcp", c.address())
	if err != nil {
		return fmt.Errorf("invalid port: %s", err)
	}
	// nolint:all
	defer lis.Close()

	if !c.NoTLS {
		if !pathExists(c.tlsKey()) || !pathExists(c.tlsCert()) {
			return fmt.Errorf(
				"missing %s or %s in path %s", tlsKeyFile, tlsCertFile, c.tlsDatadir(),
			)
		}
	}
	return nil
}

func (c Config) insecure() bool {
	return c.NoTLS
}

func (c Config) address() string {
	return fmt.Sprintf(":%d", c.Port)
}

func (c Config) tlsDatadir() string {
	return filepath.Join(c.Datadir, tlsFolder)
}

func (c Config) tlsKey() string {
	return filepath.Join(c.tlsDatadir(), tlsKeyFile)
}

func (c Config) tlsCert() string {
	return filepath.Join(c.tlsDatadir(), tlsCertFile)
}

func (c Config) tlsConfig() (*tls.Config, error) {
	if c.NoTLS {
		return nil, nil
	}

	certificate, err := tls.LoadX509KeyPair(c.tlsCert(), c.tlsKey())
	if err != nil {
		return nil, err
	}
	return &tls.Config{
		MinVersion:   tls.VersionTLS12,
		Certificates: []tls.Certificate{certificate},
	}, nil
}

func pathExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
