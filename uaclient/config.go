package uaclient

import (
	"errors"
	"time"

	"github.com/gopcua/opcua"
	"github.com/google/uuid"
)

// Config holds the connection settings of a Client.
type Config struct {
	// Endpoint is the server URL, e.g. opc.tcp://plc1:4840.
	Endpoint string
	// SecurityPolicy is a policy name (None, Basic256Sha256, ...). Defaults to None.
	SecurityPolicy string
	// SecurityMode is None, Sign or SignAndEncrypt. Defaults to None.
	SecurityMode string
	// CertFile and KeyFile are the application certificate and key, needed for secure policies.
	CertFile string
	KeyFile  string
	// Username selects user name authentication when set, anonymous otherwise.
	Username string
	Password string
	// ApplicationURI defaults to urn:opcua-bridge:<random uuid>.
	ApplicationURI string
	// SessionName defaults to opcua-bridge-<random uuid>.
	SessionName string
	// RequestTimeout bounds every request. Defaults to 10 seconds.
	RequestTimeout time.Duration
	// StatePollInterval is the sampling period of the connection state watcher.
	// Defaults to 500 milliseconds.
	StatePollInterval time.Duration
}

func (cfg *Config) setDefaults() {
	id := uuid.NewString()
	if cfg.SecurityPolicy == "" {
		cfg.SecurityPolicy = "None"
	}
	if cfg.SecurityMode == "" {
		cfg.SecurityMode = "None"
	}
	if cfg.ApplicationURI == "" {
		cfg.ApplicationURI = "urn:opcua-bridge:" + id
	}
	if cfg.SessionName == "" {
		cfg.SessionName = "opcua-bridge-" + id
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 10 * time.Second
	}
	if cfg.StatePollInterval <= 0 {
		cfg.StatePollInterval = 500 * time.Millisecond
	}
}

func (cfg *Config) validate() error {
	if cfg.Endpoint == "" {
		return errors.New("empty endpoint")
	}
	if (cfg.CertFile == "") != (cfg.KeyFile == "") {
		return errors.New("certificate and key must be given together")
	}

	return nil
}

// options translates the configuration into library options.
func (cfg *Config) options() []opcua.Option {
	opts := []opcua.Option{
		opcua.AutoReconnect(false),
		opcua.SecurityPolicy(cfg.SecurityPolicy),
		opcua.SecurityModeString(cfg.SecurityMode),
		opcua.ApplicationURI(cfg.ApplicationURI),
		opcua.SessionName(cfg.SessionName),
		opcua.RequestTimeout(cfg.RequestTimeout),
	}
	if cfg.CertFile != "" {
		opts = append(opts, opcua.CertificateFile(cfg.CertFile), opcua.PrivateKeyFile(cfg.KeyFile))
	}
	if cfg.Username != "" {
		opts = append(opts, opcua.AuthUsername(cfg.Username, cfg.Password))
	} else {
		opts = append(opts, opcua.AuthAnonymous())
	}

	return opts
}
