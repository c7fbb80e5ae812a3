package config

import (
	"fmt"
	"strings"
	"time"
)

// Defaults applied by [GetClientConfig] for settings left unset.
const (
	DefaultRequestTimeout   = 10 * time.Second
	DefaultProbePath        = "/api/health"
	DefaultProbeInterval    = 30 * time.Second
	DefaultSyncInterval     = 5 * time.Minute
	DefaultFailedQueueLimit = 500
	DefaultPageSize         = 20
	DefaultDSN              = "data/kiosk.db"
	DefaultListenAddress    = "127.0.0.1:8780"

	// ListenOff disables the local API when used as the listen address.
	ListenOff = "off"
)

// ClientApp holds application-level client settings.
type ClientApp struct {
	// APIToken is the bearer token attached to API requests.
	APIToken string
	// LogFile is where the client logger writes; empty means stdout.
	LogFile string
}

// ClientAdapter holds remote API settings used by the transport layer.
type ClientAdapter struct {
	// HTTPAddress is the API base address.
	HTTPAddress string
	// RequestTimeout is the default timeout for outbound requests.
	RequestTimeout time.Duration
	// ProbePath is the read-only resource used for reachability probes.
	ProbePath string
}

// ClientDB contains local database connection settings.
type ClientDB struct {
	// DSN is the SQLite file path.
	DSN string
}

// ClientStorage groups local storage settings.
type ClientStorage struct {
	// DB holds local database settings.
	DB ClientDB
}

// ClientWorkers contains background loop settings.
type ClientWorkers struct {
	// ProbeInterval is the connectivity polling interval.
	ProbeInterval time.Duration
	// SyncInterval is the periodic queue processing interval.
	SyncInterval time.Duration
}

// ClientSync contains sync queue policies.
type ClientSync struct {
	// FailedQueueLimit caps the failed collection.
	FailedQueueLimit int
	// PageSize is the default page size of paginated reads.
	PageSize int
}

// ClientServer contains local API settings.
type ClientServer struct {
	// HTTPAddress is the listen address; empty means the local API is
	// disabled.
	HTTPAddress string
}

// ClientConfig is the runtime configuration assembled from
// [StructuredConfig].
type ClientConfig struct {
	App     ClientApp
	Adapter ClientAdapter
	Storage ClientStorage
	Workers ClientWorkers
	Sync    ClientSync
	Server  ClientServer
}

// GetClientConfig builds and validates the runtime config view from the
// merged structured configuration.
func GetClientConfig() (*ClientConfig, error) {
	cfg, err := GetStructuredConfig()
	if err != nil {
		return nil, fmt.Errorf("error get structured config: %w", err)
	}

	clientCfg := newClientConfig(cfg)
	return clientCfg, clientCfg.validate()
}

func newClientConfig(cfg *StructuredConfig) *ClientConfig {
	clientCfg := &ClientConfig{
		App: ClientApp{
			APIToken: cfg.App.APIToken,
			LogFile:  cfg.App.LogFile,
		},
		Adapter: ClientAdapter{
			HTTPAddress:    cfg.Adapter.HTTPAddress,
			RequestTimeout: cfg.Adapter.RequestTimeout,
			ProbePath:      cfg.Adapter.ProbePath,
		},
		Storage: ClientStorage{
			DB: ClientDB{DSN: cfg.Storage.DB.DSN},
		},
		Workers: ClientWorkers{
			ProbeInterval: cfg.Workers.ProbeInterval,
			SyncInterval:  cfg.Workers.SyncInterval,
		},
		Sync: ClientSync{
			FailedQueueLimit: cfg.Sync.FailedQueueLimit,
			PageSize:         cfg.Sync.PageSize,
		},
		Server: ClientServer{
			HTTPAddress: cfg.Server.HTTPAddress,
		},
	}
	clientCfg.applyDefaults()

	return clientCfg
}

func (cfg *ClientConfig) applyDefaults() {
	if cfg.Adapter.RequestTimeout == 0 {
		cfg.Adapter.RequestTimeout = DefaultRequestTimeout
	}
	if cfg.Adapter.ProbePath == "" {
		cfg.Adapter.ProbePath = DefaultProbePath
	}
	if cfg.Storage.DB.DSN == "" {
		cfg.Storage.DB.DSN = DefaultDSN
	}
	if cfg.Workers.ProbeInterval == 0 {
		cfg.Workers.ProbeInterval = DefaultProbeInterval
	}
	if cfg.Workers.SyncInterval == 0 {
		cfg.Workers.SyncInterval = DefaultSyncInterval
	}
	if cfg.Sync.FailedQueueLimit == 0 {
		cfg.Sync.FailedQueueLimit = DefaultFailedQueueLimit
	}
	if cfg.Sync.PageSize == 0 {
		cfg.Sync.PageSize = DefaultPageSize
	}
	switch strings.TrimSpace(cfg.Server.HTTPAddress) {
	case "":
		cfg.Server.HTTPAddress = DefaultListenAddress
	case ListenOff:
		cfg.Server.HTTPAddress = ""
	}
}
