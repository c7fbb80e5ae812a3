package config

import (
	"flag"
	"fmt"
	"io"
	"time"
)

// ParseFlags parses configuration flags from args.
//
// Flags:
//
//	-a API base address (e.g. https://pos.example.com)
//	-request-timeout API request timeout (e.g. "10s")
//	-probe-path reachability probe path (e.g. "/api/health")
//	-d SQLite database path
//	-token API bearer token
//	-log-file log file path
//	-probe-interval connectivity polling interval (e.g. "30s")
//	-sync-interval periodic queue processing interval (e.g. "5m")
//	-failed-limit failed queue size cap
//	-page-size default page size
//	-l local API listen address ("off" disables it)
//	-c/-config json file path with configs
func ParseFlags(args []string) (*StructuredConfig, error) {
	fs := flag.NewFlagSet("kiosk", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var (
		apiAddress       string
		requestTimeout   time.Duration
		probePath        string
		databaseDSN      string
		apiToken         string
		logFile          string
		probeInterval    time.Duration
		syncInterval     time.Duration
		failedQueueLimit int
		pageSize         int
		listenAddress    string
		jsonConfigPath   string
	)

	fs.StringVar(&apiAddress, "a", "", "API base address")
	fs.DurationVar(&requestTimeout, "request-timeout", 0, "API request timeout (e.g., 10s)")
	fs.StringVar(&probePath, "probe-path", "", "Reachability probe path")
	fs.StringVar(&databaseDSN, "d", "", "SQLite database path")
	fs.StringVar(&apiToken, "token", "", "API bearer token")
	fs.StringVar(&logFile, "log-file", "", "Log file path")
	fs.DurationVar(&probeInterval, "probe-interval", 0, "Connectivity polling interval (e.g., 30s)")
	fs.DurationVar(&syncInterval, "sync-interval", 0, "Queue processing interval (e.g., 5m)")
	fs.IntVar(&failedQueueLimit, "failed-limit", 0, "Failed queue size cap")
	fs.IntVar(&pageSize, "page-size", 0, "Default page size")
	fs.StringVar(&listenAddress, "l", "", "Local API listen address")
	fs.StringVar(&jsonConfigPath, "c", "", "JSON config file path")
	fs.StringVar(&jsonConfigPath, "config", "", "JSON config file path (alias)")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("error parsing flags: %w", err)
	}

	return &StructuredConfig{
		App: App{
			APIToken: apiToken,
			LogFile:  logFile,
		},
		Storage: Storage{
			DB: DB{DSN: databaseDSN},
		},
		Adapter: Adapter{
			HTTPAddress:    apiAddress,
			RequestTimeout: requestTimeout,
			ProbePath:      probePath,
		},
		Workers: Workers{
			ProbeInterval: probeInterval,
			SyncInterval:  syncInterval,
		},
		Sync: Sync{
			FailedQueueLimit: failedQueueLimit,
			PageSize:         pageSize,
		},
		Server: Server{
			HTTPAddress: listenAddress,
		},
		JSONFilePath: jsonConfigPath,
	}, nil
}
