package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// StructuredJSONConfig mirrors [StructuredConfig] for JSON files. Durations
// are written as strings ("30s") or as nanoseconds.
type StructuredJSONConfig struct {
	App struct {
		APIToken string `json:"api_token"`
		LogFile  string `json:"log_file"`
	} `json:"app,omitempty"`

	Storage struct {
		DB struct {
			DSN string `json:"dsn"`
		} `json:"db,omitempty"`
	} `json:"storage,omitempty"`

	Adapter struct {
		HTTPAddress    string   `json:"http_address"`
		RequestTimeout Duration `json:"request_timeout"`
		ProbePath      string   `json:"probe_path"`
	} `json:"adapter,omitempty"`

	Workers struct {
		ProbeInterval Duration `json:"probe_interval"`
		SyncInterval  Duration `json:"sync_interval"`
	} `json:"workers,omitempty"`

	Sync struct {
		FailedQueueLimit int `json:"failed_queue_limit"`
		PageSize         int `json:"page_size"`
	} `json:"sync,omitempty"`

	Server struct {
		HTTPAddress string `json:"http_address"`
	} `json:"server,omitempty"`
}

func parseJSON(jsonFilePath string) (*StructuredConfig, error) {
	jsonFile, err := os.Open(jsonFilePath)
	if err != nil {
		return nil, fmt.Errorf("error reading a json file: %w", err)
	}
	defer jsonFile.Close()

	var jsonCfg StructuredJSONConfig
	if err := json.NewDecoder(jsonFile).Decode(&jsonCfg); err != nil {
		return nil, fmt.Errorf("error decoding json configs: %w", err)
	}

	cfg := &StructuredConfig{
		App: App{
			APIToken: jsonCfg.App.APIToken,
			LogFile:  jsonCfg.App.LogFile,
		},
		Storage: Storage{
			DB: DB{DSN: jsonCfg.Storage.DB.DSN},
		},
		Adapter: Adapter{
			HTTPAddress:    jsonCfg.Adapter.HTTPAddress,
			RequestTimeout: time.Duration(jsonCfg.Adapter.RequestTimeout),
			ProbePath:      jsonCfg.Adapter.ProbePath,
		},
		Workers: Workers{
			ProbeInterval: time.Duration(jsonCfg.Workers.ProbeInterval),
			SyncInterval:  time.Duration(jsonCfg.Workers.SyncInterval),
		},
		Sync: Sync{
			FailedQueueLimit: jsonCfg.Sync.FailedQueueLimit,
			PageSize:         jsonCfg.Sync.PageSize,
		},
		Server: Server{
			HTTPAddress: jsonCfg.Server.HTTPAddress,
		},
	}

	return cfg, nil
}

// Duration is a wrapper around time.Duration that supports JSON unmarshaling from strings like "1h", "30s"
type Duration time.Duration

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}

	switch value := v.(type) {
	case float64:
		*d = Duration(time.Duration(value))
		return nil
	case string:
		tmp, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		*d = Duration(tmp)
		return nil
	default:
		return fmt.Errorf("invalid duration %s", string(b))
	}
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}
