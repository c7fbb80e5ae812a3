// Package config provides configuration loading, merging, and validation
// for the kiosk runtime.
//
// Configuration is assembled from multiple sources in the following priority
// order (later sources override earlier non-zero fields):
//  1. Environment variables
//  2. Command-line flags
//  3. JSON config file
//
// [GetStructuredConfig] returns the merged raw view; [GetClientConfig]
// projects it into the settings consumed by the runtime, with defaults
// applied and validated.
package config
