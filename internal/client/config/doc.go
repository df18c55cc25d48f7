// Package config loads runtime configuration for the Clarifio CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-a string   base URL of the backend HTTP API
//	-t int      request timeout (seconds)
//	-d string   path of the local sqlite database
//
// # JSON schema
//
// The JSON loader uses timex.Duration for intervals, so values can be either
// strings like "30s" or integer nanoseconds:
//
//	{
//	  "server_base_url": "http://127.0.0.1:8080",
//	  "request_timeout": "30s",
//	  "database_dsn": "clarifio.db"
//	}
//
// Note: This package does not read environment variables directly; use the
// JSON file or flags to configure values.
package config
