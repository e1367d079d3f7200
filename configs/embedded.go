// Package configs provides the embedded default configuration for seodash.
package configs

import _ "embed"

// DefaultYAML is the built-in configuration every config file is merged onto
//
//go:embed default.yaml
var DefaultYAML []byte
