package config

import _ "embed"

// DefaultConfigTemplate is the commented config written by `lmctl config init`.
//
//go:embed config.yaml.tmpl
var DefaultConfigTemplate string
