// Package kelas provides embedded runtime resources.
package kelas

import _ "embed"

// ConfigTemplate is the commented starter config written by `kelas config init`.
//
//go:embed templates/config.yaml
var ConfigTemplate []byte
