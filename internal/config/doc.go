// Package config manages launcher settings stored at ~/.divineos/config.yaml.
// Keys can be overridden with DIVINEOS_<KEY> environment variables. The file is
// checked against an embedded JSON schema before values are written.
package config
