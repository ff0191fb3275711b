// Package config loads ShipSafe configuration from local and global YAML
// files and from the environment, including .env files. CLI code applies
// flag > local > global precedence.
package config
