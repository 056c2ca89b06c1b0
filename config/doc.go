// Package config provides unified configuration loading for fleetassist:
// defaults, then a YAML file, then environment variable overrides.
//
// Usage:
//
//	cfg, err := config.NewLoader().
//	    WithConfigPath("config.yaml").
//	    WithEnvPrefix("FLEETASSIST").
//	    Load()
package config
