package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// EnvPrefix namespaces every variable read by taskhub services.
const EnvPrefix = "TASKHUB_"

// ParseEnv loads configuration from prefixed environment variables.
func ParseEnv(target any) error {
	return ParseEnvWithLookup(target, nil)
}

// ParseEnvWithLookup loads configuration using lookup instead of the process
// environment when lookup is non-nil.
func ParseEnvWithLookup(target any, lookup map[string]string) error {
	opts := env.Options{Prefix: EnvPrefix}
	if lookup != nil {
		opts.Environment = lookup
	}
	if err := env.ParseWithOptions(target, opts); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}
