package config

import (
	"fmt"

	"github.com/caarlos0/env/v10"
)

// Validator is implemented by config structs that check their own invariants
// after parsing.
type Validator interface {
	Validate() error
}

// Load parses environment variables into cfg using `env` tags. Types that
// implement encoding.TextUnmarshaler (durations, decimals) are parsed
// through that interface. When cfg implements Validator, Validate runs after
// a successful parse.
//
//	type Config struct {
//	    Port int             `env:"HTTP_PORT" envDefault:"8080"`
//	    Fee  decimal.Decimal `env:"FEE" envDefault:"350"`
//	}
func Load(cfg any) error {
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	if v, ok := cfg.(Validator); ok {
		if err := v.Validate(); err != nil {
			return fmt.Errorf("validate config: %w", err)
		}
	}
	return nil
}
