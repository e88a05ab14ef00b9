package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if RALLY_CONFIG is set
//  3. env (prefix RALLY_)
func Load(ctx context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	// Load from file if provided
	if path := os.Getenv("RALLY_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrLoad, err)
		}
	}

	// Environment variables: RALLY_ADDR, RALLY_NATS_URL, ...
	// Map env keys like RALLY_NATS_URL -> nats_url (flat keys).
	// Preserve underscores to match koanf tags on the struct.
	envProvider := env.Provider("RALLY_", ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, "rally_")
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoad, err)
	}

	// Unmarshal into a copy
	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoad, err)
	}

	// Basic validation
	switch {
	case cfg.Addr == "":
		return nil, fmt.Errorf("%w: addr must not be empty", ErrInvalid)
	case cfg.NATSURL == "":
		return nil, fmt.Errorf("%w: nats_url must not be empty", ErrInvalid)
	case cfg.ResyncBackoffMinMS <= 0 || cfg.ResyncBackoffMaxMS < cfg.ResyncBackoffMinMS:
		return nil, fmt.Errorf("%w: resync backoff range is inverted", ErrInvalid)
	case cfg.WSSendBuffer <= 0:
		return nil, fmt.Errorf("%w: ws_send_buffer must be positive", ErrInvalid)
	}
	return &cfg, nil
}
