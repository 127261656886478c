package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/aussiebroadwan/vcissuer/internal/issuer/domain"
)

// ClaimsEnvPrefix prefixes environment overrides of the form
// ISSUER_CLAIMS__<CONFIGURATION_ID>__<CLAIM>, where dots in the
// configuration id are written as underscores.
const ClaimsEnvPrefix = "ISSUER_CLAIMS__"

// Configuration ids contain dots, so koanf paths use a slash.
const claimsDelim = "/"

var ErrNoClaims = errors.New("claims: no claims for credential type")

// ClaimsSource supplies the data elements of a credential.
type ClaimsSource interface {
	Claims(ctx context.Context, cfg domain.CredentialConfiguration) (map[string]any, error)
}

// DefaultClaims is the demo holder every loyalty card is issued to when no
// claims file is configured.
func DefaultClaims() map[string]map[string]any {
	return map[string]map[string]any{
		domain.LoyaltyConfigurationID: {
			"client_id":   "1234",
			"company":     "Digdir",
			"family_name": "Normann",
			"given_name":  "Ola",
		},
	}
}

// KoanfClaims serves claims layered from defaults, an optional YAML file
// and the environment. The YAML file is a map of configuration id to claim
// name to value.
type KoanfClaims struct {
	k *koanf.Koanf
}

// LoadClaims builds a KoanfClaims. path may be empty; a missing file is an
// error only when a path was given.
func LoadClaims(path string, catalog domain.Catalog) (*KoanfClaims, error) {
	k := koanf.New(claimsDelim)

	for id, claims := range DefaultClaims() {
		for name, v := range claims {
			if err := k.Set(id+claimsDelim+name, v); err != nil {
				return nil, fmt.Errorf("claims: load defaults: %w", err)
			}
		}
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("claims: load %s: %w", path, err)
		}
	}

	envIDs := make(map[string]string, len(catalog))
	for _, cfg := range catalog {
		envIDs[envName(cfg.ID)] = cfg.ID
	}
	e := env.Provider(ClaimsEnvPrefix, claimsDelim, func(key string) string {
		id, claim, ok := strings.Cut(strings.TrimPrefix(key, ClaimsEnvPrefix), "__")
		if !ok {
			return ""
		}
		cfgID, known := envIDs[strings.ToLower(id)]
		if !known {
			return ""
		}
		return cfgID + claimsDelim + strings.ToLower(claim)
	})
	// errors can't occur for this provider
	if err := k.Load(e, nil); err != nil {
		return nil, err
	}

	return &KoanfClaims{k: k}, nil
}

func envName(id string) string {
	return strings.ToLower(strings.NewReplacer(".", "_", "-", "_").Replace(id))
}

// Claims returns a copy of the values configured for cfg. Only claims the
// configuration declares are returned.
func (c *KoanfClaims) Claims(_ context.Context, cfg domain.CredentialConfiguration) (map[string]any, error) {
	if !c.k.Exists(cfg.ID) {
		return nil, fmt.Errorf("%w: %s", ErrNoClaims, cfg.ID)
	}

	out := make(map[string]any)
	for name, v := range c.k.Cut(cfg.ID).All() {
		if _, declared := cfg.Claim(name); declared {
			out[name] = v
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoClaims, cfg.ID)
	}
	return out, nil
}

// Set overrides a single claim, e.g. from a CLI flag.
func (c *KoanfClaims) Set(configID, name string, value any) error {
	return c.k.Set(configID+claimsDelim+name, value)
}
