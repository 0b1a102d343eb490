package config

import (
	"fmt"
	"strconv"

	"github.com/rotisserie/eris"
)

// KeyInfo describes a config key for display purposes.
type KeyInfo struct {
	Key    string
	EnvVar string
	Value  string
}

// ShowAll returns all non-secret config key/value pairs from cfg.
func ShowAll(cfg Config) []KeyInfo {
	var result []KeyInfo
	for _, s := range specs {
		if s.secret {
			continue
		}
		result = append(result, KeyInfo{
			Key:    s.key,
			EnvVar: s.env,
			Value:  fmt.Sprintf("%v", s.extract(cfg)),
		})
	}
	return result
}

// SetKey writes a config key to the platform backend.
func SetKey(key, value string) error {
	return setKeyWith(newPlatformBackend(), key, value)
}

func setKeyWith(b ConfigBackend, key, value string) error {
	s, ok := lookupSpec(key)
	if !ok {
		return eris.Errorf("unknown config key: %q", key)
	}
	if s.secret {
		return eris.Errorf("cannot set secret %q via config; use `rootcause config set-secret` or %s", key, s.env)
	}
	switch s.typ {
	case kInt:
		i, err := strconv.Atoi(value)
		if err != nil {
			return eris.Wrapf(err, "invalid integer value for %s", key)
		}
		return b.SetInt(key, i)
	default:
		return b.SetString(key, value)
	}
}

// SetSecret stores a secret key in the platform secret store.
func SetSecret(key, value string) error {
	s, ok := lookupSpec(key)
	if !ok || !s.secret {
		return eris.Errorf("%q is not a secret key", key)
	}
	return keychainSet(secretService, secretAccount(key), value)
}

// secretAccount maps a dotted key to its secret store account name.
func secretAccount(key string) string {
	switch key {
	case "reasoning.api_key":
		return apiKeyAccount
	case "server.token":
		return serverTokenAccount
	}
	return key
}

// ValidKeys returns the list of valid non-secret config key names.
func ValidKeys() []string {
	var keys []string
	for _, s := range specs {
		if !s.secret {
			keys = append(keys, s.key)
		}
	}
	return keys
}

// SecretKeys returns the config keys stored in the secret store.
func SecretKeys() []string {
	var keys []string
	for _, s := range specs {
		if s.secret {
			keys = append(keys, s.key)
		}
	}
	return keys
}
