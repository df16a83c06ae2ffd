// SPDX-License-Identifier: MIT

package config

import (
	"gopkg.in/yaml.v3"
)

const redacted = "***"

// Redacted returns a copy of cfg with secrets masked.
func (c AppConfig) Redacted() AppConfig {
	out := c
	out.Auth.Tokens = make([]TokenConfig, len(c.Auth.Tokens))
	for i, t := range c.Auth.Tokens {
		t.Token = redacted
		t.Scopes = append([]string(nil), t.Scopes...)
		out.Auth.Tokens[i] = t
	}
	if out.Store.RedisPassword != "" {
		out.Store.RedisPassword = redacted
	}
	return out
}

// MarshalRedacted renders cfg as YAML with secrets masked.
func MarshalRedacted(cfg AppConfig) ([]byte, error) {
	return yaml.Marshal(cfg.Redacted())
}
