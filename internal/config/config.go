// Package config loads the engine's YAML configuration.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"advancedentitylimit/internal/groups"
)

type Config struct {
	// AutoFillEntities runs a catalog refresh+merge at startup.
	AutoFillEntities bool `yaml:"auto_fill_entities"`

	MessagePrefix string `yaml:"message_prefix"`
	// LimitReachedMessage carries a single {0} placeholder for the limit.
	LimitReachedMessage string `yaml:"limit_reached_message"`

	UseTeamPooling bool `yaml:"use_team_pooling"`
	UseClanPooling bool `yaml:"use_clan_pooling"`
	// ClanProvider selects the clan directory flavor: "hub" or "legacy".
	ClanProvider string `yaml:"clan_provider"`
	ClanAPIURL   string `yaml:"clan_api_url"`

	DefaultLimit     int `yaml:"default_limit"`
	SaveEverySeconds int `yaml:"save_every_seconds"`
}

func Load(path string) (Config, error) {
	cfg := defaults()
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("config.yaml: %w", err)
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config.yaml: %w", err)
	}
	return cfg, nil
}

func defaults() Config {
	return Config{
		AutoFillEntities:    true,
		MessagePrefix:       "[Limits]: ",
		LimitReachedMessage: "You have reached the limit of this object ({0})",
		UseTeamPooling:      true,
		UseClanPooling:      false,
		ClanProvider:        groups.ClanProviderHub,
		DefaultLimit:        10,
		SaveEverySeconds:    300,
	}
}

func (c *Config) Normalize() {
	c.ClanProvider = strings.ToLower(strings.TrimSpace(c.ClanProvider))
	c.ClanAPIURL = strings.TrimSpace(c.ClanAPIURL)
	if c.DefaultLimit <= 0 {
		c.DefaultLimit = 10
	}
	if c.SaveEverySeconds <= 0 {
		c.SaveEverySeconds = 300
	}
}

func (c *Config) Validate() error {
	if c.UseClanPooling {
		switch c.ClanProvider {
		case groups.ClanProviderHub, groups.ClanProviderLegacy:
		default:
			return fmt.Errorf("unknown clan_provider %q", c.ClanProvider)
		}
		if c.ClanAPIURL == "" {
			return fmt.Errorf("clan pooling enabled but clan_api_url is empty")
		}
	}
	if !strings.Contains(c.LimitReachedMessage, "{0}") {
		return fmt.Errorf("limit_reached_message must contain a {0} placeholder")
	}
	return nil
}
