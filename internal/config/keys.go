package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type keyType int

const (
	kString keyType = iota
	kInt
	kBool
	kDuration
)

const apiKeyEnv = "GENREACH_OPENROUTER_API_KEY"

type keySpec struct {
	key     string
	typ     keyType
	env     string
	secret  bool
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "server.port", typ: kInt, env: "GENREACH_SERVER_PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.Port },
	},
	{
		key: "server.token", typ: kString, env: "GENREACH_SERVER_TOKEN",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Server.Token = v.(string) },
		extract: func(cfg Config) any { return cfg.Server.Token },
	},
	{
		key: "backend.url", typ: kString, env: "GENREACH_BACKEND_URL",
		apply:   func(cfg *Config, v any) { cfg.Backend.URL = v.(string) },
		extract: func(cfg Config) any { return cfg.Backend.URL },
	},
	{
		key: "model.api_key", typ: kString, env: apiKeyEnv,
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Model.APIKey = v.(string) },
		extract: func(cfg Config) any { return cfg.Model.APIKey },
	},
	{
		key: "model.id", typ: kString, env: "GENREACH_MODEL_ID",
		apply:   func(cfg *Config, v any) { cfg.Model.ID = v.(string) },
		extract: func(cfg Config) any { return cfg.Model.ID },
	},
	{
		key: "model.base_url", typ: kString, env: "GENREACH_MODEL_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.Model.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.Model.BaseURL },
	},
	{
		key: "ollama.base_url", typ: kString, env: "GENREACH_OLLAMA_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.Ollama.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.Ollama.BaseURL },
	},
	{
		key: "ollama.model", typ: kString, env: "GENREACH_OLLAMA_MODEL",
		apply:   func(cfg *Config, v any) { cfg.Ollama.Model = v.(string) },
		extract: func(cfg Config) any { return cfg.Ollama.Model },
	},
	{
		key: "storage.data_dir", typ: kString, env: "GENREACH_STORAGE_DATA_DIR",
		apply:   func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.DataDir },
	},
	{
		key: "log.level", typ: kString, env: "GENREACH_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
	{
		key: "prober.timeout", typ: kDuration, env: "GENREACH_PROBER_TIMEOUT",
		apply:   func(cfg *Config, v any) { cfg.Prober.Timeout = v.(time.Duration) },
		extract: func(cfg Config) any { return cfg.Prober.Timeout },
	},
	{
		key: "prober.poll_interval", typ: kDuration, env: "GENREACH_PROBER_POLL_INTERVAL",
		apply:   func(cfg *Config, v any) { cfg.Prober.PollInterval = v.(time.Duration) },
		extract: func(cfg Config) any { return cfg.Prober.PollInterval },
	},
	{
		key: "panel.cooldown", typ: kDuration, env: "GENREACH_PANEL_COOLDOWN",
		apply:   func(cfg *Config, v any) { cfg.Panel.Cooldown = v.(time.Duration) },
		extract: func(cfg Config) any { return cfg.Panel.Cooldown },
	},
	{
		key: "generate.tier_timeout", typ: kDuration, env: "GENREACH_GENERATE_TIER_TIMEOUT",
		apply:   func(cfg *Config, v any) { cfg.Generate.TierTimeout = v.(time.Duration) },
		extract: func(cfg Config) any { return cfg.Generate.TierTimeout },
	},
	{
		key: "extract.max_posts", typ: kInt, env: "GENREACH_EXTRACT_MAX_POSTS",
		apply:   func(cfg *Config, v any) { cfg.Extract.MaxPosts = v.(int) },
		extract: func(cfg Config) any { return cfg.Extract.MaxPosts },
	},
	{
		key: "browser.headless", typ: kBool, env: "GENREACH_BROWSER_HEADLESS",
		apply:   func(cfg *Config, v any) { cfg.Browser.Headless = v.(bool) },
		extract: func(cfg Config) any { return cfg.Browser.Headless },
	},
	{
		key: "browser.user_data_dir", typ: kString, env: "GENREACH_BROWSER_USER_DATA_DIR",
		apply:   func(cfg *Config, v any) { cfg.Browser.UserDataDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Browser.UserDataDir },
	},
}

// parseValue converts raw text into the Go type a key expects.
func parseValue(typ keyType, raw string) (any, error) {
	switch typ {
	case kString:
		return raw, nil
	case kInt:
		return strconv.Atoi(raw)
	case kBool:
		return strconv.ParseBool(raw)
	case kDuration:
		d, err := time.ParseDuration(raw)
		if err != nil {
			return nil, err
		}
		if d < 0 {
			return nil, fmt.Errorf("negative duration %s", raw)
		}
		return d, nil
	}
	return nil, fmt.Errorf("unsupported key type %d", typ)
}

func applyStore(cfg *Config, b store) error {
	for _, s := range specs {
		if s.secret {
			continue
		}
		raw, ok, err := b.Get(s.key, s.typ)
		if err != nil {
			return fmt.Errorf("reading %s: %w", s.key, err)
		}
		if !ok || (s.typ != kString && raw == "") {
			continue
		}
		v, err := parseValue(s.typ, raw)
		if err != nil {
			fmt.Fprintf(os.Stderr, "[WARN] could not parse config key %s=%q: %v. Using default value.\n", s.key, raw, err)
			continue
		}
		s.apply(cfg, v)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		if s.env == "" {
			continue
		}
		raw := os.Getenv(s.env)
		if raw == "" {
			continue
		}
		v, err := parseValue(s.typ, raw)
		if err != nil {
			fmt.Fprintf(os.Stderr, "[WARN] could not parse env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			continue
		}
		s.apply(cfg, v)
	}
}
