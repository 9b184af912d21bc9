package config

import (
	"fmt"
	"os"
	"strconv"
)

type keyType int

const (
	kString keyType = iota
	kInt
	kBool
)

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
		key: "server.port", typ: kInt, env: "PERFIL_SERVER_PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.Port },
	},
	{
		key: "server.token", typ: kString, env: "PERFIL_SERVER_TOKEN",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Server.Token = v.(string) },
		extract: func(cfg Config) any { return cfg.Server.Token },
	},
	{
		key: "backends.timeout", typ: kString, env: "PERFIL_BACKENDS_TIMEOUT",
		apply:   func(cfg *Config, v any) { cfg.Backends.Timeout = v.(string) },
		extract: func(cfg Config) any { return cfg.Backends.Timeout },
	},
	{
		key: "backends.insecure_skip_verify", typ: kBool, env: "PERFIL_BACKENDS_INSECURE_SKIP_VERIFY",
		apply:   func(cfg *Config, v any) { cfg.Backends.InsecureSkipVerify = v.(bool) },
		extract: func(cfg Config) any { return cfg.Backends.InsecureSkipVerify },
	},
	{
		key: "pollinations.base_url", typ: kString, env: "PERFIL_POLLINATIONS_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.Backends.Pollinations.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.Backends.Pollinations.BaseURL },
	},
	{
		key: "pollinations.model", typ: kString, env: "PERFIL_POLLINATIONS_MODEL",
		apply:   func(cfg *Config, v any) { cfg.Backends.Pollinations.Model = v.(string) },
		extract: func(cfg Config) any { return cfg.Backends.Pollinations.Model },
	},
	{
		key: "pollinations.token", typ: kString, env: "PERFIL_POLLINATIONS_TOKEN",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Backends.Pollinations.Token = v.(string) },
		extract: func(cfg Config) any { return cfg.Backends.Pollinations.Token },
	},
	{
		key: "openai.api_key", typ: kString, env: "PERFIL_OPENAI_API_KEY",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Backends.OpenAI.APIKey = v.(string) },
		extract: func(cfg Config) any { return cfg.Backends.OpenAI.APIKey },
	},
	{
		key: "openai.base_url", typ: kString, env: "PERFIL_OPENAI_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.Backends.OpenAI.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.Backends.OpenAI.BaseURL },
	},
	{
		key: "openai.model", typ: kString, env: "PERFIL_OPENAI_MODEL",
		apply:   func(cfg *Config, v any) { cfg.Backends.OpenAI.Model = v.(string) },
		extract: func(cfg Config) any { return cfg.Backends.OpenAI.Model },
	},
	{
		key: "openai.organization", typ: kString, env: "PERFIL_OPENAI_ORGANIZATION",
		apply:   func(cfg *Config, v any) { cfg.Backends.OpenAI.Organization = v.(string) },
		extract: func(cfg Config) any { return cfg.Backends.OpenAI.Organization },
	},
	{
		key: "openai.project", typ: kString, env: "PERFIL_OPENAI_PROJECT",
		apply:   func(cfg *Config, v any) { cfg.Backends.OpenAI.Project = v.(string) },
		extract: func(cfg Config) any { return cfg.Backends.OpenAI.Project },
	},
	{
		key: "gemini.api_key", typ: kString, env: "PERFIL_GEMINI_API_KEY",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Backends.Gemini.APIKey = v.(string) },
		extract: func(cfg Config) any { return cfg.Backends.Gemini.APIKey },
	},
	{
		key: "gemini.base_url", typ: kString, env: "PERFIL_GEMINI_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.Backends.Gemini.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.Backends.Gemini.BaseURL },
	},
	{
		key: "gemini.model", typ: kString, env: "PERFIL_GEMINI_MODEL",
		apply:   func(cfg *Config, v any) { cfg.Backends.Gemini.Model = v.(string) },
		extract: func(cfg Config) any { return cfg.Backends.Gemini.Model },
	},
	{
		key: "render.prefer", typ: kString, env: "PERFIL_RENDER_PREFER",
		apply:   func(cfg *Config, v any) { cfg.Render.Prefer = v.(string) },
		extract: func(cfg Config) any { return cfg.Render.Prefer },
	},
	{
		key: "medium.rapidapi_key", typ: kString, env: "PERFIL_MEDIUM_RAPIDAPI_KEY",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Medium.RapidAPIKey = v.(string) },
		extract: func(cfg Config) any { return cfg.Medium.RapidAPIKey },
	},
	{
		key: "medium.rapidapi_host", typ: kString, env: "PERFIL_MEDIUM_RAPIDAPI_HOST",
		apply:   func(cfg *Config, v any) { cfg.Medium.RapidAPIHost = v.(string) },
		extract: func(cfg Config) any { return cfg.Medium.RapidAPIHost },
	},
	{
		key: "storage.data_dir", typ: kString, env: "PERFIL_STORAGE_DATA_DIR",
		apply:   func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.DataDir },
	},
	{
		key: "log.level", typ: kString, env: "PERFIL_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
	{
		key: "environment", typ: kString, env: "PERFIL_ENVIRONMENT",
		apply:   func(cfg *Config, v any) { cfg.Environment = v.(string) },
		extract: func(cfg Config) any { return cfg.Environment },
	},
}

func applyBackend(cfg *Config, b ConfigBackend) error {
	for _, s := range specs {
		if s.secret {
			continue
		}
		switch s.typ {
		case kString:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kInt:
			v, ok, err := b.GetInt(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kBool:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok && v != "" {
				if bv, err := strconv.ParseBool(v); err == nil {
					s.apply(cfg, bv)
				} else {
					fmt.Fprintf(os.Stderr, "[WARN] could not parse bool from config key %s=%q: %v. Using default value.\n", s.key, v, err)
				}
			}
		}
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
		switch s.typ {
		case kString:
			s.apply(cfg, raw)
		case kInt:
			if i, err := strconv.Atoi(raw); err == nil {
				s.apply(cfg, i)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse integer from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		case kBool:
			if b, err := strconv.ParseBool(raw); err == nil {
				s.apply(cfg, b)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse bool from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		}
	}
}
