package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/rotisserie/eris"
)

type keyType int

const (
	kString keyType = iota
	kInt
)

type keySpec struct {
	key     string
	typ     keyType
	env     string
	secret  bool
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

func str(key, env string, set func(*Config, string), get func(Config) string) keySpec {
	return keySpec{
		key: key, typ: kString, env: env,
		apply:   func(cfg *Config, v any) { set(cfg, v.(string)) },
		extract: func(cfg Config) any { return get(cfg) },
	}
}

func integer(key, env string, set func(*Config, int), get func(Config) int) keySpec {
	return keySpec{
		key: key, typ: kInt, env: env,
		apply:   func(cfg *Config, v any) { set(cfg, v.(int)) },
		extract: func(cfg Config) any { return get(cfg) },
	}
}

func secret(s keySpec) keySpec {
	s.secret = true
	return s
}

var specs = []keySpec{
	str("data.csv", "ROOTCAUSE_DATA_CSV",
		func(c *Config, v string) { c.Data.CSVPath = v },
		func(c Config) string { return c.Data.CSVPath }),
	str("data.audit_pdf", "ROOTCAUSE_DATA_AUDIT_PDF",
		func(c *Config, v string) { c.Data.AuditPDFPath = v },
		func(c Config) string { return c.Data.AuditPDFPath }),
	str("data.ops_report", "ROOTCAUSE_DATA_OPS_REPORT",
		func(c *Config, v string) { c.Data.OpsReportPath = v },
		func(c Config) string { return c.Data.OpsReportPath }),
	str("data.pdf_extractor", "ROOTCAUSE_DATA_PDF_EXTRACTOR",
		func(c *Config, v string) { c.Data.PDFExtractor = v },
		func(c Config) string { return c.Data.PDFExtractor }),
	str("data.pdftotext_path", "ROOTCAUSE_DATA_PDFTOTEXT_PATH",
		func(c *Config, v string) { c.Data.PdfToTextPath = v },
		func(c Config) string { return c.Data.PdfToTextPath }),
	str("reasoning.provider", "ROOTCAUSE_REASONING_PROVIDER",
		func(c *Config, v string) { c.Reasoning.Provider = v },
		func(c Config) string { return c.Reasoning.Provider }),
	str("reasoning.model", "ROOTCAUSE_REASONING_MODEL",
		func(c *Config, v string) { c.Reasoning.Model = v },
		func(c Config) string { return c.Reasoning.Model }),
	str("reasoning.base_url", "ROOTCAUSE_REASONING_BASE_URL",
		func(c *Config, v string) { c.Reasoning.BaseURL = v },
		func(c Config) string { return c.Reasoning.BaseURL }),
	integer("reasoning.max_tokens", "ROOTCAUSE_REASONING_MAX_TOKENS",
		func(c *Config, v int) { c.Reasoning.MaxTokens = v },
		func(c Config) int { return c.Reasoning.MaxTokens }),
	secret(str("reasoning.api_key", "ROOTCAUSE_REASONING_API_KEY",
		func(c *Config, v string) { c.Reasoning.APIKey = v },
		func(c Config) string { return c.Reasoning.APIKey })),
	integer("server.port", "ROOTCAUSE_SERVER_PORT",
		func(c *Config, v int) { c.Server.Port = v },
		func(c Config) int { return c.Server.Port }),
	secret(str("server.token", "ROOTCAUSE_SERVER_TOKEN",
		func(c *Config, v string) { c.Server.Token = v },
		func(c Config) string { return c.Server.Token })),
	str("storage.data_dir", "ROOTCAUSE_STORAGE_DATA_DIR",
		func(c *Config, v string) { c.Storage.DataDir = v },
		func(c Config) string { return c.Storage.DataDir }),
	str("log.level", "ROOTCAUSE_LOG_LEVEL",
		func(c *Config, v string) { c.Log.Level = v },
		func(c Config) string { return c.Log.Level }),
	str("log.format", "ROOTCAUSE_LOG_FORMAT",
		func(c *Config, v string) { c.Log.Format = v },
		func(c Config) string { return c.Log.Format }),
}

func lookupSpec(key string) (keySpec, bool) {
	for _, s := range specs {
		if s.key == key {
			return s, true
		}
	}
	return keySpec{}, false
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
				return eris.Wrapf(err, "reading %s", s.key)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kInt:
			v, ok, err := b.GetInt(s.key)
			if err != nil {
				return eris.Wrapf(err, "reading %s", s.key)
			}
			if ok {
				s.apply(cfg, v)
			}
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
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
		}
	}
}
