package config

import (
	"os"
	"strings"
)

type Config struct {
	Data      DataConfig
	Reasoning ReasoningConfig
	Server    ServerConfig
	Storage   StorageConfig
	Log       LogConfig
}

// DataConfig locates the three evidence sources.
type DataConfig struct {
	CSVPath       string
	AuditPDFPath  string
	OpsReportPath string
	PDFExtractor  string
	PdfToTextPath string
}

type ReasoningConfig struct {
	Provider  string
	Model     string
	BaseURL   string
	APIKey    string
	MaxTokens int
}

type ServerConfig struct {
	Port  int
	Token string
}

type StorageConfig struct {
	DataDir string
}

type LogConfig struct {
	Level  string
	Format string
}

func defaults() Config {
	return Config{
		Data: DataConfig{
			CSVPath:       "customer_interaction.csv",
			AuditPDFPath:  "div_B_escalation_audit.pdf",
			OpsReportPath: "div_B_ops_report.txt",
			PDFExtractor:  "native",
		},
		Reasoning: ReasoningConfig{
			Provider:  "gemini",
			MaxTokens: 2048,
		},
		Server: ServerConfig{
			Port: 4000,
		},
		Storage: StorageConfig{
			DataDir: ":memory:",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// providerKeyEnv lists the vendor environment variables consulted for the
// reasoning credential when ROOTCAUSE_REASONING_API_KEY is unset.
var providerKeyEnv = map[string][]string{
	"gemini":     {"GEMINI_API_KEY", "GOOGLE_API_KEY"},
	"anthropic":  {"ANTHROPIC_API_KEY"},
	"openrouter": {"OPENROUTER_API_KEY"},
}

// Load reads configuration from the config file backend, environment
// variables, and the platform secret store.
//
// The config file is $XDG_CONFIG_HOME/rootcause/config.yaml. Environment
// variables (ROOTCAUSE_*) override file values. The reasoning credential is
// looked up, in order, in ROOTCAUSE_REASONING_API_KEY, the provider's own
// variable (GEMINI_API_KEY, ANTHROPIC_API_KEY, OPENROUTER_API_KEY), and the
// secret store.
//
// A missing credential is not an error: the reasoning service reports itself
// unavailable instead.
func Load() (Config, error) {
	return loadWith(newPlatformBackend(), keychainReader{})
}

// keychain abstracts secret store access for testing.
type keychain interface {
	Get(service, account string) (string, error)
}

func loadFromPath(path string, kc keychain) (Config, error) {
	return loadWith(newFileBackend(path), kc)
}

func loadWith(b ConfigBackend, kc keychain) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	if cfg.Reasoning.APIKey == "" {
		for _, env := range providerKeyEnv[strings.ToLower(cfg.Reasoning.Provider)] {
			if v := os.Getenv(env); v != "" {
				cfg.Reasoning.APIKey = v
				break
			}
		}
	}

	if cfg.Reasoning.APIKey == "" {
		if key, err := kc.Get(secretService, apiKeyAccount); err == nil && key != "" {
			cfg.Reasoning.APIKey = key
		}
	}

	if cfg.Server.Token == "" {
		if tok, err := kc.Get(secretService, serverTokenAccount); err == nil && tok != "" {
			cfg.Server.Token = tok
		}
	}

	return cfg, nil
}

const (
	secretService      = "rootcause"
	apiKeyAccount      = "reasoning_api_key"
	serverTokenAccount = "server_token"
)

// keychainReader reads from the platform secret store.
type keychainReader struct{}

func (keychainReader) Get(service, account string) (string, error) {
	out, err := keychainGet(service, account)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}
