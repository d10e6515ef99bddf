package config

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// WriteDefault writes a starter config.yaml at path. It refuses to
// overwrite an existing file.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return eris.Errorf("config: %s already exists", path)
	}

	cfg := Config{
		Source: SourceConfig{
			Path:         "pcos.xlsx",
			FallbackPath: "test_pcos.xlsx",
		},
		Cache: CacheConfig{Dir: ".cache"},
		Anthropic: AnthropicConfig{
			Model:     "claude-sonnet-4-5-20250929",
			MaxTokens: 4096,
		},
		Agent: AgentConfig{
			MaxToolIterations: 8,
			RequestsPerMinute: 30,
		},
		Server: ServerConfig{Port: 8080},
		Log:    LogConfig{Level: "info", Format: "json"},
	}

	raw, err := yaml.Marshal(&cfg)
	if err != nil {
		return eris.Wrap(err, "config: marshal defaults")
	}

	header := []byte("# itr-cli configuration. Values can be overridden with ITR_* env vars,\n# e.g. ITR_ANTHROPIC_KEY.\n")
	if err := os.WriteFile(path, append(header, raw...), 0o644); err != nil {
		return eris.Wrapf(err, "config: write %s", path)
	}
	return nil
}
