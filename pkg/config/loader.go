package config

import (
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Deltares-research/DHYDROGUI-sub021/pkg/errors"
)

// Load reads an ImportConfig from a YAML file. Fields missing from the file
// keep their defaults.
func Load(filePath string) (*ImportConfig, error) {
	cfg := NewImportConfig()
	if err := LoadInto(filePath, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadInto reads a YAML file into v after substituting environment variables.
func LoadInto(filePath string, v interface{}) error {
	data, err := os.ReadFile(filePath) //nolint:gosec // G304: path comes from the command line
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeConfig, "failed to read config file").
			WithDetail("path", filePath)
	}
	return Parse(data, v)
}

// Parse decodes YAML into v after substituting environment variables.
func Parse(data []byte, v interface{}) error {
	content := substituteEnvVars(string(data))
	if err := yaml.Unmarshal([]byte(content), v); err != nil {
		return errors.Wrap(err, errors.ErrorTypeConfig, "failed to parse YAML")
	}
	return nil
}

// Save writes cfg to a YAML file.
func Save(filePath string, cfg interface{}) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeConfig, "failed to marshal YAML")
	}
	if err := os.WriteFile(filePath, data, 0644); err != nil { //nolint:gosec
		return errors.Wrap(err, errors.ErrorTypeConfig, "failed to write config file").
			WithDetail("path", filePath)
	}
	return nil
}

// substituteEnvVars replaces ${VAR} with the value of VAR and ${VAR:-def}
// with def when VAR is unset or empty.
func substituteEnvVars(content string) string {
	var sb strings.Builder
	for {
		start := strings.Index(content, "${")
		if start == -1 {
			break
		}
		end := strings.Index(content[start:], "}")
		if end == -1 {
			break
		}
		end += start

		expr := content[start+2 : end]
		name, def, hasDefault := strings.Cut(expr, ":-")
		value := os.Getenv(name)
		if value == "" && hasDefault {
			value = def
		}
		sb.WriteString(content[:start])
		sb.WriteString(value)
		content = content[end+1:]
	}
	sb.WriteString(content)
	return sb.String()
}
