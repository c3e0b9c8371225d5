package datum

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
)

const modelSuffix = ".ai_model.toml"

// ModelDatum describes an AI model provider: which endpoint serves it and
// which environment variable carries the credential. Credentials are never
// hardcoded; the datum only names where to find them.
type ModelDatum struct {
	Name          string         `toml:"name"`
	Provider      string         `toml:"provider"`
	APIBase       string         `toml:"api_base"`
	APIKeyEnv     string         `toml:"api_key_env"`
	LitellmModel  string         `toml:"litellm_model"`
	ContextWindow int            `toml:"context_window"`
	Capabilities  []string       `toml:"capabilities"`
	Parameters    map[string]any `toml:"parameters"`
}

type modelDoc struct {
	B00t ModelDatum `toml:"b00t"`
}

// SecretSource is a fallback credential lookup consulted when the datum's
// env var is unset (the encrypted secret store implements this).
type SecretSource interface {
	GetSecret(name string) (string, bool)
}

// LoadModel reads "<name>.ai_model.toml" from dir.
func LoadModel(dir, name string) (*ModelDatum, error) {
	path := filepath.Join(dir, name+modelSuffix)
	var doc modelDoc
	if _, err := toml.DecodeFile(path, &doc); err != nil {
		return nil, fmt.Errorf("load model datum %q: %w", name, err)
	}

	d := doc.B00t
	if d.Name == "" {
		d.Name = name
	}
	if d.ContextWindow == 0 {
		d.ContextWindow = 4096
	}
	return &d, nil
}

// ListModels returns the names of all model datums in dir, sorted.
func ListModels(dir string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*"+modelSuffix))
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, strings.TrimSuffix(filepath.Base(m), modelSuffix))
	}
	sort.Strings(names)
	return names, nil
}

// ValidateEnv reports whether the credential env var the datum declares is
// present, and which vars are missing. A datum with no api_key_env needs
// nothing.
func (d *ModelDatum) ValidateEnv() (bool, []string) {
	if d.APIKeyEnv == "" {
		return true, nil
	}
	if _, ok := os.LookupEnv(d.APIKeyEnv); !ok {
		return false, []string{d.APIKeyEnv}
	}
	return true, nil
}

// ResolveAPIKey returns the credential for this model: the declared env var
// first, then the secret source under the same name.
func (d *ModelDatum) ResolveAPIKey(secrets SecretSource) (string, error) {
	if d.APIKeyEnv == "" {
		return "", nil
	}
	if v, ok := os.LookupEnv(d.APIKeyEnv); ok && v != "" {
		return v, nil
	}
	if secrets != nil {
		if v, ok := secrets.GetSecret(d.APIKeyEnv); ok {
			return v, nil
		}
	}
	return "", fmt.Errorf("credential %s not set for model %s", d.APIKeyEnv, d.Name)
}
