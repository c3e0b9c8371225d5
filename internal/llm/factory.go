package llm

import (
	"fmt"
	"os"
	"strings"

	"github.com/agentbus/agentbus/internal/datum"
)

// Factory resolves model identifiers to chat providers. Identifiers with a
// provider prefix ("anthropic/claude-sonnet-4") route directly; bare names
// are looked up as ai_model datums and served over the OpenAI-compatible
// endpoint the datum describes.
type Factory struct {
	datumDir string
	secrets  datum.SecretSource
}

func NewFactory(datumDir string, secrets datum.SecretSource) *Factory {
	return &Factory{datumDir: datumDir, secrets: secrets}
}

// ProviderFor returns the provider and the model name to pass on the wire.
func (f *Factory) ProviderFor(model string) (Provider, string, error) {
	if name, ok := strings.CutPrefix(model, "anthropic/"); ok {
		key := f.secretValue("ANTHROPIC_API_KEY")
		if key == "" {
			return nil, "", fmt.Errorf("ANTHROPIC_API_KEY is not set")
		}
		return NewAnthropic(key), name, nil
	}
	if name, ok := strings.CutPrefix(model, "openai/"); ok {
		key := f.secretValue("OPENAI_API_KEY")
		if key == "" {
			return nil, "", fmt.Errorf("OPENAI_API_KEY is not set")
		}
		return NewOpenAI("openai", "", key), name, nil
	}

	md, err := datum.LoadModel(f.datumDir, model)
	if err != nil {
		return nil, "", fmt.Errorf("resolve model %q: %w", model, err)
	}
	key, err := md.ResolveAPIKey(f.secrets)
	if err != nil {
		return nil, "", fmt.Errorf("resolve model %q: %w", model, err)
	}
	resolved := md.LitellmModel
	if resolved == "" {
		resolved = md.Name
	}
	return NewOpenAI(md.Provider, md.APIBase, key), resolved, nil
}

func (f *Factory) secretValue(name string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	if f.secrets != nil {
		if v, ok := f.secrets.GetSecret(name); ok {
			return v
		}
	}
	return ""
}
