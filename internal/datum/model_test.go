package datum

import (
	"os"
	"path/filepath"
	"testing"
)

const qwenDatum = `
[b00t]
name = "qwen-2.5-72b"
type = "ai_model"
provider = "openrouter"
api_base = "https://openrouter.ai/api/v1"
api_key_env = "OPENROUTER_API_KEY"
litellm_model = "openrouter/qwen/qwen-2.5-72b-instruct"
context_window = 32768

[b00t.parameters]
temperature = 0.7
`

func writeModelDatum(t *testing.T, dir, name, doc string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name+".ai_model.toml"), []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadModel(t *testing.T) {
	dir := t.TempDir()
	writeModelDatum(t, dir, "qwen-2.5-72b", qwenDatum)

	d, err := LoadModel(dir, "qwen-2.5-72b")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if d.Provider != "openrouter" {
		t.Errorf("expected provider openrouter, got %s", d.Provider)
	}
	if d.APIBase != "https://openrouter.ai/api/v1" {
		t.Errorf("unexpected api_base: %s", d.APIBase)
	}
	if d.APIKeyEnv != "OPENROUTER_API_KEY" {
		t.Errorf("unexpected api_key_env: %s", d.APIKeyEnv)
	}
	if d.ContextWindow != 32768 {
		t.Errorf("expected context_window 32768, got %d", d.ContextWindow)
	}
	if d.Parameters["temperature"] != 0.7 {
		t.Errorf("unexpected temperature: %v", d.Parameters["temperature"])
	}
}

func TestLoadModelMissing(t *testing.T) {
	if _, err := LoadModel(t.TempDir(), "nope"); err == nil {
		t.Fatal("expected error for missing datum")
	}
}

func TestListModels(t *testing.T) {
	dir := t.TempDir()
	writeModelDatum(t, dir, "qwen-2.5-72b", qwenDatum)
	writeModelDatum(t, dir, "claude-3-5-sonnet", `
[b00t]
provider = "anthropic"
api_key_env = "ANTHROPIC_API_KEY"
`)
	// Unrelated datum files are ignored
	if err := os.WriteFile(filepath.Join(dir, "crawl.mcp.toml"), []byte("[b00t]\nname = \"crawl\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	names, err := ListModels(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(names) != 2 {
		t.Fatalf("expected 2 models, got %v", names)
	}
	if names[0] != "claude-3-5-sonnet" || names[1] != "qwen-2.5-72b" {
		t.Errorf("unexpected names order: %v", names)
	}
}

func TestValidateEnv(t *testing.T) {
	d := &ModelDatum{Name: "m", APIKeyEnv: "AGENTBUS_TEST_KEY"}

	t.Setenv("AGENTBUS_TEST_KEY", "")
	os.Unsetenv("AGENTBUS_TEST_KEY")
	ok, missing := d.ValidateEnv()
	if ok {
		t.Error("expected validation failure with unset env")
	}
	if len(missing) != 1 || missing[0] != "AGENTBUS_TEST_KEY" {
		t.Errorf("unexpected missing vars: %v", missing)
	}

	t.Setenv("AGENTBUS_TEST_KEY", "sk-123")
	ok, missing = d.ValidateEnv()
	if !ok {
		t.Error("expected validation success with env set")
	}
	if len(missing) != 0 {
		t.Errorf("expected no missing vars, got %v", missing)
	}

	// No declared env var means nothing is required
	none := &ModelDatum{Name: "local"}
	if ok, _ := none.ValidateEnv(); !ok {
		t.Error("expected datum without api_key_env to validate")
	}
}

type fakeSecrets map[string]string

func (f fakeSecrets) GetSecret(name string) (string, bool) {
	v, ok := f[name]
	return v, ok
}

func TestResolveAPIKey(t *testing.T) {
	d := &ModelDatum{Name: "m", APIKeyEnv: "AGENTBUS_TEST_KEY"}

	t.Setenv("AGENTBUS_TEST_KEY", "from-env")
	key, err := d.ResolveAPIKey(fakeSecrets{"AGENTBUS_TEST_KEY": "from-vault"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if key != "from-env" {
		t.Errorf("expected env to win, got %s", key)
	}
}

func TestResolveAPIKeyVaultFallback(t *testing.T) {
	d := &ModelDatum{Name: "m", APIKeyEnv: "AGENTBUS_TEST_KEY"}
	t.Setenv("AGENTBUS_TEST_KEY", "")
	os.Unsetenv("AGENTBUS_TEST_KEY")

	key, err := d.ResolveAPIKey(fakeSecrets{"AGENTBUS_TEST_KEY": "from-vault"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if key != "from-vault" {
		t.Errorf("expected vault fallback, got %s", key)
	}

	if _, err := d.ResolveAPIKey(fakeSecrets{}); err == nil {
		t.Fatal("expected error when credential is nowhere")
	}
}
