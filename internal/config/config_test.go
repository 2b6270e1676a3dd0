package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const validConfig = `
server:
  port: 9090
storage:
  driver: sqlite
  path: /tmp/linkai.db
providers:
  openai:
    api_key: ${TEST_OPENAI_KEY}
agents:
  - agent_id: support
    tenant_id: acme
    system_prompt: "You help customers."
    provider: openai
    model: gpt-4o-mini
    max_tokens: 512
`

func TestLoad(t *testing.T) {
	t.Setenv("TEST_OPENAI_KEY", "sk-test-value")

	config, err := Load(writeConfig(t, validConfig))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if config.Server.Port != 9090 {
		t.Errorf("port = %d", config.Server.Port)
	}
	if config.Server.Host != "0.0.0.0" {
		t.Errorf("default host not applied: %q", config.Server.Host)
	}
	if config.Providers.OpenAI.APIKey != "sk-test-value" {
		t.Errorf("env expansion failed: %q", config.Providers.OpenAI.APIKey)
	}
	if !config.Providers.OpenAI.Enabled() || config.Providers.Anthropic.Enabled() {
		t.Errorf("provider enablement wrong")
	}

	agents := config.AgentMap()
	if agents["support"] == nil || agents["support"].Model != "gpt-4o-mini" {
		t.Errorf("agents = %+v", agents)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load("/does/not/exist.yaml"); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestValidate_RejectsBadStorageDriver(t *testing.T) {
	config := Default()
	config.Storage.Driver = "postgres"
	if err := config.Validate(); err == nil {
		t.Fatalf("expected unknown driver to fail validation")
	}
}

func TestValidate_RejectsSQLiteWithoutPath(t *testing.T) {
	config := Default()
	config.Storage.Driver = "sqlite"
	if err := config.Validate(); err == nil {
		t.Fatalf("expected sqlite without path to fail validation")
	}
}

func TestValidate_RejectsDuplicateAgents(t *testing.T) {
	_, err := Load(writeConfig(t, `
agents:
  - agent_id: a1
    provider: openai
    model: gpt-4o-mini
  - agent_id: a1
    provider: openai
    model: gpt-4o-mini
`))
	if err == nil {
		t.Fatalf("expected duplicate agent_id to fail")
	}
}

func TestValidate_RejectsUnknownProvider(t *testing.T) {
	_, err := Load(writeConfig(t, `
agents:
  - agent_id: a1
    provider: mistral
    model: small
`))
	if err == nil {
		t.Fatalf("expected unknown provider to fail")
	}
}
