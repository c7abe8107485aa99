package apikeys

import (
	"os"
	"path/filepath"
	"testing"
)

func TestEnvVarName(t *testing.T) {
	tests := []struct {
		provider string
		want     string
	}{
		{"openrouter", "OPENROUTER_API_KEY"},
		{"my-gateway", "MY_GATEWAY_API_KEY"},
		{"OpenRouter", "OPENROUTER_API_KEY"},
	}

	for _, tt := range tests {
		if got := envVarName(tt.provider); got != tt.want {
			t.Errorf("envVarName(%q) = %q, want %q", tt.provider, got, tt.want)
		}
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	want := map[string]string{"openrouter": "sk-abc", "other": "sk-def"}
	if err := saveAPIKeys(want); err != nil {
		t.Fatalf("saveAPIKeys: %v", err)
	}

	home, _ := os.UserHomeDir()
	info, err := os.Stat(filepath.Join(home, keysDir, keysFile))
	if err != nil {
		t.Fatalf("key file not written: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("key file mode = %v, want 0600", info.Mode().Perm())
	}

	got, err := loadAPIKeys()
	if err != nil {
		t.Fatalf("loadAPIKeys: %v", err)
	}
	if got["openrouter"] != "sk-abc" || got["other"] != "sk-def" {
		t.Errorf("loaded keys = %v, want %v", got, want)
	}
}

func TestLoadMissingFileReturnsEmpty(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	got, err := loadAPIKeys()
	if err != nil {
		t.Fatalf("loadAPIKeys: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("keys from missing file = %v, want empty", got)
	}
}

func TestGetAPIKeyFromEnv(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("COUNCILTEST_API_KEY", "sk-env")

	key, err := GetAPIKey("counciltest", false)
	if err != nil {
		t.Fatalf("GetAPIKey: %v", err)
	}
	if key != "sk-env" {
		t.Errorf("key = %q, want sk-env", key)
	}

	// Second lookup comes from the cache even without the env var.
	os.Unsetenv("COUNCILTEST_API_KEY")
	key, err = GetAPIKey("counciltest", false)
	if err != nil {
		t.Fatalf("GetAPIKey (cached): %v", err)
	}
	if key != "sk-env" {
		t.Errorf("cached key = %q, want sk-env", key)
	}
}

func TestGetAPIKeyMissingNonInteractive(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	if _, err := GetAPIKey("nokeyprovider", false); err == nil {
		t.Error("expected error for unknown provider without interaction")
	}
}
