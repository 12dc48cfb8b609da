package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

const sampleYAML = `
api:
  client_id: global-id
  client_secret: global-secret
  locale: en
  base_api_url: https://api.edflex.test
  timeout: 10s
tenants:
  - org: OrgA
    enabled: true
    client_id: a-id
    client_secret: a-secret
    locale: fr
    base_api_url: https://a.edflex.test
  - org: OrgB
    enabled: true
    client_id: b-id
  - org: OrgC
    enabled: false
    client_id: c-id
    client_secret: c-secret
    locale: de
    base_api_url: https://c.edflex.test
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "edflex.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("", true)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.API.MaxAttempts != 1 {
		t.Errorf("Expected MaxAttempts to be 1, got %d", cfg.API.MaxAttempts)
	}
	if cfg.API.Timeout != 30*time.Second {
		t.Errorf("Expected Timeout to be 30s, got %v", cfg.API.Timeout)
	}
	if cfg.Refresh.Depth != 4 {
		t.Errorf("Expected Refresh.Depth to be 4, got %d", cfg.Refresh.Depth)
	}
	if cfg.SFTP.Port != 22 {
		t.Errorf("Expected default SFTP port to be 22, got %d", cfg.SFTP.Port)
	}
	if cfg.SFTP.RemoteDir != "/inbound" {
		t.Errorf("Expected default SFTP dir to be '/inbound', got '%s'", cfg.SFTP.RemoteDir)
	}
	// full sync runs every midnight in January
	if cfg.Cron.FullSync != "0 0 0 * 1 *" {
		t.Errorf("Expected FullSync to be '0 0 0 * 1 *', got '%s'", cfg.Cron.FullSync)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("EDFLEX_API_CLIENT_ID", "env-id")
	t.Setenv("EDFLEX_API_CLIENT_SECRET", "env-secret")
	t.Setenv("EDFLEX_API_LOCALE", "es")
	t.Setenv("EDFLEX_API_BASE_API_URL", "https://env.edflex.test")
	t.Setenv("EDFLEX_SFTP_PORT", "2222")

	cfg, err := Load("", true)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	g, err := cfg.Global()
	if err != nil {
		t.Fatalf("Global() error = %v", err)
	}
	if g.ClientID != "env-id" || g.Locale != "es" || g.BaseAPIURL != "https://env.edflex.test" {
		t.Errorf("unexpected global config: %+v", g)
	}
	if cfg.SFTP.Port != 2222 {
		t.Errorf("Expected SFTP port 2222, got %d", cfg.SFTP.Port)
	}
}

func TestLoadFromFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleYAML), false)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(cfg.Tenants) != 3 {
		t.Fatalf("Expected 3 tenants, got %d", len(cfg.Tenants))
	}
	if cfg.API.Timeout != 10*time.Second {
		t.Errorf("Expected Timeout to be 10s, got %v", cfg.API.Timeout)
	}
}

func TestResolve(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleYAML), false)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	testCases := []struct {
		org       string
		wantScope string
		wantID    string
	}{
		{"OrgA", "OrgA", "a-id"},
		{"orga", "OrgA", "a-id"},
		{"OrgB", GlobalScope, "global-id"}, // incomplete override falls back
		{"Unknown", GlobalScope, "global-id"},
		{"", GlobalScope, "global-id"},
	}

	for _, tc := range testCases {
		got, err := cfg.Resolve(tc.org)
		if err != nil {
			t.Errorf("Resolve(%q) error = %v", tc.org, err)
			continue
		}
		if got.Scope != tc.wantScope || got.ClientID != tc.wantID {
			t.Errorf("Resolve(%q) = %s/%s; expected %s/%s", tc.org, got.Scope, got.ClientID, tc.wantScope, tc.wantID)
		}
	}
}

func TestResolveMissingGlobal(t *testing.T) {
	cfg := Config{API: APIConfig{ClientID: "only-id"}}

	_, err := cfg.Resolve("OrgX")
	if err == nil {
		t.Fatal("Expected configuration error")
	}

	var cerr *ConfigError
	if !errors.As(err, &cerr) {
		t.Fatalf("Expected *ConfigError, got %T", err)
	}
	if cerr.Scope != GlobalScope {
		t.Errorf("Expected scope %q, got %q", GlobalScope, cerr.Scope)
	}
	want := []string{"client_secret", "locale", "base_api_url"}
	if len(cerr.Missing) != len(want) {
		t.Fatalf("Expected missing %v, got %v", want, cerr.Missing)
	}
	for i := range want {
		if cerr.Missing[i] != want[i] {
			t.Errorf("Missing[%d] = %q; expected %q", i, cerr.Missing[i], want[i])
		}
	}
}

func TestSyncScopes(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleYAML), false)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	scopes, errs := cfg.SyncScopes()
	if len(scopes) != 2 {
		t.Fatalf("Expected 2 scopes, got %d", len(scopes))
	}
	if scopes[0].Scope != GlobalScope || scopes[1].Scope != "OrgA" {
		t.Errorf("unexpected scope order: %s, %s", scopes[0].Scope, scopes[1].Scope)
	}
	if len(errs) != 1 {
		t.Fatalf("Expected 1 error for OrgB, got %d", len(errs))
	}

	// Without global credentials only tenants remain.
	cfg.API = APIConfig{}
	scopes, _ = cfg.SyncScopes()
	if len(scopes) != 1 || scopes[0].Scope != "OrgA" {
		t.Errorf("Expected only OrgA, got %+v", scopes)
	}
}
