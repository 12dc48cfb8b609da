package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// GlobalScope names the platform-wide credential set.
const GlobalScope = "global"

type Config struct {
	App     AppConfig        `mapstructure:"app"`
	Log     LogConfig        `mapstructure:"log"`
	DB      DBConfig         `mapstructure:"db"`
	API     APIConfig        `mapstructure:"api"`
	Tenants []TenantSettings `mapstructure:"tenants"`
	Cron    CronConfig       `mapstructure:"cron"`
	Refresh RefreshConfig    `mapstructure:"refresh"`
	Server  ServerConfig     `mapstructure:"server"`
	Export  ExportConfig     `mapstructure:"export"`
	SFTP    SFTPConfig       `mapstructure:"sftp"`
}

type AppConfig struct {
	Env string `mapstructure:"env"`
}

type LogConfig struct {
	Level             string `mapstructure:"level"`
	Encoding          string `mapstructure:"encoding"`
	Development       bool   `mapstructure:"development"`
	Sampling          bool   `mapstructure:"sampling"`
	DisableCaller     bool   `mapstructure:"disable_caller"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace"`
}

type DBConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// APIConfig holds the platform-wide partner API settings. The credential
// fields double as the fallback for organizations without their own.
type APIConfig struct {
	ClientID      string        `mapstructure:"client_id"`
	ClientSecret  string        `mapstructure:"client_secret"`
	Locale        string        `mapstructure:"locale"`
	BaseAPIURL    string        `mapstructure:"base_api_url"`
	Timeout       time.Duration `mapstructure:"timeout"`
	MaxAttempts   int           `mapstructure:"max_attempts"`
	DetailWorkers int           `mapstructure:"detail_workers"`
}

// TenantSettings is one organization's override block.
type TenantSettings struct {
	Org          string `mapstructure:"org"`
	Enabled      bool   `mapstructure:"enabled"`
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	Locale       string `mapstructure:"locale"`
	BaseAPIURL   string `mapstructure:"base_api_url"`
}

type CronConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	FullSync string `mapstructure:"full_sync"`
	NewSync  string `mapstructure:"new_sync"`
	Refresh  string `mapstructure:"refresh"`
	// Export is empty by default, leaving the CSV export manual.
	Export   string `mapstructure:"export"`
}

type RefreshConfig struct {
	Workers int `mapstructure:"workers"`
	Depth   int `mapstructure:"depth"`
}

type ServerConfig struct {
	HTTPAddr string `mapstructure:"http_addr"`
}

type ExportConfig struct {
	Path   string `mapstructure:"path"`
	Brotli bool   `mapstructure:"brotli"`
	Upload bool   `mapstructure:"upload"`
}

type SFTPConfig struct {
	Host                  string `mapstructure:"host"`
	Port                  int    `mapstructure:"port"`
	User                  string `mapstructure:"user"`
	Pass                  string `mapstructure:"pass"`
	RemoteDir             string `mapstructure:"remote_dir"`
	KnownHosts            string `mapstructure:"known_hosts"`
	InsecureIgnoreHostKey bool   `mapstructure:"insecure_ignore_host_key"`
}

// TenantConfig is a fully populated credential set for one scope.
type TenantConfig struct {
	Scope        string
	ClientID     string
	ClientSecret string
	Locale       string
	BaseAPIURL   string
}

// ConfigError reports a scope whose credential set is incomplete.
type ConfigError struct {
	Scope   string
	Missing []string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: scope %q is missing %s", e.Scope, strings.Join(e.Missing, ", "))
}

func Load(path string, envOnly bool) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("EDFLEX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
	}
	v.AutomaticEnv()

	v.SetDefault("app.env", "dev")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "console")
	v.SetDefault("log.development", true)
	v.SetDefault("log.sampling", false)
	v.SetDefault("log.disable_caller", false)
	v.SetDefault("log.disable_stacktrace", false)
	v.SetDefault("db.dsn", "")
	v.SetDefault("db.max_open_conns", 10)
	v.SetDefault("db.max_idle_conns", 2)
	v.SetDefault("db.conn_max_lifetime", "30m")
	v.SetDefault("db.conn_max_idle_time", "5m")
	v.SetDefault("db.auto_migrate", true)
	v.SetDefault("api.client_id", "")
	v.SetDefault("api.client_secret", "")
	v.SetDefault("api.locale", "")
	v.SetDefault("api.base_api_url", "")
	v.SetDefault("api.timeout", "30s")
	v.SetDefault("api.max_attempts", 1)
	v.SetDefault("api.detail_workers", 1)
	v.SetDefault("cron.enabled", true)
	v.SetDefault("cron.full_sync", "0 0 0 * 1 *")
	v.SetDefault("cron.new_sync", "0 0 2 * * *")
	v.SetDefault("cron.refresh", "0 30 3 * * *")
	v.SetDefault("cron.export", "")
	v.SetDefault("refresh.workers", 1)
	v.SetDefault("refresh.depth", 4)
	v.SetDefault("server.http_addr", ":8080")
	v.SetDefault("export.path", "edflex_resources.csv")
	v.SetDefault("export.brotli", false)
	v.SetDefault("export.upload", false)
	v.SetDefault("sftp.host", "")
	v.SetDefault("sftp.port", 22)
	v.SetDefault("sftp.user", "")
	v.SetDefault("sftp.pass", "")
	v.SetDefault("sftp.remote_dir", "/inbound")
	v.SetDefault("sftp.known_hosts", "")
	v.SetDefault("sftp.insecure_ignore_host_key", false)

	if !envOnly && path != "" {
		if err := v.ReadInConfig(); err != nil {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Global returns the platform-wide credential set.
func (c Config) Global() (TenantConfig, error) {
	return complete(GlobalScope, c.API.ClientID, c.API.ClientSecret, c.API.Locale, c.API.BaseAPIURL)
}

// Resolve returns the credentials for an organization. An organization that
// configures all four credential fields uses them; otherwise the global set
// applies.
func (c Config) Resolve(org string) (TenantConfig, error) {
	if t, ok := c.tenant(org); ok {
		if tc, err := complete(t.Org, t.ClientID, t.ClientSecret, t.Locale, t.BaseAPIURL); err == nil {
			return tc, nil
		}
	}
	return c.Global()
}

// SyncScopes lists the credential sets the catalog sync jobs run for: the
// global set when it is complete, then every enabled organization whose own
// set is complete. Incomplete organizations are returned as errors so the
// caller can report them.
func (c Config) SyncScopes() ([]TenantConfig, []error) {
	var (
		out  []TenantConfig
		errs []error
	)
	if g, err := c.Global(); err == nil {
		out = append(out, g)
	}
	for _, t := range c.Tenants {
		if !t.Enabled {
			continue
		}
		tc, err := complete(t.Org, t.ClientID, t.ClientSecret, t.Locale, t.BaseAPIURL)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out = append(out, tc)
	}
	return out, errs
}

func (c Config) tenant(org string) (TenantSettings, bool) {
	org = strings.TrimSpace(org)
	if org == "" {
		return TenantSettings{}, false
	}
	for _, t := range c.Tenants {
		if strings.EqualFold(strings.TrimSpace(t.Org), org) {
			return t, true
		}
	}
	return TenantSettings{}, false
}

func complete(scope, clientID, clientSecret, locale, baseURL string) (TenantConfig, error) {
	var missing []string
	if strings.TrimSpace(clientID) == "" {
		missing = append(missing, "client_id")
	}
	if strings.TrimSpace(clientSecret) == "" {
		missing = append(missing, "client_secret")
	}
	if strings.TrimSpace(locale) == "" {
		missing = append(missing, "locale")
	}
	if strings.TrimSpace(baseURL) == "" {
		missing = append(missing, "base_api_url")
	}
	if len(missing) > 0 {
		return TenantConfig{}, &ConfigError{Scope: scope, Missing: missing}
	}
	return TenantConfig{
		Scope:        scope,
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Locale:       locale,
		BaseAPIURL:   baseURL,
	}, nil
}
