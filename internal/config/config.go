package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"
	"unicode"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/vonshlovens/notion-sync/internal/notion"
)

// ErrMissingCredentials is returned when the API token or the root page id
// is not configured.
var ErrMissingCredentials = errors.New("missing Notion credentials")

// Environment variables holding the credentials
const (
	EnvToken  = "NOTION_TOKEN"
	EnvRootID = "NOTION_ROOT_PAGE_ID"
	EnvPrefix = "NOTION_SYNC"
)

const appName = "notion-sync"

// Config holds all application configuration
type Config struct {
	Notion     NotionConfig   `mapstructure:"notion"`
	ContentDir string         `mapstructure:"content_dir" validate:"required"`
	PublicDir  string         `mapstructure:"public_dir" validate:"required"`
	Sync       SyncConfig     `mapstructure:"sync"`
	Database   DatabaseConfig `mapstructure:"database"`
	Serve      ServeConfig    `mapstructure:"serve"`
}

// NotionConfig holds the API connection settings
type NotionConfig struct {
	Token      string `mapstructure:"token"`
	RootPageID string `mapstructure:"root_page_id"`
	APIURL     string `mapstructure:"api_url" validate:"required,url"`
	Version    string `mapstructure:"version" validate:"required"`
	PageSize   int    `mapstructure:"page_size" validate:"min=1,max=100"`
}

// SyncConfig holds sync behavior settings
type SyncConfig struct {
	DownloadWorkers int      `mapstructure:"download_workers" validate:"min=1,max=32"`
	RetryAttempts   int      `mapstructure:"retry_attempts" validate:"min=0,max=10"`
	RetryDelayMs    int      `mapstructure:"retry_delay_ms" validate:"min=0"`
	TimeoutS        int      `mapstructure:"timeout_s" validate:"min=1"`
	Only            []string `mapstructure:"only"`
	Collections     []string `mapstructure:"collections"`
}

// DatabaseConfig holds the optional Postgres mirror settings
type DatabaseConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host" validate:"required_if=Enabled true"`
	Port     int    `mapstructure:"port" validate:"min=1,max=65535"`
	User     string `mapstructure:"user" validate:"required_if=Enabled true"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database" validate:"required_if=Enabled true"`
	Schema   string `mapstructure:"schema"` // Optional: derived from the site folder if not specified
	SSLMode  string `mapstructure:"sslmode"`
}

// ServeConfig holds dev server settings
type ServeConfig struct {
	Addr            string   `mapstructure:"addr" validate:"required"`
	WatchDebounceMs int      `mapstructure:"watch_debounce_ms" validate:"min=0"`
	IgnorePatterns  []string `mapstructure:"ignore_patterns"`
}

// ConnectionString returns the PostgreSQL connection string
func (d *DatabaseConfig) ConnectionString() string {
	sslMode := d.SSLMode
	if sslMode == "" {
		sslMode = "require"
	}
	connStr := fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Database, sslMode,
	)
	if d.Schema != "" {
		connStr += "&search_path=" + d.Schema + ",public"
	}
	return connStr
}

// RetryDelay returns the base delay between API retries
func (s SyncConfig) RetryDelay() time.Duration {
	return time.Duration(s.RetryDelayMs) * time.Millisecond
}

// Timeout returns the per-request API timeout
func (s SyncConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutS) * time.Second
}

// RequireCredentials checks that the token and root page id are set and
// normalizes the root id to its dashed form.
func (c *Config) RequireCredentials() error {
	var missing []string
	if c.Notion.Token == "" {
		missing = append(missing, EnvToken)
	}
	if c.Notion.RootPageID == "" {
		missing = append(missing, EnvRootID)
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: set %s", ErrMissingCredentials, strings.Join(missing, " and "))
	}

	id, err := notion.NormalizeID(c.Notion.RootPageID)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMissingCredentials, EnvRootID, err)
	}
	c.Notion.RootPageID = id
	return nil
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Notion: NotionConfig{
			APIURL:   notion.DefaultBaseURL,
			Version:  notion.DefaultVersion,
			PageSize: notion.DefaultPageSize,
		},
		ContentDir: "content",
		PublicDir:  "public",
		Sync: SyncConfig{
			DownloadWorkers: 4,
			RetryAttempts:   3,
			RetryDelayMs:    1000,
			TimeoutS:        30,
		},
		Database: DatabaseConfig{
			Port:    5432,
			SSLMode: "require",
		},
		Serve: ServeConfig{
			Addr:            "127.0.0.1:4321",
			WatchDebounceMs: 300,
			IgnorePatterns: []string{
				"**/.*.tmp-*",
				"**/.DS_Store",
				"**/*~",
			},
		},
	}
}

// Load reads configuration from file, .env and environment
func Load(configPath string) (*Config, error) {
	loadDotEnv()

	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("notion.api_url", defaults.Notion.APIURL)
	v.SetDefault("notion.version", defaults.Notion.Version)
	v.SetDefault("notion.page_size", defaults.Notion.PageSize)
	v.SetDefault("content_dir", defaults.ContentDir)
	v.SetDefault("public_dir", defaults.PublicDir)
	v.SetDefault("sync.download_workers", defaults.Sync.DownloadWorkers)
	v.SetDefault("sync.retry_attempts", defaults.Sync.RetryAttempts)
	v.SetDefault("sync.retry_delay_ms", defaults.Sync.RetryDelayMs)
	v.SetDefault("sync.timeout_s", defaults.Sync.TimeoutS)
	v.SetDefault("database.port", defaults.Database.Port)
	v.SetDefault("database.sslmode", defaults.Database.SSLMode)
	v.SetDefault("serve.addr", defaults.Serve.Addr)
	v.SetDefault("serve.watch_debounce_ms", defaults.Serve.WatchDebounceMs)
	v.SetDefault("serve.ignore_patterns", defaults.Serve.IgnorePatterns)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(getConfigDir())
	}

	v.AutomaticEnv()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// The credentials keep their conventional names, without the prefix
	if err := v.BindEnv("notion.token", EnvToken, EnvPrefix+"_NOTION_TOKEN"); err != nil {
		return nil, fmt.Errorf("failed to bind %s: %w", EnvToken, err)
	}
	if err := v.BindEnv("notion.root_page_id", EnvRootID, EnvPrefix+"_NOTION_ROOT_PAGE_ID"); err != nil {
		return nil, fmt.Errorf("failed to bind %s: %w", EnvRootID, err)
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Secrets may be written as ${VAR} in the config file
	cfg.Notion.Token = os.ExpandEnv(cfg.Notion.Token)
	cfg.Notion.RootPageID = os.ExpandEnv(cfg.Notion.RootPageID)
	cfg.Database.Password = os.ExpandEnv(cfg.Database.Password)

	cfg.ContentDir = expandPath(cfg.ContentDir)
	cfg.PublicDir = expandPath(cfg.PublicDir)

	if cfg.Database.Schema == "" {
		cfg.Database.Schema = SanitizeIdentifier(siteName(cfg.ContentDir))
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// loadDotEnv loads the nearest .env file from the working directory or
// its parents. Variables already in the environment win.
func loadDotEnv() {
	dir, err := os.Getwd()
	if err != nil {
		return
	}
	for {
		path := filepath.Join(dir, ".env")
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return
		}
		dir = parent
	}
}

// siteName names the site after the folder holding the content directory
func siteName(contentDir string) string {
	abs, err := filepath.Abs(contentDir)
	if err != nil {
		return ""
	}
	return filepath.Base(filepath.Dir(abs))
}

// getConfigDir returns the appropriate config directory for the OS
func getConfigDir() string {
	switch runtime.GOOS {
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, appName)
		}
		return filepath.Join(os.Getenv("USERPROFILE"), ".config", appName)
	default:
		if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
			return filepath.Join(xdgConfig, appName)
		}
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", appName)
	}
}

// GetStateDir returns the directory for storing state files
func GetStateDir() (string, error) {
	dir := getConfigDir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create state directory: %w", err)
	}
	return dir, nil
}

// expandPath expands ~ and environment variables in a path
func expandPath(path string) string {
	if strings.HasPrefix(path, "~") {
		home, _ := os.UserHomeDir()
		path = filepath.Join(home, path[1:])
	}
	return os.ExpandEnv(path)
}

var (
	invalidIdentRegex = regexp.MustCompile(`[^a-z0-9_]`)
	underscoreRegex   = regexp.MustCompile(`_+`)
)

// SanitizeIdentifier converts a site name into a valid PostgreSQL identifier (schema name)
// Rules:
// - Lowercase only
// - Starts with letter or underscore
// - Contains only letters, digits, underscores
// - Spaces and hyphens become underscores
// - Max 63 characters (PostgreSQL limit)
func SanitizeIdentifier(name string) string {
	name = strings.ToLower(name)
	name = strings.NewReplacer(" ", "_", "-", "_", ".", "_").Replace(name)
	name = invalidIdentRegex.ReplaceAllString(name, "")
	name = underscoreRegex.ReplaceAllString(name, "_")
	name = strings.Trim(name, "_")

	if len(name) == 0 {
		name = "site"
	} else if unicode.IsDigit(rune(name[0])) {
		name = "site_" + name
	}

	if len(name) > 63 {
		name = strings.TrimRight(name[:63], "_")
	}

	return name
}

// Template is the starter config written by the init command
var Template = heredoc.Doc(`
	# notion-sync configuration
	#
	# Credentials are read from the environment (or a .env file):
	#   NOTION_TOKEN         integration token
	#   NOTION_ROOT_PAGE_ID  id or URL of the page holding the site content

	notion:
	  # token: ${NOTION_TOKEN}
	  # root_page_id: ${NOTION_ROOT_PAGE_ID}
	  page_size: 100

	content_dir: content
	public_dir: public

	sync:
	  download_workers: 4
	  retry_attempts: 3
	  retry_delay_ms: 1000
	  timeout_s: 30
	  # Restrict which steps run, as glob patterns over step names
	  # (site, collections, injection, advanced, home, authors, navbar,
	  # collection/<slug>).
	  # only: ["site", "collection/*"]
	  # Collections to sync when there is no Collections database
	  # collections: ["Projects", "Blog"]

	database:
	  enabled: false
	  host: localhost
	  port: 5432
	  user: postgres
	  password: ${PGPASSWORD}
	  database: content
	  sslmode: disable

	serve:
	  addr: 127.0.0.1:4321
	  watch_debounce_ms: 300
`)

// WriteTemplate writes the starter config to path, refusing to overwrite
func WriteTemplate(path string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()
	if _, err := f.WriteString(Template); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
