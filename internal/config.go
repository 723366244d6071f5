package internal

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/wmo-im/codelists/internal/registry"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Registry modes.
const (
	ModeTest = "test"
	ModeProd = "prod"
)

// Config represents the application configuration.
type Config struct {
	App      ApplicationConfig `yaml:"app"`
	Source   SourceConfig      `yaml:"source"`
	Output   OutputConfig      `yaml:"output"`
	Registry RegistryConfig    `yaml:"registry"`
	Sync     SyncConfig        `yaml:"sync"`
	SQLite   SQLiteConfig      `yaml:"sqlite"`
	Auth     AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return fmt.Errorf("app: %w", err)
	}
	if err := c.Source.Validate(); err != nil {
		return fmt.Errorf("source: %w", err)
	}
	if err := c.Output.Validate(); err != nil {
		return fmt.Errorf("output: %w", err)
	}
	if err := c.Registry.Validate(); err != nil {
		return fmt.Errorf("registry: %w", err)
	}
	if err := c.Sync.Validate(); err != nil {
		return fmt.Errorf("sync: %w", err)
	}
	if err := c.SQLite.Validate(); err != nil {
		return fmt.Errorf("sqlite: %w", err)
	}
	return c.Auth.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	// LogFile, when set, receives the JSON log through a rotating writer
	// instead of stderr.
	LogFile       string     `yaml:"log_file"`
	LogMaxSizeMB  int        `yaml:"log_max_size_mb"`
	LogMaxBackups int        `yaml:"log_max_backups"`
	HTTP          HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.LogMaxSizeMB, validation.Min(0)),
		validation.Field(&c.LogMaxBackups, validation.Min(0)),
	); err != nil {
		return err
	}
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// SourceConfig locates the CSV tree and names the root register built
// from it.
type SourceConfig struct {
	Dir             string `yaml:"dir"`
	RootName        string `yaml:"root_name"`
	RootDescription string `yaml:"root_description"`
}

// Validate validates the source configuration.
func (c *SourceConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Dir, validation.Required),
		validation.Field(&c.RootName, validation.Required, validation.By(plainName)),
	)
}

// OutputConfig holds the directory generated documents are written to.
type OutputConfig struct {
	Dir string `yaml:"dir"`
	// Bundle is the file the topic list is exported to.
	Bundle string `yaml:"bundle"`
}

// Validate validates the output configuration.
func (c *OutputConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Dir, validation.Required),
		validation.Field(&c.Bundle, validation.Required),
	)
}

// RegistryConfig holds the remote registry endpoints and session settings.
type RegistryConfig struct {
	Mode     string        `yaml:"mode"`
	TestURL  string        `yaml:"test_url"`
	ProdURL  string        `yaml:"prod_url"`
	Prefix   string        `yaml:"prefix"`
	Status   string        `yaml:"status"`
	User     string        `yaml:"user"`
	Password string        `yaml:"password"`
	DryRun   bool          `yaml:"dry_run"`
	Timeout  time.Duration `yaml:"timeout"`
	Retries  uint64        `yaml:"retries"`
}

// Validate validates the registry configuration.
func (c *RegistryConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(ModeTest, ModeProd)),
		validation.Field(&c.TestURL, validation.Required, validation.By(absoluteURL)),
		validation.Field(&c.ProdURL, validation.Required, validation.By(absoluteURL)),
		validation.Field(&c.Prefix, validation.Required),
		validation.Field(&c.Status, validation.Required, validation.In(registry.StatusExperimental, registry.StatusStable)),
		validation.Field(&c.Timeout, validation.Min(time.Duration(0))),
	)
}

// BaseURL returns the registry root selected by Mode.
func (c *RegistryConfig) BaseURL() string {
	if c.Mode == ModeProd {
		return c.ProdURL
	}
	return c.TestURL
}

// ValidateCredentials checks that a session can be opened. Dry runs never
// log in.
func (c *RegistryConfig) ValidateCredentials() error {
	if c.DryRun {
		return nil
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.User, validation.Required),
		validation.Field(&c.Password, validation.Required),
	)
}

// SyncConfig holds synchronizer tuning.
type SyncConfig struct {
	Workers int `yaml:"workers"`
}

// Validate validates the sync configuration.
func (c *SyncConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Workers, validation.Required, validation.Min(1), validation.Max(64)),
	)
}

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// AuthConfig holds authentication configuration for the browse API.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

func absoluteURL(value any) error {
	s, _ := value.(string)
	u, err := url.Parse(s)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return errors.New("must be an absolute URL")
	}
	return nil
}

func plainName(value any) error {
	s, _ := value.(string)
	for _, r := range s {
		if r == '/' || r == '\\' {
			return errors.New("must not contain path separators")
		}
	}
	if s == "." || s == ".." {
		return errors.New("must be a plain name")
	}
	return nil
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel:      slog.LevelInfo,
			LogMaxSizeMB:  10,
			LogMaxBackups: 3,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Source: SourceConfig{
			Dir:             "./topic-hierarchy",
			RootName:        "topic-hierarchy",
			RootDescription: "WIS2 topic hierarchy",
		},
		Output: OutputConfig{
			Dir:    "./wis",
			Bundle: "./topic-hierarchy.csv",
		},
		Registry: RegistryConfig{
			Mode:    ModeTest,
			TestURL: "https://ci.codes.wmo.int",
			ProdURL: "https://codes.wmo.int",
			Prefix:  "wis",
			Status:  registry.StatusExperimental,
			Timeout: 30 * time.Second,
			Retries: 3,
		},
		Sync: SyncConfig{
			Workers: 4,
		},
		SQLite: SQLiteConfig{
			Path: "./codelists.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
