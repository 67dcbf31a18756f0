package app

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/cocoaheadsnl/cloudsync/internal/cloudkit"
	"github.com/cocoaheadsnl/cloudsync/internal/output"
	"github.com/cocoaheadsnl/cloudsync/internal/sources/github"
	"github.com/cocoaheadsnl/cloudsync/internal/sources/meetup"
	"github.com/cocoaheadsnl/cloudsync/internal/transport"
	"github.com/cocoaheadsnl/cloudsync/pkg/errors"
	"github.com/cocoaheadsnl/cloudsync/pkg/sources"
)

// Config holds the application configuration loaded from config files,
// environment variables and .env files.
type Config struct {
	// Global flags
	Verbose  bool
	Quiet    bool
	LogLevel string // --log-level, empty unless given
	Format   string
	DryRun   bool
	Only     []string
	Memory   bool

	// Config file
	ConfigFile string

	// Sources
	MeetupAPIKey  string
	MeetupGroup   string
	MeetupBaseURL string
	GitHubToken   string
	GitHubRepo    string
	GitHubBaseURL string
	JobsFeedURL   string
	HTTPTimeout   time.Duration
	ShapePolicy   string

	// CloudKit
	CloudKitContainer      string
	CloudKitEnvironment    string
	CloudKitKeyID          string
	CloudKitPrivateKey     string // inline PEM, wins over the path
	CloudKitPrivateKeyPath string
	CloudKitBaseURL        string

	// Metrics
	PushgatewayURL string
	PushInstance   string

	// Logging configuration
	EnvLogLevel string // LOG_LEVEL
	LogFormat   string
	LogOutput   string
}

// configKeys are bound to their upper-cased environment variables.
var configKeys = []string{
	"meetup_api_key", "meetup_group", "meetup_base_url",
	"github_token", "github_repo", "github_base_url",
	"jobs_feed_url", "http_timeout", "shape_policy",
	"cloudkit_container", "cloudkit_environment", "cloudkit_key_id",
	"cloudkit_private_key", "cloudkit_private_key_path", "cloudkit_base_url",
	"pushgateway_url", "push_instance",
	"log_level", "log_format", "log_output",
	"format", "dry_run",
}

// LoadConfig loads configuration from all sources in order of precedence:
//  1. Command-line flags (applied later by UpdateFromFlags)
//  2. Environment variables
//  3. .env files
//  4. Config file (configFile, or .cloudsync.yaml in $HOME or the working directory)
//  5. Defaults
func LoadConfig(configFile string) (*Config, error) {
	// Load .env files first so viper sees them as environment
	loadEnvFiles()

	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	for _, key := range configKeys {
		if err := v.BindEnv(key, strings.ToUpper(key)); err != nil {
			return nil, errors.NewConfigError("app", "binding "+key, err)
		}
	}
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.NewConfigError("app", "reading "+configFile, err)
		}
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName(".cloudsync")
		// A missing default config file is fine
		_ = v.ReadInConfig()
	}

	return &Config{
		Format:     v.GetString("format"),
		DryRun:     v.GetBool("dry_run"),
		ConfigFile: v.ConfigFileUsed(),

		MeetupAPIKey:  v.GetString("meetup_api_key"),
		MeetupGroup:   v.GetString("meetup_group"),
		MeetupBaseURL: v.GetString("meetup_base_url"),
		GitHubToken:   v.GetString("github_token"),
		GitHubRepo:    v.GetString("github_repo"),
		GitHubBaseURL: v.GetString("github_base_url"),
		JobsFeedURL:   v.GetString("jobs_feed_url"),
		HTTPTimeout:   v.GetDuration("http_timeout"),
		ShapePolicy:   v.GetString("shape_policy"),

		CloudKitContainer:      v.GetString("cloudkit_container"),
		CloudKitEnvironment:    v.GetString("cloudkit_environment"),
		CloudKitKeyID:          v.GetString("cloudkit_key_id"),
		CloudKitPrivateKey:     v.GetString("cloudkit_private_key"),
		CloudKitPrivateKeyPath: v.GetString("cloudkit_private_key_path"),
		CloudKitBaseURL:        v.GetString("cloudkit_base_url"),

		PushgatewayURL: v.GetString("pushgateway_url"),
		PushInstance:   v.GetString("push_instance"),

		EnvLogLevel: v.GetString("log_level"),
		LogFormat:   v.GetString("log_format"),
		LogOutput:   v.GetString("log_output"),
	}, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("meetup_group", meetup.DefaultGroup)
	v.SetDefault("meetup_base_url", meetup.DefaultBaseURL)
	v.SetDefault("github_repo", github.DefaultRepo)
	v.SetDefault("github_base_url", github.DefaultBaseURL)
	v.SetDefault("http_timeout", transport.DefaultHTTPTimeout)
	v.SetDefault("shape_policy", sources.ShapeSkip.String())
	v.SetDefault("cloudkit_environment", cloudkit.EnvironmentDevelopment)
	v.SetDefault("cloudkit_base_url", cloudkit.DefaultBaseURL)
	v.SetDefault("push_instance", "cron")
	v.SetDefault("log_format", "auto")
	v.SetDefault("log_output", "stderr")
}

// Flags holds the values of the root command's persistent flags.
type Flags struct {
	ConfigFile string
	Verbose    bool
	Quiet      bool
	LogLevel   string
	Format     string
	DryRun     bool
	Only       []string
	Memory     bool
}

// UpdateFromFlags updates config values from parsed command flags so flag
// values take precedence over the config file and environment.
func (c *Config) UpdateFromFlags(f *Flags) {
	c.Verbose = f.Verbose
	c.Quiet = f.Quiet
	c.LogLevel = f.LogLevel
	if f.Format != "" {
		c.Format = f.Format
	}
	if f.DryRun {
		c.DryRun = true
	}
	if len(f.Only) > 0 {
		c.Only = f.Only
	}
	c.Memory = f.Memory
}

// Validate checks that everything a run needs is configured.
func (c *Config) Validate() error {
	if _, err := output.ParseFormat(c.Format); err != nil {
		return err
	}
	if _, err := sources.ParseShapePolicy(c.ShapePolicy); err != nil {
		return err
	}
	if c.JobsFeedURL == "" {
		return errors.NewValidationError("jobs_feed_url", c.JobsFeedURL, "must be set")
	}
	if c.Memory {
		return nil
	}
	switch {
	case c.CloudKitContainer == "":
		return errors.NewValidationError("cloudkit_container", "", "must be set unless --memory is used")
	case c.CloudKitKeyID == "":
		return errors.NewValidationError("cloudkit_key_id", "", "must be set unless --memory is used")
	case c.CloudKitPrivateKey == "" && c.CloudKitPrivateKeyPath == "":
		return errors.NewValidationError("cloudkit_private_key_path", "", "must be set unless --memory is used")
	case c.CloudKitEnvironment != cloudkit.EnvironmentDevelopment && c.CloudKitEnvironment != cloudkit.EnvironmentProduction:
		return errors.NewValidationError("cloudkit_environment", c.CloudKitEnvironment, "must be development or production")
	}
	return nil
}

// CloudKit returns the store config, reading the private key from disk if
// it was not given inline.
func (c *Config) CloudKit() (cloudkit.Config, error) {
	pem := []byte(c.CloudKitPrivateKey)
	if len(pem) == 0 && c.CloudKitPrivateKeyPath != "" {
		b, err := os.ReadFile(c.CloudKitPrivateKeyPath)
		if err != nil {
			return cloudkit.Config{}, errors.NewConfigError("cloudkit", "reading private key", err)
		}
		pem = b
	}
	return cloudkit.Config{
		Container:   c.CloudKitContainer,
		Environment: c.CloudKitEnvironment,
		KeyID:       c.CloudKitKeyID,
		PrivateKey:  pem,
		BaseURL:     c.CloudKitBaseURL,
	}, nil
}

// loadEnvFiles loads environment variables from .env files.
// The real environment wins over .env.local, which wins over .env.
func loadEnvFiles() {
	for _, envFile := range []string{".env.local", ".env"} {
		_ = godotenv.Load(envFile)
	}
}
