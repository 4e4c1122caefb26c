package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Dirs    DirsConfig    `mapstructure:"dirs"`
	HTTP    HTTPConfig    `mapstructure:"http"`
	Whois   WhoisConfig   `mapstructure:"whois"`
	Mailbox MailboxConfig `mapstructure:"mailbox"`
	Intake  IntakeConfig  `mapstructure:"intake"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// MetricsConfig holds settings for the optional metrics listener. An empty
// listen address disables it.
type MetricsConfig struct {
	ListenAddr string `mapstructure:"listen_addr"`
}

// DirsConfig holds the filesystem areas the pipeline works on
type DirsConfig struct {
	Consume   string `mapstructure:"consume"`
	Processed string `mapstructure:"processed"`
	Logs      string `mapstructure:"logs"`
}

// HTTPConfig holds settings for outbound opt-out requests
type HTTPConfig struct {
	Timeout   time.Duration `mapstructure:"timeout"`
	UserAgent string        `mapstructure:"user_agent"`
}

// WhoisConfig holds settings for domain registration lookups
type WhoisConfig struct {
	Server  string        `mapstructure:"server"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// MailboxConfig holds credentials for the optional mailbox fetcher and
// the report dispatcher
type MailboxConfig struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	RefreshToken string `mapstructure:"refresh_token"`
	UserEmail    string `mapstructure:"user_email"`
	UseIMAP      bool   `mapstructure:"use_imap"`
	IMAPHost     string `mapstructure:"imap_host"`
	IMAPPort     int    `mapstructure:"imap_port"`
	IMAPUser     string `mapstructure:"imap_user"`
	IMAPPassword string `mapstructure:"imap_password"`
	Folder       string `mapstructure:"folder"`
	SinceDays    int    `mapstructure:"since_days"`
}

// IntakeConfig holds the analysis knobs: which brands can be reported and
// which anchor phrases count as opt-out links. Passed into the pipeline at
// construction so runs are deterministic and overridable per deployment.
type IntakeConfig struct {
	CompanyContacts map[string]string `mapstructure:"company_contacts"`
	OptOutPatterns  []string          `mapstructure:"optout_patterns"`
}

// LoadConfig loads configuration from environment variables and config file
func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// Set defaults
	setDefaults()

	// Read config file if it exists
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	// Environment variables override config file
	viper.AutomaticEnv()

	// Bind environment variables
	bindEnvVars()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	viper.SetDefault("dirs.consume", "consume")
	viper.SetDefault("dirs.processed", "processed")
	viper.SetDefault("dirs.logs", "logs")

	viper.SetDefault("http.timeout", "10s")
	viper.SetDefault("http.user_agent", "spam-intake/1.0")

	viper.SetDefault("whois.server", "")
	viper.SetDefault("whois.timeout", "15s")

	viper.SetDefault("metrics.listen_addr", "")

	viper.SetDefault("mailbox.use_imap", false)
	viper.SetDefault("mailbox.imap_host", "imap.gmail.com")
	viper.SetDefault("mailbox.imap_port", 993)
	viper.SetDefault("mailbox.folder", "[Gmail]/Spam")
	viper.SetDefault("mailbox.since_days", 7)

	viper.SetDefault("intake.company_contacts", DefaultCompanyContacts())
	viper.SetDefault("intake.optout_patterns", DefaultOptOutPatterns())
}

// bindEnvVars binds environment variables to configuration keys
func bindEnvVars() {
	// Directories
	viper.BindEnv("dirs.consume", "INTAKE_CONSUME_DIR")
	viper.BindEnv("dirs.processed", "INTAKE_PROCESSED_DIR")
	viper.BindEnv("dirs.logs", "INTAKE_LOGS_DIR")

	// HTTP
	viper.BindEnv("http.timeout", "INTAKE_HTTP_TIMEOUT")
	viper.BindEnv("http.user_agent", "INTAKE_HTTP_USER_AGENT")

	// Whois
	viper.BindEnv("whois.server", "INTAKE_WHOIS_SERVER")
	viper.BindEnv("whois.timeout", "INTAKE_WHOIS_TIMEOUT")

	// Metrics
	viper.BindEnv("metrics.listen_addr", "INTAKE_METRICS_ADDR")

	// Mailbox
	viper.BindEnv("mailbox.client_id", "MAILBOX_CLIENT_ID")
	viper.BindEnv("mailbox.client_secret", "MAILBOX_CLIENT_SECRET")
	viper.BindEnv("mailbox.refresh_token", "MAILBOX_REFRESH_TOKEN")
	viper.BindEnv("mailbox.user_email", "MAILBOX_USER_EMAIL")
	viper.BindEnv("mailbox.use_imap", "MAILBOX_USE_IMAP")
	viper.BindEnv("mailbox.imap_host", "MAILBOX_IMAP_HOST")
	viper.BindEnv("mailbox.imap_port", "MAILBOX_IMAP_PORT")
	viper.BindEnv("mailbox.imap_user", "MAILBOX_IMAP_USER")
	viper.BindEnv("mailbox.imap_password", "MAILBOX_IMAP_PASSWORD")
	viper.BindEnv("mailbox.folder", "MAILBOX_FOLDER")
	viper.BindEnv("mailbox.since_days", "MAILBOX_SINCE_DAYS")
}

// DefaultCompanyContacts returns the built-in brand to abuse-contact mapping
func DefaultCompanyContacts() map[string]string {
	return map[string]string{
		"paypal":          "spoof@paypal.com",
		"amazon":          "stop-spoofing@amazon.com",
		"apple":           "reportphishing@apple.com",
		"microsoft":       "phish@office365.microsoft.com",
		"google":          "phishing@gmail.com",
		"facebook":        "phish@fb.com",
		"ebay":            "spoof@ebay.com",
		"netflix":         "phishing@netflix.com",
		"ups":             "fraud@ups.com",
		"fedex":           "abuse@fedex.com",
		"wells fargo":     "reportfraud@wellsfargo.com",
		"chase":           "abuse@chase.com",
		"bank of america": "abuse@bankofamerica.com",
	}
}

// DefaultOptOutPatterns returns the built-in anchor-text phrase patterns
// that mark a link as an opt-out candidate
func DefaultOptOutPatterns() []string {
	return []string{
		`unsubscribe`,
		`opt[- ]?out`,
		`remove.*list`,
		`stop.*email`,
		`click.*here.*remove`,
		`update.*preferences`,
		`manage.*subscription`,
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Dirs.Consume == "" || c.Dirs.Processed == "" || c.Dirs.Logs == "" {
		return fmt.Errorf("consume, processed, and logs directories are required")
	}

	if c.HTTP.Timeout <= 0 {
		return fmt.Errorf("http timeout must be greater than 0")
	}

	if len(c.Intake.OptOutPatterns) == 0 {
		return fmt.Errorf("at least one opt-out pattern is required")
	}

	return nil
}

// ValidateMailbox validates the mailbox credentials needed by the fetcher
// and the dispatcher. Only called when those features are requested.
func (c *Config) ValidateMailbox() error {
	if !c.Mailbox.UseIMAP {
		if c.Mailbox.ClientID == "" || c.Mailbox.ClientSecret == "" || c.Mailbox.RefreshToken == "" {
			return fmt.Errorf("OAuth2 credentials are required when not using IMAP")
		}
	} else {
		if c.Mailbox.IMAPUser == "" || c.Mailbox.IMAPPassword == "" {
			return fmt.Errorf("IMAP credentials are required when using IMAP")
		}
	}
	return nil
}
