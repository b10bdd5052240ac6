// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	DefaultRecipient = "support@taylorscollision.com"
	DefaultFromName  = "Taylor's Collision Website"
	DefaultSMTPHost  = "smtp.gmail.com"
	DefaultSMTPPort  = 587

	// 10 MiB
	DefaultMaxResumeBytes int64 = 10 * 1024 * 1024

	// milliseconds between nested request deadlines
	timeoutMargin = 5000
)

func Load() (*Config, error) {
	loadEnvFile()

	v := newViper()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../../configs")
	v.AddConfigPath(".")

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	// base config
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	// environment overlay, e.g. config.production.yaml
	v.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = v.MergeInConfig()

	return finish(v)
}

// LoadFromFile loads configuration from a specific file path
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	v := newViper()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return finish(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	// MAIL_SMTP_HOST overrides mail.smtp.host
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

func finish(v *viper.Viper) (*Config, error) {
	expandEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	overrideEmptyConfig(&cfg)
	applyDefaults(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func loadEnvFile() {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env", // test/e2e
	}

	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

// Find project root by looking for go.mod
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		strVal, ok := v.Get(key).(string)
		if !ok {
			continue
		}
		if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
			expanded := os.ExpandEnv(strVal)
			if expanded != strVal {
				v.Set(key, expanded)
			}
		}
	}
}

// overrideEmptyConfig honours the variable names the site has always been
// deployed with.
func overrideEmptyConfig(cfg *Config) {
	if cfg.Mail.SMTP.Host == "" {
		if val := os.Getenv("SMTP_HOST"); val != "" {
			cfg.Mail.SMTP.Host = val
		}
	}
	if cfg.Mail.SMTP.Port == 0 {
		if val := os.Getenv("SMTP_PORT"); val != "" {
			if port, err := strconv.Atoi(val); err == nil {
				cfg.Mail.SMTP.Port = port
			}
		}
	}
	if cfg.Mail.SMTP.Username == "" {
		if val := os.Getenv("SMTP_USER"); val != "" {
			cfg.Mail.SMTP.Username = val
		}
	}
	if cfg.Mail.SMTP.Password == "" {
		if val := os.Getenv("SMTP_PASS"); val != "" {
			cfg.Mail.SMTP.Password = val
		}
	}
	if cfg.Notifications.Recipient == "" {
		if val := os.Getenv("NOTIFY_EMAIL"); val != "" {
			cfg.Notifications.Recipient = val
		}
	}

	if cfg.Database.Postgres.User == "" {
		if val := os.Getenv("DB_USER"); val != "" {
			cfg.Database.Postgres.User = val
		}
	}
	if cfg.Database.Postgres.Password == "" {
		if val := os.Getenv("DB_PASSWORD"); val != "" {
			cfg.Database.Postgres.Password = val
		}
	}
}

// applyDefaults sets default values for optional configuration fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "collision-site"
	}
	if cfg.App.Environment == "" {
		cfg.App.Environment = "development"
	}

	// Server defaults
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 15000
	}
	if cfg.Server.MaxHeaderBytes == 0 {
		cfg.Server.MaxHeaderBytes = 1 << 20
	}
	cfg.Server.PublicOrigin = strings.TrimRight(cfg.Server.PublicOrigin, "/")

	// Mail defaults
	if cfg.Mail.Provider == "" {
		cfg.Mail.Provider = "smtp"
	}
	if cfg.Mail.SMTP.Host == "" {
		cfg.Mail.SMTP.Host = DefaultSMTPHost
	}
	if cfg.Mail.SMTP.Port == 0 {
		cfg.Mail.SMTP.Port = DefaultSMTPPort
	}
	if cfg.Mail.SMTP.Timeout == 0 {
		cfg.Mail.SMTP.Timeout = 30000
	}

	// Notification defaults
	if cfg.Notifications.Recipient == "" {
		cfg.Notifications.Recipient = DefaultRecipient
	}
	if cfg.Notifications.FromName == "" {
		cfg.Notifications.FromName = DefaultFromName
	}
	if cfg.Notifications.FromAddress == "" {
		cfg.Notifications.FromAddress = cfg.Mail.SMTP.Username
	}
	if cfg.Notifications.Timeout == 0 {
		cfg.Notifications.Timeout = 30000
	}

	// Webhook defaults
	if cfg.Webhook.DedupTTL == 0 {
		cfg.Webhook.DedupTTL = 86400
	}
	if cfg.Webhook.ForwardTimeout == 0 {
		cfg.Webhook.ForwardTimeout = cfg.NotifyBudget() + timeoutMargin
	}

	// The relay handler waits on the forward, so request and write
	// deadlines sit above it.
	if cfg.Server.RequestTimeout == 0 {
		cfg.Server.RequestTimeout = cfg.Webhook.ForwardTimeout + timeoutMargin
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = cfg.Server.RequestTimeout + timeoutMargin
	}

	// Careers defaults
	if cfg.Careers.MaxResumeBytes == 0 {
		cfg.Careers.MaxResumeBytes = DefaultMaxResumeBytes
	}
	if cfg.Careers.SuccessPath == "" {
		cfg.Careers.SuccessPath = "/careers/success"
	}
	if cfg.Careers.LockTTL == 0 {
		cfg.Careers.LockTTL = 60
	}

	// Storage defaults
	if cfg.Storage.Bucket == "" {
		cfg.Storage.Bucket = "resumes"
	}
	if cfg.Storage.Region == "" {
		cfg.Storage.Region = "us-east-1"
	}
	if cfg.Storage.PresignTTL == 0 {
		cfg.Storage.PresignTTL = 7 * 24 * 3600
	}

	// Database defaults
	if cfg.Database.Postgres.Port == 0 {
		cfg.Database.Postgres.Port = 5432
	}
	if cfg.Database.Postgres.MaxConnections == 0 {
		cfg.Database.Postgres.MaxConnections = 25
	}
	if cfg.Database.Postgres.MaxIdle == 0 {
		cfg.Database.Postgres.MaxIdle = 5
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "disable"
	}

	// Camunda defaults
	if cfg.Camunda.TaskType == "" {
		cfg.Camunda.TaskType = "site-notify"
	}
	if cfg.Camunda.MaxJobsActive == 0 {
		cfg.Camunda.MaxJobsActive = 10
	}
	if cfg.Camunda.Timeout == 0 {
		cfg.Camunda.Timeout = 30000
	}

	// Logging defaults
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

// validateConfig validates critical configuration fields
func validateConfig(cfg *Config) error {
	switch cfg.Mail.Provider {
	case "smtp":
		if cfg.Mail.SMTP.Port < 1 || cfg.Mail.SMTP.Port > 65535 {
			return fmt.Errorf("mail.smtp.port must be between 1 and 65535")
		}
	case "ses":
		if cfg.Mail.SES.Region == "" {
			return fmt.Errorf("mail.ses.region is required when mail.provider is ses")
		}
	default:
		return fmt.Errorf("mail.provider must be smtp or ses, got %q", cfg.Mail.Provider)
	}

	if cfg.Notifications.SMS.Enabled && cfg.Notifications.SMS.OperatorPhone == "" {
		return fmt.Errorf("notifications.sms.operator_phone is required when sms is enabled")
	}

	if cfg.Database.Postgres.Host == "" {
		return fmt.Errorf("database.postgres.host is required")
	}
	if cfg.Database.Postgres.Database == "" {
		return fmt.Errorf("database.postgres.database is required")
	}
	if cfg.Database.Postgres.User == "" {
		return fmt.Errorf("database.postgres.user is required")
	}

	if cfg.Camunda.Enabled && cfg.Camunda.BrokerAddress == "" {
		return fmt.Errorf("camunda.broker_address is required when camunda is enabled")
	}

	if cfg.Webhook.ForwardTimeout <= cfg.NotifyBudget() {
		return fmt.Errorf("webhook.forward_timeout (%dms) must exceed the notify budget (%dms)",
			cfg.Webhook.ForwardTimeout, cfg.NotifyBudget())
	}

	return nil
}

// NotifyBudget is the longest a notify request can run, in milliseconds.
func (c *Config) NotifyBudget() int {
	if c.Mail.SMTP.Timeout > c.Notifications.Timeout {
		return c.Mail.SMTP.Timeout
	}
	return c.Notifications.Timeout
}

// SMSEnabledFor reports whether an operator SMS should accompany the given kind.
func (n NotificationConfig) SMSEnabledFor(kind string) bool {
	if !n.SMS.Enabled {
		return false
	}
	for _, k := range n.SMS.Kinds {
		if k == kind {
			return true
		}
	}
	return false
}
