package emailsend

import (
	"fmt"
	"time"

	"collision-site/internal/common/config"
)

type Config struct {
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	// UseTLS requires STARTTLS. Without it STARTTLS is still used when the
	// server offers it.
	UseTLS  bool
	Timeout time.Duration
}

func DefaultConfig() *Config {
	return &Config{
		SMTPHost: config.DefaultSMTPHost,
		SMTPPort: config.DefaultSMTPPort,
		Timeout:  30 * time.Second,
	}
}

// ConfigFromApp maps the mail.smtp section onto a Config.
func ConfigFromApp(cfg *config.Config) *Config {
	return &Config{
		SMTPHost:     cfg.Mail.SMTP.Host,
		SMTPPort:     cfg.Mail.SMTP.Port,
		SMTPUsername: cfg.Mail.SMTP.Username,
		SMTPPassword: cfg.Mail.SMTP.Password,
		UseTLS:       cfg.Mail.SMTP.UseTLS,
		Timeout:      config.GetDuration(cfg.Mail.SMTP.Timeout),
	}
}

func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.SMTPHost == "" {
		return fmt.Errorf("smtp_host is required")
	}
	if c.SMTPPort <= 0 || c.SMTPPort > 65535 {
		return fmt.Errorf("smtp_port must be between 1 and 65535")
	}
	if (c.SMTPUsername == "") != (c.SMTPPassword == "") {
		return fmt.Errorf("smtp_username and smtp_password must be set together")
	}
	return nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.SMTPHost, c.SMTPPort)
}
