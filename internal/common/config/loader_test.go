package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalYAML = `
database:
  postgres:
    host: localhost
    database: collision_site
    user: site
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFromFile_Defaults(t *testing.T) {
	t.Setenv("SMTP_USER", "site@example.com")

	cfg, err := LoadFromFile(writeConfig(t, minimalYAML))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "smtp", cfg.Mail.Provider)
	assert.Equal(t, DefaultSMTPHost, cfg.Mail.SMTP.Host)
	assert.Equal(t, DefaultSMTPPort, cfg.Mail.SMTP.Port)
	assert.Equal(t, DefaultRecipient, cfg.Notifications.Recipient)
	assert.Equal(t, DefaultFromName, cfg.Notifications.FromName)
	assert.Equal(t, "site@example.com", cfg.Notifications.FromAddress)
	assert.Equal(t, DefaultMaxResumeBytes, cfg.Careers.MaxResumeBytes)
	assert.Equal(t, "/careers/success", cfg.Careers.SuccessPath)
	assert.Equal(t, "resumes", cfg.Storage.Bucket)
	assert.Equal(t, "site-notify", cfg.Camunda.TaskType)
	assert.Equal(t, 24*time.Hour, GetSeconds(cfg.Webhook.DedupTTL))
	assert.Equal(t, 35*time.Second, GetDuration(cfg.Webhook.ForwardTimeout))
	assert.Equal(t, 40*time.Second, GetDuration(cfg.Server.RequestTimeout))
	assert.Equal(t, 45*time.Second, GetDuration(cfg.Server.WriteTimeout))
}

func TestLoadFromFile_ForwardTimeoutFollowsNotifyBudget(t *testing.T) {
	cfg, err := LoadFromFile(writeConfig(t, minimalYAML+`
mail:
  smtp:
    timeout: 50000
notifications:
  timeout: 20000
`))
	require.NoError(t, err)

	assert.Equal(t, 50000, cfg.NotifyBudget())
	assert.Greater(t, cfg.Webhook.ForwardTimeout, cfg.NotifyBudget())
	assert.Greater(t, cfg.Server.RequestTimeout, cfg.Webhook.ForwardTimeout)
}

func TestLoadFromFile_LegacyEnvOverrides(t *testing.T) {
	t.Setenv("SMTP_HOST", "smtp.mailgun.org")
	t.Setenv("SMTP_PORT", "2525")
	t.Setenv("SMTP_USER", "postmaster@example.com")
	t.Setenv("SMTP_PASS", "secret")
	t.Setenv("NOTIFY_EMAIL", "owner@example.com")

	cfg, err := LoadFromFile(writeConfig(t, minimalYAML))
	require.NoError(t, err)

	assert.Equal(t, "smtp.mailgun.org", cfg.Mail.SMTP.Host)
	assert.Equal(t, 2525, cfg.Mail.SMTP.Port)
	assert.Equal(t, "postmaster@example.com", cfg.Mail.SMTP.Username)
	assert.Equal(t, "secret", cfg.Mail.SMTP.Password)
	assert.Equal(t, "owner@example.com", cfg.Notifications.Recipient)
}

func TestLoadFromFile_ExpandsVariables(t *testing.T) {
	t.Setenv("TEST_PUBLIC_ORIGIN", "https://taylorscollision.com/")

	cfg, err := LoadFromFile(writeConfig(t, minimalYAML+`
server:
  public_origin: ${TEST_PUBLIC_ORIGIN}
`))
	require.NoError(t, err)
	assert.Equal(t, "https://taylorscollision.com", cfg.Server.PublicOrigin)
}

func TestLoadFromFile_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		msg  string
	}{
		{
			name: "unknown provider",
			yaml: minimalYAML + "mail:\n  provider: pigeon\n",
			msg:  "mail.provider must be smtp or ses",
		},
		{
			name: "ses without region",
			yaml: minimalYAML + "mail:\n  provider: ses\n",
			msg:  "mail.ses.region is required",
		},
		{
			name: "sms without phone",
			yaml: minimalYAML + "notifications:\n  sms:\n    enabled: true\n",
			msg:  "operator_phone is required",
		},
		{
			name: "camunda without broker",
			yaml: minimalYAML + "camunda:\n  enabled: true\n",
			msg:  "camunda.broker_address is required",
		},
		{
			name: "forward timeout inside notify budget",
			yaml: minimalYAML + "webhook:\n  forward_timeout: 15000\n",
			msg:  "webhook.forward_timeout (15000ms) must exceed the notify budget (30000ms)",
		},
		{
			name: "missing postgres host",
			yaml: "database:\n  postgres:\n    database: x\n    user: y\n",
			msg:  "database.postgres.host is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFromFile(writeConfig(t, tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestLoadFromFile_MissingFile(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestSMSEnabledFor(t *testing.T) {
	var n NotificationConfig
	n.SMS.Kinds = []string{"appointment"}
	assert.False(t, n.SMSEnabledFor("appointment"))

	n.SMS.Enabled = true
	assert.True(t, n.SMSEnabledFor("appointment"))
	assert.False(t, n.SMSEnabledFor("contact"))
}

func TestPostgresDSN(t *testing.T) {
	p := PostgresConfig{Host: "db", Port: 5432, User: "site", Password: "pw", Database: "collision_site", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=site password=pw dbname=collision_site sslmode=disable", p.GetDSN())
}
