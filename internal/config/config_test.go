package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("MAILBRIDGE_ENV", "production")
	t.Setenv("MAILBRIDGE_TOKEN_KEY_BASE64", "dGVzdC1rZXktMTIzNDU2Nzg5MDEyMzQ1Njc4OTAxMjM=")
	t.Setenv("MAILBRIDGE_IMAP_HOST", "imap.example.com")
	t.Setenv("MAILBRIDGE_SMTP_HOST", "smtp.example.com")
}

func TestNewConfig(t *testing.T) {
	t.Run("applies defaults", func(t *testing.T) {
		setRequiredEnv(t)

		cfg, err := NewConfig()
		require.NoError(t, err)

		assert.Equal(t, "production", cfg.Environment)
		assert.Equal(t, "993", cfg.IMAPPort)
		assert.True(t, cfg.IMAPUseTLS)
		assert.Equal(t, 30*time.Second, cfg.IMAPTimeout)
		assert.Equal(t, "465", cfg.SMTPPort)
		assert.True(t, cfg.SMTPUseTLS)
		assert.Equal(t, "Sent", cfg.SentFolder)
		assert.Equal(t, "Drafts", cfg.DraftsFolder)
		assert.Equal(t, 10, cfg.PageSize)
		assert.Equal(t, "8080", cfg.Port)
	})

	t.Run("reads overrides from the environment", func(t *testing.T) {
		setRequiredEnv(t)
		t.Setenv("MAILBRIDGE_IMAP_PORT", "1143")
		t.Setenv("MAILBRIDGE_IMAP_TLS", "false")
		t.Setenv("MAILBRIDGE_IMAP_TIMEOUT", "5s")
		t.Setenv("MAILBRIDGE_SMTP_PORT", "1587")
		t.Setenv("MAILBRIDGE_SMTP_TLS", "false")
		t.Setenv("MAILBRIDGE_SENT_FOLDER", "Sent Items")
		t.Setenv("MAILBRIDGE_PAGE_SIZE", "25")
		t.Setenv("PORT", "3000")

		cfg, err := NewConfig()
		require.NoError(t, err)

		assert.Equal(t, "1143", cfg.IMAPPort)
		assert.False(t, cfg.IMAPUseTLS)
		assert.Equal(t, 5*time.Second, cfg.IMAPTimeout)
		assert.Equal(t, "1587", cfg.SMTPPort)
		assert.False(t, cfg.SMTPUseTLS)
		assert.Equal(t, "Sent Items", cfg.SentFolder)
		assert.Equal(t, 25, cfg.PageSize)
		assert.Equal(t, "3000", cfg.Port)
	})

	t.Run("malformed optional values fall back to defaults", func(t *testing.T) {
		setRequiredEnv(t)
		t.Setenv("MAILBRIDGE_IMAP_TLS", "not-a-bool")
		t.Setenv("MAILBRIDGE_IMAP_TIMEOUT", "soon")

		cfg, err := NewConfig()
		require.NoError(t, err)

		assert.True(t, cfg.IMAPUseTLS)
		assert.Equal(t, 30*time.Second, cfg.IMAPTimeout)
	})
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(t *testing.T)
		wantErr string
	}{
		{
			name:    "missing token key",
			mutate:  func(t *testing.T) { t.Setenv("MAILBRIDGE_TOKEN_KEY_BASE64", "") },
			wantErr: "MAILBRIDGE_TOKEN_KEY_BASE64",
		},
		{
			name:    "missing imap host",
			mutate:  func(t *testing.T) { t.Setenv("MAILBRIDGE_IMAP_HOST", "") },
			wantErr: "MAILBRIDGE_IMAP_HOST",
		},
		{
			name:    "missing smtp host",
			mutate:  func(t *testing.T) { t.Setenv("MAILBRIDGE_SMTP_HOST", "") },
			wantErr: "MAILBRIDGE_SMTP_HOST",
		},
		{
			name:    "non-positive page size",
			mutate:  func(t *testing.T) { t.Setenv("MAILBRIDGE_PAGE_SIZE", "-3") },
			wantErr: "MAILBRIDGE_PAGE_SIZE",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequiredEnv(t)
			tt.mutate(t)

			_, err := NewConfig()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfigAddresses(t *testing.T) {
	cfg := &Config{
		IMAPHost: "imap.example.com", IMAPPort: "993",
		SMTPHost: "smtp.example.com", SMTPPort: "465",
	}

	assert.Equal(t, "imap.example.com:993", cfg.IMAPAddress())
	assert.Equal(t, "smtp.example.com:465", cfg.SMTPAddress())
}
