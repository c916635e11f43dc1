package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "reporter.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const validConfig = `
database:
  driver: sqlite
  dsn: file:vending.db
mail:
  api_url: https://api.zeptomail.com/v1.1/email
  api_key: test-key
  from_email: reports@example.com
  from_name: Reporter
  subject: Monthly vending report
  recipients:
    - address: ops@example.com
      name: Operations
    - address: finance@example.com
logging:
  level: debug
`

func TestLoadValid(t *testing.T) {
	cfg, err := Load(writeConfig(t, validConfig))
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "file:vending.db", cfg.Database.DSN)
	assert.True(t, cfg.Mail.Configured())
	assert.Len(t, cfg.Mail.Recipients, 2)
	assert.Equal(t, "ops@example.com", cfg.Mail.Recipients[0].Address)
	assert.Equal(t, "Operations", cfg.Mail.Recipients[0].Name)
	assert.False(t, cfg.Storage.Enabled())
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadMissingDSN(t *testing.T) {
	path := writeConfig(t, `
database:
  driver: postgres
storage:
  type: local
  basepath: /var/reports
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalid))
	assert.Contains(t, err.Error(), "DSN")
}

func TestLoadIncompleteMail(t *testing.T) {
	// API-ключ задан, но нет получателей: секция должна быть полной.
	path := writeConfig(t, `
database:
  driver: sqlite
  dsn: file:vending.db
mail:
  api_url: https://api.zeptomail.com/v1.1/email
  api_key: test-key
  from_email: reports@example.com
  subject: Report
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalid))
	assert.Contains(t, err.Error(), "recipients")
}

func TestLoadNoDeliveryTarget(t *testing.T) {
	path := writeConfig(t, `
database:
  driver: sqlite
  dsn: file:vending.db
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalid))
}

func TestLoadStorageOnly(t *testing.T) {
	path := writeConfig(t, `
database:
  driver: sqlite
  dsn: file:vending.db
storage:
  type: local
  basepath: /var/reports
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.True(t, cfg.Storage.Enabled())
	assert.False(t, cfg.Mail.Configured())
}

func TestLoadBadStorageType(t *testing.T) {
	path := writeConfig(t, `
database:
  driver: sqlite
  dsn: file:vending.db
storage:
  type: ftp
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalid))
}

func TestLoadBadDriver(t *testing.T) {
	path := writeConfig(t, `
database:
  driver: oracle
  dsn: something
storage:
  type: local
  basepath: /var/reports
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalid))
}

func TestStringHidesSecrets(t *testing.T) {
	cfg, err := Load(writeConfig(t, validConfig))
	require.NoError(t, err)

	s := cfg.String()
	assert.NotContains(t, s, "test-key")
	assert.NotContains(t, s, "file:vending.db")
	assert.Contains(t, s, "[HIDDEN]")
}
