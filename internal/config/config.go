package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// ErrInvalid помечает все ошибки валидации конфигурации.
var ErrInvalid = errors.New("invalid configuration")

// Database содержит параметры подключения к БД с транзакциями.
type Database struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

// Recipient описывает одного получателя отчёта.
type Recipient struct {
	Address string `mapstructure:"address"`
	Name    string `mapstructure:"name"`
}

// Mail содержит настройки транзакционного почтового API (ZeptoMail).
type Mail struct {
	APIURL      string      `mapstructure:"api_url"`
	APIKey      string      `mapstructure:"api_key"`
	FromEmail   string      `mapstructure:"from_email"`
	FromName    string      `mapstructure:"from_name"`
	BounceEmail string      `mapstructure:"bounce_email"`
	Subject     string      `mapstructure:"subject"`
	Recipients  []Recipient `mapstructure:"recipients"`
}

// Configured возвращает true, если почтовая секция задана хотя бы частично.
func (m Mail) Configured() bool {
	return m.APIURL != "" || m.APIKey != "" || len(m.Recipients) > 0
}

// S3 содержит настройки для S3-совместимого хранилища архива.
type S3 struct {
	Region    string `mapstructure:"region"`
	Bucket    string `mapstructure:"bucket"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
}

// Storage описывает настройки архива сгенерированных отчётов.
type Storage struct {
	Type     string `mapstructure:"type"`
	BasePath string `mapstructure:"basepath"`
	S3       S3     `mapstructure:"s3"`
}

// Enabled возвращает true, если архив сконфигурирован.
func (s Storage) Enabled() bool {
	return s.Type != "" && s.Type != "none"
}

// Logging содержит настройки логирования.
type Logging struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

// Config объединяет все разделы конфигурации.
type Config struct {
	Database Database `mapstructure:"database"`
	Mail     Mail     `mapstructure:"mail"`
	Storage  Storage  `mapstructure:"storage"`
	Logging  Logging  `mapstructure:"logging"`
}

// Load читает конфигурацию из файла и окружения с помощью viper.
// Если path пустой, файл ищется по стандартным путям. Секреты (DSN,
// API-ключ, получатели) значений по умолчанию не имеют.
func Load(path string) (Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("reporter")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/reporter")
	}

	// Настройка для environment variables
	v.SetEnvPrefix("APP")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)
	bindEnvironmentVariables(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
		// Файл не найден — продолжаем с environment variables и defaults
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// setDefaults устанавливает значения по умолчанию только для
// нечувствительных параметров.
func setDefaults(v *viper.Viper) {
	v.SetDefault("database.driver", "postgres")

	v.SetDefault("storage.type", "none")
	v.SetDefault("storage.s3.region", "us-east-1")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// bindEnvironmentVariables привязывает переменные окружения к конфигурации
func bindEnvironmentVariables(v *viper.Viper) {
	v.BindEnv("database.driver", "APP_DATABASE_DRIVER")
	v.BindEnv("database.dsn", "APP_DATABASE_DSN")

	v.BindEnv("mail.api_url", "APP_MAIL_API_URL")
	v.BindEnv("mail.api_key", "APP_MAIL_API_KEY")
	v.BindEnv("mail.from_email", "APP_MAIL_FROM_EMAIL")
	v.BindEnv("mail.from_name", "APP_MAIL_FROM_NAME")
	v.BindEnv("mail.bounce_email", "APP_MAIL_BOUNCE_EMAIL")
	v.BindEnv("mail.subject", "APP_MAIL_SUBJECT")

	v.BindEnv("storage.type", "APP_STORAGE_TYPE")
	v.BindEnv("storage.basepath", "APP_STORAGE_BASEPATH")
	v.BindEnv("storage.s3.region", "APP_STORAGE_S3_REGION")
	v.BindEnv("storage.s3.bucket", "APP_STORAGE_S3_BUCKET")
	v.BindEnv("storage.s3.endpoint", "APP_STORAGE_S3_ENDPOINT")
	v.BindEnv("storage.s3.access_key", "APP_STORAGE_S3_ACCESS_KEY")
	v.BindEnv("storage.s3.secret_key", "APP_STORAGE_S3_SECRET_KEY")

	v.BindEnv("logging.level", "APP_LOGGING_LEVEL")
	v.BindEnv("logging.format", "APP_LOGGING_FORMAT")
	v.BindEnv("logging.file", "APP_LOGGING_FILE")
}

// validateConfig проверяет корректность конфигурации
func validateConfig(cfg Config) error {
	switch cfg.Database.Driver {
	case "postgres", "sqlserver", "sqlite":
	case "":
		return fmt.Errorf("%w: database driver cannot be empty", ErrInvalid)
	default:
		return fmt.Errorf("%w: unsupported database driver: %s", ErrInvalid, cfg.Database.Driver)
	}

	if cfg.Database.DSN == "" {
		return fmt.Errorf("%w: database DSN cannot be empty", ErrInvalid)
	}

	if cfg.Mail.Configured() {
		if err := validateMail(cfg.Mail); err != nil {
			return err
		}
	}

	if err := validateStorage(cfg.Storage); err != nil {
		return err
	}

	// Хотя бы один способ доставки отчёта должен быть задан
	if !cfg.Mail.Configured() && !cfg.Storage.Enabled() {
		return fmt.Errorf("%w: neither mail nor storage is configured, nowhere to deliver the report", ErrInvalid)
	}

	validLogLevels := []string{"debug", "info", "warn", "error", "fatal", "panic"}
	isValidLevel := false
	for _, level := range validLogLevels {
		if strings.ToLower(cfg.Logging.Level) == level {
			isValidLevel = true
			break
		}
	}
	if !isValidLevel {
		return fmt.Errorf("%w: invalid logging level: %s (valid levels: %v)", ErrInvalid, cfg.Logging.Level, validLogLevels)
	}

	return nil
}

// validateMail проверяет, что частично заданная почтовая секция полна.
func validateMail(m Mail) error {
	if m.APIURL == "" {
		return fmt.Errorf("%w: mail.api_url is required when mail is configured", ErrInvalid)
	}
	if m.APIKey == "" {
		return fmt.Errorf("%w: mail.api_key is required when mail is configured", ErrInvalid)
	}
	if m.FromEmail == "" {
		return fmt.Errorf("%w: mail.from_email is required when mail is configured", ErrInvalid)
	}
	if m.Subject == "" {
		return fmt.Errorf("%w: mail.subject is required when mail is configured", ErrInvalid)
	}
	if len(m.Recipients) == 0 {
		return fmt.Errorf("%w: mail.recipients cannot be empty when mail is configured", ErrInvalid)
	}
	for i, r := range m.Recipients {
		if r.Address == "" {
			return fmt.Errorf("%w: mail.recipients[%d] has no address", ErrInvalid, i)
		}
	}
	return nil
}

// validateStorage проверяет настройки архива.
func validateStorage(s Storage) error {
	switch s.Type {
	case "", "none":
		return nil
	case "local":
		if s.BasePath == "" {
			return fmt.Errorf("%w: storage.basepath cannot be empty for local storage", ErrInvalid)
		}
	case "s3":
		if s.S3.Region == "" {
			return fmt.Errorf("%w: storage.s3.region cannot be empty", ErrInvalid)
		}
		if s.S3.Bucket == "" {
			return fmt.Errorf("%w: storage.s3.bucket cannot be empty", ErrInvalid)
		}
		if s.S3.AccessKey == "" || s.S3.SecretKey == "" {
			return fmt.Errorf("%w: storage.s3 credentials cannot be empty", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: storage type must be 'none', 'local' or 's3', got: %s", ErrInvalid, s.Type)
	}
	return nil
}

// String возвращает строковое представление конфигурации (без чувствительных данных)
func (c Config) String() string {
	return fmt.Sprintf("Config{Database: {Driver: %s, DSN: [HIDDEN]}, Mail: {APIURL: %s, APIKey: [HIDDEN], From: %s, Recipients: %d}, Storage: {Type: %s}, Logging: %+v}",
		c.Database.Driver, c.Mail.APIURL, c.Mail.FromEmail, len(c.Mail.Recipients), c.Storage.Type, c.Logging)
}
