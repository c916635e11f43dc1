package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"go.uber.org/fx"
	"gorm.io/gorm"

	"reporter/internal/cli"
	"reporter/internal/config"
	"reporter/internal/database"
	"reporter/internal/excel"
	"reporter/internal/mail"
	"reporter/internal/service"
	"reporter/internal/storage"
)

const startTimeout = 15 * time.Second

func main() {
	args, err := cli.Parse(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		fmt.Fprint(os.Stderr, cli.Usage())
		os.Exit(2)
	}

	var runErr error

	app := fx.New(
		fx.NopLogger,

		// Поставщики зависимостей
		fx.Provide(
			func() (config.Config, error) { return config.Load(args.ConfigPath) },
			provideLogger,
			database.NewDatabase,
			database.NewGateway,
			excel.NewGenerator,
			provideSender,
			storage.NewStorageFromConfig,
			provideReporter,
		),

		fx.Invoke(registerLifecycleHooks),

		// Один прогон отчёта; ошибка уходит в код возврата процесса
		fx.Invoke(func(r *service.Reporter) {
			runErr = r.Run(context.Background(), args.Request)
		}),
	)

	if err := app.Err(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}

	startCtx, cancel := context.WithTimeout(context.Background(), startTimeout)
	defer cancel()
	if err := app.Start(startCtx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), startTimeout)
	defer stopCancel()
	if err := app.Stop(stopCtx); err != nil {
		logrus.WithError(err).Error("Ошибка при завершении работы")
	}

	if runErr != nil {
		os.Exit(1)
	}
}

// provideLogger создает и настраивает логгер на основе конфигурации
func provideLogger(cfg config.Config) (*logrus.Logger, error) {
	logger := logrus.New()

	// Устанавливаем уровень логирования
	level, err := logrus.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = logrus.InfoLevel
		logger.WithError(err).Warn("Неверный уровень логирования, используется info")
	}
	logger.SetLevel(level)

	// Устанавливаем формат вывода
	switch cfg.Logging.Format {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339,
		})
	default:
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.RFC3339,
		})
	}

	// Дублируем вывод в файл, если он задан
	if cfg.Logging.File != "" {
		f, err := os.OpenFile(cfg.Logging.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		logger.SetOutput(io.MultiWriter(os.Stdout, f))
	}

	logger.WithField("config", cfg.String()).Info("Запуск генератора отчетов")
	return logger, nil
}

// provideSender создает почтовый клиент, если почта сконфигурирована.
// Без почтовой секции отчёт уходит только в архив.
func provideSender(cfg config.Config, logger *logrus.Logger) mail.Sender {
	if !cfg.Mail.Configured() {
		return nil
	}
	return mail.NewZeptoClient(cfg.Mail, logger)
}

// provideReporter собирает конвейер отчёта из компонентов
func provideReporter(
	cfg config.Config,
	gateway *database.Gateway,
	generator *excel.Generator,
	sender mail.Sender,
	archive storage.Storage,
	logger *logrus.Logger,
) *service.Reporter {
	return service.NewReporter(cfg, gateway, generator, sender, archive, logger)
}

// registerLifecycleHooks настраивает хуки жизненного цикла приложения
func registerLifecycleHooks(db *gorm.DB, logger *logrus.Logger, lc fx.Lifecycle) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			logger.Info("Закрытие соединения с базой данных")
			return database.Close(db)
		},
	})
}
