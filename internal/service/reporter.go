// Package service собирает конвейер отчёта: выборка транзакций,
// генерация Excel-документа и доставка адресатам.
package service

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"reporter/internal/config"
	"reporter/internal/mail"
	"reporter/internal/models"
	"reporter/internal/report"
	"reporter/internal/storage"
)

// archivePrefix — директория архива внутри хранилища.
const archivePrefix = "reports"

// OperationSource возвращает транзакции за период.
type OperationSource interface {
	FetchOperations(ctx context.Context, mode report.Mode, start, end time.Time) ([]models.Operation, error)
}

// WorkbookGenerator формирует файл отчёта из строк транзакций.
type WorkbookGenerator interface {
	Generate(ops []models.Operation) ([]byte, error)
}

// Reporter выполняет один прогон отчёта от запроса до доставки.
// Отправитель и архив опциональны: nil отключает соответствующий канал.
type Reporter struct {
	source     OperationSource
	generator  WorkbookGenerator
	sender     mail.Sender
	archive    storage.Storage
	recipients []mail.Recipient
	subject    string
	logger     *logrus.Logger

	// now подменяется в тестах для детерминированного периода.
	now func() time.Time
}

// NewReporter создает новый репортер.
func NewReporter(
	cfg config.Config,
	source OperationSource,
	generator WorkbookGenerator,
	sender mail.Sender,
	archive storage.Storage,
	logger *logrus.Logger,
) *Reporter {
	recipients := make([]mail.Recipient, 0, len(cfg.Mail.Recipients))
	for _, r := range cfg.Mail.Recipients {
		recipients = append(recipients, mail.Recipient{Address: r.Address, Name: r.Name})
	}

	return &Reporter{
		source:     source,
		generator:  generator,
		sender:     sender,
		archive:    archive,
		recipients: recipients,
		subject:    cfg.Mail.Subject,
		logger:     logger,
		now:        time.Now,
	}
}

// Run выполняет полный прогон: период, выборка, генерация, доставка.
// Пустой период завершается успешно без письма и без файла в архиве.
func (r *Reporter) Run(ctx context.Context, req report.Request) error {
	start, end := req.Period(r.now())

	logger := r.logger.WithFields(logrus.Fields{
		"mode":  string(req.Mode),
		"start": start.Format("2006-01-02"),
		"end":   end.Format("2006-01-02"),
	})
	logger.Info("Запуск генерации отчета")

	ops, err := r.source.FetchOperations(ctx, req.Mode, start, end)
	if err != nil {
		return fmt.Errorf("failed to fetch operations: %w", err)
	}

	if len(ops) == 0 {
		logger.Warn("Нет данных за период, отчет не отправлен")
		return nil
	}

	data, err := r.generator.Generate(ops)
	if err != nil {
		return fmt.Errorf("failed to generate report: %w", err)
	}

	filename := ReportFilename(start, end)

	if r.sender != nil {
		msg := mail.Message{
			Recipients: r.recipients,
			Subject:    r.subject,
			Attachment: mail.Attachment{Name: filename, Content: data},
		}
		if err := r.sender.Send(ctx, msg); err != nil {
			return fmt.Errorf("failed to send report: %w", err)
		}
	}

	if r.archive != nil {
		key := r.archive.JoinPath(archivePrefix, filename)
		if err := r.archive.Save(ctx, key, bytes.NewReader(data)); err != nil {
			return fmt.Errorf("failed to archive report: %w", err)
		}
	}

	logger.WithFields(logrus.Fields{
		"rows": len(ops),
		"file": filename,
	}).Info("Отчет сформирован и доставлен")

	return nil
}

// ReportFilename возвращает имя файла отчёта за период.
func ReportFilename(start, end time.Time) string {
	return fmt.Sprintf("Report_%s_to_%s.xlsx", start.Format("20060102"), end.Format("20060102"))
}
