// Package storage архивирует сгенерированные отчёты в локальную
// директорию или в S3-совместимое хранилище. Архив опционален: без него
// отчёт существует только как вложение письма.
package storage

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"reporter/internal/config"
)

const (
	// Типы хранилищ
	StorageTypeLocal = "local"
	StorageTypeS3    = "s3"
)

// Storage интерфейс архива отчётов.
type Storage interface {
	Save(ctx context.Context, key string, reader io.Reader) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Exists(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, key string) error
	List(ctx context.Context, prefix string) ([]FileInfo, error)

	// Утилиты
	JoinPath(elem ...string) string
	ValidateKey(key string) error
}

// FileInfo информация о файле в архиве.
type FileInfo struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"last_modified"`
}

// NewStorageFromConfig создает хранилище по конфигурации. Если архив не
// сконфигурирован, возвращает nil: вызывающий код пропускает архивацию.
func NewStorageFromConfig(cfg config.Config, logger *logrus.Logger) (Storage, error) {
	if !cfg.Storage.Enabled() {
		return nil, nil
	}

	var (
		st  Storage
		err error
	)
	switch cfg.Storage.Type {
	case StorageTypeLocal:
		st, err = NewLocalStorage(cfg.Storage.BasePath, logger)
	case StorageTypeS3:
		st, err = NewS3Storage(cfg.Storage.S3, logger)
	default:
		return nil, fmt.Errorf("неподдерживаемый тип хранилища: %s", cfg.Storage.Type)
	}
	if err != nil {
		return nil, err
	}

	return wrapWithMiddleware(st, logger), nil
}

// wrapWithMiddleware оборачивает хранилище в middleware: валидация
// ключей и логирование операций.
func wrapWithMiddleware(st Storage, logger *logrus.Logger) Storage {
	if logger != nil {
		st = NewLoggingMiddleware(st, logger)
	}
	return NewValidationMiddleware(st)
}
