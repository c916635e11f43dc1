package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"reporter/internal/config"
	"reporter/internal/database"
	"reporter/internal/excel"
	"reporter/internal/mail"
	"reporter/internal/report"
	"reporter/internal/storage"
)

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.DebugLevel)
	return l
}

// setupVendingDB opens an in-memory database with the vending schema and
// three February 2024 transactions.
func setupVendingDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	for _, stmt := range []string{
		`CREATE TABLE ven_operations (
			id INTEGER PRIMARY KEY,
			oper_date DATETIME NOT NULL,
			user_id INTEGER NOT NULL,
			terminal_id INTEGER NOT NULL,
			credit_block REAL NOT NULL
		)`,
		`CREATE TABLE ven_users (
			id INTEGER PRIMARY KEY,
			emp_id TEXT NOT NULL,
			first_name TEXT NOT NULL,
			last_name TEXT NOT NULL
		)`,
		`CREATE TABLE ven_terminals (
			id INTEGER PRIMARY KEY,
			name TEXT NOT NULL
		)`,
		`INSERT INTO ven_users (id, emp_id, first_name, last_name) VALUES
			(1, 'E001', 'Maria', 'Lopez'),
			(2, 'E002', 'Ivan', 'Petrov')`,
		`INSERT INTO ven_terminals (id, name) VALUES (1, 'Lobby'), (2, 'Warehouse')`,
	} {
		require.NoError(t, db.Exec(stmt).Error)
	}

	for _, op := range []struct {
		id       int64
		at       time.Time
		user     int64
		terminal int64
		amount   float64
	}{
		{10, time.Date(2024, time.February, 5, 9, 30, 0, 0, time.UTC), 1, 1, 1.50},
		{11, time.Date(2024, time.February, 14, 12, 0, 0, 0, time.UTC), 2, 2, 2.25},
		{12, time.Date(2024, time.February, 28, 17, 45, 0, 0, time.UTC), 1, 2, 0.75},
	} {
		require.NoError(t, db.Exec(
			`INSERT INTO ven_operations (id, oper_date, user_id, terminal_id, credit_block) VALUES (?, ?, ?, ?, ?)`,
			op.id, op.at, op.user, op.terminal, op.amount,
		).Error)
	}

	t.Cleanup(func() {
		assert.NoError(t, database.Close(db))
	})

	return db
}

func mailConfig(apiURL string) config.Config {
	return config.Config{
		Mail: config.Mail{
			APIURL:    apiURL,
			APIKey:    "test-key",
			FromEmail: "reports@example.com",
			FromName:  "Reporter",
			Subject:   "Monthly vending report",
			Recipients: []config.Recipient{
				{Address: "ops@example.com", Name: "Operations"},
			},
		},
	}
}

type capturedMail struct {
	Subject     string `json:"subject"`
	Attachments []struct {
		Name    string `json:"name"`
		Content string `json:"content"`
	} `json:"attachments"`
}

func TestRunEndToEnd(t *testing.T) {
	var calls atomic.Int32
	var captured capturedMail

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	cfg := mailConfig(srv.URL)
	db := setupVendingDB(t)
	logger := testLogger()

	reporter := NewReporter(cfg,
		database.NewGateway(db, logger),
		excel.NewGenerator(logger),
		mail.NewZeptoClient(cfg.Mail, logger),
		nil,
		logger)
	// A run in March reports on February.
	reporter.now = func() time.Time {
		return time.Date(2024, time.March, 15, 10, 0, 0, 0, time.UTC)
	}

	require.NoError(t, reporter.Run(context.Background(), report.PreviousMonth()))
	require.Equal(t, int32(1), calls.Load(), "exactly one mail API call")

	assert.Equal(t, "Monthly vending report", captured.Subject)
	require.Len(t, captured.Attachments, 1)
	assert.Equal(t, "Report_20240201_to_20240229.xlsx", captured.Attachments[0].Name)

	raw, err := base64.StdEncoding.DecodeString(captured.Attachments[0].Content)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(raw))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Report")
	require.NoError(t, err)
	require.Len(t, rows, 4, "header plus three transactions")
	assert.Equal(t, "12", rows[1][0], "newest transaction first")
}

func TestRunEmptyPeriodSendsNothing(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	cfg := mailConfig(srv.URL)
	db := setupVendingDB(t)
	logger := testLogger()

	reporter := NewReporter(cfg,
		database.NewGateway(db, logger),
		excel.NewGenerator(logger),
		mail.NewZeptoClient(cfg.Mail, logger),
		nil,
		logger)

	req, err := report.DateRange(
		time.Date(2023, time.June, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2023, time.June, 30, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	// Zero rows is a successful run, not an error.
	require.NoError(t, reporter.Run(context.Background(), req))
	assert.Zero(t, calls.Load())
}

func TestRunMailRejectionPropagates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"invalid api key"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	cfg := mailConfig(srv.URL)
	db := setupVendingDB(t)
	logger := testLogger()

	reporter := NewReporter(cfg,
		database.NewGateway(db, logger),
		excel.NewGenerator(logger),
		mail.NewZeptoClient(cfg.Mail, logger),
		nil,
		logger)
	reporter.now = func() time.Time {
		return time.Date(2024, time.March, 15, 10, 0, 0, 0, time.UTC)
	}

	err := reporter.Run(context.Background(), report.PreviousMonth())
	require.Error(t, err)

	var apiErr *mail.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.True(t, apiErr.AuthFailure())
}

// MockStorage mocks the archive for delivery tests.
type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) Save(ctx context.Context, key string, reader io.Reader) error {
	args := m.Called(ctx, key, reader)
	return args.Error(0)
}

func (m *MockStorage) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	args := m.Called(ctx, key)
	if rc, ok := args.Get(0).(io.ReadCloser); ok {
		return rc, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockStorage) Exists(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func (m *MockStorage) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockStorage) List(ctx context.Context, prefix string) ([]storage.FileInfo, error) {
	args := m.Called(ctx, prefix)
	if files, ok := args.Get(0).([]storage.FileInfo); ok {
		return files, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockStorage) JoinPath(elem ...string) string {
	return path.Join(elem...)
}

func (m *MockStorage) ValidateKey(key string) error {
	args := m.Called(key)
	return args.Error(0)
}

func TestRunArchivesReport(t *testing.T) {
	db := setupVendingDB(t)
	logger := testLogger()

	archive := new(MockStorage)
	archive.On("Save", mock.Anything, "reports/Report_20240201_to_20240229.xlsx", mock.Anything).
		Return(nil)

	// Archive-only delivery: no mail sender configured.
	reporter := NewReporter(config.Config{},
		database.NewGateway(db, logger),
		excel.NewGenerator(logger),
		nil,
		archive,
		logger)
	reporter.now = func() time.Time {
		return time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	}

	require.NoError(t, reporter.Run(context.Background(), report.PreviousMonth()))
	archive.AssertExpectations(t)
}

func TestRunArchiveFailurePropagates(t *testing.T) {
	db := setupVendingDB(t)
	logger := testLogger()

	archive := new(MockStorage)
	archive.On("Save", mock.Anything, mock.Anything, mock.Anything).
		Return(errors.New("bucket unavailable"))

	reporter := NewReporter(config.Config{},
		database.NewGateway(db, logger),
		excel.NewGenerator(logger),
		nil,
		archive,
		logger)
	reporter.now = func() time.Time {
		return time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	}

	err := reporter.Run(context.Background(), report.PreviousMonth())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to archive report")
}

func TestReportFilename(t *testing.T) {
	name := ReportFilename(
		time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, time.February, 29, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, "Report_20240201_to_20240229.xlsx", name)
}
