package database

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"reporter/internal/models"
	"reporter/internal/report"
)

// Gateway executes the report query and returns typed rows. Dynamic
// driver records are mapped onto models.Operation at this boundary.
type Gateway struct {
	db     *gorm.DB
	logger *logrus.Logger
}

// NewGateway creates a gateway over an open connection.
func NewGateway(db *gorm.DB, logger *logrus.Logger) *Gateway {
	return &Gateway{db: db, logger: logger}
}

// FetchOperations runs the query for the given mode and period. A period
// with no transactions returns an empty slice and no error; the caller
// decides what an empty report means.
func (g *Gateway) FetchOperations(ctx context.Context, mode report.Mode, start, end time.Time) ([]models.Operation, error) {
	sqlText, args, err := QueryFor(mode, start, end)
	if err != nil {
		return nil, &Error{Op: "query", Err: err}
	}
	if err := ensureReadOnly(sqlText); err != nil {
		return nil, &Error{Op: "query", Err: err}
	}

	g.logger.WithFields(logrus.Fields{
		"start": start.Format("2006-01-02"),
		"end":   end.Format("2006-01-02"),
	}).Debug("Executing report query")

	ops := make([]models.Operation, 0)
	if err := g.db.WithContext(ctx).Raw(sqlText, args...).Scan(&ops).Error; err != nil {
		return nil, &Error{Op: "query", Err: err}
	}

	g.logger.WithField("rows", len(ops)).Debug("Report query finished")
	return ops, nil
}
