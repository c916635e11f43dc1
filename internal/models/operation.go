package models

import (
	"strings"
	"time"
)

// Operation represents a single vending transaction as returned by the
// report query. Column names follow the aliases of the report statement,
// so rows scan directly into this struct at the gateway boundary.
type Operation struct {
	ID         int64     `gorm:"column:id" json:"id"`
	Date       time.Time `gorm:"column:date" json:"date"`
	EmployeeID string    `gorm:"column:emp_id" json:"emp_id"`
	FirstName  string    `gorm:"column:name" json:"name"`
	LastName   string    `gorm:"column:lastname" json:"lastname"`
	Terminal   string    `gorm:"column:terminal" json:"terminal"`
	Amount     float64   `gorm:"column:block" json:"block"`
}

// EmployeeName returns the full employee name for display.
func (o Operation) EmployeeName() string {
	return strings.TrimSpace(o.FirstName + " " + o.LastName)
}
