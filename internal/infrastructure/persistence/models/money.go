package models

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// Money stores a decimal without rounding. Postgres gets an unconstrained
// NUMERIC. SQLite gets TEXT, because its NUMERIC affinity would turn the
// value into a float.
type Money struct {
	decimal.Decimal
}

// GormDBDataType picks the column type per dialect
func (Money) GormDBDataType(db *gorm.DB, _ *schema.Field) string {
	if db.Dialector.Name() == "postgres" {
		return "numeric"
	}
	return "text"
}
