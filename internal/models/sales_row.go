package models

import (
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// SalesRow is one parsed spreadsheet row. The full set is replaced on every
// successful sales sync.
type SalesRow struct {
	ID          string          `gorm:"primaryKey;type:text"`
	RunID       string          `gorm:"type:text;index"`
	RowIndex    int             `gorm:"not null"`
	SaleDate    string          `gorm:"type:text;not null;index"`
	ProductName string          `gorm:"type:text;not null"`
	Quantity    int             `gorm:"not null"`
	UnitPrice   decimal.Decimal `gorm:"type:numeric(18,2);not null"`
	Amount      decimal.Decimal `gorm:"type:numeric(18,2);not null"`
	Currency    string          `gorm:"type:text;not null"`
	RecordHash  string          `gorm:"type:text;not null"`
	RawJSON     datatypes.JSON  `gorm:"type:jsonb"`
}

func (SalesRow) TableName() string {
	return "sales_rows"
}
