package models

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// MoneyPlaces число знаков после запятой у денежных сумм
const MoneyPlaces = 2

// Money денежная сумма с двумя знаками после запятой.
// В sqlite хранится текстом: колонка decimal там получает REAL и теряет разряды.
type Money struct {
	decimal.Decimal
}

// NewMoney округляет d до копеек
func NewMoney(d decimal.Decimal) Money {
	return Money{Decimal: d.Round(MoneyPlaces)}
}

// GormDBDataType подменяет тип колонки только для sqlite; для postgres действует тег type
func (Money) GormDBDataType(db *gorm.DB, _ *schema.Field) string {
	if db.Dialector.Name() == "sqlite" {
		return "text"
	}
	return ""
}
