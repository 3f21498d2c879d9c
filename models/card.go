package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Типы карт
const (
	CardTypeMaster = "master"
	CardTypeVisa   = "visa"
	CardTypeVerve  = "verve"
)

// CreditCard представляет карту пользователя.
// Полный номер не хранится: только HMAC-отпечаток и последние четыре цифры.
type CreditCard struct {
	ID         uint            `gorm:"primaryKey;autoIncrement" json:"id"`
	CardID     string          `gorm:"column:card_id;unique;not null;size:36" json:"cardId"`
	UserID     uint            `gorm:"column:user_id;not null;index" json:"userId"`
	User       User            `gorm:"foreignKey:UserID" json:"-"`
	Name       string          `gorm:"column:name;not null;size:100" json:"name"`
	NumberHMAC string          `gorm:"column:number_hmac;not null;index" json:"-"`
	Last4      string          `gorm:"column:last4;not null;size:4" json:"last4"`
	Month      int             `gorm:"column:month;not null" json:"month"`
	Year       int             `gorm:"column:year;not null" json:"year"`
	CVV        string          `gorm:"column:cvv;not null" json:"-"`
	Amount     decimal.Decimal `gorm:"column:amount;type:decimal(12,2);not null;default:0" json:"amount"`
	CardType   string          `gorm:"column:card_type;not null;size:20;default:'master'" json:"cardType"`
	CardStatus bool            `gorm:"column:card_status;not null;default:true" json:"cardStatus"`
	CreatedAt  time.Time       `gorm:"column:date" json:"date"`
}

// TableName возвращает имя таблицы для модели CreditCard
func (CreditCard) TableName() string {
	return "credit_cards"
}

// MaskedNumber возвращает номер карты в виде **** **** **** 1234
func (c *CreditCard) MaskedNumber() string {
	return "**** **** **** " + c.Last4
}

// BeforeCreate проставляет идентификатор карты
func (c *CreditCard) BeforeCreate(tx *gorm.DB) error {
	if c.CardID == "" {
		c.CardID = uuid.NewString()
	}
	return nil
}
