package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Типы уведомлений
const (
	NotificationCreditAlert     = "Credit Alert"
	NotificationDebitAlert      = "Debit Alert"
	NotificationAddedCreditCard = "Added Credit Card"
	NotificationKYCSubmitted    = "KYC Submitted"
)

// Notification информационная запись для пользователя, без механизма доставки
type Notification struct {
	ID               uint                `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID           uint                `gorm:"column:user_id;not null;index" json:"userId"`
	User             User                `gorm:"foreignKey:UserID" json:"-"`
	NotificationType string              `gorm:"column:notification_type;not null;size:100" json:"notificationType"`
	Amount           decimal.NullDecimal `gorm:"column:amount;type:decimal(12,2)" json:"amount"`
	IsRead           bool                `gorm:"column:is_read;not null;default:false" json:"isRead"`
	Date             time.Time           `gorm:"column:date;index" json:"date"`
}

func (Notification) TableName() string {
	return "notifications"
}

// BeforeCreate проставляет дату, если она не задана явно
func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.Date.IsZero() {
		n.Date = time.Now()
	}
	return nil
}
