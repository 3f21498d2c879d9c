package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// TransactionType представляет тип транзакции
type TransactionType string

const (
	TransactionTypeTransfer   TransactionType = "transfer"
	TransactionTypeReceived   TransactionType = "received"
	TransactionTypeDeposit    TransactionType = "deposit"
	TransactionTypeWithdrawal TransactionType = "withdrawal"
	TransactionTypeRequest    TransactionType = "request"
)

// TransactionStatus представляет статус транзакции
type TransactionStatus string

const (
	TransactionStatusPending    TransactionStatus = "pending"
	TransactionStatusProcessing TransactionStatus = "processing"
	TransactionStatusCompleted  TransactionStatus = "completed"
	TransactionStatusSuccess    TransactionStatus = "success"
	TransactionStatusFailed     TransactionStatus = "failed"
)

// Transaction хранит денежное событие плоской строкой, без проводок и влияния на баланс
type Transaction struct {
	ID                uint              `gorm:"primaryKey;autoIncrement" json:"id"`
	TransactionID     string            `gorm:"column:transaction_id;unique;not null;size:36" json:"transactionId"`
	UserID            uint              `gorm:"column:user_id;not null;index" json:"userId"`
	User              User              `gorm:"foreignKey:UserID" json:"-"`
	Amount            decimal.Decimal   `gorm:"column:amount;type:decimal(12,2);not null;default:0" json:"amount"`
	Description       string            `gorm:"column:description;size:1000" json:"description"`
	ReceiverID        *uint             `gorm:"column:reciever_id;index" json:"receiverId,omitempty"`
	Receiver          *User             `gorm:"foreignKey:ReceiverID" json:"-"`
	SenderID          *uint             `gorm:"column:sender_id;index" json:"senderId,omitempty"`
	Sender            *User             `gorm:"foreignKey:SenderID" json:"-"`
	ReceiverAccountID *uint             `gorm:"column:reciever_account_id" json:"receiverAccountId,omitempty"`
	ReceiverAccount   *Account          `gorm:"foreignKey:ReceiverAccountID" json:"-"`
	SenderAccountID   *uint             `gorm:"column:sender_account_id" json:"senderAccountId,omitempty"`
	SenderAccount     *Account          `gorm:"foreignKey:SenderAccountID" json:"-"`
	Status            TransactionStatus `gorm:"column:status;type:varchar(20);not null;default:'pending'" json:"status"`
	TransactionType   TransactionType   `gorm:"column:transaction_type;type:varchar(20);not null;default:'transfer'" json:"transactionType"`
	Date              time.Time         `gorm:"column:date;index" json:"date"`
	UpdatedAt         time.Time         `gorm:"column:updated_at" json:"-"`
}

func (Transaction) TableName() string {
	return "transactions"
}

// BeforeCreate проставляет идентификатор и дату создания
func (t *Transaction) BeforeCreate(tx *gorm.DB) error {
	if t.TransactionID == "" {
		t.TransactionID = uuid.NewString()
	}
	if t.Date.IsZero() {
		t.Date = time.Now()
	}
	return nil
}
