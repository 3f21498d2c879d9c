package models

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AccountStatus представляет статус счета
type AccountStatus string

const (
	AccountStatusActive   AccountStatus = "active"
	AccountStatusInactive AccountStatus = "inactive"
)

// Типы счетов
const (
	AccountTypeChecking = "Checking"
	AccountTypeSavings  = "Savings"
	AccountTypeBusiness = "Business"
)

// AccountTypes перечисляет допустимые типы счетов
var AccountTypes = []string{AccountTypeChecking, AccountTypeSavings, AccountTypeBusiness}

// accessCodeAttempts ограничивает подбор уникального кода доступа
const accessCodeAttempts = 10000

var errAccessCode = errors.New("не удалось подобрать уникальный код доступа")

// Account представляет профиль клиента: ровно один на пользователя
type Account struct {
	ID             uint            `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID         uint            `gorm:"column:user_id;uniqueIndex;not null" json:"userId"`
	User           User            `gorm:"foreignKey:UserID;references:ID;constraint:OnDelete:CASCADE" json:"-"`
	AccountID      string          `gorm:"column:account_id;unique;not null;size:25" json:"accountId"`
	AccountNumber  string          `gorm:"column:account_number;unique;not null;size:10" json:"accountNumber"`
	AccountType    string          `gorm:"column:account_type;not null;size:20;default:'Checking'" json:"accountType"`
	PinNumber      string          `gorm:"column:pin_number;not null;size:4" json:"-"`
	RedCode        string          `gorm:"column:red_code;not null;size:10" json:"-"`
	AccessCode     *string         `gorm:"column:access_code;uniqueIndex;size:6" json:"-"`
	AccountBalance Money           `gorm:"column:account_balance;type:decimal(20,2);not null;default:0" json:"accountBalance"`
	AccountStatus  AccountStatus   `gorm:"column:account_status;type:varchar(20);not null;default:'inactive'" json:"accountStatus"`
	KYCSubmitted   bool            `gorm:"column:kyc_submitted;not null;default:false" json:"kycSubmitted"`
	KYCConfirmed   bool            `gorm:"column:kyc_confirmed;not null;default:false" json:"kycConfirmed"`
	CreatedAt      time.Time       `gorm:"column:date" json:"date"`
	UpdatedAt      time.Time       `gorm:"column:updated_at" json:"-"`
}

func (Account) TableName() string {
	return "accounts"
}

// IsActive сообщает, активен ли счет
func (a *Account) IsActive() bool {
	return a.AccountStatus == AccountStatusActive
}

// BeforeCreate заполняет сгенерированные поля, если они не заданы
func (a *Account) BeforeCreate(tx *gorm.DB) error {
	if a.AccountID == "" {
		a.AccountID = generateAccountID()
	}
	if a.AccountNumber == "" {
		a.AccountNumber = randomDigits(10)
	}
	if a.PinNumber == "" {
		a.PinNumber = randomDigits(4)
	}
	if a.RedCode == "" {
		a.RedCode = randomDigits(10)
	}
	if a.AccountType == "" {
		a.AccountType = AccountTypeChecking
	}
	if a.AccountStatus == "" {
		a.AccountStatus = AccountStatusInactive
	}
	if a.AccessCode == nil {
		code, err := uniqueAccessCode(tx)
		if err != nil {
			return err
		}
		a.AccessCode = &code
	}
	return nil
}

// uniqueAccessCode подбирает шестизначный код, которого еще нет в таблице
func uniqueAccessCode(tx *gorm.DB) (string, error) {
	db := tx.Session(&gorm.Session{NewDB: true})
	for i := 0; i < accessCodeAttempts; i++ {
		code := randomDigits(6)
		var count int64
		if err := db.Model(&Account{}).Where("access_code = ?", code).Count(&count).Error; err != nil {
			return "", fmt.Errorf("ошибка проверки кода доступа: %v", err)
		}
		if count == 0 {
			return code, nil
		}
	}
	return "", errAccessCode
}

// NewAccessCode подбирает шестизначный код, отсутствующий в existing
func NewAccessCode(existing map[string]bool) (string, error) {
	for i := 0; i < accessCodeAttempts; i++ {
		code := randomDigits(6)
		if !existing[code] {
			return code, nil
		}
	}
	return "", errAccessCode
}

// generateAccountID формирует короткий идентификатор счета на основе UUID
func generateAccountID() string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "PAY" + strings.ToUpper(id[:16])
}

// randomDigits генерирует строку из n случайных цифр
func randomDigits(n int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		b.WriteByte(byte('0' + rand.IntN(10)))
	}
	return b.String()
}
