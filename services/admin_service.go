package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"paylio/database"
	"paylio/models"
	"paylio/utils"

	"github.com/beevik/etree"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// adminListLimit ограничение на размер выдачи списков администратора
const adminListLimit = 500

// AccountFilter фильтры списка счетов
type AccountFilter struct {
	Status       string
	AccountType  string
	KYCSubmitted *bool
	KYCConfirmed *bool
	Query        string // поиск по номеру счета, email и имени пользователя
}

// AccountPatch изменяемые администратором поля счета
type AccountPatch struct {
	AccountType    *string `json:"account_type" validate:"omitempty,oneof=Checking Savings Business"`
	AccountStatus  *string `json:"account_status" validate:"omitempty,oneof=active inactive"`
	AccountBalance *string `json:"account_balance"`
	KYCSubmitted   *bool   `json:"kyc_submitted"`
	KYCConfirmed   *bool   `json:"kyc_confirmed"`
}

// TransactionFilter фильтры списка транзакций
type TransactionFilter struct {
	Status          string
	TransactionType string
	UserID          uint
}

// TransactionPatch изменяемые администратором поля транзакции
type TransactionPatch struct {
	Amount          *string `json:"amount"`
	Status          *string `json:"status" validate:"omitempty,oneof=pending processing completed success failed"`
	TransactionType *string `json:"transaction_type" validate:"omitempty,oneof=transfer received deposit withdrawal request"`
}

// AdminAccountDTO представляет счет в ответах администратора
type AdminAccountDTO struct {
	ID            uint    `json:"id"`
	AccountID     string  `json:"accountId"`
	AccountNumber string  `json:"accountNumber"`
	AccountType   string  `json:"accountType"`
	Balance       string  `json:"balance"`
	Status        string  `json:"status"`
	KYCSubmitted  bool    `json:"kycSubmitted"`
	KYCConfirmed  bool    `json:"kycConfirmed"`
	User          UserDTO `json:"user"`
	Date          string  `json:"date"`
}

// AdminService предоставляет методы административной панели
type AdminService struct {
	db        *database.Database
	validator *validator.Validate
}

// NewAdminService создает новый экземпляр AdminService
func NewAdminService(db *database.Database) *AdminService {
	return &AdminService{
		db:        db,
		validator: newValidator(),
	}
}

// ListAccounts возвращает счета с учетом фильтров, новые первыми
func (s *AdminService) ListAccounts(f AccountFilter) ([]models.Account, error) {
	q := s.db.DB.Model(&models.Account{}).Joins("User")
	if f.Status != "" {
		q = q.Where("accounts.account_status = ?", f.Status)
	}
	if f.AccountType != "" {
		q = q.Where("accounts.account_type = ?", f.AccountType)
	}
	if f.KYCSubmitted != nil {
		q = q.Where("accounts.kyc_submitted = ?", *f.KYCSubmitted)
	}
	if f.KYCConfirmed != nil {
		q = q.Where("accounts.kyc_confirmed = ?", *f.KYCConfirmed)
	}
	if query := strings.TrimSpace(f.Query); query != "" {
		like := "%" + strings.ToLower(query) + "%"
		q = q.Where("accounts.account_number LIKE ? OR LOWER(\"User\".email) LIKE ? OR LOWER(\"User\".username) LIKE ?", like, like, like)
	}

	var accounts []models.Account
	if err := q.Order("accounts.id DESC").Limit(adminListLimit).Find(&accounts).Error; err != nil {
		return nil, fmt.Errorf("ошибка при получении счетов: %v", err)
	}
	return accounts, nil
}

// UpdateAccount применяет изменения администратора к счету
func (s *AdminService) UpdateAccount(id uint, patch AccountPatch) (*models.Account, error) {
	if err := validateStruct(s.validator, patch); err != nil {
		return nil, err
	}

	account, err := s.db.GetAccountByID(id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка при поиске счета: %v", err)
	}

	if patch.AccountType != nil {
		account.AccountType = *patch.AccountType
	}
	if patch.AccountStatus != nil {
		account.AccountStatus = models.AccountStatus(*patch.AccountStatus)
	}
	if patch.AccountBalance != nil {
		balance, err := decimal.NewFromString(strings.TrimSpace(*patch.AccountBalance))
		if err != nil {
			return nil, fieldError("account_balance", "поле account_balance должно быть десятичным числом")
		}
		account.AccountBalance = models.NewMoney(balance)
	}
	if patch.KYCSubmitted != nil {
		account.KYCSubmitted = *patch.KYCSubmitted
	}
	if patch.KYCConfirmed != nil {
		account.KYCConfirmed = *patch.KYCConfirmed
	}

	if err := s.db.DB.Omit("User").Save(account).Error; err != nil {
		return nil, fmt.Errorf("ошибка при обновлении счета: %v", err)
	}
	utils.LogInfo("Счет %s обновлен администратором", account.AccountNumber)
	return account, nil
}

// ListTransactions возвращает транзакции с учетом фильтров, новые первыми
func (s *AdminService) ListTransactions(f TransactionFilter) ([]models.Transaction, error) {
	q := s.db.DB.Model(&models.Transaction{})
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.TransactionType != "" {
		q = q.Where("transaction_type = ?", f.TransactionType)
	}
	if f.UserID != 0 {
		q = q.Where("user_id = ?", f.UserID)
	}

	var transactions []models.Transaction
	if err := q.Order("date DESC, id DESC").Limit(adminListLimit).Find(&transactions).Error; err != nil {
		return nil, fmt.Errorf("ошибка при получении транзакций: %v", err)
	}
	return transactions, nil
}

// UpdateTransaction применяет изменения администратора к транзакции
func (s *AdminService) UpdateTransaction(id uint, patch TransactionPatch) (*models.Transaction, error) {
	if err := validateStruct(s.validator, patch); err != nil {
		return nil, err
	}

	tx, err := s.db.GetTransactionByID(id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка при поиске транзакции: %v", err)
	}

	if patch.Amount != nil {
		amount, err := decimal.NewFromString(strings.TrimSpace(*patch.Amount))
		if err != nil || amount.IsNegative() {
			return nil, fieldError("amount", "поле amount должно быть неотрицательным числом")
		}
		tx.Amount = amount.Round(2)
	}
	if patch.Status != nil {
		tx.Status = models.TransactionStatus(*patch.Status)
	}
	if patch.TransactionType != nil {
		tx.TransactionType = models.TransactionType(*patch.TransactionType)
	}

	if err := s.db.DB.Save(tx).Error; err != nil {
		return nil, fmt.Errorf("ошибка при обновлении транзакции: %v", err)
	}
	return tx, nil
}

// ListNotifications возвращает последние уведомления всех пользователей
func (s *AdminService) ListNotifications() ([]models.Notification, error) {
	var notifications []models.Notification
	if err := s.db.DB.Order("id DESC").Limit(adminListLimit).Find(&notifications).Error; err != nil {
		return nil, fmt.Errorf("ошибка при получении уведомлений: %v", err)
	}
	return notifications, nil
}

// ListKYC возвращает анкеты KYC, новые первыми
func (s *AdminService) ListKYC() ([]models.KYC, error) {
	var records []models.KYC
	if err := s.db.DB.Order("id DESC").Limit(adminListLimit).Find(&records).Error; err != nil {
		return nil, fmt.Errorf("ошибка при получении KYC: %v", err)
	}
	return records, nil
}

// ToAdminAccountDTO преобразует счет в DTO
func ToAdminAccountDTO(account *models.Account) AdminAccountDTO {
	return AdminAccountDTO{
		ID:            account.ID,
		AccountID:     account.AccountID,
		AccountNumber: account.AccountNumber,
		AccountType:   account.AccountType,
		Balance:       account.AccountBalance.StringFixed(2),
		Status:        string(account.AccountStatus),
		KYCSubmitted:  account.KYCSubmitted,
		KYCConfirmed:  account.KYCConfirmed,
		User:          ToUserDTO(&account.User),
		Date:          account.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}

// ExportAccountsXML выгружает отфильтрованные счета в XML
func (s *AdminService) ExportAccountsXML(f AccountFilter, now time.Time) ([]byte, error) {
	accounts, err := s.ListAccounts(f)
	if err != nil {
		return nil, err
	}

	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	root := doc.CreateElement("accounts")
	root.CreateAttr("exported", now.UTC().Format(time.RFC3339))
	root.CreateAttr("count", fmt.Sprint(len(accounts)))

	for i := range accounts {
		a := &accounts[i]
		el := root.CreateElement("account")
		el.CreateAttr("id", a.AccountID)
		el.CreateElement("number").SetText(a.AccountNumber)
		el.CreateElement("type").SetText(a.AccountType)
		el.CreateElement("balance").SetText(a.AccountBalance.StringFixed(2))
		el.CreateElement("status").SetText(string(a.AccountStatus))
		kyc := el.CreateElement("kyc")
		kyc.CreateAttr("submitted", fmt.Sprint(a.KYCSubmitted))
		kyc.CreateAttr("confirmed", fmt.Sprint(a.KYCConfirmed))
		owner := el.CreateElement("owner")
		owner.CreateElement("username").SetText(a.User.Username)
		owner.CreateElement("email").SetText(a.User.Email)
		el.CreateElement("date").SetText(a.CreatedAt.UTC().Format(time.RFC3339))
	}

	doc.Indent(2)
	return doc.WriteToBytes()
}
