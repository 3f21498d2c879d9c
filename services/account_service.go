package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"paylio/database"
	"paylio/models"
	"paylio/utils"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// DefaultDemoBalance подставляется, если строку баланса не удалось разобрать
const DefaultDemoBalance = "987654321.00"

// dashboardNotifications количество уведомлений на странице кабинета
const dashboardNotifications = 5

// KYCNotifier отправляет подтверждение о приеме анкеты KYC
type KYCNotifier interface {
	SendKYCSubmitted(to, fullName string) error
}

// KYCForm форма анкеты KYC
type KYCForm struct {
	FullName      string `form:"full_name" json:"full_name" validate:"required,max=1000"`
	Gender        string `form:"gender" json:"gender" validate:"required,oneof=male female other"`
	MaritalStatus string `form:"marrital_status" json:"marrital_status" validate:"required,oneof=married single other"`
	IdentityType  string `form:"identity_type" json:"identity_type" validate:"required,oneof=national_id_card drivers_licence international_passport"`
	DateOfBirth   string `form:"date_of_birth" json:"date_of_birth" validate:"required,datetime=2006-01-02"`
	Country       string `form:"country" json:"country" validate:"required,max=100"`
	State         string `form:"state" json:"state" validate:"omitempty,max=100"`
	City          string `form:"city" json:"city" validate:"omitempty,max=100"`
	Mobile        string `form:"mobile" json:"mobile" validate:"required,max=1000"`
	Fax           string `form:"fax" json:"fax" validate:"omitempty,max=1000"`
}

// BalanceResult результат установки демо-баланса
type BalanceResult struct {
	Balance decimal.Decimal
	// FellBack true, если входная строка не разобралась и использован DefaultDemoBalance
	FellBack bool
	Input    string
}

// Dashboard данные личного кабинета
type Dashboard struct {
	User                        *models.User
	Account                     *models.Account
	KYC                         *models.KYC
	CreditCards                 []models.CreditCard
	SenderTransactions          []models.Transaction
	ReceiverTransactions        []models.Transaction
	ReceivedPayments            []models.Transaction
	RequestSenderTransactions   []models.Transaction
	RequestReceiverTransactions []models.Transaction
	RecentTransfer              *models.Transaction
	RecentReceivedTransfer      *models.Transaction
	Notifications               []models.Notification
}

// AdminDashboard данные пользователя, просматриваемые суперпользователем
type AdminDashboard struct {
	ViewedUser *models.User
	Account    *models.Account
	KYC        *models.KYC
}

// AccountService предоставляет методы для работы со счетами и KYC
type AccountService struct {
	db        *database.Database
	validator *validator.Validate
	notifier  KYCNotifier
}

// NewAccountService создает новый экземпляр AccountService
func NewAccountService(db *database.Database, notifier KYCNotifier) *AccountService {
	return &AccountService{
		db:        db,
		validator: newValidator(),
		notifier:  notifier,
	}
}

// ParseBalance разбирает десятичную строку и округляет до копеек.
// При ошибке возвращает DefaultDemoBalance и false.
func ParseBalance(s string) (decimal.Decimal, bool) {
	balance, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.RequireFromString(DefaultDemoBalance), false
	}
	return balance.Round(models.MoneyPlaces), true
}

// ApplyDemoBalance безусловно перезаписывает баланс, статус и флаги KYC счета
func (s *AccountService) ApplyDemoBalance(account *models.Account, balance string) (BalanceResult, error) {
	value, ok := ParseBalance(balance)
	result := BalanceResult{Balance: value, FellBack: !ok, Input: balance}
	if !ok {
		utils.LogInfo("Баланс %q не разобран, используется %s", balance, DefaultDemoBalance)
	}

	account.AccountBalance = models.NewMoney(value)
	account.AccountStatus = models.AccountStatusActive
	account.KYCSubmitted = true
	account.KYCConfirmed = true

	if err := s.db.DB.Save(account).Error; err != nil {
		return result, fmt.Errorf("ошибка при обновлении баланса: %v", err)
	}
	return result, nil
}

// Dashboard собирает данные личного кабинета пользователя
func (s *AccountService) Dashboard(user *models.User) (*Dashboard, error) {
	account, err := s.db.GetAccountByUserID(user.ID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка при поиске счета: %v", err)
	}

	d := &Dashboard{User: user, Account: account}
	if d.KYC, err = s.findKYC(user.ID); err != nil {
		return nil, err
	}

	if d.CreditCards, err = s.db.CreditCardsByUserID(user.ID); err != nil {
		return nil, err
	}
	if d.SenderTransactions, err = s.db.SentTransactions(user.ID, models.TransactionTypeTransfer, 0); err != nil {
		return nil, err
	}
	if d.ReceiverTransactions, err = s.db.ReceivedTransactions(user.ID, models.TransactionTypeTransfer, 0); err != nil {
		return nil, err
	}
	if d.ReceivedPayments, err = s.db.ReceivedTransactions(user.ID, models.TransactionTypeReceived, 0); err != nil {
		return nil, err
	}
	if d.RequestSenderTransactions, err = s.db.SentTransactions(user.ID, models.TransactionTypeRequest, 0); err != nil {
		return nil, err
	}
	if d.RequestReceiverTransactions, err = s.db.ReceivedTransactions(user.ID, models.TransactionTypeRequest, 0); err != nil {
		return nil, err
	}

	for i := range d.SenderTransactions {
		if d.SenderTransactions[i].Status == models.TransactionStatusCompleted {
			d.RecentTransfer = &d.SenderTransactions[i]
			break
		}
	}
	if len(d.ReceiverTransactions) > 0 {
		d.RecentReceivedTransfer = &d.ReceiverTransactions[0]
	}

	if d.Notifications, err = s.db.LatestNotifications(user.ID, dashboardNotifications); err != nil {
		return nil, err
	}
	return d, nil
}

// FindKYC возвращает анкету KYC пользователя или nil, если ее нет
func (s *AccountService) FindKYC(userID uint) (*models.KYC, error) {
	return s.findKYC(userID)
}

func (s *AccountService) findKYC(userID uint) (*models.KYC, error) {
	kyc, err := s.db.GetKYCByUserID(userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка при поиске KYC: %v", err)
	}
	return kyc, nil
}

// SubmitKYC сохраняет анкету KYC пользователя (создает или обновляет) и отмечает счет
func (s *AccountService) SubmitKYC(user *models.User, form KYCForm) (*models.KYC, error) {
	if err := validateStruct(s.validator, form); err != nil {
		return nil, err
	}
	dateOfBirth, err := time.Parse("2006-01-02", form.DateOfBirth)
	if err != nil {
		return nil, fieldError("date_of_birth", "поле date_of_birth должно быть датой в формате 2006-01-02")
	}
	if dateOfBirth.After(time.Now()) {
		return nil, fieldError("date_of_birth", "дата рождения не может быть в будущем")
	}

	account, err := s.db.GetAccountByUserID(user.ID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка при поиске счета: %v", err)
	}

	kyc, err := s.findKYC(user.ID)
	if err != nil {
		return nil, err
	}
	if kyc == nil {
		kyc = &models.KYC{UserID: user.ID}
	}
	kyc.AccountID = &account.ID
	kyc.FullName = strings.TrimSpace(form.FullName)
	kyc.Gender = form.Gender
	kyc.MaritalStatus = form.MaritalStatus
	kyc.IdentityType = form.IdentityType
	kyc.DateOfBirth = dateOfBirth
	kyc.Country = form.Country
	kyc.State = form.State
	kyc.City = form.City
	kyc.Mobile = form.Mobile
	kyc.Fax = form.Fax

	if err := s.db.DB.Save(kyc).Error; err != nil {
		return nil, fmt.Errorf("ошибка при сохранении KYC: %v", err)
	}
	if err := s.db.DB.Model(account).Update("kyc_submitted", true).Error; err != nil {
		return nil, fmt.Errorf("ошибка при обновлении счета: %v", err)
	}

	// Письмо не влияет на результат
	if s.notifier != nil {
		if err := s.notifier.SendKYCSubmitted(user.Email, kyc.FullName); err != nil {
			utils.LogError("Ошибка отправки уведомления KYC для %s: %v", user.Email, err)
		}
	}
	return kyc, nil
}

// AdminView возвращает данные чужого кабинета. Для всех, кроме суперпользователя,
// результат неотличим от отсутствия записи.
func (s *AccountService) AdminView(viewer *models.User, targetID uint) (*AdminDashboard, error) {
	if viewer == nil || !viewer.IsSuperuser {
		return nil, ErrNotFound
	}

	target, err := s.db.GetUserByID(targetID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка при поиске пользователя: %v", err)
	}

	account, err := s.db.GetAccountByUserID(target.ID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка при поиске счета: %v", err)
	}

	account.User = *target

	kyc, err := s.findKYC(target.ID)
	if err != nil {
		return nil, err
	}
	return &AdminDashboard{ViewedUser: target, Account: account, KYC: kyc}, nil
}
