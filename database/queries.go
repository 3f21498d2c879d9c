package database

import (
	"paylio/models"

	"gorm.io/gorm"
)

// Методы для работы с пользователями
func (d *Database) CreateUser(user *models.User) error {
	return d.DB.Create(user).Error
}

func (d *Database) GetUserByID(id uint) (*models.User, error) {
	var user models.User
	err := d.DB.First(&user, id).Error
	return &user, err
}

// GetUserByEmail ищет пользователя по email без учета регистра и пробелов
func (d *Database) GetUserByEmail(email string) (*models.User, error) {
	var user models.User
	err := d.DB.Where("LOWER(TRIM(email)) = LOWER(TRIM(?))", email).First(&user).Error
	return &user, err
}

func (d *Database) GetUserByUsername(username string) (*models.User, error) {
	var user models.User
	err := d.DB.Where("username = ?", username).First(&user).Error
	return &user, err
}

// ListSuperusers возвращает всех суперпользователей
func (d *Database) ListSuperusers() ([]models.User, error) {
	var users []models.User
	err := d.DB.Where("is_superuser = ?", true).Order("id").Find(&users).Error
	return users, err
}

// ListStaff возвращает всех сотрудников, включая суперпользователей
func (d *Database) ListStaff() ([]models.User, error) {
	var users []models.User
	err := d.DB.Where("is_staff = ?", true).Order("id").Find(&users).Error
	return users, err
}

// Методы для работы со счетами
func (d *Database) GetAccountByUserID(userID uint) (*models.Account, error) {
	var account models.Account
	err := d.DB.Where("user_id = ?", userID).First(&account).Error
	return &account, err
}

func (d *Database) GetAccountByID(id uint) (*models.Account, error) {
	var account models.Account
	err := d.DB.Preload("User").First(&account, id).Error
	return &account, err
}

// Методы для работы с KYC
func (d *Database) GetKYCByUserID(userID uint) (*models.KYC, error) {
	var kyc models.KYC
	err := d.DB.Where("user_id = ?", userID).First(&kyc).Error
	return &kyc, err
}

// Методы для работы с транзакциями
func (d *Database) CreateTransaction(transaction *models.Transaction) error {
	return d.DB.Create(transaction).Error
}

func (d *Database) GetTransactionByID(id uint) (*models.Transaction, error) {
	var transaction models.Transaction
	err := d.DB.First(&transaction, id).Error
	return &transaction, err
}

// SentTransactions возвращает транзакции пользователя-отправителя заданного типа, новые первыми
func (d *Database) SentTransactions(userID uint, txType models.TransactionType, limit int) ([]models.Transaction, error) {
	return d.listTransactions(d.DB.Where("sender_id = ? AND transaction_type = ?", userID, txType), limit)
}

// ReceivedTransactions возвращает транзакции пользователя-получателя заданного типа, новые первыми
func (d *Database) ReceivedTransactions(userID uint, txType models.TransactionType, limit int) ([]models.Transaction, error) {
	return d.listTransactions(d.DB.Where("reciever_id = ? AND transaction_type = ?", userID, txType), limit)
}

func (d *Database) listTransactions(q *gorm.DB, limit int) ([]models.Transaction, error) {
	var transactions []models.Transaction
	q = q.Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&transactions).Error
	return transactions, err
}

// Методы для работы с уведомлениями
func (d *Database) CreateNotification(notification *models.Notification) error {
	return d.DB.Create(notification).Error
}

// LatestNotifications возвращает последние уведомления пользователя
func (d *Database) LatestNotifications(userID uint, limit int) ([]models.Notification, error) {
	var notifications []models.Notification
	err := d.DB.Where("user_id = ?", userID).Order("id DESC").Limit(limit).Find(&notifications).Error
	return notifications, err
}

// Методы для работы с картами
func (d *Database) CreateCreditCard(card *models.CreditCard) error {
	return d.DB.Create(card).Error
}

func (d *Database) CreditCardsByUserID(userID uint) ([]models.CreditCard, error) {
	var cards []models.CreditCard
	err := d.DB.Where("user_id = ?", userID).Order("id DESC").Find(&cards).Error
	return cards, err
}
