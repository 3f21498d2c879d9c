package services

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"paylio/database"
	"paylio/models"
	"paylio/utils"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Параметры демо-данных
const (
	DefaultDemoTransactions = 50
	DefaultSeedWindowDays   = 90

	demoDataPassword = "DemoPass123!"
	testUserPassword = "password123"
)

// SeedSource источник случайности и времени для генерации демо-данных
type SeedSource struct {
	Rand *rand.Rand
	Now  func() time.Time
}

func (src SeedSource) withDefaults() SeedSource {
	if src.Rand == nil {
		src.Rand = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0))
	}
	if src.Now == nil {
		src.Now = time.Now
	}
	return src
}

// BatchOptions параметры генерации пачки транзакций
type BatchOptions struct {
	SeedSource
	MinAmount  decimal.Decimal
	MaxAmount  decimal.Decimal
	WindowDays int
	Status     models.TransactionStatus
}

// DefaultBatchOptions суммы 10.00–1000.00, даты за последние 90 дней
func DefaultBatchOptions() BatchOptions {
	return BatchOptions{
		MinAmount:  decimal.RequireFromString("10.00"),
		MaxAmount:  decimal.RequireFromString("1000.00"),
		WindowDays: DefaultSeedWindowDays,
		Status:     models.TransactionStatusCompleted,
	}
}

func (o BatchOptions) withDefaults() BatchOptions {
	def := DefaultBatchOptions()
	o.SeedSource = o.SeedSource.withDefaults()
	if o.MinAmount.IsZero() && o.MaxAmount.IsZero() {
		o.MinAmount, o.MaxAmount = def.MinAmount, def.MaxAmount
	}
	if o.MaxAmount.LessThan(o.MinAmount) {
		o.MinAmount, o.MaxAmount = o.MaxAmount, o.MinAmount
	}
	if o.WindowDays < 0 {
		o.WindowDays = 0
	}
	if o.Status == "" {
		o.Status = def.Status
	}
	return o
}

// ItemResult результат создания одной демо-транзакции.
// Транзакция, уведомление и дата пишутся вместе: при Err ни одна запись не сохранена.
type ItemResult struct {
	Index         int
	Kind          models.TransactionType
	TransactionID string
	Amount        decimal.Decimal
	Date          time.Time
	Err           error
}

// BatchReport сводка по пачке транзакций
type BatchReport struct {
	Items []ItemResult
}

// Succeeded количество успешно созданных транзакций
func (r BatchReport) Succeeded() int {
	n := 0
	for _, item := range r.Items {
		if item.Err == nil {
			n++
		}
	}
	return n
}

// Failed количество неудачных попыток
func (r BatchReport) Failed() int {
	return len(r.Items) - r.Succeeded()
}

// SeedDemoOptions параметры команды seed-demo
type SeedDemoOptions struct {
	SuperuserEmail    string
	SuperuserPassword string
	DemoEmail         string
	DemoPassword      string
	Transactions      int
	Balance           string
	Batch             BatchOptions
}

// SeedDemoReport результат команды seed-demo
type SeedDemoReport struct {
	Superuser        *models.User
	SuperuserCreated bool
	DemoUser         *models.User
	DemoCreated      bool
	Account          *models.Account
	Balance          BalanceResult
	Transactions     BatchReport
}

// AccountFailure ошибка при заполнении одного демо-счета
type AccountFailure struct {
	Index    int
	Username string
	Err      error
}

// DemoDataReport результат команды generate-demo-data
type DemoDataReport struct {
	AccountsCreated     int
	TransactionsCreated int
	Failures            []AccountFailure
}

// TestUserResult созданный тестовый пользователь
type TestUserResult struct {
	User         *models.User
	Account      *models.Account
	Balance      decimal.Decimal
	Transactions int
}

// TestUsersReport результат команды create-test-users
type TestUsersReport struct {
	Created []TestUserResult
	Skipped []string
}

type testUser struct {
	username, email, firstName, lastName string
}

var testUsers = []testUser{
	{"john_doe", "john@example.com", "John", "Doe"},
	{"sarah_smith", "sarah@example.com", "Sarah", "Smith"},
	{"mike_johnson", "mike@example.com", "Mike", "Johnson"},
	{"emily_davis", "emily@example.com", "Emily", "Davis"},
	{"david_wilson", "david@example.com", "David", "Wilson"},
}

// SeedService заполняет базу демонстрационными данными
type SeedService struct {
	db       *database.Database
	users    *UserService
	accounts *AccountService
	metrics  *utils.Metrics
}

// NewSeedService создает новый экземпляр SeedService. metrics может быть nil.
func NewSeedService(db *database.Database, users *UserService, accounts *AccountService, metrics *utils.Metrics) *SeedService {
	return &SeedService{
		db:       db,
		users:    users,
		accounts: accounts,
		metrics:  metrics,
	}
}

// GenerateTransactions создает n транзакций (минимум одну) и по уведомлению на каждую.
// Четный индекс: поступление пользователю, нечетный: перевод от пользователя.
// Ошибка отдельной записи не прерывает пачку и попадает в отчет.
func (s *SeedService) GenerateTransactions(account *models.Account, user *models.User, n int, opts BatchOptions) BatchReport {
	opts = opts.withDefaults()
	if n < 1 {
		n = 1
	}

	now := opts.Now()
	var report BatchReport
	for i := 0; i < n; i++ {
		item := s.generateOne(i, account, user, opts, now)
		if item.Err != nil {
			utils.LogError("Ошибка создания демо-транзакции %d для %s: %v", i, user.Email, item.Err)
		}
		if s.metrics != nil {
			s.metrics.RecordSeedItem(item.Err)
		}
		report.Items = append(report.Items, item)
	}
	return report
}

func (s *SeedService) generateOne(i int, account *models.Account, user *models.User, opts BatchOptions, now time.Time) ItemResult {
	amount := randomAmount(opts.Rand, opts.MinAmount, opts.MaxAmount)
	tx := &models.Transaction{
		UserID: user.ID,
		Amount: amount,
		Status: opts.Status,
	}
	notificationType := models.NotificationCreditAlert
	if i%2 == 0 {
		tx.TransactionType = models.TransactionTypeReceived
		tx.Description = "Payment received"
		tx.ReceiverID = &user.ID
		tx.ReceiverAccountID = &account.ID
	} else {
		tx.TransactionType = models.TransactionTypeTransfer
		tx.Description = "Payment sent"
		tx.SenderID = &user.ID
		tx.SenderAccountID = &account.ID
		notificationType = models.NotificationDebitAlert
	}

	item := ItemResult{Index: i, Kind: tx.TransactionType, Amount: amount}

	// Дата перезаписывается после создания, порядок вставки не совпадает с хронологией
	days := opts.Rand.IntN(opts.WindowDays + 1)
	date := now.Add(-time.Duration(days) * 24 * time.Hour)

	err := s.db.DB.Transaction(func(dbtx *gorm.DB) error {
		if err := dbtx.Create(tx).Error; err != nil {
			return fmt.Errorf("транзакция: %v", err)
		}
		notification := &models.Notification{
			UserID:           user.ID,
			NotificationType: notificationType,
			Amount:           decimal.NewNullDecimal(decimal.NewFromInt(amount.IntPart())),
		}
		if err := dbtx.Create(notification).Error; err != nil {
			return fmt.Errorf("уведомление: %v", err)
		}
		if err := dbtx.Model(tx).UpdateColumn("date", date).Error; err != nil {
			return fmt.Errorf("дата транзакции: %v", err)
		}
		return nil
	})
	if err != nil {
		item.Err = err
		return item
	}
	item.TransactionID = tx.TransactionID
	item.Date = date
	return item
}

// SeedDemo создает суперпользователя и демо-пользователя с большим балансом и историей операций.
// Повторный запуск не создает дублей пользователей и счетов, но добавляет новые транзакции.
func (s *SeedService) SeedDemo(opts SeedDemoOptions) (*SeedDemoReport, error) {
	report := &SeedDemoReport{}

	superEmail := strings.TrimSpace(opts.SuperuserEmail)
	su, created, err := s.users.UpsertUser(UpsertUserParams{
		Email:       superEmail,
		Password:    opts.SuperuserPassword,
		FirstName:   "Super",
		LastName:    "Admin",
		IsStaff:     true,
		IsSuperuser: true,
	})
	if err != nil {
		return nil, fmt.Errorf("суперпользователь %s: %w", superEmail, err)
	}
	if !created {
		if _, err := s.users.PromoteSuperuser(su, opts.SuperuserPassword); err != nil {
			return nil, fmt.Errorf("суперпользователь %s: %w", superEmail, err)
		}
	}
	if _, _, err := s.users.EnsureAccount(su); err != nil {
		return nil, err
	}
	report.Superuser, report.SuperuserCreated = su, created

	demoEmail := strings.TrimSpace(opts.DemoEmail)
	demo, created, err := s.users.UpsertUser(UpsertUserParams{
		Email:     demoEmail,
		Password:  opts.DemoPassword,
		FirstName: "Demo",
		LastName:  "User",
	})
	if err != nil {
		return nil, fmt.Errorf("демо-пользователь %s: %w", demoEmail, err)
	}
	report.DemoUser, report.DemoCreated = demo, created

	account, _, err := s.users.EnsureAccount(demo)
	if err != nil {
		return nil, err
	}
	report.Balance, err = s.accounts.ApplyDemoBalance(account, opts.Balance)
	if err != nil {
		return nil, err
	}
	report.Account = account

	report.Transactions = s.GenerateTransactions(account, demo, opts.Transactions, opts.Batch)
	utils.LogInfo("Демо-данные: %d транзакций создано, %d ошибок", report.Transactions.Succeeded(), report.Transactions.Failed())
	return report, nil
}

// GenerateDemoData создает count демо-пользователей со случайными счетами и perAccount
// операциями пополнения, снятия и перевода. Ошибка по одному счету не прерывает остальные.
func (s *SeedService) GenerateDemoData(count, perAccount int, src SeedSource) DemoDataReport {
	src = src.withDefaults()
	var report DemoDataReport
	for i := 1; i <= count; i++ {
		username := fmt.Sprintf("demo_user_%d", i)
		created, transactions, err := s.generateDemoAccount(i, username, perAccount, src)
		if created {
			report.AccountsCreated++
		}
		report.TransactionsCreated += transactions
		if err != nil {
			utils.LogError("Ошибка демо-счета %s: %v", username, err)
			report.Failures = append(report.Failures, AccountFailure{Index: i, Username: username, Err: err})
		}
		if s.metrics != nil {
			s.metrics.RecordSeedItem(err)
		}
	}
	return report
}

func (s *SeedService) generateDemoAccount(i int, username string, perAccount int, src SeedSource) (bool, int, error) {
	user, _, err := s.users.UpsertUser(UpsertUserParams{
		Email:     fmt.Sprintf("demo%d@example.com", i),
		Username:  username,
		Password:  demoDataPassword,
		FirstName: "Demo",
		LastName:  fmt.Sprintf("User %d", i),
	})
	if err != nil {
		return false, 0, err
	}

	account, created, err := s.users.EnsureAccountWithDefaults(user, models.Account{
		AccountType:    models.AccountTypes[src.Rand.IntN(len(models.AccountTypes))],
		PinNumber:      "1234",
		AccountBalance: models.NewMoney(randomAmount(src.Rand, decimal.NewFromInt(1000), decimal.NewFromInt(50000))),
		AccountStatus:  models.AccountStatusActive,
	})
	if err != nil {
		return false, 0, err
	}

	kinds := []models.TransactionType{
		models.TransactionTypeDeposit,
		models.TransactionTypeWithdrawal,
		models.TransactionTypeTransfer,
	}
	transactions := 0
	for j := 0; j < perAccount; j++ {
		kind := kinds[src.Rand.IntN(len(kinds))]
		tx := &models.Transaction{
			UserID:          user.ID,
			Amount:          randomAmount(src.Rand, decimal.NewFromInt(50), decimal.NewFromInt(5000)),
			Description:     fmt.Sprintf("%s - Demo Transaction %d", capitalize(string(kind)), j+1),
			Status:          models.TransactionStatusSuccess,
			TransactionType: kind,
			Date:            src.Now(),
		}
		if kind == models.TransactionTypeDeposit {
			tx.ReceiverID, tx.ReceiverAccountID = &user.ID, &account.ID
		} else {
			tx.SenderID, tx.SenderAccountID = &user.ID, &account.ID
		}
		if err := s.db.CreateTransaction(tx); err != nil {
			return created, transactions, err
		}
		transactions++
	}
	return created, transactions, nil
}

// CreateTestUsers создает фиксированный набор тестовых пользователей с паролем password123.
// Существующие пользователи пропускаются.
func (s *SeedService) CreateTestUsers(src SeedSource) (TestUsersReport, error) {
	src = src.withDefaults()
	var report TestUsersReport
	for _, tu := range testUsers {
		if _, err := s.db.GetUserByUsername(tu.username); err == nil {
			report.Skipped = append(report.Skipped, tu.username)
			continue
		}

		user, created, err := s.users.UpsertUser(UpsertUserParams{
			Email:     tu.email,
			Username:  tu.username,
			Password:  testUserPassword,
			FirstName: tu.firstName,
			LastName:  tu.lastName,
		})
		if err != nil {
			return report, err
		}
		if !created {
			report.Skipped = append(report.Skipped, tu.username)
			continue
		}

		account, _, err := s.users.EnsureAccount(user)
		if err != nil {
			return report, err
		}
		balance := decimal.NewFromInt(int64(1000 + src.Rand.IntN(49001)))
		if _, err := s.accounts.ApplyDemoBalance(account, balance.StringFixed(2)); err != nil {
			return report, err
		}

		n, err := s.createTestTransactions(user, account, src)
		if err != nil {
			return report, err
		}
		report.Created = append(report.Created, TestUserResult{User: user, Account: account, Balance: balance, Transactions: n})
	}
	return report, nil
}

func (s *SeedService) createTestTransactions(user *models.User, account *models.Account, src SeedSource) (int, error) {
	statuses := []models.TransactionStatus{
		models.TransactionStatusCompleted,
		models.TransactionStatusCompleted,
		models.TransactionStatusCompleted,
		models.TransactionStatusPending,
	}

	n := 3 + src.Rand.IntN(3)
	for i := 0; i < n; i++ {
		date := src.Now().Add(-time.Duration(1+src.Rand.IntN(7)) * 24 * time.Hour)
		amount := decimal.NewFromInt(int64(50 + src.Rand.IntN(1951)))
		tx := &models.Transaction{
			UserID: user.ID,
			Amount: amount,
			Status: statuses[src.Rand.IntN(len(statuses))],
			Date:   date,
		}
		notificationType := models.NotificationDebitAlert
		if src.Rand.IntN(2) == 0 {
			tx.TransactionType = models.TransactionTypeReceived
			tx.Description = "Payment received"
			tx.ReceiverID, tx.ReceiverAccountID = &user.ID, &account.ID
			notificationType = models.NotificationCreditAlert
		} else {
			tx.TransactionType = models.TransactionTypeTransfer
			tx.Description = "Payment sent"
			tx.SenderID, tx.SenderAccountID = &user.ID, &account.ID
		}
		if err := s.db.CreateTransaction(tx); err != nil {
			return i, err
		}
		notification := &models.Notification{
			UserID:           user.ID,
			NotificationType: notificationType,
			Amount:           decimal.NewNullDecimal(amount),
			Date:             date,
		}
		if err := s.db.CreateNotification(notification); err != nil {
			return i, err
		}
	}
	return n, nil
}

// randomAmount возвращает сумму с точностью до копейки, равномерно распределенную в [from, to]
func randomAmount(r *rand.Rand, from, to decimal.Decimal) decimal.Decimal {
	lo := from.Shift(2).IntPart()
	hi := to.Shift(2).IntPart()
	if hi <= lo {
		return decimal.New(lo, -2)
	}
	return decimal.New(lo+r.Int64N(hi-lo+1), -2)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
