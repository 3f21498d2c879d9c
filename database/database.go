package database

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"paylio/config"
	"paylio/models"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Database представляет подключение к базе данных
type Database struct {
	DB  *gorm.DB
	cfg *config.Config
}

// NewDatabase создает новое подключение к базе данных согласно cfg.DB.Driver
func NewDatabase(cfg *config.Config) (*Database, error) {
	// Настраиваем логгер
	newLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  true,
		},
	)

	var dialector gorm.Dialector
	switch cfg.DB.Driver {
	case "sqlite":
		dialector = sqlite.Open(cfg.DB.Path)
	default:
		dialector = postgres.Open(postgresDSN(cfg))
	}

	// Открываем подключение
	db, err := gorm.Open(dialector, &gorm.Config{Logger: newLogger})
	if err != nil {
		return nil, fmt.Errorf("ошибка подключения к базе данных: %v", err)
	}

	// Настраиваем пул соединений
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("ошибка получения пула соединений: %v", err)
	}
	if cfg.DB.Driver == "sqlite" {
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(100)
		sqlDB.SetConnMaxLifetime(time.Hour)
	}

	return &Database{DB: db, cfg: cfg}, nil
}

// OpenSQLite открывает sqlite-базу и сразу мигрирует модели. Используется в тестах с ":memory:".
func OpenSQLite(dsn string) (*Database, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка подключения к базе данных: %v", err)
	}

	// Каждое соединение к ":memory:" видит свою базу
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("ошибка получения пула соединений: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	d := &Database{DB: db}
	if err := d.autoMigrate(); err != nil {
		return nil, err
	}
	return d, nil
}

// GetDB возвращает экземпляр GORM
func (d *Database) GetDB() *gorm.DB {
	return d.DB
}

// Close закрывает подключение к базе данных
func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Migrate выполняет автоматическую миграцию моделей, затем SQL-миграции (только postgres)
// и заполняет коды доступа у старых счетов
func (d *Database) Migrate() error {
	if err := d.autoMigrate(); err != nil {
		return fmt.Errorf("ошибка автоматической миграции моделей: %v", err)
	}

	if d.cfg != nil && d.cfg.DB.Driver == "postgres" {
		if err := runMigrations(d.cfg); err != nil {
			return fmt.Errorf("ошибка выполнения SQL миграций: %v", err)
		}
	}

	if _, err := d.BackfillAccessCodes(); err != nil {
		return fmt.Errorf("ошибка заполнения кодов доступа: %v", err)
	}
	return nil
}

// postgresDSN формирует строку подключения для gorm
func postgresDSN(cfg *config.Config) string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cfg.DB.Host,
		cfg.DB.Port,
		cfg.DB.User,
		cfg.DB.Password,
		cfg.DB.DBName,
	)
}

// runMigrations выполняет SQL миграции
func runMigrations(cfg *config.Config) error {
	// Формируем URL для миграций
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		cfg.DB.User,
		cfg.DB.Password,
		cfg.DB.Host,
		cfg.DB.Port,
		cfg.DB.DBName,
	)

	// Создаем экземпляр миграции
	m, err := migrate.New("file://"+cfg.DB.MigrationsPath, dsn)
	if err != nil {
		return fmt.Errorf("ошибка создания миграции: %v", err)
	}
	defer m.Close()

	// Выполняем миграции
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("ошибка выполнения миграций: %v", err)
	}

	return nil
}

// autoMigrate выполняет автоматическую миграцию моделей
func (d *Database) autoMigrate() error {
	err := d.DB.AutoMigrate(
		&models.User{},
		&models.Account{},
		&models.KYC{},
		&models.Transaction{},
		&models.Notification{},
		&models.CreditCard{},
	)
	if err != nil {
		return fmt.Errorf("ошибка автоматической миграции: %v", err)
	}

	return nil
}

// BackfillAccessCodes выдает уникальный код доступа каждому счету без кода.
// Возвращает число обновленных счетов.
func (d *Database) BackfillAccessCodes() (int, error) {
	var accounts []models.Account
	if err := d.DB.Where("access_code IS NULL").Find(&accounts).Error; err != nil {
		return 0, err
	}

	var used []string
	if err := d.DB.Model(&models.Account{}).Where("access_code IS NOT NULL").Pluck("access_code", &used).Error; err != nil {
		return 0, err
	}
	existing := make(map[string]bool, len(used))
	for _, code := range used {
		existing[code] = true
	}

	for i := range accounts {
		code, err := models.NewAccessCode(existing)
		if err != nil {
			return i, err
		}
		if err := d.DB.Model(&accounts[i]).Update("access_code", code).Error; err != nil {
			return i, err
		}
		existing[code] = true
	}
	return len(accounts), nil
}
