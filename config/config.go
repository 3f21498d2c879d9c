package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config представляет конфигурацию приложения
type Config struct {
	Server struct {
		Port int
	}
	DB struct {
		Driver         string // postgres или sqlite
		Host           string
		Port           int
		User           string
		Password       string
		DBName         string
		Path           string // путь к файлу sqlite
		MigrationsPath string
	}
	JWT struct {
		SecretKey string
		ExpiresIn int // в часах
	}
	SMTP struct {
		Enabled  bool
		Host     string
		Port     int
		Username string
		Password string
		From     string
	}
	Log struct {
		Dir string
	}
	CardHMACKey string // Ключ для HMAC-отпечатка номера карты
	SiteURL     string // Базовый адрес сайта для sitemap.xml
}

// defaults содержит значения по умолчанию и имена переменных окружения
var defaults = []struct {
	key, env string
	value    interface{}
}{
	{"server.port", "SERVER_PORT", 8080},
	{"db.driver", "DB_DRIVER", "postgres"},
	{"db.host", "DB_HOST", "localhost"},
	{"db.port", "DB_PORT", 5432},
	{"db.user", "DB_USER", "postgres"},
	{"db.password", "DB_PASSWORD", "postgres"},
	{"db.name", "DB_NAME", "paylio"},
	{"db.path", "DB_PATH", "paylio.db"},
	{"db.migrations", "DB_MIGRATIONS_PATH", "migrations"},
	{"jwt.secret", "JWT_SECRET_KEY", "your-secret-key-here"},
	{"jwt.expires", "JWT_EXPIRES_IN", 24},
	{"smtp.enabled", "SMTP_ENABLED", false},
	{"smtp.host", "SMTP_HOST", "smtp.gmail.com"},
	{"smtp.port", "SMTP_PORT", 587},
	{"smtp.username", "SMTP_USERNAME", "your-email@gmail.com"},
	{"smtp.password", "SMTP_PASSWORD", "your-app-password"},
	{"smtp.from", "SMTP_FROM", "your-email@gmail.com"},
	{"log.dir", "LOG_DIR", "logs"},
	{"card.hmac", "CARD_HMAC_KEY", "your-card-hmac-key-here"},
	{"site.url", "SITE_URL", "http://localhost:8080"},
}

// NewConfig создает новый экземпляр конфигурации.
// Порядок: переменные окружения (включая .env), затем значения по умолчанию.
func NewConfig() (*Config, error) {
	// .env необязателен
	_ = godotenv.Load()

	v := viper.New()
	for _, d := range defaults {
		v.SetDefault(d.key, d.value)
		if err := v.BindEnv(d.key, d.env); err != nil {
			return nil, fmt.Errorf("ошибка привязки переменной %s: %v", d.env, err)
		}
	}

	return fromViper(v)
}

// fromViper собирает Config из заполненного экземпляра viper
func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{}

	// Настройки сервера
	port, err := intValue(v, "server.port")
	if err != nil {
		return nil, fmt.Errorf("неверный формат порта сервера: %v", err)
	}
	cfg.Server.Port = port

	// Настройки базы данных
	cfg.DB.Driver = strings.ToLower(v.GetString("db.driver"))
	if cfg.DB.Driver != "postgres" && cfg.DB.Driver != "sqlite" {
		return nil, fmt.Errorf("неизвестный драйвер базы данных: %s", cfg.DB.Driver)
	}
	cfg.DB.Host = v.GetString("db.host")
	dbPort, err := intValue(v, "db.port")
	if err != nil {
		return nil, fmt.Errorf("неверный формат порта базы данных: %v", err)
	}
	cfg.DB.Port = dbPort
	cfg.DB.User = v.GetString("db.user")
	cfg.DB.Password = v.GetString("db.password")
	cfg.DB.DBName = v.GetString("db.name")
	cfg.DB.Path = v.GetString("db.path")
	cfg.DB.MigrationsPath = v.GetString("db.migrations")

	// Настройки JWT
	cfg.JWT.SecretKey = v.GetString("jwt.secret")
	jwtExpiresIn, err := intValue(v, "jwt.expires")
	if err != nil {
		return nil, fmt.Errorf("неверный формат времени жизни JWT: %v", err)
	}
	cfg.JWT.ExpiresIn = jwtExpiresIn

	// Настройки SMTP
	cfg.SMTP.Enabled = v.GetBool("smtp.enabled")
	cfg.SMTP.Host = v.GetString("smtp.host")
	smtpPort, err := intValue(v, "smtp.port")
	if err != nil {
		return nil, fmt.Errorf("неверный формат порта SMTP: %v", err)
	}
	cfg.SMTP.Port = smtpPort
	cfg.SMTP.Username = v.GetString("smtp.username")
	cfg.SMTP.Password = v.GetString("smtp.password")
	cfg.SMTP.From = v.GetString("smtp.from")

	cfg.Log.Dir = v.GetString("log.dir")
	cfg.CardHMACKey = v.GetString("card.hmac")
	cfg.SiteURL = strings.TrimRight(v.GetString("site.url"), "/")

	return cfg, nil
}

// intValue строго разбирает целое число: viper.GetInt молча возвращает 0
func intValue(v *viper.Viper, key string) (int, error) {
	return strconv.Atoi(strings.TrimSpace(v.GetString(key)))
}
