package middleware

import (
	"encoding/base64"
	"net/http"
	"strconv"
	"strings"
	"time"

	"paylio/models"
	"paylio/utils"

	"github.com/gin-gonic/gin"
)

const (
	// SessionCookie хранит JWT веб-сессии
	SessionCookie = "token"
	// FlashCookie хранит одноразовое сообщение для следующей страницы
	FlashCookie = "flash"

	userKey        = "user"
	rateLimiterKey = "rateLimiter"
)

// Уровни flash-сообщений
const (
	FlashSuccess = "success"
	FlashWarning = "warning"
	FlashError   = "danger"
)

// Flash сообщение, показываемое один раз
type Flash struct {
	Level   string
	Message string
}

// RateLimit middleware для ограничения частоты запросов
func RateLimit(limiter *utils.RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		clientIP := c.ClientIP()

		if !limiter.Allow(clientIP) {
			c.Header("Retry-After", strconv.Itoa(int(time.Until(limiter.ResetTime(clientIP)).Seconds())+1))
			c.String(http.StatusTooManyRequests, "Too many requests")
			c.Abort()
			return
		}

		c.Header("X-RateLimit-Remaining", strconv.Itoa(limiter.Remaining(clientIP)))
		c.Header("X-RateLimit-Reset", limiter.ResetTime(clientIP).UTC().Format(time.RFC1123))

		c.Set(rateLimiterKey, limiter)
		c.Next()
	}
}

// ResetRateLimit обнуляет счетчик попыток клиента, например после успешного входа
func ResetRateLimit(c *gin.Context) {
	if v, ok := c.Get(rateLimiterKey); ok {
		if limiter, ok := v.(*utils.RateLimiter); ok {
			limiter.Reset(c.ClientIP())
		}
	}
}

// Logger middleware для логирования запросов
func Logger(metrics *utils.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()

		c.Next()

		duration := time.Since(startTime)
		if metrics != nil {
			metrics.RecordRequest(duration, c.Writer.Status())
		}
		utils.LogInfo("Request: %s %s - Status: %d - Duration: %v",
			c.Request.Method,
			c.Request.URL.Path,
			c.Writer.Status(),
			duration,
		)

		for _, e := range c.Errors {
			utils.LogError("Error: %v", e)
		}
	}
}

// Recovery middleware для обработки паник
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				utils.LogError("Panic recovered: %v", err)
				c.String(http.StatusInternalServerError, "Internal server error")
				c.Abort()
			}
		}()

		c.Next()
	}
}

// CurrentUser читает сессию из cookie и кладет пользователя в контекст.
// Запрос без сессии или с просроченной сессией проходит дальше анонимным.
func CurrentUser(tokens TokenParser, users UserFinder) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, err := c.Cookie(SessionCookie)
		if err != nil || tokenString == "" {
			c.Next()
			return
		}

		claims, err := tokens.Parse(tokenString)
		if err == nil {
			user, err := users.FindByID(claims.UserID)
			if err == nil && user.IsActive {
				c.Set(userKey, user)
			}
		}
		c.Next()
	}
}

// RequireLogin перенаправляет анонимных пользователей на страницу входа
func RequireLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if User(c) == nil {
			SetFlash(c, FlashWarning, "You need to login to access the dashboard")
			c.Redirect(http.StatusFound, "/user/sign-in/")
			c.Abort()
			return
		}
		c.Next()
	}
}

// User возвращает текущего пользователя или nil
func User(c *gin.Context) *models.User {
	if v, ok := c.Get(userKey); ok {
		if user, ok := v.(*models.User); ok {
			return user
		}
	}
	return nil
}

// SetSession выставляет cookie сессии
func SetSession(c *gin.Context, token string, expires time.Time) {
	maxAge := int(time.Until(expires).Seconds())
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookie, token, maxAge, "/", "", false, true)
}

// ClearSession удаляет cookie сессии
func ClearSession(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookie, "", -1, "/", "", false, true)
}

// SetFlash сохраняет сообщение для следующего запроса
func SetFlash(c *gin.Context, level, message string) {
	value := base64.RawURLEncoding.EncodeToString([]byte(level + "|" + message))
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(FlashCookie, value, 60, "/", "", false, true)
}

// PopFlash возвращает и удаляет сообщение, сохраненное SetFlash
func PopFlash(c *gin.Context) *Flash {
	value, err := c.Cookie(FlashCookie)
	if err != nil || value == "" {
		return nil
	}
	c.SetCookie(FlashCookie, "", -1, "/", "", false, true)

	raw, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return nil
	}
	level, message, ok := strings.Cut(string(raw), "|")
	if !ok {
		return nil
	}
	return &Flash{Level: level, Message: message}
}
